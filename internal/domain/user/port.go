package user

import (
	"context"
	"time"
)

// Repo returns ErrNotFound for unknown users and ErrEmailTaken when Create
// hits the unique email constraint.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	MarkVerified(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}
