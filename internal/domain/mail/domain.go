package mail

import (
	"context"
	"time"
)

type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Requested asks the notifier to deliver an action link.
type Requested struct {
	Kind        Kind      `json:"kind"`
	To          string    `json:"to"`
	UserID      int64     `json:"user_id"`
	ActionKey   string    `json:"action_key"`
	RequestedAt time.Time `json:"requested_at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, m Requested) error
}

type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
