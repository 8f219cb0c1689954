// Package hash wraps one-way password hashing.
package hash

import (
	"errors"
	"strings"
)

var ErrUnknownFormat = errors.New("unknown password hash format")

// Hasher performs one-way password hashing and verification.
type Hasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) (bool, error)
}

// Manager hashes with argon2id and checks both argon2id and legacy bcrypt
// hashes, picking the algorithm from the hash prefix.
type Manager struct {
	argon  Argon2IDHasher
	bcrypt BcryptHasher
}

var _ Hasher = (*Manager)(nil)

func New() *Manager {
	return &Manager{argon: NewArgon2IDHasher(), bcrypt: NewBcryptHasher()}
}

func (m *Manager) Hash(password string) (string, error) {
	return m.argon.Hash(password)
}

func (m *Manager) Check(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return m.argon.Check(password, hash)
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return m.bcrypt.Check(password, hash)
	default:
		return false, ErrUnknownFormat
	}
}
