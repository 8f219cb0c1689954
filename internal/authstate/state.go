// Package authstate classifies the caller of a request.
package authstate

import (
	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/domain/session"
)

// RefreshTokenKey is the session entry holding the encoded refresh claim.
const RefreshTokenKey = "refresh_token"

type Kind int

const (
	KindGuest Kind = iota
	KindNotVerified
	KindConnected
)

func (k Kind) String() string {
	switch k {
	case KindConnected:
		return "connected"
	case KindNotVerified:
		return "not_verified"
	default:
		return "guest"
	}
}

// State is one of Connected(claim), NotVerified(subject) or Guest.
type State struct {
	Kind      Kind
	Claim     *auth.AccessClaim
	SubjectID int64
}

func Guest() State { return State{Kind: KindGuest} }

func NotVerified(subjectID int64) State {
	return State{Kind: KindNotVerified, SubjectID: subjectID}
}

func Connected(c *auth.AccessClaim) State {
	return State{Kind: KindConnected, Claim: c, SubjectID: c.UserID}
}

// Request carries the credential carriers of one inbound call. Session may be
// nil when the transport has none.
type Request struct {
	Authorization string
	Session       session.Session
}
