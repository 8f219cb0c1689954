package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/NordCoder/Warden/internal/domain/user"
)

// Message codes carried in "message" envelopes.
const (
	MsgCredentialsIncorrect = "CREDENTIALS_INCORRECT"
	MsgUserNotVerified      = "USER_NOT_VERIFIED"
	MsgEmailAlreadyExists   = "EMAIL_ALREADY_EXISTS"
	MsgTokenInvalid         = "TOKEN_INVALID"
	MsgTokenExpired         = "TOKEN_EXPIRED"
	MsgUserVerified         = "USER_VERIFIED"
	MsgUserNotLogin         = "USER_NOT_LOGIN"
	MsgUserLoggedOut        = "USER_LOGGED_OUT"
	MsgPasswordInvalid      = "PASSWORD_INVALID"
)

const (
	typeToken   = "token"
	typeMessage = "message"
	typeObject  = "object"
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type userView struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	IsAdmin    bool       `json:"is_admin"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toUserView(u *user.User) userView {
	return userView{
		ID:         u.ID,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		Verified:   u.Verified(),
		VerifiedAt: u.VerifiedAt,
		CreatedAt:  u.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeToken(w http.ResponseWriter, token string) {
	writeJSON(w, http.StatusOK, envelope{Type: typeToken, Data: token})
}

func writeMessage(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, envelope{Type: typeMessage, Data: code})
}

func writeObject(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, envelope{Type: typeObject, Data: v})
}

// writeEmpty answers with a status and no envelope.
func writeEmpty(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}
