// Package httpapi exposes the authentication flows as JSON over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/NordCoder/Warden/internal/authstate"
	"github.com/NordCoder/Warden/internal/domain/user"
	flows "github.com/NordCoder/Warden/internal/services/auth-api/auth"
	"go.uber.org/zap"
)

type Flows interface {
	Login(ctx context.Context, req authstate.Request, in flows.Credentials) (flows.LoginResult, error)
	Register(ctx context.Context, req authstate.Request, in flows.Credentials) (flows.RegisterResult, error)
	Verify(ctx context.Context, req authstate.Request, key string) (flows.VerifyResult, error)
	Forgot(ctx context.Context, req authstate.Request, email string) (flows.ForgotResult, error)
	ValidateResetKey(ctx context.Context, key string) (flows.ResetStatus, error)
	ChangePassword(ctx context.Context, key, newPassword string) (flows.ResetStatus, error)
	Refresh(ctx context.Context, req authstate.Request) (flows.RefreshResult, error)
	Logout(ctx context.Context, req authstate.Request) error
	Me(ctx context.Context, req authstate.Request) (*user.User, error)
}

var _ Flows = (*flows.Usecase)(nil)

type Opts struct {
	Logger      *zap.Logger
	Cookie      CookieConfig
	CORSOrigins []string
}

type Server struct {
	flows    Flows
	sessions SessionStore
	cookie   CookieConfig
	origins  []string
	log      *zap.Logger
}

func NewServer(f Flows, sessions SessionStore, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if o.Cookie.Name == "" {
		o.Cookie.Name = "sid"
	}
	if o.Cookie.Path == "" {
		o.Cookie.Path = "/"
	}
	return &Server{
		flows:    f,
		sessions: sessions,
		cookie:   o.Cookie,
		origins:  o.CORSOrigins,
		log:      log.With(zap.String("component", "httpapi")),
	}
}

// Routes mounts the auth endpoints under /api/auth.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/verify", s.verify)
	mux.HandleFunc("POST /api/auth/refresh_token", s.refresh)
	mux.HandleFunc("POST /api/auth/logout", s.logout)
	mux.HandleFunc("POST /api/auth/forgot", s.forgot)
	mux.HandleFunc("POST /api/auth/reset/validate", s.resetValidate)
	mux.HandleFunc("POST /api/auth/reset/update", s.resetUpdate)
	mux.HandleFunc("GET /api/auth/me", s.me)

	return cors(s.origins)(accessLog(s.log, mux))
}

type actionKeyBody struct {
	ActionKey string `json:"action_key"`
}

type emailBody struct {
	Email string `json:"email"`
}

type resetBody struct {
	ActionKey   string `json:"action_key"`
	NewPassword string `json:"new_password"`
}

func (s *Server) authRequest(w http.ResponseWriter, r *http.Request) (authstate.Request, *cookieSession) {
	sess := newCookieSession(w, r, s.sessions, s.cookie)
	return authstate.Request{Authorization: r.Header.Get("Authorization"), Session: sess}, sess
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in flows.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, _ := s.authRequest(w, r)
	res, err := s.flows.Login(r.Context(), req, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch res.Status {
	case flows.LoginConnected:
		writeToken(w, res.Token)
	case flows.LoginNotVerified:
		writeMessage(w, http.StatusOK, MsgUserNotVerified)
	default:
		writeMessage(w, http.StatusUnauthorized, MsgCredentialsIncorrect)
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in flows.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, _ := s.authRequest(w, r)
	res, err := s.flows.Register(r.Context(), req, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch res.Status {
	case flows.RegisterConnected:
		writeToken(w, res.Token)
	case flows.RegisterNotVerified:
		writeMessage(w, http.StatusOK, MsgUserNotVerified)
	case flows.RegisterEmailExists:
		writeMessage(w, http.StatusConflict, MsgEmailAlreadyExists)
	default:
		writeMessage(w, http.StatusBadRequest, MsgCredentialsIncorrect)
	}
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	var in actionKeyBody
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, _ := s.authRequest(w, r)
	res, err := s.flows.Verify(r.Context(), req, in.ActionKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch res.Status {
	case flows.VerifyConnected:
		writeToken(w, res.Token)
	case flows.VerifyVerified:
		writeMessage(w, http.StatusOK, MsgUserVerified)
	case flows.VerifyExpired:
		writeMessage(w, http.StatusUnauthorized, MsgTokenExpired)
	default:
		writeMessage(w, http.StatusNotFound, MsgTokenInvalid)
	}
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	req, _ := s.authRequest(w, r)
	res, err := s.flows.Refresh(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch res.Status {
	case flows.RefreshConnected:
		writeToken(w, res.Token)
	case flows.RefreshNotVerified:
		writeMessage(w, http.StatusOK, MsgUserNotVerified)
	default:
		writeMessage(w, http.StatusUnauthorized, MsgUserNotLogin)
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	req, sess := s.authRequest(w, r)
	if err := s.flows.Logout(r.Context(), req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.destroy(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, MsgUserLoggedOut)
}

func (s *Server) forgot(w http.ResponseWriter, r *http.Request) {
	var in emailBody
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, _ := s.authRequest(w, r)
	res, err := s.flows.Forgot(r.Context(), req, in.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch res.Status {
	case flows.ForgotConnected:
		writeToken(w, res.Token)
	case flows.ForgotNotVerified:
		writeMessage(w, http.StatusOK, MsgUserNotVerified)
	default:
		writeEmpty(w, http.StatusOK)
	}
}

func (s *Server) resetValidate(w http.ResponseWriter, r *http.Request) {
	var in actionKeyBody
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.flows.ValidateResetKey(r.Context(), in.ActionKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch st {
	case flows.ResetValid:
		writeEmpty(w, http.StatusOK)
	case flows.ResetExpired:
		writeEmpty(w, http.StatusUnauthorized)
	default:
		writeEmpty(w, http.StatusNotFound)
	}
}

func (s *Server) resetUpdate(w http.ResponseWriter, r *http.Request) {
	var in resetBody
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.flows.ChangePassword(r.Context(), in.ActionKey, in.NewPassword)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch st {
	case flows.ResetPasswordChanged:
		writeEmpty(w, http.StatusOK)
	case flows.ResetExpired:
		writeMessage(w, http.StatusUnauthorized, MsgTokenExpired)
	case flows.ResetPasswordInvalid:
		writeMessage(w, http.StatusUnauthorized, MsgPasswordInvalid)
	default:
		writeMessage(w, http.StatusUnauthorized, MsgTokenInvalid)
	}
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	req, _ := s.authRequest(w, r)
	u, err := s.flows.Me(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u == nil {
		writeMessage(w, http.StatusUnauthorized, MsgUserNotLogin)
		return
	}
	writeObject(w, toUserView(u))
}
