package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/authstate"
	"github.com/NordCoder/Warden/internal/domain/session"
	"github.com/NordCoder/Warden/internal/domain/user"
	flows "github.com/NordCoder/Warden/internal/services/auth-api/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSessions struct {
	data map[string]map[string]string
}

func newMemSessions() *memSessions { return &memSessions{data: map[string]map[string]string{}} }

func (m *memSessions) Bind(sid string) session.Session { return &memSession{m: m, sid: sid} }

func (m *memSessions) Destroy(_ context.Context, sid string) error {
	delete(m.data, sid)
	return nil
}

type memSession struct {
	m   *memSessions
	sid string
}

func (s *memSession) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.m.data[s.sid][key]
	return v, ok, nil
}

func (s *memSession) Set(_ context.Context, key, value string) error {
	if s.m.data[s.sid] == nil {
		s.m.data[s.sid] = map[string]string{}
	}
	s.m.data[s.sid][key] = value
	return nil
}

func (s *memSession) Remove(_ context.Context, key string) error {
	delete(s.m.data[s.sid], key)
	return nil
}

// stubFlows answers with canned results and records what it saw.
type stubFlows struct {
	login    flows.LoginResult
	register flows.RegisterResult
	verify   flows.VerifyResult
	forgot   flows.ForgotResult
	reset    flows.ResetStatus
	refresh  flows.RefreshResult
	me       *user.User
	err      error

	gotCreds  flows.Credentials
	gotKey    string
	gotPass   string
	gotAuth   string
	loggedOut bool
}

func (f *stubFlows) Login(ctx context.Context, req authstate.Request, in flows.Credentials) (flows.LoginResult, error) {
	f.gotCreds, f.gotAuth = in, req.Authorization
	if f.login.Status != flows.LoginCredentialsIncorrect {
		_ = req.Session.Set(ctx, authstate.RefreshTokenKey, "refresh")
	}
	return f.login, f.err
}

func (f *stubFlows) Register(ctx context.Context, req authstate.Request, in flows.Credentials) (flows.RegisterResult, error) {
	f.gotCreds = in
	if f.register.Status == flows.RegisterNotVerified {
		_ = req.Session.Set(ctx, authstate.RefreshTokenKey, "refresh")
	}
	return f.register, f.err
}

func (f *stubFlows) Verify(_ context.Context, _ authstate.Request, key string) (flows.VerifyResult, error) {
	f.gotKey = key
	return f.verify, f.err
}

func (f *stubFlows) Forgot(_ context.Context, _ authstate.Request, email string) (flows.ForgotResult, error) {
	f.gotCreds.Email = email
	return f.forgot, f.err
}

func (f *stubFlows) ValidateResetKey(_ context.Context, key string) (flows.ResetStatus, error) {
	f.gotKey = key
	return f.reset, f.err
}

func (f *stubFlows) ChangePassword(_ context.Context, key, pw string) (flows.ResetStatus, error) {
	f.gotKey, f.gotPass = key, pw
	return f.reset, f.err
}

func (f *stubFlows) Refresh(context.Context, authstate.Request) (flows.RefreshResult, error) {
	return f.refresh, f.err
}

func (f *stubFlows) Logout(ctx context.Context, req authstate.Request) error {
	f.loggedOut = true
	return req.Session.Remove(ctx, authstate.RefreshTokenKey)
}

func (f *stubFlows) Me(context.Context, authstate.Request) (*user.User, error) {
	return f.me, f.err
}

func newTestServer(f Flows) (*Server, *memSessions) {
	sessions := newMemSessions()
	return NewServer(f, sessions, Opts{
		Cookie:      CookieConfig{Name: "sid", Path: "/", TTL: time.Hour},
		CORSOrigins: []string{"http://app.local"},
	}), sessions
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestLogin_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		res    flows.LoginResult
		status int
		env    envelope
	}{
		{"connected", flows.LoginResult{Status: flows.LoginConnected, Token: "jwt"}, 200, envelope{Type: typeToken, Data: "jwt"}},
		{"not verified", flows.LoginResult{Status: flows.LoginNotVerified}, 200, envelope{Type: typeMessage, Data: MsgUserNotVerified}},
		{"bad credentials", flows.LoginResult{Status: flows.LoginCredentialsIncorrect}, 401, envelope{Type: typeMessage, Data: MsgCredentialsIncorrect}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := &stubFlows{login: c.res}
			srv, _ := newTestServer(f)
			rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"Abcdef1!"}`)
			assert.Equal(t, c.status, rec.Code)
			assert.Equal(t, c.env, decodeEnvelope(t, rec))
			assert.Equal(t, flows.Credentials{Email: "a@b.com", Password: "Abcdef1!"}, f.gotCreds)
		})
	}
}

func TestLogin_CreatesSessionCookie(t *testing.T) {
	f := &stubFlows{login: flows.LoginResult{Status: flows.LoginNotVerified}}
	srv, sessions := newTestServer(f)
	h := srv.Routes()

	rec := do(t, h, http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"Abcdef1!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	sid := cookies[0]
	assert.Equal(t, "sid", sid.Name)
	assert.True(t, sid.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, sid.SameSite)
	assert.Equal(t, 3600, sid.MaxAge)
	assert.Equal(t, "refresh", sessions.data[sid.Value][authstate.RefreshTokenKey])

	// Logging in again rotates the id and drops the old session.
	rec = do(t, h, http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"Abcdef1!"}`, &http.Cookie{Name: "sid", Value: sid.Value})
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, sid.Value, cookies[0].Value)
	assert.NotContains(t, sessions.data, sid.Value)
	assert.Equal(t, "refresh", sessions.data[cookies[0].Value][authstate.RefreshTokenKey])
	assert.Len(t, sessions.data, 1)
}

func TestLogin_PlantedSidIsNeverAdopted(t *testing.T) {
	const planted = "11111111-2222-4333-8444-555555555555"
	for _, path := range []string{"/api/auth/login", "/api/auth/register"} {
		t.Run(path, func(t *testing.T) {
			f := &stubFlows{
				login:    flows.LoginResult{Status: flows.LoginConnected, Token: "t"},
				register: flows.RegisterResult{Status: flows.RegisterNotVerified},
			}
			srv, sessions := newTestServer(f)

			rec := do(t, srv.Routes(), http.MethodPost, path, `{"email":"a@b.com","password":"Abcdef1!"}`, &http.Cookie{Name: "sid", Value: planted})
			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.NotEqual(t, planted, cookies[0].Value)
			assert.NotContains(t, sessions.data, planted)
			assert.Contains(t, sessions.data[cookies[0].Value], authstate.RefreshTokenKey)
		})
	}
}

func TestLogin_ForgedSidIsIgnored(t *testing.T) {
	f := &stubFlows{login: flows.LoginResult{Status: flows.LoginConnected, Token: "t"}}
	srv, sessions := newTestServer(f)

	rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/login", `{}`, &http.Cookie{Name: "sid", Value: "../../etc"})
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "../../etc", cookies[0].Value)
	assert.NotContains(t, sessions.data, "../../etc")
}

func TestGuestReadDoesNotCreateSession(t *testing.T) {
	srv, sessions := newTestServer(&stubFlows{refresh: flows.RefreshResult{Status: flows.RefreshGuest}})
	rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/refresh_token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, envelope{Type: typeMessage, Data: MsgUserNotLogin}, decodeEnvelope(t, rec))
	assert.Empty(t, rec.Result().Cookies())
	assert.Empty(t, sessions.data)
}

func TestRegister_StatusMapping(t *testing.T) {
	cases := map[flows.RegisterStatus]struct {
		status int
		msg    string
	}{
		flows.RegisterNotVerified: {200, MsgUserNotVerified},
		flows.RegisterEmailExists: {409, MsgEmailAlreadyExists},
		flows.RegisterInvalid:     {400, MsgCredentialsIncorrect},
	}
	for st, want := range cases {
		srv, _ := newTestServer(&stubFlows{register: flows.RegisterResult{Status: st}})
		rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/register", `{"email":"a@b.com","password":"x"}`)
		assert.Equal(t, want.status, rec.Code, st.String())
		assert.Equal(t, envelope{Type: typeMessage, Data: want.msg}, decodeEnvelope(t, rec))
	}
}

func TestVerify_StatusMapping(t *testing.T) {
	cases := []struct {
		res    flows.VerifyResult
		status int
		env    envelope
	}{
		{flows.VerifyResult{Status: flows.VerifyConnected, Token: "jwt"}, 200, envelope{Type: typeToken, Data: "jwt"}},
		{flows.VerifyResult{Status: flows.VerifyVerified}, 200, envelope{Type: typeMessage, Data: MsgUserVerified}},
		{flows.VerifyResult{Status: flows.VerifyExpired}, 401, envelope{Type: typeMessage, Data: MsgTokenExpired}},
		{flows.VerifyResult{Status: flows.VerifyInvalid}, 404, envelope{Type: typeMessage, Data: MsgTokenInvalid}},
	}
	for _, c := range cases {
		f := &stubFlows{verify: c.res}
		srv, _ := newTestServer(f)
		rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/verify", `{"action_key":"k-1"}`)
		assert.Equal(t, c.status, rec.Code)
		assert.Equal(t, c.env, decodeEnvelope(t, rec))
		assert.Equal(t, "k-1", f.gotKey)
	}
}

func TestForgot(t *testing.T) {
	f := &stubFlows{forgot: flows.ForgotResult{Status: flows.ForgotSent}}
	srv, _ := newTestServer(f)
	rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/forgot", `{"email":"nobody@b.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "nobody@b.com", f.gotCreds.Email)

	f.forgot = flows.ForgotResult{Status: flows.ForgotConnected, Token: "jwt"}
	rec = do(t, srv.Routes(), http.MethodPost, "/api/auth/forgot", `{"email":"a@b.com"}`)
	assert.Equal(t, envelope{Type: typeToken, Data: "jwt"}, decodeEnvelope(t, rec))
}

func TestResetValidate(t *testing.T) {
	for st, code := range map[flows.ResetStatus]int{
		flows.ResetValid:   200,
		flows.ResetExpired: 401,
		flows.ResetInvalid: 404,
	} {
		srv, _ := newTestServer(&stubFlows{reset: st})
		rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/reset/validate", `{"action_key":"k"}`)
		assert.Equal(t, code, rec.Code, st.String())
		assert.Empty(t, rec.Body.String())
	}
}

func TestResetUpdate(t *testing.T) {
	cases := map[flows.ResetStatus]string{
		flows.ResetInvalid:         MsgTokenInvalid,
		flows.ResetExpired:         MsgTokenExpired,
		flows.ResetPasswordInvalid: MsgPasswordInvalid,
	}
	for st, msg := range cases {
		srv, _ := newTestServer(&stubFlows{reset: st})
		rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/reset/update", `{"action_key":"k","new_password":"p"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, envelope{Type: typeMessage, Data: msg}, decodeEnvelope(t, rec))
	}

	f := &stubFlows{reset: flows.ResetPasswordChanged}
	srv, _ := newTestServer(f)
	rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/reset/update", `{"action_key":"k","new_password":"Newpass1!"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Newpass1!", f.gotPass)
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := &stubFlows{login: flows.LoginResult{Status: flows.LoginConnected, Token: "t"}}
	srv, sessions := newTestServer(f)
	h := srv.Routes()
	sid := do(t, h, http.MethodPost, "/api/auth/login", `{}`).Result().Cookies()[0]

	rec := do(t, h, http.MethodPost, "/api/auth/logout", "", &http.Cookie{Name: "sid", Value: sid.Value})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, envelope{Type: typeMessage, Data: MsgUserLoggedOut}, decodeEnvelope(t, rec))
	assert.True(t, f.loggedOut)
	assert.NotContains(t, sessions.data, sid.Value)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMe(t *testing.T) {
	srv, _ := newTestServer(&stubFlows{})
	rec := do(t, srv.Routes(), http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &stubFlows{me: &user.User{ID: 7, Email: "a@b.com", Password: "secret-hash", VerifiedAt: &at, IsAdmin: true}}
	srv, _ = newTestServer(f)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
	var body struct {
		Type string   `json:"type"`
		Data userView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, typeObject, body.Type)
	assert.Equal(t, int64(7), body.Data.ID)
	assert.True(t, body.Data.Verified)
	assert.True(t, body.Data.IsAdmin)
}

func TestErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Database("user.get", errors.New("conn reset")), 500},
		{apperr.Cache("cache.get", errors.New("timeout")), 503},
		{apperr.Mail("mail.dispatch", errors.New("x")), 500},
		{errors.New("plain"), 500},
	}
	for _, c := range cases {
		srv, _ := newTestServer(&stubFlows{err: c.err})
		rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/refresh_token", "")
		assert.Equal(t, c.status, rec.Code)

		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, c.status, body.Code)
		assert.NotContains(t, rec.Body.String(), "conn reset")
	}
}

func TestMalformedBody(t *testing.T) {
	for _, body := range []string{"", "{", `{"email":1}`} {
		srv, _ := newTestServer(&stubFlows{})
		rec := do(t, srv.Routes(), http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestRouting(t *testing.T) {
	srv, _ := newTestServer(&stubFlows{})
	h := srv.Routes()
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/auth/login", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/auth/nope", "").Code)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(&stubFlows{})
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://evil.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
