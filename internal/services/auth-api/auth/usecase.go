package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Warden/internal/actiontoken"
	"github.com/NordCoder/Warden/internal/apperr"
	tokens "github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/authstate"
	"github.com/NordCoder/Warden/internal/domain/mail"
	"github.com/NordCoder/Warden/internal/domain/session"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/hash"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("request has no session")

type StateResolver interface {
	Resolve(ctx context.Context, req authstate.Request) (authstate.State, error)
}

type ActionTokens interface {
	Issue(ctx context.Context, subjectID int64) (actiontoken.Key, error)
	Send(ctx context.Context, key actiontoken.Key, subjectID int64) error
	Get(ctx context.Context, key actiontoken.Key) (actiontoken.Outcome, error)
	Take(ctx context.Context, key actiontoken.Key) (actiontoken.Outcome, error)
	Invalidate(ctx context.Context, key actiontoken.Key) error
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Users    user.Repo
	Hasher   hash.Hasher
	Codec    tokens.TokenCodec
	Resolver StateResolver
	Verify   ActionTokens
	Reset    ActionTokens
	Mail     mail.Dispatcher
	Tx       Transactor
	Logger   *zap.Logger
}

type Config struct {
	Issuer tokens.Issuer
	Now    func() time.Time
}

var flowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auth_flow_outcomes_total",
	Help: "Authentication flow results by flow and outcome.",
}, []string{"flow", "outcome"})

type Usecase struct {
	d   Deps
	cfg Config
	log *zap.Logger
}

func NewUseCase(d Deps, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Issuer.Now == nil {
		cfg.Issuer.Now = cfg.Now
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{d: d, cfg: cfg, log: log.With(zap.String("component", "auth.usecase"))}
}

// Login signs the caller in. A session that already resolves short-circuits
// credential checking.
func (u *Usecase) Login(ctx context.Context, req authstate.Request, in Credentials) (LoginResult, error) {
	res, err := u.login(ctx, req, in)
	u.record(ctx, "login", res.Status.String(), err)
	return res, err
}

func (u *Usecase) login(ctx context.Context, req authstate.Request, in Credentials) (LoginResult, error) {
	st, err := u.d.Resolver.Resolve(ctx, req)
	if err != nil {
		return LoginResult{}, err
	}
	switch st.Kind {
	case authstate.KindConnected:
		tok, err := u.d.Codec.Encode(st.Claim)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Status: LoginConnected, Token: tok}, nil
	case authstate.KindNotVerified:
		return LoginResult{Status: LoginNotVerified}, nil
	}

	in.Email = normalizeEmail(in.Email)
	if in.Validate() != nil {
		return LoginResult{Status: LoginCredentialsIncorrect}, nil
	}
	rec, err := u.d.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return LoginResult{Status: LoginCredentialsIncorrect}, nil
		}
		return LoginResult{}, err
	}
	ok, err := u.d.Hasher.Check(in.Password, rec.Password)
	if err != nil {
		return LoginResult{}, apperr.Internal("auth.login.check_password", err)
	}
	if !ok {
		return LoginResult{Status: LoginCredentialsIncorrect}, nil
	}

	if err := u.storeRefresh(ctx, req.Session, rec.ID); err != nil {
		return LoginResult{}, err
	}
	if !rec.Verified() {
		return LoginResult{Status: LoginNotVerified}, nil
	}
	tok, err := u.d.Codec.Encode(u.cfg.Issuer.Access(rec.ID, rec.IsAdmin))
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Status: LoginConnected, Token: tok}, nil
}

// Register creates an unverified account, opens a session for it and mails a
// verification link.
func (u *Usecase) Register(ctx context.Context, req authstate.Request, in Credentials) (RegisterResult, error) {
	res, err := u.register(ctx, req, in)
	u.record(ctx, "register", res.Status.String(), err)
	return res, err
}

func (u *Usecase) register(ctx context.Context, req authstate.Request, in Credentials) (RegisterResult, error) {
	st, err := u.d.Resolver.Resolve(ctx, req)
	if err != nil {
		return RegisterResult{}, err
	}
	switch st.Kind {
	case authstate.KindConnected:
		tok, err := u.d.Codec.Encode(st.Claim)
		if err != nil {
			return RegisterResult{}, err
		}
		return RegisterResult{Status: RegisterConnected, Token: tok}, nil
	case authstate.KindNotVerified:
		return RegisterResult{Status: RegisterNotVerified}, nil
	}

	in.Email = normalizeEmail(in.Email)
	if in.Validate() != nil {
		return RegisterResult{Status: RegisterInvalid}, nil
	}
	hashed, err := u.d.Hasher.Hash(in.Password)
	if err != nil {
		return RegisterResult{}, apperr.Internal("auth.register.hash_password", err)
	}

	newUser := &user.User{Email: in.Email, Password: hashed}
	err = u.d.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.d.Users.Create(ctx, newUser); err != nil {
			return err
		}
		return u.mailAction(ctx, u.d.Verify, mail.KindVerification, newUser)
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return RegisterResult{Status: RegisterEmailExists}, nil
		}
		return RegisterResult{}, err
	}

	if err := u.storeRefresh(ctx, req.Session, newUser.ID); err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Status: RegisterNotVerified}, nil
}

// Verify consumes a verification key. An expired key is replaced by a fresh
// one mailed to the same account.
func (u *Usecase) Verify(ctx context.Context, req authstate.Request, key string) (VerifyResult, error) {
	res, err := u.verify(ctx, req, actiontoken.Key(key))
	u.record(ctx, "verify", res.Status.String(), err)
	return res, err
}

func (u *Usecase) verify(ctx context.Context, req authstate.Request, key actiontoken.Key) (VerifyResult, error) {
	out, err := u.d.Verify.Get(ctx, key)
	if err != nil {
		return VerifyResult{}, err
	}
	switch out.Status {
	case actiontoken.StatusExpired:
		found, err := u.reissue(ctx, u.d.Verify, mail.KindVerification, key, out.SubjectID)
		if err != nil || !found {
			return VerifyResult{}, err
		}
		return VerifyResult{Status: VerifyExpired}, nil
	case actiontoken.StatusOK:
	default:
		return VerifyResult{Status: VerifyInvalid}, nil
	}

	// The caller's state has to be read before the account flips to verified.
	st, err := u.d.Resolver.Resolve(ctx, req)
	if err != nil {
		return VerifyResult{}, err
	}
	if err := u.d.Verify.Invalidate(ctx, key); err != nil {
		return VerifyResult{}, err
	}
	rec, err := u.d.Users.GetByID(ctx, out.SubjectID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return VerifyResult{Status: VerifyInvalid}, nil
		}
		return VerifyResult{}, err
	}
	if err := u.d.Users.MarkVerified(ctx, rec.ID, u.cfg.Now()); err != nil {
		return VerifyResult{}, err
	}

	if st.Kind != authstate.KindNotVerified || st.SubjectID != rec.ID {
		return VerifyResult{Status: VerifyVerified}, nil
	}
	tok, err := u.d.Codec.Encode(u.cfg.Issuer.Access(rec.ID, rec.IsAdmin))
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Status: VerifyConnected, Token: tok}, nil
}

// Forgot mails a reset link when the address belongs to an account. The result
// never tells whether it did.
func (u *Usecase) Forgot(ctx context.Context, req authstate.Request, email string) (ForgotResult, error) {
	res, err := u.forgot(ctx, req, email)
	u.record(ctx, "forgot", res.Status.String(), err)
	return res, err
}

func (u *Usecase) forgot(ctx context.Context, req authstate.Request, email string) (ForgotResult, error) {
	st, err := u.d.Resolver.Resolve(ctx, req)
	if err != nil {
		return ForgotResult{}, err
	}
	switch st.Kind {
	case authstate.KindConnected:
		tok, err := u.d.Codec.Encode(st.Claim)
		if err != nil {
			return ForgotResult{}, err
		}
		return ForgotResult{Status: ForgotConnected, Token: tok}, nil
	case authstate.KindNotVerified:
		return ForgotResult{Status: ForgotNotVerified}, nil
	}

	email = normalizeEmail(email)
	if validateEmail(email) != nil {
		return ForgotResult{Status: ForgotSent}, nil
	}
	rec, err := u.d.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ForgotResult{Status: ForgotSent}, nil
		}
		return ForgotResult{}, err
	}
	if err := u.mailAction(ctx, u.d.Reset, mail.KindPasswordReset, rec); err != nil {
		return ForgotResult{}, err
	}
	return ForgotResult{Status: ForgotSent}, nil
}

// ValidateResetKey checks a reset key before the new password form is shown
// and extends its lifetime when it is still good.
func (u *Usecase) ValidateResetKey(ctx context.Context, key string) (ResetStatus, error) {
	res, err := u.validateResetKey(ctx, actiontoken.Key(key))
	u.record(ctx, "reset_validate", res.String(), err)
	return res, err
}

func (u *Usecase) validateResetKey(ctx context.Context, key actiontoken.Key) (ResetStatus, error) {
	out, err := u.resetOutcome(ctx, key)
	if err != nil || out.Status != actiontoken.StatusOK {
		return resetStatusOf(out), err
	}
	if err := u.d.Reset.Send(ctx, key, out.SubjectID); err != nil {
		return ResetInvalid, err
	}
	return ResetValid, nil
}

// ChangePassword consumes a reset key and stores the new password.
func (u *Usecase) ChangePassword(ctx context.Context, key, newPassword string) (ResetStatus, error) {
	res, err := u.changePassword(ctx, actiontoken.Key(key), newPassword)
	u.record(ctx, "reset_update", res.String(), err)
	return res, err
}

func (u *Usecase) changePassword(ctx context.Context, key actiontoken.Key, newPassword string) (ResetStatus, error) {
	if validatePassword(newPassword) != nil {
		return ResetPasswordInvalid, nil
	}
	// The key is consumed atomically; a second update with it is invalid.
	out, err := u.d.Reset.Take(ctx, key)
	if err != nil {
		return ResetInvalid, err
	}
	switch out.Status {
	case actiontoken.StatusInvalid:
		return ResetInvalid, nil
	case actiontoken.StatusExpired:
		found, err := u.reissue(ctx, u.d.Reset, mail.KindPasswordReset, key, out.SubjectID)
		if err != nil || !found {
			return ResetInvalid, err
		}
		return ResetExpired, nil
	}

	hashed, err := u.d.Hasher.Hash(newPassword)
	if err != nil {
		return ResetInvalid, apperr.Internal("auth.reset.hash_password", err)
	}
	if err := u.d.Users.UpdatePassword(ctx, out.SubjectID, hashed); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ResetInvalid, nil
		}
		return ResetInvalid, err
	}
	return ResetPasswordChanged, nil
}

// resetOutcome looks the key up and, when it has expired, replaces it. The
// returned outcome is StatusInvalid when the subject is gone.
func (u *Usecase) resetOutcome(ctx context.Context, key actiontoken.Key) (actiontoken.Outcome, error) {
	out, err := u.d.Reset.Get(ctx, key)
	if err != nil || out.Status != actiontoken.StatusExpired {
		return out, err
	}
	found, err := u.reissue(ctx, u.d.Reset, mail.KindPasswordReset, key, out.SubjectID)
	if err != nil {
		return actiontoken.Outcome{}, err
	}
	if !found {
		return actiontoken.Outcome{}, nil
	}
	return out, nil
}

func resetStatusOf(out actiontoken.Outcome) ResetStatus {
	switch out.Status {
	case actiontoken.StatusExpired:
		return ResetExpired
	case actiontoken.StatusOK:
		return ResetValid
	default:
		return ResetInvalid
	}
}

// Refresh returns a fresh access token for a caller holding a session.
func (u *Usecase) Refresh(ctx context.Context, req authstate.Request) (RefreshResult, error) {
	res, err := u.refresh(ctx, req)
	u.record(ctx, "refresh", res.Status.String(), err)
	return res, err
}

func (u *Usecase) refresh(ctx context.Context, req authstate.Request) (RefreshResult, error) {
	st, err := u.d.Resolver.Resolve(ctx, req)
	if err != nil {
		return RefreshResult{}, err
	}
	switch st.Kind {
	case authstate.KindConnected:
		tok, err := u.d.Codec.Encode(st.Claim)
		if err != nil {
			return RefreshResult{}, err
		}
		return RefreshResult{Status: RefreshConnected, Token: tok}, nil
	case authstate.KindNotVerified:
		return RefreshResult{Status: RefreshNotVerified}, nil
	default:
		return RefreshResult{Status: RefreshGuest}, nil
	}
}

func (u *Usecase) Logout(ctx context.Context, req authstate.Request) error {
	if req.Session == nil {
		return nil
	}
	if err := req.Session.Remove(ctx, authstate.RefreshTokenKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	obs.WithTrace(ctx, u.log).Info("auth.logout")
	return nil
}

// Me returns the signed-in account, or nil for anyone else.
func (u *Usecase) Me(ctx context.Context, req authstate.Request) (*user.User, error) {
	st, err := u.d.Resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if st.Kind != authstate.KindConnected {
		return nil, nil
	}
	rec, err := u.d.Users.GetByID(ctx, st.SubjectID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (u *Usecase) storeRefresh(ctx context.Context, s session.Session, userID int64) error {
	if s == nil {
		return apperr.Internal("auth.store_refresh", ErrNoSession)
	}
	tok, err := u.d.Codec.Encode(u.cfg.Issuer.Refresh(userID))
	if err != nil {
		return err
	}
	if err := s.Set(ctx, authstate.RefreshTokenKey, tok); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// mailAction issues a key in gw for rec and asks for it to be mailed.
func (u *Usecase) mailAction(ctx context.Context, gw ActionTokens, kind mail.Kind, rec *user.User) error {
	key, err := gw.Issue(ctx, rec.ID)
	if err != nil {
		return err
	}
	err = u.d.Mail.Dispatch(ctx, mail.Requested{
		Kind:        kind,
		To:          rec.Email,
		UserID:      rec.ID,
		ActionKey:   key.String(),
		RequestedAt: u.cfg.Now(),
	})
	if err != nil {
		return fmt.Errorf("dispatch %s mail: %w", kind, err)
	}
	return nil
}

// reissue drops an expired key and mails a new one to its subject. found is
// false when the subject no longer exists. An already verified subject gets no
// new verification mail.
func (u *Usecase) reissue(ctx context.Context, gw ActionTokens, kind mail.Kind, old actiontoken.Key, subjectID int64) (found bool, err error) {
	if err := gw.Invalidate(ctx, old); err != nil {
		return false, err
	}
	rec, err := u.d.Users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if kind == mail.KindVerification && rec.Verified() {
		return true, nil
	}
	if err := u.mailAction(ctx, gw, kind, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (u *Usecase) record(ctx context.Context, flow, outcome string, err error) {
	log := obs.WithTrace(ctx, u.log)
	if err != nil {
		flowOutcomes.WithLabelValues(flow, "error").Inc()
		log.Warn("auth."+flow, zap.String("kind", apperr.KindOf(err).String()), zap.Error(err))
		return
	}
	flowOutcomes.WithLabelValues(flow, outcome).Inc()
	log.Info("auth."+flow, zap.String("outcome", outcome))
}
