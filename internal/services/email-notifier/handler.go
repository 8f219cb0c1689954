package notifier

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/url"
	"time"

	"github.com/NordCoder/Warden/internal/domain/mail"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrUnknownKind = errors.New("unknown mail kind")

// Links are the frontend pages an action key is appended to.
type Links struct {
	VerifyURL string
	ResetURL  string
	Product   string
}

type letter struct {
	subject string
	tmpl    *template.Template
	base    string
}

type view struct {
	Product string
	Link    string
	Expires string
}

// Handler renders an action mail and hands it to the sender.
type Handler struct {
	out       mail.Sender
	letters   map[mail.Kind]letter
	product   string
	actionTTL time.Duration
	log       *zap.Logger
}

func NewHandler(out mail.Sender, links Links, actionTTL time.Duration, log *zap.Logger) (*Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tmpls, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{
		out: out,
		letters: map[mail.Kind]letter{
			mail.KindVerification:  {subject: "Confirm your email", tmpl: tmpls.Lookup("verification.html"), base: links.VerifyURL},
			mail.KindPasswordReset: {subject: "Reset your password", tmpl: tmpls.Lookup("password_reset.html"), base: links.ResetURL},
		},
		product:   links.Product,
		actionTTL: actionTTL,
		log:       log.With(zap.String("component", "email-notifier.handler")),
	}, nil
}

// Render builds the subject and HTML body for m.
func (h *Handler) Render(m mail.Requested) (string, string, error) {
	l, ok := h.letters[m.Kind]
	if !ok || l.tmpl == nil {
		return "", "", ErrUnknownKind
	}
	link, err := actionLink(l.base, m.ActionKey)
	if err != nil {
		return "", "", err
	}
	at := m.RequestedAt
	if at.IsZero() {
		at = time.Now()
	}
	var buf bytes.Buffer
	err = l.tmpl.Execute(&buf, view{
		Product: h.product,
		Link:    link,
		Expires: at.Add(h.actionTTL).UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return "", "", err
	}
	return l.subject, buf.String(), nil
}

// HandleMailRequested drops malformed requests and sends the rest.
func (h *Handler) HandleMailRequested(ctx context.Context, m mail.Requested) error {
	log := h.log.With(zap.String("kind", string(m.Kind)), zap.Int64("user_id", m.UserID))
	if m.To == "" || m.ActionKey == "" {
		log.Warn("mail request without recipient or key; skipped")
		mSkipped.Inc()
		return nil
	}
	subject, body, err := h.Render(m)
	if err != nil {
		log.Warn("mail request not renderable; skipped", zap.Error(err))
		mSkipped.Inc()
		return nil
	}
	if err := h.out.Send(ctx, m.To, subject, body); err != nil {
		return err
	}
	mSent.WithLabelValues(string(m.Kind)).Inc()
	return nil
}

func actionLink(base, key string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
