package notifier

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/domain/mail"
	"github.com/NordCoder/Warden/internal/obs/retry"
	kafkax "github.com/NordCoder/Warden/internal/repository/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to, subject, body string
}

type fakeSender struct {
	fails int
	out   []sent
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.fails > 0 {
		f.fails--
		return apperr.Mail("smtp.send", assert.AnError)
	}
	f.out = append(f.out, sent{to, subject, body})
	return nil
}

type fakeConsumer struct {
	msgs [][]byte
	errs []error
}

func (c *fakeConsumer) Consume(ctx context.Context, h kafkax.Handler) error {
	for _, m := range c.msgs {
		c.errs = append(c.errs, h(ctx, nil, m))
	}
	return nil
}

var links = Links{
	VerifyURL: "https://app.example.com/verify",
	ResetURL:  "https://app.example.com/reset?lang=en",
	Product:   "Warden",
}

func newTestHandler(t *testing.T, out mail.Sender) *Handler {
	t.Helper()
	h, err := NewHandler(out, links, 15*time.Minute, nil)
	require.NoError(t, err)
	return h
}

func TestRender_Verification(t *testing.T) {
	h := newTestHandler(t, &fakeSender{})
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	subject, body, err := h.Render(mail.Requested{
		Kind: mail.KindVerification, To: "a@b.com", ActionKey: "k-1", RequestedAt: at,
	})
	require.NoError(t, err)
	assert.Equal(t, "Confirm your email", subject)
	assert.Contains(t, body, `href="https://app.example.com/verify?token=k-1"`)
	assert.Contains(t, body, "2025-03-01 10:15 UTC")
	assert.Contains(t, body, "Warden")
}

func TestRender_ResetKeepsQuery(t *testing.T) {
	h := newTestHandler(t, &fakeSender{})

	subject, body, err := h.Render(mail.Requested{Kind: mail.KindPasswordReset, ActionKey: "k 2"})
	require.NoError(t, err)
	assert.Equal(t, "Reset your password", subject)
	assert.Contains(t, body, "lang=en")
	assert.Contains(t, body, "token=k")
}

func TestRender_UnknownKind(t *testing.T) {
	h := newTestHandler(t, &fakeSender{})
	_, _, err := h.Render(mail.Requested{Kind: "welcome", ActionKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestHandleMailRequested_SkipsMalformed(t *testing.T) {
	out := &fakeSender{}
	h := newTestHandler(t, out)
	ctx := context.Background()

	assert.NoError(t, h.HandleMailRequested(ctx, mail.Requested{Kind: mail.KindVerification, ActionKey: "k"}))
	assert.NoError(t, h.HandleMailRequested(ctx, mail.Requested{Kind: mail.KindVerification, To: "a@b.com"}))
	assert.NoError(t, h.HandleMailRequested(ctx, mail.Requested{Kind: "welcome", To: "a@b.com", ActionKey: "k"}))
	assert.Empty(t, out.out)
}

func TestRunner_SendsWithRetry(t *testing.T) {
	out := &fakeSender{fails: 2}
	h := newTestHandler(t, out)

	payload, err := json.Marshal(mail.Requested{
		Kind: mail.KindPasswordReset, To: "a@b.com", UserID: 7, ActionKey: "k-3",
	})
	require.NoError(t, err)
	cons := &fakeConsumer{msgs: [][]byte{payload, []byte("{not json")}}

	r := NewRunner(nil, cons, h).WithPolicy(retry.Policy{
		Attempts:  3,
		Retryable: func(err error) bool { return apperr.KindOf(err) == apperr.KindMail },
	})
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, cons.errs, 2)
	assert.NoError(t, cons.errs[0])
	assert.Error(t, cons.errs[1])

	require.Len(t, out.out, 1)
	assert.Equal(t, "a@b.com", out.out[0].to)
	assert.True(t, strings.Contains(out.out[0].body, "token=k-3"))
}

func TestRunner_GivesUp(t *testing.T) {
	out := &fakeSender{fails: 10}
	h := newTestHandler(t, out)

	payload, _ := json.Marshal(mail.Requested{Kind: mail.KindVerification, To: "a@b.com", ActionKey: "k"})
	cons := &fakeConsumer{msgs: [][]byte{payload}}

	r := NewRunner(nil, cons, h).WithPolicy(retry.Policy{Attempts: 2})
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, cons.errs, 1)
	assert.Equal(t, apperr.KindMail, apperr.KindOf(cons.errs[0]))
	assert.Empty(t, out.out)
	assert.Equal(t, 8, out.fails)
}

func TestCompose_HTMLHeaders(t *testing.T) {
	msg := string(compose("noreply@warden.dev", "a@b.com", "[Warden] Hi", "<p>x</p>"))
	assert.Contains(t, msg, "Content-Type: text/html; charset=utf-8\r\n")
	assert.Contains(t, msg, "Subject: [Warden] Hi\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>x</p>\r\n"))
}
