package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/domain/mail"
	"github.com/NordCoder/Warden/internal/obs/retry"
	kafkax "github.com/NordCoder/Warden/internal/repository/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type consumer interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_messages_consumed_total",
		Help: "Mail requests consumed",
	})
	mSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_emails_sent_total",
		Help: "Emails sent",
	}, []string{"kind"})
	mSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_requests_skipped_total",
		Help: "Malformed mail requests dropped",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_errors_total",
		Help: "Errors",
	})
)

type Runner struct {
	log  *zap.Logger
	cons consumer
	h    *Handler
	pol  retry.Policy
}

func NewRunner(log *zap.Logger, cons consumer, h *Handler) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		log:  log,
		cons: cons,
		h:    h,
		pol: retry.Policy{
			Name:     "smtp_send",
			Attempts: 4,
			Backoff:  retry.ExpoJitter{Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
			Retryable: func(err error) bool {
				return apperr.KindOf(err) == apperr.KindMail
			},
			OnAttempt: func(i int, err error) {
				log.Warn("smtp retry", zap.Int("attempt", i+1), zap.Error(err))
			},
		},
	}
}

// WithPolicy replaces the send retry policy.
func (r *Runner) WithPolicy(p retry.Policy) *Runner {
	cp := *r
	cp.pol = p
	return &cp
}

func (r *Runner) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(func(ctx context.Context, _ []byte, m mail.Requested) error {
		mConsumed.Inc()
		err := retry.Do(ctx, func() error { return r.h.HandleMailRequested(ctx, m) }, r.pol)
		if err != nil {
			mErrors.Inc()
		}
		return err
	})

	if err := r.cons.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		mErrors.Inc()
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}
