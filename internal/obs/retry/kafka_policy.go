package retry

import (
	"context"
	"errors"
	"time"

	"github.com/NordCoder/Warden/internal/apperr"
	"go.uber.org/zap"
)

// DefaultKafkaPolicy retries publish failures with jittered backoff. Internal
// errors such as a payload that cannot be encoded are not retried.
func DefaultKafkaPolicy(log *zap.Logger) Policy {
	return Policy{
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return false
			}
			kind, ok := apperr.Classify(err)
			return !ok || kind != apperr.KindInternal
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("publish retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("publish retries exhausted", zap.Error(err))
			}
		},
	}
}
