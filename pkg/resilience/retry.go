package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/richxcame/carwash-pricing/pkg/logger"
	"go.uber.org/zap"
)

// RetryConfig controls Retry. Backoff doubles from InitialBackoff up to
// MaxBackoff with full jitter.
type RetryConfig struct {
	Name           string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Retryable decides whether an error is transient. Nil retries everything
	// except an open breaker and context errors.
	Retryable func(error) bool
}

// Retry runs op until it succeeds, returns a permanent error, or attempts run out.
func Retry(ctx context.Context, config RetryConfig, op Operation) (interface{}, error) {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == attempts || !transient(err, config.Retryable) {
			return nil, err
		}

		wait := backoff(attempt, config)
		logger.WithContext(ctx).Debug("retrying after transient failure",
			zap.String("operation", config.Name),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func transient(err error, retryable func(error) bool) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if retryable != nil {
		return retryable(err)
	}
	return true
}

// backoff returns a full-jitter wait in [0, min(MaxBackoff, InitialBackoff·2^(attempt-1))]
func backoff(attempt int, config RetryConfig) time.Duration {
	ceiling := config.InitialBackoff << (attempt - 1)
	if ceiling <= 0 || (config.MaxBackoff > 0 && ceiling > config.MaxBackoff) {
		ceiling = config.MaxBackoff
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}
