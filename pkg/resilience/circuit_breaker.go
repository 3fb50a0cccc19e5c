package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a call is short-circuited by an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings tunes a circuit breaker.
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
}

// Operation is a unit of work guarded by a breaker.
type Operation func(ctx context.Context) (interface{}, error)

// CircuitBreaker wraps gobreaker with metrics, logging and a fallback.
type CircuitBreaker struct {
	name     string
	cb       *gobreaker.CircuitBreaker
	fallback FallbackFunc
}

// NewCircuitBreaker builds a breaker that opens after FailureThreshold consecutive failures.
func NewCircuitBreaker(settings Settings, fallback FallbackFunc) *CircuitBreaker {
	settings = settings.withDefaults()
	name := settings.Name
	failureThreshold := settings.FailureThreshold

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.SuccessThreshold,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			recordTransition(name, to)
		},
	})

	dependencyOpen.WithLabelValues(name).Set(0)

	return &CircuitBreaker{
		name:     name,
		cb:       cb,
		fallback: fallback,
	}
}

// Execute runs op through the breaker. When the breaker rejects the call the
// fallback decides the outcome.
func (b *CircuitBreaker) Execute(ctx context.Context, op Operation) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return op(ctx)
	})
	if err == nil {
		recordCall(b.name, outcomeSuccess)
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		recordCall(b.name, outcomeShortCircuit)
		if b.fallback != nil {
			return b.fallback(ctx, err)
		}
		return nil, ErrCircuitOpen
	}

	recordCall(b.name, outcomeFailure)
	return nil, err
}

// Name returns the breaker label used in metrics
func (b *CircuitBreaker) Name() string {
	return b.name
}

// State returns the current breaker state
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}
