package track

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rikitraki/trackapi/internal/domain"
)

// BreakerConfig tunes the read-path circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker. Zero disables it.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// WithBreaker guards the read queries with a circuit breaker.
func (r *Repo) WithBreaker(cfg BreakerConfig) *Repo {
	if cfg.FailureThreshold == 0 {
		return r
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	logger := r.logger
	r.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "track-store",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the store
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return r
}

// BreakerState reports the breaker state, or "disabled".
func (r *Repo) BreakerState() string {
	if r.breaker == nil {
		return "disabled"
	}
	return r.breaker.State().String()
}

// guard runs fn through the breaker when one is configured.
func guard[T any](r *Repo, fn func() (T, error)) (T, error) {
	if r.breaker == nil {
		return fn()
	}
	v, err := r.breaker.Execute(func() (any, error) {
		res, err := fn()
		return res, err
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		return zero, err
	}
	return v.(T), nil
}
