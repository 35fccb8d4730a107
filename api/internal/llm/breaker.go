package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker; values below 1 are treated as 1.
	ConsecutiveFailures int
	// OpenTimeout is how long the breaker stays open before a half-open probe.
	OpenTimeout time.Duration
	// Interval clears the closed-state counts; zero keeps them until a state change.
	Interval time.Duration
	// OnStateChange is optional.
	OnStateChange func(name string, from, to gobreaker.State)
}

// breakerProvider fails fast while its upstream keeps failing. It never
// retries; a rejected call surfaces gobreaker.ErrOpenState or ErrTooManyRequests.
type breakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps p in a circuit breaker named after the provider.
func WithBreaker(p Provider, s BreakerSettings) Provider {
	fails := s.ConsecutiveFailures
	if fails < 1 {
		fails = 1
	}
	return &breakerProvider{
		next: p,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     p.Name(),
			Interval: s.Interval,
			Timeout:  s.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(fails)
			},
			IsSuccessful: func(err error) bool {
				// the caller walking away says nothing about the upstream
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: s.OnStateChange,
		}),
	}
}

func (b *breakerProvider) Name() string  { return b.next.Name() }
func (b *breakerProvider) Model() string { return b.next.Model() }

func (b *breakerProvider) Generate(ctx context.Context, req Request) ([]byte, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (b *breakerProvider) State() gobreaker.State { return b.cb.State() }
