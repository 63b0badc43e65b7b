package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ayusman/mudra/internal/control"
)

// BreakerConfig configures circuit breaking around a sink.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration `yaml:"timeout"`
	// Interval clears the failure count while closed. Zero never clears it.
	Interval time.Duration `yaml:"interval"`
}

const (
	defaultBreakerMaxFailures uint32 = 3
	defaultBreakerTimeout            = 10 * time.Second
)

// Breaker wraps a sink so a dead broker or a hanging plugin fails fast
// instead of slowing down every control cycle.
type Breaker struct {
	inner   Sink
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreaker wraps inner. Zero config fields fall back to defaults.
func NewBreaker(inner Sink, cfg BreakerConfig) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "sink:" + inner.Name(),
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Breaker{inner: inner, breaker: cb}
}

func (b *Breaker) Name() string { return b.inner.Name() }

func (b *Breaker) Apply(ctx context.Context, cmd control.Command, status control.Snapshot) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.inner.Apply(ctx, cmd, status)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrCircuitOpen, b.inner.Name(), err)
	}
	return err
}

// State returns the breaker state for status reporting.
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

func (b *Breaker) Close() error {
	return b.inner.Close()
}
