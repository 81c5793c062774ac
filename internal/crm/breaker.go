package crm

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls to the CRM.
var ErrCircuitOpen = errors.New("crm circuit breaker is open")

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that trips the breaker.
	// Default: 3
	MaxFailures uint32

	// Timeout is how long the breaker stays open before probing again.
	// Default: 30 seconds
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of trial successes that close it.
	// Default: 2
	HalfOpenMaxSuccesses uint32
}

func (c *BreakerConfig) applyDefaults() {
	if c.MaxFailures == 0 {
		c.MaxFailures = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMaxSuccesses == 0 {
		c.HalfOpenMaxSuccesses = 2
	}
}

// BreakerMetrics counts calls through the breaker.
type BreakerMetrics struct {
	TotalRequests       uint64
	TotalFailures       uint64
	ConsecutiveFailures uint32
}

// breaker wraps gobreaker with context checks and counters.
type breaker struct {
	cb      *gobreaker.CircuitBreaker
	mu      sync.Mutex
	metrics BreakerMetrics
}

func newBreaker(name string, cfg BreakerConfig) *breaker {
	cfg.applyDefaults()
	return &breaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.HalfOpenMaxSuccesses,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("crm: breaker %s %s -> %s", name, from, to)
			},
		}),
	}
}

func (b *breaker) execute(ctx context.Context, fn func() (float64, error)) (float64, error) {
	if err := ctx.Err(); err != nil {
		b.record(false)
		return 0, err
	}

	v, err := b.cb.Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	b.record(err == nil)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, ErrCircuitOpen
	}
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (b *breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics.TotalRequests++
	if !ok {
		b.metrics.TotalFailures++
	}
}

func (b *breaker) state() string {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func (b *breaker) snapshot() BreakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.metrics
	m.ConsecutiveFailures = b.cb.Counts().ConsecutiveFailures
	return m
}
