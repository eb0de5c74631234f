package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the current mode of a Breaker.
type BreakerState int

const (
	// BreakerClosed is the normal operating state; calls flow through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls immediately after repeated failures.
	BreakerOpen
	// BreakerHalfOpen lets a probe call through to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when a call is rejected because the breaker is open.
var ErrBreakerOpen = eris.New("analysis service breaker is open")

// BreakerConfig controls Breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// breaker opens. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before allowing a
	// probe call. Default: 30s.
	ResetTimeout time.Duration

	// ShouldTrip decides which errors count toward the threshold. If nil,
	// every error counts.
	ShouldTrip func(err error) bool

	// OnStateChange is called on every transition.
	OnStateChange func(from, to BreakerState)
}

// Breaker is a circuit breaker guarding a single external service, shared
// safely across concurrent requests.
type Breaker struct {
	cfg BreakerConfig

	mu           sync.Mutex
	state        BreakerState
	failures     int
	lastFailedAt time.Time

	now func() time.Time
}

// NewBreaker creates a Breaker with defaults applied.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: BreakerClosed, now: time.Now}
}

// Execute runs fn through the breaker. An open breaker returns ErrBreakerOpen
// without invoking fn.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// ExecuteVal is Execute preserving a return value.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return val, nil
}

// State returns the effective state, accounting for reset-timeout expiry.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.lastFailedAt) >= b.cfg.ResetTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(BreakerClosed)
	b.failures = 0
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.now().Sub(b.lastFailedAt) < b.cfg.ResetTimeout {
			return ErrBreakerOpen
		}
		b.transition(BreakerHalfOpen)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trips := err != nil
	if trips && b.cfg.ShouldTrip != nil {
		trips = b.cfg.ShouldTrip(err)
	}

	if !trips {
		if b.state != BreakerClosed {
			b.transition(BreakerClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailedAt = b.now()
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.transition(BreakerOpen)
	}
}

func (b *Breaker) transition(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
