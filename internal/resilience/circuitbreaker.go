package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker stops calling a failing dependency for a cool-down period.
// After the timeout a single trial call is let through; while it runs, other
// callers are rejected.
type CircuitBreaker struct {
	name      string
	threshold int
	timeout   time.Duration
	now       func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	lastErrorTime time.Time
}

func NewCircuitBreaker(name string, threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:      name,
		state:     StateClosed,
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Execute(action func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastErrorTime) <= cb.timeout {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.state = StateHalfOpen
	case StateHalfOpen:
		cb.mu.Unlock()
		return ErrOpen
	}
	trial := cb.state == StateHalfOpen
	cb.mu.Unlock()

	err := action()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failureCount++
		cb.lastErrorTime = cb.now()
		if cb.failureCount >= cb.threshold || trial {
			cb.state = StateOpen
			slog.Warn("Circuit breaker opened", "name", cb.name, "failures", cb.failureCount)
		}
		return err
	}

	if trial {
		slog.Info("Circuit breaker recovered", "name", cb.name)
	}
	cb.failureCount = 0
	cb.state = StateClosed
	return nil
}
