package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without calling fn while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

type Settings struct {
	Name string
	// MaxFailures is how many consecutive failures open the breaker.
	MaxFailures int
	// Timeout is how long the breaker stays open before a trial call.
	Timeout time.Duration
	Now     func() time.Time
}

type CircuitBreaker struct {
	name        string
	maxFailures int
	timeout     time.Duration
	now         func() time.Time
	failures    int
	lastFailure time.Time
	state       State
	mu          sync.Mutex
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	if settings.MaxFailures <= 0 {
		settings.MaxFailures = 5
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &CircuitBreaker{
		name:        settings.Name,
		maxFailures: settings.MaxFailures,
		timeout:     settings.Timeout,
		now:         settings.Now,
		state:       StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) <= cb.timeout {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.state = StateHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = StateOpen
		}
		return err
	}

	cb.state = StateClosed
	cb.failures = 0
	return nil
}
