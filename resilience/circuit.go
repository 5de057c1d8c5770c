package resilience

import (
	"context"
	"sync"
	"time"
)

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// CircuitClosed means calls flow normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen means calls are refused without reaching the network.
	CircuitOpen
	// CircuitHalfOpen means a limited number of probe calls are allowed
	// to test whether the API family recovered.
	CircuitHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitConfig configures the circuit breaker.
type CircuitConfig struct {
	// MaxFailures is the consecutive-failure count that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long an open circuit waits before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxCalls is the number of concurrent probes allowed while
	// half-open.
	// Default: 1
	HalfOpenMaxCalls int

	// IsFailure decides whether an error counts against the circuit.
	// Terminal client errors (bad requests) usually should not: the API
	// is healthy, the call was wrong. Default: all non-nil errors count.
	IsFailure func(err error) bool

	// OnStateChange is called when the circuit transitions.
	OnStateChange func(from, to CircuitState)
}

// CircuitBreaker keeps a run of failures against one API family from
// turning into a stampede of doomed calls.
type CircuitBreaker struct {
	config CircuitConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	probes      int
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{config: config, state: CircuitClosed}
}

// Execute runs op if the circuit admits it, recording the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current state, applying the open→half-open
// transition if the reset timeout has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpenLocked()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.maybeHalfOpenLocked()

	switch cb.state {
	case CircuitOpen:
		return ErrCircuitOpen
	case CircuitHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)

	switch cb.state {
	case CircuitHalfOpen:
		cb.probes--
		if failed {
			cb.transitionLocked(CircuitOpen)
			cb.lastFailure = time.Now()
		} else {
			cb.failures = 0
			cb.transitionLocked(CircuitClosed)
		}

	case CircuitClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.config.MaxFailures {
			cb.transitionLocked(CircuitOpen)
		}
	}
}

func (cb *CircuitBreaker) maybeHalfOpenLocked() {
	if cb.state == CircuitOpen && time.Since(cb.lastFailure) >= cb.config.ResetTimeout {
		cb.probes = 0
		cb.transitionLocked(CircuitHalfOpen)
	}
}

func (cb *CircuitBreaker) transitionLocked(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}
