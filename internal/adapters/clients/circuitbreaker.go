package clients

import (
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen rejects requests until the open timeout elapses.
	StateOpen

	// StateHalfOpen admits a limited number of probes.
	StateHalfOpen
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a CircuitBreaker.
type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// HalfOpenLimit caps concurrent probes and is also the number of
	// consecutive probe successes needed to close again.
	HalfOpenLimit int
}

// CircuitBreaker guards the remote quote source so a failing upstream is not
// hammered every sync interval.
//
//	closed    --MaxFailures failures-->   open
//	open      --Timeout elapsed-->        half-open
//	half-open --HalfOpenLimit successes--> closed
//	half-open --any failure-->            open
type CircuitBreaker struct {
	mu        sync.Mutex
	cfg       CircuitBreakerConfig
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time

	onStateChange func(from, to State)
	now           func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}

	if cfg.HalfOpenLimit <= 0 {
		cfg.HalfOpenLimit = 1
	}

	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers fn to be called after every transition. fn runs
// outside the breaker lock and may call back into the breaker.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	cb.onStateChange = fn
	cb.mu.Unlock()
}

// Allow reports whether a request may proceed. An open breaker whose timeout
// has elapsed moves to half-open and admits the caller as the first probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()

	var allowed bool

	from := cb.state

	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cfg.Timeout {
			cb.set(StateHalfOpen)
			cb.probes = 1
			allowed = true
		}
	case StateHalfOpen:
		if cb.probes < cb.cfg.HalfOpenLimit {
			cb.probes++
			allowed = true
		}
	}

	cb.unlockAndNotify(from)

	return allowed
}

// RecordSuccess reports a completed request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()

	from := cb.state

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.probes--
		cb.successes++

		if cb.successes >= cb.cfg.HalfOpenLimit {
			cb.set(StateClosed)
		}
	}

	cb.unlockAndNotify(from)
}

// RecordFailure reports a failed request. Any half-open failure reopens.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()

	from := cb.state

	switch cb.state {
	case StateClosed:
		cb.failures++

		if cb.failures >= cb.cfg.MaxFailures {
			cb.set(StateOpen)
		}
	case StateHalfOpen:
		cb.probes--
		cb.set(StateOpen)
	case StateOpen:
		cb.openedAt = cb.now()
	}

	cb.unlockAndNotify(from)
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// set changes state and resets counters. Caller holds mu.
func (cb *CircuitBreaker) set(to State) {
	cb.state = to
	cb.failures = 0
	cb.successes = 0

	if to == StateOpen {
		cb.openedAt = cb.now()
		cb.probes = 0
	}
}

func (cb *CircuitBreaker) unlockAndNotify(from State) {
	to := cb.state
	fn := cb.onStateChange
	cb.mu.Unlock()

	if fn != nil && from != to {
		fn(from, to)
	}
}
