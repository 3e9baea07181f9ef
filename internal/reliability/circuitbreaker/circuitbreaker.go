// Package circuitbreaker fails fast while a downstream dependency keeps
// failing, then probes it again after a cool-off.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// ErrOpen is returned by Execute while the circuit rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Settings tune when the breaker trips and recovers.
type Settings struct {
	// FailureThreshold consecutive failures open a closed circuit.
	FailureThreshold int
	// SuccessThreshold consecutive probe successes close a half-open circuit.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	// OnStateChange, if set, is called after every transition.
	OnStateChange func(from, to State)
}

// Breaker guards calls to a single dependency. It is safe for concurrent use.
type Breaker struct {
	settings Settings
	now      func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New creates a closed breaker. Zero thresholds default to 1.
func New(s Settings) *Breaker {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 1
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 1
	}
	return &Breaker{settings: s, now: time.Now}
}

// State returns the current state, moving open to half-open once the
// timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	return b.state
}

// Execute runs fn if the circuit allows it and records the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	return b.state != StateOpen
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	var from, to State
	changed := false
	switch {
	case ok && b.state == StateHalfOpen:
		b.successes++
		if b.successes >= b.settings.SuccessThreshold {
			from, to, changed = b.setLocked(StateClosed)
		}
	case ok:
		b.failures = 0
	case b.state == StateHalfOpen:
		from, to, changed = b.setLocked(StateOpen)
	case b.state == StateClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			from, to, changed = b.setLocked(StateOpen)
		}
	}
	b.mu.Unlock()

	if changed {
		b.notify(from, to)
	}
}

// expireLocked must be called with mu held.
func (b *Breaker) expireLocked() {
	if b.state != StateOpen || b.now().Sub(b.openedAt) < b.settings.OpenTimeout {
		return
	}
	from, to, _ := b.setLocked(StateHalfOpen)
	// Callbacks run without mu held.
	b.mu.Unlock()
	b.notify(from, to)
	b.mu.Lock()
}

func (b *Breaker) setLocked(to State) (State, State, bool) {
	from := b.state
	if from == to {
		return from, to, false
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == StateOpen {
		b.openedAt = b.now()
	}
	return from, to, true
}

func (b *Breaker) notify(from, to State) {
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(from, to)
	}
}
