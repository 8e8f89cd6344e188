// Package scheduler coalesces bursts of analysis triggers per key into a
// single debounced call and drops results that were overtaken by a newer
// trigger.
//
// Each key moves through Idle -> Pending -> InFlight -> Idle. Every trigger
// takes a fresh generation from a scheduler-wide counter; a call only
// commits its result if its generation is still the key's latest when it
// completes. Calls are never interrupted by a newer trigger, only ignored.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	DefaultDebounce = time.Second
	DefaultTimeout  = 60 * time.Second
)

// State of one key.
type State int

const (
	Idle State = iota
	Pending
	InFlight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case InFlight:
		return "in-flight"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reason names what caused a trigger.
type Reason string

const (
	ReasonOpen   Reason = "open"
	ReasonChange Reason = "change"
	ReasonSave   Reason = "save"
	ReasonFocus  Reason = "focus"
	ReasonManual Reason = "manual"
)

// Status of a finished call.
type Status string

const (
	Stored Status = "stored"
	Stale  Status = "stale"
	Failed Status = "failed"
)

// Outcome is reported once for every call the scheduler starts.
type Outcome struct {
	Key        string
	Generation uint64
	Reason     Reason
	Status     Status
	Err        error
}

// ServiceError wraps a failed or timed out call.
type ServiceError struct {
	Key string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("analysis of %s failed: %v", e.Key, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *ServiceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Config wires a Scheduler. Call and Commit are required.
type Config[R any] struct {
	Debounce time.Duration
	Timeout  time.Duration
	Clock    Clock

	// Call performs the slow work for key. It receives the generation the
	// work belongs to and a context bounded by Timeout.
	Call func(ctx context.Context, key string, gen uint64) (R, error)
	// Commit publishes a result. It runs only for the latest generation,
	// while the scheduler holds its lock, so it must not call back into
	// the scheduler.
	Commit func(key string, gen uint64, result R) error
	// OnOutcome, if set, observes every finished call.
	OnOutcome func(Outcome)
}

type entry struct {
	state      State
	generation uint64
	reason     Reason
	timer      Timer
}

// Scheduler is safe for concurrent use.
type Scheduler[R any] struct {
	debounce  time.Duration
	timeout   time.Duration
	clock     Clock
	call      func(ctx context.Context, key string, gen uint64) (R, error)
	commit    func(key string, gen uint64, result R) error
	onOutcome func(Outcome)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
	nextGen uint64
	closed  bool
}

func New[R any](cfg Config[R]) *Scheduler[R] {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler[R]{
		debounce:  cfg.Debounce,
		timeout:   cfg.Timeout,
		clock:     cfg.Clock,
		call:      cfg.Call,
		commit:    cfg.Commit,
		onOutcome: cfg.OnOutcome,
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[string]*entry),
	}
}

// Trigger records a new request for key and (re)starts its debounce timer.
// It returns the generation assigned to the request, or 0 once the
// scheduler is closed.
func (s *Scheduler[R]) Trigger(key string, reason Reason) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	s.nextGen++
	gen := s.nextGen
	e.generation = gen
	e.reason = reason
	e.state = Pending
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = s.clock.AfterFunc(s.debounce, func() { s.fire(key, gen) })
	return gen
}

// Flush skips the remaining debounce delay of a pending key. It reports
// whether a call was started.
func (s *Scheduler[R]) Flush(key string) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.state != Pending {
		s.mu.Unlock()
		return false
	}
	gen := e.generation
	s.mu.Unlock()
	return s.fire(key, gen)
}

// Forget drops all bookkeeping for key. A call still running for it will
// finish as stale.
func (s *Scheduler[R]) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, key)
	}
}

// State returns the state of key. Unknown keys are Idle.
func (s *Scheduler[R]) State(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.state
	}
	return Idle
}

// Generation returns the latest generation of key, 0 if unknown.
func (s *Scheduler[R]) Generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.generation
	}
	return 0
}

// Close stops all timers, cancels running calls and waits for them.
func (s *Scheduler[R]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler[R]) fire(key string, gen uint64) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	if s.closed || !ok || e.generation != gen || e.state != Pending {
		s.mu.Unlock()
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.state = InFlight
	reason := e.reason
	s.wg.Add(1)
	s.mu.Unlock()

	go s.execute(key, gen, reason)
	return true
}

type callResult[R any] struct {
	value R
	err   error
}

func (s *Scheduler[R]) execute(key string, gen uint64, reason Reason) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	done := make(chan callResult[R], 1)
	go func() {
		v, err := s.call(ctx, key, gen)
		done <- callResult[R]{value: v, err: err}
	}()

	var res callResult[R]
	select {
	case res = <-done:
	case <-ctx.Done():
		// The call may ignore its context; stop waiting for it anyway.
		res.err = ctx.Err()
	}
	s.complete(key, gen, reason, res)
}

func (s *Scheduler[R]) complete(key string, gen uint64, reason Reason, res callResult[R]) {
	out := Outcome{Key: key, Generation: gen, Reason: reason}

	s.mu.Lock()
	e, ok := s.entries[key]
	switch {
	case !ok || e.generation != gen:
		out.Status = Stale
	case res.err != nil:
		e.state = Idle
		out.Status = Failed
		out.Err = &ServiceError{Key: key, Err: res.err}
	default:
		e.state = Idle
		out.Status = Stored
		if err := s.commit(key, gen, res.value); err != nil {
			out.Status = Failed
			out.Err = err
		}
	}
	s.mu.Unlock()

	switch out.Status {
	case Stale:
		log.Printf("scheduler: dropped stale result for %s (generation %d)", key, gen)
	case Failed:
		log.Printf("scheduler: %v", out.Err)
	}
	if s.onOutcome != nil {
		s.onOutcome(out)
	}
}
