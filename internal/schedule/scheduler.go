package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is a registered callback. The error it returns is reported on
// the scheduler's error channel, never propagated to the loop.
type Job func(ctx context.Context) error

// EntryState is the lifecycle state of one registered schedule.
type EntryState int

const (
	// StateIdle means the entry is registered but no timer is armed.
	StateIdle EntryState = iota
	// StateScheduled means a timer is armed for the next occurrence.
	StateScheduled
	// StateFiring means the callback is executing.
	StateFiring
	// StateStopped means future firings are suppressed until Start.
	StateStopped
)

// String implements fmt.Stringer.
func (s EntryState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateFiring:
		return "firing"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("EntryState(%d)", int(s))
}

// EntryError reports a callback failure from a scheduled firing.
type EntryError struct {
	EntryID uuid.UUID
	Name    string
	At      time.Time
	Err     error
}

// Scheduler owns registered entries and their shared error channel.
type Scheduler struct {
	clock Clock
	errs  chan EntryError

	mu      sync.Mutex
	entries []*Entry
}

// New creates a scheduler. A nil clock selects the system clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{
		clock: clock,
		errs:  make(chan EntryError, 16),
	}
}

// Errors returns the channel on which callback failures are reported.
// If no observer drains it, further reports are dropped rather than
// blocking the scheduling loop.
func (s *Scheduler) Errors() <-chan EntryError {
	return s.errs
}

// Register binds a job to a cron expression and timezone, returning a
// handle with Start/Stop. With autostart, the first timer is armed
// immediately. A malformed expression or timezone is rejected without
// registering anything.
func (s *Scheduler) Register(name, expr, timezone string, job Job, autostart bool) (*Entry, error) {
	spec, err := ParseSpec(expr, timezone)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", name, err)
	}

	e := &Entry{
		id:    uuid.New(),
		name:  name,
		spec:  spec,
		job:   job,
		sched: s,
		state: StateIdle,
	}

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	if autostart {
		e.Start()
	}

	return e, nil
}

// Entries returns a snapshot of the registered entries.
func (s *Scheduler) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// StopAll stops every registered entry. In-flight callbacks finish.
func (s *Scheduler) StopAll() {
	for _, e := range s.Entries() {
		e.Stop()
	}
}

// Entry is the handle for one registered schedule.
type Entry struct {
	id    uuid.UUID
	name  string
	spec  *Spec
	job   Job
	sched *Scheduler

	mu    sync.Mutex
	state EntryState
	timer Timer
	next  time.Time
}

// ID returns the entry's unique identifier.
func (e *Entry) ID() uuid.UUID {
	return e.id
}

// Name returns the entry's registration name.
func (e *Entry) Name() string {
	return e.name
}

// State returns the current lifecycle state.
func (e *Entry) State() EntryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// NextFire returns the occurrence the armed timer targets, or the
// zero time when no timer is armed.
func (e *Entry) NextFire() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next
}

// Start arms the entry from current time. It is a no-op while a timer
// is armed or the callback is executing, and reinitializes a stopped
// or idle entry.
func (e *Entry) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateScheduled || e.state == StateFiring {
		return
	}
	e.armLocked()
}

// Stop suppresses future firings. An in-flight callback is allowed to
// finish; Stop never blocks on it. The entry stays stopped until
// Start.
func (e *Entry) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateStopped
	e.next = time.Time{}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// Describe returns a diagnostic representation of the schedule.
func (e *Entry) Describe() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := "none"
	if !e.next.IsZero() {
		next = e.next.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s %q zone=%s state=%s next=%s",
		e.name, e.spec.Expression(), e.spec.Location(), e.state, next)
}

// armLocked computes the next occurrence strictly after current time
// and arms the single timer for it. Caller holds e.mu.
func (e *Entry) armLocked() {
	now := e.sched.clock.Now()
	next := e.spec.Next(now)
	if next.IsZero() {
		// No occurrence within the search horizon; park the entry.
		slog.Warn("schedule has no future occurrence",
			"entry", e.id, "name", e.name, "expr", e.spec.Expression())
		e.state = StateIdle
		e.next = time.Time{}
		return
	}
	e.state = StateScheduled
	e.next = next
	e.timer = e.sched.clock.AfterFunc(next.Sub(now), e.fire)
}

// fire runs the callback and re-arms. Because the next timer is armed
// only after the callback returns, callbacks for the same entry never
// overlap, and recomputing from current time collapses any missed
// periods into the firing that just ran.
func (e *Entry) fire() {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}
	e.state = StateFiring
	e.timer = nil
	e.mu.Unlock()

	e.callFunc()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateFiring {
		// Stopped mid-callback, or stopped and restarted: Start has
		// already armed a timer, so arming another here would fire the
		// entry twice per period.
		return
	}
	e.armLocked()
}

// callFunc invokes the job, converting returned errors and panics
// into reports on the error channel.
func (e *Entry) callFunc() {
	defer func() {
		if r := recover(); r != nil {
			e.report(&ScheduleError{
				Code:    ErrCodeCallbackFailed,
				Message: fmt.Sprintf("job %s panicked", e.name),
				Err:     fmt.Errorf("panic: %v", r),
			})
		}
	}()

	if err := e.job(context.Background()); err != nil {
		e.report(&ScheduleError{
			Code:    ErrCodeCallbackFailed,
			Message: fmt.Sprintf("job %s failed", e.name),
			Err:     err,
		})
	}
}

// report delivers a callback failure without ever blocking the loop.
func (e *Entry) report(err error) {
	ee := EntryError{
		EntryID: e.id,
		Name:    e.name,
		At:      e.sched.clock.Now(),
		Err:     err,
	}
	select {
	case e.sched.errs <- ee:
	default:
		slog.Warn("dropping schedule error, observer not draining",
			"entry", e.id, "name", e.name, "error", err)
	}
}
