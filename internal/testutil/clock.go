// Package testutil provides deterministic test doubles, most notably
// a virtual clock for driving scheduler tests without real sleeps.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/tallybot/tally/internal/schedule"
)

// VirtualClock implements schedule.Clock over virtual time.
//
// Advance moves time forward and runs due timers synchronously, in
// deadline order, with Now set to each timer's deadline while it
// runs, the same suspension points a wall clock would produce. Jump
// moves time without running timers, modelling a process that was
// paused or a clock that stepped; a following Advance(0) delivers
// whatever became due.
//
// Thread-safety: all methods are safe for concurrent use, and timer
// callbacks run without the internal lock held so they may arm new
// timers.
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*virtualTimer
	nextID int
}

type virtualTimer struct {
	id       int
	deadline time.Time
	fn       func()
	clock    *VirtualClock
}

// NewVirtualClock creates a virtual clock frozen at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc arms a timer d from the current virtual time. A
// non-positive d arms it for the current instant; it runs on the next
// Advance, never inline.
func (c *VirtualClock) AfterFunc(d time.Duration, f func()) schedule.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.now.Add(d)
	if d <= 0 {
		deadline = c.now
	}
	c.nextID++
	t := &virtualTimer{id: c.nextID, deadline: deadline, fn: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

// Stop removes the timer. Returns true if it had not run yet.
func (t *virtualTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, pending := range c.timers {
		if pending.id == t.id {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves virtual time forward by d, running every timer whose
// deadline falls within the window, in deadline order (ties by arming
// order). Timers armed by callbacks run too if they fall within the
// same window.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		t := c.earliestDueLocked(target)
		if t == nil {
			break
		}
		if t.deadline.After(c.now) {
			c.now = t.deadline
		}
		c.removeLocked(t.id)
		c.mu.Unlock()
		t.fn()
		c.mu.Lock()
	}

	if target.After(c.now) {
		c.now = target
	}
	c.mu.Unlock()
}

// Jump moves virtual time forward by d without running any timers.
func (c *VirtualClock) Jump(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// PendingTimers returns how many timers are armed.
func (c *VirtualClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// earliestDueLocked returns the due timer with the earliest deadline,
// or nil. Caller holds c.mu.
func (c *VirtualClock) earliestDueLocked(target time.Time) *virtualTimer {
	due := make([]*virtualTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.deadline.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0]
}

// removeLocked removes a timer by id. Caller holds c.mu.
func (c *VirtualClock) removeLocked(id int) {
	for i, t := range c.timers {
		if t.id == id {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}
