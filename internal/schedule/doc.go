// Package schedule provides cron-style recurring job scheduling.
//
// A Spec is a 5-field cron expression (minute hour day-of-month month
// day-of-week) bound to one canonical timezone. Heterogeneous
// timezone input (IANA names in any case, "UTC", "Local") is coerced
// into a single canonical location before any occurrence math.
//
// A Scheduler owns registered entries. Each entry is a state machine:
//
//	Idle -> Scheduled -> Firing -> Scheduled -> ...
//
// with Stopped reachable from any state and terminal until Start.
// One timer is armed per entry, and the next timer is armed only
// after the previous callback returns, so callbacks for the same
// entry never overlap. If the computed occurrence is no longer in the
// future when re-arming (long callback, clock jump, missed periods),
// the next occurrence is recomputed from current time, collapsing any
// number of missed periods into the single firing that already ran.
//
// Job errors are captured and reported through the scheduler's error
// channel; they never stop the scheduling loop.
package schedule
