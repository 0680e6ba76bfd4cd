package schedule

import "time"

// Timer is a single armed timer.
type Timer interface {
	// Stop prevents the timer from firing. Returns true if it was
	// still pending.
	Stop() bool
}

// Clock abstracts wall time and timer arming so schedulers can run
// against virtual time in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// systemClock is the wall-clock implementation backed by the time
// package.
type systemClock struct{}

// SystemClock is the Clock used outside of tests.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
