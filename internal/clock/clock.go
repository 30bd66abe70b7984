// Package clock abstracts the time operations the poll and outbox services
// depend on. Production code uses Real(); tests use Fake() and advance time
// explicitly.
package clock

import "time"

type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine (real) or during Advance
	// (fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	// Stop reports whether the call prevented the timer from firing.
	Stop() bool
}

type realClock struct{}

func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
