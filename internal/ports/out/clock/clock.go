package clock

import "time"

// Clock provides time to the application.
// Using an interface enables deterministic tests via a controllable implementation.
type Clock interface {
	Now() time.Time

	// AfterFunc runs f in its own goroutine once d has elapsed.
	// Stopping the returned Timer prevents f from running if it has not started.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the cancellable handle returned by AfterFunc.
type Timer interface {
	// Stop reports whether the call prevented f from running.
	Stop() bool
}
