package lock

import "time"

// Clock abstracts wall-clock reads and sleeping. The acquire loop derives its
// elapsed-time accounting and backoff sleeps exclusively from a Clock, so
// tests can inject a fake implementation and assert exact retry timing
// without real delays.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses the calling goroutine for the given duration.
	// A zero or negative duration returns immediately.
	Sleep(d time.Duration)
}

// realClock is the production Clock backed by the time package.
type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
