// Package clock provides a monotonic clock whose readings are durations
// elapsed since an epoch taken when the Clock is created, so they are not
// affected by wall-clock jumps or NTP adjustments. Readings and deadlines
// are comparable only with readings of the same Clock: the package does not
// persist an epoch or convert a deadline across a process restart.
package clock

import "time"

// Clock is a monotonic clock. All values it returns are durations elapsed
// since the clock was created.
type Clock struct {
	epoch time.Time
}

// New creates a Clock anchored at the current instant.
func New() *Clock {
	return &Clock{epoch: time.Now()}
}

// Now returns the elapsed monotonic duration since the clock's epoch.
func (c *Clock) Now() time.Duration {
	return time.Since(c.epoch)
}

// Deadline returns the elapsed-time value that is d in the future relative
// to the clock's current reading. Storing this value (rather than a wall
// clock timestamp) keeps aging-out logic immune to wall-clock jumps; the
// value is meaningful only against readings of the same Clock.
func (c *Clock) Deadline(d time.Duration) time.Duration {
	return c.Now() + d
}

// Expired reports whether the elapsed-time deadline produced by Deadline
// has passed.
func (c *Clock) Expired(deadline time.Duration) bool {
	return c.Now() >= deadline
}
