// Package clock abstracts wall-clock time so schedule arithmetic can be
// tested deterministically. All persisted timestamps are UTC; Now always
// returns a UTC instant.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by time.Now in UTC.
func System() Clock { return systemClock{} }

// Fixed is a Clock pinned to a settable instant, for tests.
type Fixed struct {
	Current time.Time
}

// NewFixed creates a Fixed clock at the given instant, normalized to UTC.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{Current: t.UTC()}
}

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time { return f.Current }

// Advance moves the pinned instant forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
