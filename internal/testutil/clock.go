package testutil

import "time"

// StubClock always reports the same instant.
type StubClock struct {
	now time.Time
}

// FixedClock returns a StubClock stopped at 2024-01-15 10:30:00 UTC.
func FixedClock() StubClock {
	return StubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c StubClock) Now() time.Time {
	return c.now
}
