package application

import "time"

// Clock is the time source for run stamps and run durations; tests inject a fixed one.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC, the zone every stored timestamp uses.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
