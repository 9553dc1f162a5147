package phone

import "time"

type Clock interface {
	Now() time.Time
}

// SystemClock returns UTC wall time truncated to the precision Postgres keeps.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}
