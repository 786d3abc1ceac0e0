package data

import "time"

// Time is a timestamp in whole seconds since the Unix epoch, the resolution
// carried by statistics records.
type Time uint64

func NewTime(t time.Time) Time {
	if t.Before(time.Unix(0, 0)) {
		return 0
	}
	return Time(t.Unix())
}

func (t Time) AsTime() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

func (t Time) Seconds() uint64 {
	return uint64(t)
}

// Clock is the wall-clock collaborator consulted for timestamps.
type Clock interface {
	Now() Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() Time

func (f ClockFunc) Now() Time { return f() }

// SystemClock reads the host wall clock.
var SystemClock Clock = ClockFunc(func() Time { return NewTime(time.Now()) })
