// Package system is the wall clock behind run start times and notification
// timestamps.
package system

import "time"

// Clock reports UTC wall time at TIMESTAMPTZ precision.
type Clock struct{}

func New() *Clock {
	return &Clock{}
}

func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
