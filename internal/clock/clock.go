// Package clock abstracts time so deadline logic is a controllable test
// input rather than wall-clock-coupled.
package clock

import "time"

// Clock supplies the current time. It is read-only and safe for concurrent
// use.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by time.Now.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Func adapts a function to the Clock interface. Handy for fixed or
// advancing clocks in tests.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
