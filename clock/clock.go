package clock

import "time"

// WallClock is an interface wrapping the basic Now method returning wall clock time.
// Use [RealWallClock] for the real clock backed by [time.Now].
type WallClock interface {
	Now() time.Time
}

type realWallClock struct{}

func (c realWallClock) Now() time.Time {
	return time.Now()
}

// RealWallClock returns a WallClock backed by [time.Now].
func RealWallClock() WallClock {
	return realWallClock{}
}

type fixedWallClock time.Time

func (c fixedWallClock) Now() time.Time {
	return time.Time(c)
}

// Fixed returns a WallClock pinned to t, mainly useful in tests.
func Fixed(t time.Time) WallClock {
	return fixedWallClock(t)
}
