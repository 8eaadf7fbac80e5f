package clock

import "time"

// Clock supplies the current time. Timer accounting and streak detection
// depend on it, so tests substitute a fixed implementation.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// New returns a Clock backed by the system time.
func New() Clock {
	return systemClock{}
}
