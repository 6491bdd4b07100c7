package clock

import "time"

// Clock abstracts wall time so billing-date arithmetic is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns a Clock backed by time.Now, normalized to UTC.
func NewSystemClock() Clock { return systemClock{} }
