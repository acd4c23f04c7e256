package progress

import "time"

// Throttle gates a recurring action to at most once per Interval. The
// zero value (Interval 0) allows everything. Not safe for concurrent use;
// each transfer or tool invocation owns its own throttle.
type Throttle struct {
	Interval time.Duration

	last time.Time
	now  func() time.Time
}

// Allow reports whether the action may run now, consuming the slot if so.
func (t *Throttle) Allow() bool {
	clock := t.now
	if clock == nil {
		clock = time.Now
	}

	now := clock()
	if !t.last.IsZero() && now.Sub(t.last) < t.Interval {
		return false
	}
	t.last = now
	return true
}
