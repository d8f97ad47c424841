package inventory

import "time"

func (a *Allocator) SetClock(now func() time.Time) {
	a.now = now
}
