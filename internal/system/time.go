package system

import (
	"time"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/timing"
)

// UpdateTime returns the First-phase system that advances the Time
// resource from now and feeds the frame delta to FixedTime when present.
func UpdateTime(now func() time.Time) func(ecs.ResMut[timing.Time], ecs.OptResMut[timing.FixedTime]) {
	return func(t ecs.ResMut[timing.Time], fixed ecs.OptResMut[timing.FixedTime]) {
		clock := t.Get()
		clock.Advance(now())
		if fixed.Present() {
			fixed.Get().Accumulate(clock.Delta())
		}
	}
}
