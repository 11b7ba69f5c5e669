package system

import (
	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/timing"
)

type expiring struct {
	ID   ecs.EntityID
	Life ecs.Mut[component.Lifetime]
}

// DespawnExpired ticks every Lifetime by the frame delta and queues a
// recursive despawn for the entities whose timer finished.
// Runs in FrameEnd.
func DespawnExpired(q *ecs.Query[expiring], t ecs.Res[timing.Time], cmds *ecs.Commands) {
	dt := t.Get().Delta()
	for e := range q.Iter() {
		life := e.Life.Get()
		life.Timer.Tick(dt)
		if life.Timer.Finished() {
			cmds.Entity(e.ID).DespawnRecursive()
		}
	}
}
