package system

import (
	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

type spatial struct {
	ID       ecs.EntityID
	Local    ecs.Ref[component.Transform]
	Global   ecs.Mut[component.GlobalTransform]
	Parent   ecs.Ref[ecs.Parent]   `ecs:"optional"`
	Children ecs.Ref[ecs.Children] `ecs:"optional"`
}

// PropagateTransforms recomputes GlobalTransform for every hierarchy
// rooted at an entity without a Transform-carrying parent. Globals are
// only written when they differ, so Changed[GlobalTransform] stays quiet
// for static entities. Runs in PostUpdate.
func PropagateTransforms(q *ecs.Query[spatial]) {
	for e := range q.Iter() {
		if e.Parent.Present() && q.Contains(e.Parent.Get().ID) {
			continue
		}
		propagate(q, e, component.IdentityMat, 0)
	}
}

// maxDepth bounds the walk in case a cycle was built by hand.
const maxDepth = 256

func propagate(q *ecs.Query[spatial], e spatial, parent component.Mat4, depth int) {
	global := parent.Mul(e.Local.Get().Matrix())
	if e.Global.Peek().Matrix != global {
		e.Global.Get().Matrix = global
	}
	if !e.Children.Present() || depth >= maxDepth {
		return
	}
	for _, id := range e.Children.Get().IDs {
		if child, ok := q.Get(id); ok {
			propagate(q, child, global, depth+1)
		}
	}
}
