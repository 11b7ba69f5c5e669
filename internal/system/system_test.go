package system

import (
	"testing"
	"time"

	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	coresys "github.com/l1jgo/ecsrt/internal/core/system"
	"github.com/l1jgo/ecsrt/internal/core/timing"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func newScheduler(t *testing.T) (*ecs.World, *coresys.Scheduler) {
	t.Helper()
	w := ecs.NewWorld()
	s := coresys.New(w, coresys.Config{Execution: coresys.Sequential}, nil)
	for _, p := range []coresys.PhaseLabel{coresys.First, coresys.Update, coresys.PostUpdate, coresys.FrameEnd} {
		s.AddPhase(p, coresys.Placement[coresys.PhaseLabel]{})
	}
	t.Cleanup(func() { s.Close() })
	return w, s
}

func TestUpdateTime(t *testing.T) {
	w, s := newScheduler(t)
	clock := &fakeClock{now: time.Unix(0, 0), step: 10 * time.Millisecond}
	ecs.InsertResource(w, timing.Time{})
	ecs.InsertResource(w, timing.NewFixedTime(50))
	s.AddSystem(coresys.First, UpdateTime(clock.Now))

	for range 4 {
		if err := s.Run(); err != nil {
			t.Fatal(err)
		}
	}
	tm := ecs.Resource[timing.Time](w)
	if tm.Frame() != 3 || tm.Elapsed() != 30*time.Millisecond {
		t.Errorf("frame = %d elapsed = %v", tm.Frame(), tm.Elapsed())
	}
	if acc := ecs.Resource[timing.FixedTime](w).Accumulated(); acc != 30*time.Millisecond {
		t.Errorf("accumulated = %v", acc)
	}
}

func TestDespawnExpired(t *testing.T) {
	w, s := newScheduler(t)
	ecs.InsertResource(w, timing.Time{})
	s.AddSystem(coresys.First, func(tm ecs.ResMut[timing.Time]) { tm.Get().AdvanceBy(100 * time.Millisecond) })
	s.AddSystem(coresys.FrameEnd, DespawnExpired)

	short := w.Spawn(component.NewLifetime(150 * time.Millisecond))
	child := w.Spawn(component.Name{Value: "child"})
	w.AddChild(short, child)
	long := w.Spawn(component.NewLifetime(time.Second))

	s.Run()
	if !w.Contains(short) {
		t.Fatal("despawned before the lifetime ended")
	}
	s.Run()
	if w.Contains(short) || w.Contains(child) {
		t.Error("expired entity or its child survived")
	}
	if !w.Contains(long) {
		t.Error("long-lived entity despawned")
	}
}

func TestPropagateTransforms(t *testing.T) {
	w, s := newScheduler(t)
	ecs.DeriveComponent(w, component.DeriveGlobal)
	s.AddSystem(coresys.PostUpdate, PropagateTransforms)
	var changed []ecs.EntityID
	s.AddSystem(coresys.FrameEnd, func(q *ecs.Query[struct {
		ID ecs.EntityID
		_  ecs.Changed[component.GlobalTransform]
	}]) {
		changed = changed[:0]
		for e := range q.Iter() {
			changed = append(changed, e.ID)
		}
	})

	root := w.Spawn(component.NewTransform(component.Vec3{X: 10}))
	child := w.Spawn(component.NewTransform(component.Vec3{Y: 1}))
	grandchild := w.Spawn(component.NewTransform(component.Vec3{Z: 1}))
	w.AddChild(root, child)
	w.AddChild(child, grandchild)

	s.Run()
	global := func(id ecs.EntityID) component.Vec3 {
		return ecs.MustGet[component.GlobalTransform](w, id).Matrix.Translation()
	}
	if got := global(grandchild); !got.ApproxEq(component.Vec3{10, 1, 1}) {
		t.Errorf("grandchild global = %+v", got)
	}

	s.Run()
	if len(changed) != 0 {
		t.Errorf("static hierarchy reported changes: %v", changed)
	}

	tr, _ := ecs.GetMut[component.Transform](w, root)
	tr.Translation.X = -5
	s.Run()
	if got := global(grandchild); !got.ApproxEq(component.Vec3{-5, 1, 1}) {
		t.Errorf("grandchild global after move = %+v", got)
	}
	if len(changed) != 3 {
		t.Errorf("changed = %v, want the whole chain", changed)
	}
}
