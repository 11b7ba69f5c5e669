package ecs

import (
	"slices"
	"strings"
	"testing"
)

func TestCommandsAreDeferred(t *testing.T) {
	w := NewWorld()
	existing := w.Spawn(label{"existing"})

	c := NewCommands(w)
	parent := c.Spawn(label{"parent"}).ID()
	child := c.Spawn(label{"child"}, position{X: 1}).ID()
	c.Entity(parent).AddChild(child)
	c.Entity(existing).Insert(velocity{X: 3})
	c.InsertResource(counter{N: 7})

	if parent != 1 || child != 2 {
		t.Fatalf("reserved ids = %s, %s", parent, child)
	}
	if w.Contains(parent) || Has[velocity](w, existing) || HasResource[counter](w) {
		t.Fatal("commands applied before flush")
	}
	mustPanic(t, "outstanding", func() { w.Spawn(label{"direct"}) })

	w.ApplyCommands(c)
	if c.Len() != 0 {
		t.Errorf("recorder still holds %d commands", c.Len())
	}
	if !w.Contains(parent) || !w.Contains(child) {
		t.Fatal("spawns not applied")
	}
	if got := MustGet[Children](w, parent).IDs; !slices.Equal(got, []EntityID{child}) {
		t.Errorf("children = %v", got)
	}
	if v := MustGet[velocity](w, existing); v.X != 3 {
		t.Errorf("velocity = %+v", *v)
	}
	if Resource[counter](w).N != 7 {
		t.Error("resource not inserted")
	}
	if id := w.Spawn(label{"after"}); id != 3 {
		t.Errorf("direct spawn after flush = %s, want entity#3", id)
	}
	validate(t, w)
}

func TestCommandsPreserveIssueOrder(t *testing.T) {
	w := NewWorld()
	c := NewCommands(w)
	e := c.Spawn(score{Value: 1})
	e.Insert(score{Value: 2})
	e.Remove(Type[score]())
	e.Insert(score{Value: 3})
	c.Add(func(w *World) {
		MustGet[score](w, e.ID()).Value *= 10
	})
	w.ApplyCommands(c)
	if got := MustGet[score](w, e.ID()).Value; got != 30 {
		t.Errorf("score = %d, want 30", got)
	}

	c.Entity(e.ID()).Despawn()
	c.RemoveResource(Type[counter]())
	w.ApplyCommands(c)
	if w.Contains(e.ID()) {
		t.Error("despawn not applied")
	}
}

func TestCommandsDespawnRecursive(t *testing.T) {
	w := NewWorld()
	root := w.Spawn(label{"root"})
	kid := w.Spawn(label{"kid"})
	w.AddChild(root, kid)

	c := NewCommands(w)
	c.Entity(root).DespawnRecursive()
	w.ApplyCommands(c)
	if w.Len() != 0 {
		t.Errorf("%d entities left", w.Len())
	}
}

func TestCommandsRejectForbiddenTypes(t *testing.T) {
	w := NewWorld()
	DeriveComponent(w, func(p *position) mirror { return mirror{X: p.X} })
	c := NewCommands(w)
	mustPanic(t, "EntityID", func() { c.Spawn(EntityID(3)) })
	mustPanic(t, "derived", func() { c.Spawn().Insert(mirror{}) })
	mustPanic(t, "EntityID", func() { c.Entity(0).Remove(Type[EntityID]()) })

	// the rejected spawns above still hold their reservations
	id := c.Spawn(position{X: 4}).ID()
	w.ApplyCommands(c)
	if id != 2 || w.Len() != 3 {
		t.Fatalf("id = %s, len = %d", id, w.Len())
	}
	if m := MustGet[mirror](w, id); m.X != 4 {
		t.Errorf("derived through commands = %+v", *m)
	}
}

func TestFlushAdvancesClock(t *testing.T) {
	w := NewWorld()
	before := w.Tick()
	c := NewCommands(w)
	id := c.Spawn(score{}).ID()
	w.ApplyCommands(c)
	_, d, row, _ := w.entities.field(id, Type[score]().Key)
	if !ChangedSince(d.AddedAt(row), before) {
		t.Errorf("spawned at %d, not after %d", d.AddedAt(row), before)
	}
}

// tracked counts how often a component value was released.
type tracked struct{ drops *int }

func (r *tracked) Drop() { *r.drops++ }

func TestCommandsSkipDespawnedTargets(t *testing.T) {
	w := NewWorld()
	gone := w.Spawn(label{"gone"})
	other := w.Spawn(label{"other"})
	kid := w.Spawn(label{"kid"})
	drops := 0

	c := NewCommands(w)
	c.Entity(gone).Despawn()
	c.Entity(gone).Insert(tracked{drops: &drops})
	c.Entity(gone).Remove(Type[label]())
	c.Entity(gone).AddChild(kid)
	c.Entity(other).AddChild(gone)
	c.Entity(other).Insert(velocity{X: 1})
	if err := w.ApplyCommands(c); err != nil {
		t.Fatal(err)
	}
	if w.Contains(gone) {
		t.Fatal("despawn not applied")
	}
	if drops != 1 {
		t.Errorf("skipped insert dropped %d values, want 1", drops)
	}
	if !Has[velocity](w, other) || Has[Children](w, other) || Has[Parent](w, kid) {
		t.Error("commands after the stale ones applied wrongly")
	}
	validate(t, w)
}

func TestFailedCommandDoesNotStopFlush(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(label{"e"})
	c := NewCommands(w)
	c.Entity(e).Remove(Type[velocity]())
	c.Entity(e).Insert(score{Value: 5})
	err := w.ApplyCommands(c)
	if err == nil || !strings.Contains(err.Error(), "remove command on entity#0") {
		t.Errorf("err = %v", err)
	}
	if s := MustGet[score](w, e); s.Value != 5 {
		t.Errorf("score = %d after failed remove", s.Value)
	}
}
