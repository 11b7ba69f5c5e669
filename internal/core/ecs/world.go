package ecs

import (
	"fmt"
	"unsafe"

	"go.uber.org/multierr"

	"github.com/l1jgo/ecsrt/internal/core/store"
)

// World is the top-level container: entities, resources, the logical clock
// and the queue of deferred structural commands.
type World struct {
	clock     Clock
	entities  *Entities
	resources *Resources
	queue     CommandQueue

	// derive maps a component key to a companion computed on insert.
	derive map[store.TypeKey]func(unsafe.Pointer) any
	// derived maps each companion key to its source type; companions cannot
	// be inserted directly.
	derived map[store.TypeKey]ComponentType
}

func NewWorld() *World {
	w := &World{
		derive:  make(map[store.TypeKey]func(unsafe.Pointer) any),
		derived: make(map[store.TypeKey]ComponentType),
	}
	w.entities = newEntities(&w.clock)
	w.resources = newResources(&w.clock)
	return w
}

func (w *World) Entities() *Entities   { return w.entities }
func (w *World) Resources() *Resources { return w.resources }
func (w *World) Tick() Tick            { return w.clock.Now() }

// AdvanceTick moves the clock forward and returns the new reading.
func (w *World) AdvanceTick() Tick { return w.clock.Advance() }

func (w *World) Len() int                  { return w.entities.Len() }
func (w *World) Contains(id EntityID) bool { return w.entities.Contains(id) }

// DeriveComponent registers a companion: whenever an L is inserted, a D
// computed from it is inserted too. Inserting D directly panics afterwards.
func DeriveComponent[L, D any](w *World, derive func(*L) D) {
	src, dst := Type[L](), Type[D]()
	w.derive[src.Key] = func(p unsafe.Pointer) any { return derive((*L)(p)) }
	w.derived[dst.Key] = src
}

// checkInsert rejects types that only the store may insert.
func (w *World) checkInsert(t ComponentType) {
	if t == entityIDType {
		panic("ecs: EntityID is assigned by the store and cannot be inserted")
	}
	if src, ok := w.derived[t.Key]; ok {
		panic(fmt.Sprintf("ecs: %s is derived from %s and cannot be inserted directly", t, src))
	}
}

// expand boxes components and appends derived companions.
func (w *World) expand(components []any) []Field {
	fields := make([]Field, 0, len(components))
	for _, c := range components {
		t, p := store.Box(c)
		w.checkInsert(t)
		fields = append(fields, Field{Type: t, Ptr: p})
		if derive, ok := w.derive[t.Key]; ok {
			dt, dp := store.Box(derive(p))
			fields = append(fields, Field{Type: dt, Ptr: dp})
		}
	}
	return fields
}

// Spawn creates an entity immediately. Pending commands are flushed first;
// spawning directly while a system holds unapplied spawns panics.
func (w *World) Spawn(components ...any) EntityID {
	if err := w.FlushCommands(); err != nil {
		panic(err)
	}
	if w.entities.pending() {
		panic("ecs: direct spawn while deferred spawns are outstanding")
	}
	fields := w.expand(components)
	w.clock.Advance()
	id := w.entities.Next()
	w.entities.SpawnFields(id, fields)
	return id
}

// Insert adds or replaces components on id immediately.
func (w *World) Insert(id EntityID, components ...any) {
	fields := w.expand(components)
	w.clock.Advance()
	for _, f := range fields {
		w.entities.InsertComponent(id, f.Type, f.Ptr)
	}
}

func (w *World) Despawn(id EntityID) bool {
	w.clock.Advance()
	return w.entities.Despawn(id)
}

func (w *World) DespawnRecursive(id EntityID) bool {
	w.clock.Advance()
	return w.entities.DespawnRecursive(id)
}

func (w *World) AddChild(parent, child EntityID) {
	w.clock.Advance()
	w.entities.AddChild(parent, child)
}

func (w *World) RemoveChild(parent, child EntityID) bool {
	w.clock.Advance()
	return w.entities.RemoveChild(parent, child)
}

// InsertResource stores v under its dynamic type.
func (w *World) InsertResource(v any) {
	w.clock.Advance()
	w.resources.Insert(v)
}

// FlushCommands applies every queued command in issue order. Commands
// queued while flushing are applied in the same call. Commands aimed at
// entities that no longer exist are skipped; a command that fails does
// not stop the rest and its error is returned.
func (w *World) FlushCommands() error {
	var errs error
	for w.queue.Len() > 0 {
		cmds := w.queue.take()
		w.clock.Advance()
		for i := range cmds {
			errs = multierr.Append(errs, cmds[i].safeApply(w))
		}
	}
	return errs
}

// Get returns id's T component.
func Get[T any](w *World, id EntityID) (*T, bool) {
	p, ok := w.entities.Get(id, Type[T]().Key)
	if !ok {
		return nil, false
	}
	return (*T)(p), true
}

// MustGet is Get that panics when the component is absent.
func MustGet[T any](w *World, id EntityID) *T {
	p, ok := Get[T](w, id)
	if !ok {
		panic(fmt.Sprintf("ecs: %s has no %s component", id, Type[T]()))
	}
	return p
}

// GetMut returns id's T component and marks it changed.
func GetMut[T any](w *World, id EntityID) (*T, bool) {
	p, d, row, ok := w.entities.field(id, Type[T]().Key)
	if !ok {
		return nil, false
	}
	d.changedAt[row] = w.clock.Advance()
	return (*T)(p), true
}

func Has[T any](w *World, id EntityID) bool {
	_, ok := w.entities.Get(id, Type[T]().Key)
	return ok
}

// Remove detaches and returns id's T component. It panics when the entity
// has none.
func Remove[T any](w *World, id EntityID) T {
	w.clock.Advance()
	return *(*T)(w.entities.RemoveComponent(id, Type[T]()))
}
