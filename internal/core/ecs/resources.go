package ecs

import (
	"fmt"
	"unsafe"

	"github.com/l1jgo/ecsrt/internal/core/store"
)

type resourceEntry struct {
	typ     ComponentType
	ptr     unsafe.Pointer
	changed Tick
	added   Tick
}

// Resources holds at most one value per type, with the same change ticks
// as a component field.
type Resources struct {
	entries map[store.TypeKey]*resourceEntry
	clock   *Clock
}

func newResources(clock *Clock) *Resources {
	return &Resources{
		entries: make(map[store.TypeKey]*resourceEntry),
		clock:   clock,
	}
}

// Insert stores value under its dynamic type, replacing and dropping any
// previous value.
func (r *Resources) Insert(value any) {
	t, p := store.Box(value)
	r.insert(t, p)
}

func (r *Resources) insert(t ComponentType, p unsafe.Pointer) {
	now := r.clock.Now()
	if e, ok := r.entries[t.Key]; ok {
		if t.Drop != nil {
			t.Drop(e.ptr)
		}
		e.ptr = p
		e.changed, e.added = now, now
		return
	}
	r.entries[t.Key] = &resourceEntry{typ: t, ptr: p, changed: now, added: now}
}

// Get returns the address of the t resource.
func (r *Resources) Get(t ComponentType) (unsafe.Pointer, bool) {
	e, ok := r.entries[t.Key]
	if !ok {
		return nil, false
	}
	return e.ptr, true
}

// Ticks returns the changed and added ticks of the t resource.
func (r *Resources) Ticks(t ComponentType) (changed, added Tick, ok bool) {
	e, ok := r.entries[t.Key]
	if !ok {
		return 0, 0, false
	}
	return e.changed, e.added, true
}

// Remove drops the t resource. It reports whether one was stored.
func (r *Resources) Remove(t ComponentType) bool {
	e, ok := r.entries[t.Key]
	if !ok {
		return false
	}
	if t.Drop != nil {
		t.Drop(e.ptr)
	}
	delete(r.entries, t.Key)
	return true
}

func (r *Resources) Contains(t ComponentType) bool {
	_, ok := r.entries[t.Key]
	return ok
}

func (r *Resources) Len() int { return len(r.entries) }

func (r *Resources) entry(t ComponentType) (*resourceEntry, bool) {
	e, ok := r.entries[t.Key]
	return e, ok
}

// InsertResource stores v as the T resource.
func InsertResource[T any](w *World, v T) {
	w.clock.Advance()
	p := new(T)
	*p = v
	w.resources.insert(Type[T](), unsafe.Pointer(p))
}

// Resource returns the T resource and panics when it is absent.
func Resource[T any](w *World) *T {
	p, ok := w.resources.Get(Type[T]())
	if !ok {
		panic(fmt.Sprintf("ecs: resource %s not found", Type[T]()))
	}
	return (*T)(p)
}

// TryResource returns the T resource if present.
func TryResource[T any](w *World) (*T, bool) {
	p, ok := w.resources.Get(Type[T]())
	if !ok {
		return nil, false
	}
	return (*T)(p), true
}

// ResourceMut is TryResource that also marks the resource changed.
func ResourceMut[T any](w *World) (*T, bool) {
	e, ok := w.resources.entry(Type[T]())
	if !ok {
		return nil, false
	}
	e.changed = w.clock.Advance()
	return (*T)(e.ptr), true
}

func HasResource[T any](w *World) bool {
	return w.resources.Contains(Type[T]())
}

func RemoveResource[T any](w *World) bool {
	return w.resources.Remove(Type[T]())
}
