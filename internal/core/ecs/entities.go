package ecs

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/l1jgo/ecsrt/internal/core/store"
)

// Entities owns the archetypes, entity id allocation and entity locations.
// Structural changes always move whole rows between archetypes.
type Entities struct {
	archetypes
	locations map[EntityID]*Archetype
	next      EntityID
	reserved  atomic.Uint32
	clock     *Clock
}

func newEntities(clock *Clock) *Entities {
	return &Entities{
		archetypes: newArchetypes(),
		locations:  make(map[EntityID]*Archetype, 256),
		clock:      clock,
	}
}

// Next returns the id the next spawn must use.
func (e *Entities) Next() EntityID { return e.next }

// Reserve hands out an id for a spawn that will be applied later. Reserved
// ids must be spawned in the order they were handed out.
func (e *Entities) Reserve() EntityID { return EntityID(e.reserved.Add(1) - 1) }

func (e *Entities) pending() bool { return EntityID(e.reserved.Load()) != e.next }

func (e *Entities) Len() int                 { return len(e.locations) }
func (e *Entities) ArchetypeCount() int      { return len(e.order) }
func (e *Entities) Archetypes() []*Archetype { return e.order }
func (e *Entities) Generation() uint64       { return e.generation }

func (e *Entities) Contains(id EntityID) bool {
	_, ok := e.locations[id]
	return ok
}

// Location returns the archetype currently storing id.
func (e *Entities) Location(id EntityID) (*Archetype, bool) {
	a, ok := e.locations[id]
	return a, ok
}

func (e *Entities) mustLocate(id EntityID) *Archetype {
	a, ok := e.locations[id]
	if !ok {
		panic(fmt.Sprintf("ecs: %s does not exist", id))
	}
	return a
}

// Spawn creates entity id holding components. id must equal Next.
func (e *Entities) Spawn(id EntityID, components ...any) {
	fields := make([]Field, 0, len(components)+1)
	for _, c := range components {
		t, p := store.Box(c)
		fields = append(fields, Field{Type: t, Ptr: p})
	}
	e.SpawnFields(id, fields)
}

// SpawnFields is Spawn for values that are already boxed.
func (e *Entities) SpawnFields(id EntityID, fields []Field) {
	if id != e.next {
		panic(fmt.Sprintf("ecs: spawn of %s out of order, next id is %s", id, e.next))
	}
	now := e.clock.Now()
	types := make([]ComponentType, 0, len(fields)+1)
	for i := range fields {
		if fields[i].Type == entityIDType {
			panic("ecs: EntityID is assigned by the store and cannot be spawned as a component")
		}
		fields[i].ChangedAt, fields[i].AddedAt = now, now
		types = append(types, fields[i].Type)
	}
	self := id
	fields = append(fields, Field{Type: entityIDType, Ptr: unsafe.Pointer(&self), ChangedAt: now, AddedAt: now})
	types = append(types, entityIDType)
	sortTypes(types)
	for i := 1; i < len(types); i++ {
		if types[i] == types[i-1] {
			panic(fmt.Sprintf("ecs: %s spawned with duplicate component %s", id, types[i]))
		}
	}

	a := e.lookupOrCreate(types)
	a.InsertEntity(id, fields)
	e.locations[id] = a
	e.next++
	for {
		r := e.reserved.Load()
		if EntityID(r) >= e.next || e.reserved.CompareAndSwap(r, uint32(e.next)) {
			break
		}
	}
}

// Despawn removes id after unlinking it from its parent and children.
// It reports whether the entity existed.
func (e *Entities) Despawn(id EntityID) bool {
	if !e.Contains(id) {
		return false
	}
	if parent, ok := e.parentOf(id); ok {
		e.detachChild(parent, id)
	}
	for _, child := range e.childrenOf(id) {
		if p, ok := e.parentOf(child); ok && p == id {
			e.RemoveComponent(child, parentType)
		}
	}
	a := e.locations[id]
	fields, _ := a.RemoveEntity(id)
	dropFields(fields)
	delete(e.locations, id)
	e.evictIfEmpty(a)
	return true
}

// DespawnRecursive despawns the children of id depth-first, then id.
func (e *Entities) DespawnRecursive(id EntityID) bool {
	if !e.Contains(id) {
		return false
	}
	for _, child := range e.childrenOf(id) {
		e.DespawnRecursive(child)
	}
	return e.Despawn(id)
}

// InsertComponent stores the value at ptr on id. An existing value of the
// same type is overwritten in place; otherwise the entity migrates to the
// archetype with one more type, keeping the ticks of its other fields.
func (e *Entities) InsertComponent(id EntityID, t ComponentType, ptr unsafe.Pointer) {
	if t == entityIDType {
		panic("ecs: EntityID cannot be inserted")
	}
	a := e.mustLocate(id)
	now := e.clock.Now()
	if a.Has(t.Key) {
		a.SetComponent(id, t.Key, ptr, now)
		return
	}
	fields, _ := a.RemoveEntity(id)
	fields = append(fields, Field{Type: t, Ptr: ptr, ChangedAt: now, AddedAt: now})
	e.move(id, a, fields)
}

// RemoveComponent detaches the t value from id and returns it. It panics
// when id has no such component.
func (e *Entities) RemoveComponent(id EntityID, t ComponentType) unsafe.Pointer {
	if t == entityIDType {
		panic("ecs: EntityID cannot be removed")
	}
	a := e.mustLocate(id)
	if !a.Has(t.Key) {
		panic(fmt.Sprintf("ecs: %s has no %s component", id, t))
	}
	fields, _ := a.RemoveEntity(id)
	var removed unsafe.Pointer
	kept := fields[:0]
	for _, f := range fields {
		if f.Type == t {
			removed = f.Ptr
			continue
		}
		kept = append(kept, f)
	}
	e.move(id, a, kept)
	return removed
}

func (e *Entities) move(id EntityID, from *Archetype, fields []Field) {
	types := make([]ComponentType, len(fields))
	for i := range fields {
		types[i] = fields[i].Type
	}
	sortTypes(types)
	dst := e.lookupOrCreate(types)
	dst.InsertEntity(id, fields)
	e.locations[id] = dst
	e.evictIfEmpty(from)
}

// Get returns the address of id's component with key.
func (e *Entities) Get(id EntityID, key store.TypeKey) (unsafe.Pointer, bool) {
	p, _, _, ok := e.field(id, key)
	return p, ok
}

func (e *Entities) field(id EntityID, key store.TypeKey) (unsafe.Pointer, *ComponentsData, int, bool) {
	a, ok := e.locations[id]
	if !ok {
		return nil, nil, 0, false
	}
	col, ok := a.index[key]
	if !ok {
		return nil, nil, 0, false
	}
	row := a.rows[id]
	d := &a.data[col]
	return d.column.Get(row), d, row, true
}

// AddChild makes child a child of parent, detaching it from any previous
// parent.
func (e *Entities) AddChild(parent, child EntityID) {
	if parent == child {
		panic(fmt.Sprintf("ecs: %s cannot be its own child", parent))
	}
	e.mustLocate(parent)
	e.mustLocate(child)
	for cur := parent; ; {
		p, ok := e.parentOf(cur)
		if !ok {
			break
		}
		if p == child {
			panic(fmt.Sprintf("ecs: adding %s under %s would create a cycle", child, parent))
		}
		cur = p
	}
	if old, ok := e.parentOf(child); ok {
		if old == parent {
			return
		}
		e.detachChild(old, child)
	}

	if p, d, row, ok := e.field(parent, childrenType.Key); ok {
		ch := (*Children)(p)
		ch.IDs = append(ch.IDs, child)
		d.changedAt[row] = e.clock.Now()
	} else {
		e.InsertComponent(parent, childrenType, unsafe.Pointer(&Children{IDs: []EntityID{child}}))
	}
	e.InsertComponent(child, parentType, unsafe.Pointer(&Parent{ID: parent}))
}

// RemoveChild unlinks child from parent. It reports whether child was a
// child of parent.
func (e *Entities) RemoveChild(parent, child EntityID) bool {
	p, ok := e.parentOf(child)
	if !ok || p != parent {
		return false
	}
	e.detachChild(parent, child)
	e.RemoveComponent(child, parentType)
	return true
}

// detachChild drops child from the parent's list and removes the list
// once it is empty. The child's Parent component is left alone.
func (e *Entities) detachChild(parent, child EntityID) {
	p, d, row, ok := e.field(parent, childrenType.Key)
	if !ok {
		return
	}
	ch := (*Children)(p)
	if !ch.remove(child) {
		return
	}
	if len(ch.IDs) == 0 {
		e.RemoveComponent(parent, childrenType)
		return
	}
	d.changedAt[row] = e.clock.Now()
}

func (e *Entities) parentOf(id EntityID) (EntityID, bool) {
	p, ok := e.Get(id, parentType.Key)
	if !ok {
		return 0, false
	}
	return (*Parent)(p).ID, true
}

func (e *Entities) childrenOf(id EntityID) []EntityID {
	p, ok := e.Get(id, childrenType.Key)
	if !ok {
		return nil
	}
	ids := (*Children)(p).IDs
	out := make([]EntityID, len(ids))
	copy(out, ids)
	return out
}
