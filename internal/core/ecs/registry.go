package ecs

import (
	"fmt"
	"slices"
)

// archetypes is the registry of live archetypes. Iteration follows creation
// order; generation changes whenever an archetype is created or evicted.
type archetypes struct {
	byID       map[ArchetypeID]*Archetype
	order      []*Archetype
	generation uint64
}

func newArchetypes() archetypes {
	return archetypes{byID: make(map[ArchetypeID]*Archetype)}
}

// lookupOrCreate returns the archetype for a sorted, duplicate-free type set.
func (r *archetypes) lookupOrCreate(types []ComponentType) *Archetype {
	id := archetypeID(types)
	if a, ok := r.byID[id]; ok {
		if !a.sameTypes(types) {
			panic(fmt.Sprintf("ecs: archetype hash collision between %v and %v", a.types, types))
		}
		return a
	}
	a := newArchetype(slices.Clone(types))
	r.byID[id] = a
	r.order = append(r.order, a)
	r.generation++
	return a
}

// evictIfEmpty drops a from the registry once its last row is gone.
func (r *archetypes) evictIfEmpty(a *Archetype) {
	if a.Len() != 0 {
		return
	}
	delete(r.byID, a.id)
	if i := slices.Index(r.order, a); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	a.release()
	r.generation++
}
