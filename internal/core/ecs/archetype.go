package ecs

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"slices"
	"unsafe"

	"github.com/l1jgo/ecsrt/internal/core/store"
)

// ArchetypeID is the hash of an archetype's sorted type keys.
type ArchetypeID uint64

func archetypeID(types []ComponentType) ArchetypeID {
	h := fnv.New64a()
	var buf [4]byte
	for _, t := range types {
		binary.LittleEndian.PutUint32(buf[:], uint32(t.Key))
		h.Write(buf[:])
	}
	return ArchetypeID(h.Sum64())
}

func sortTypes(types []ComponentType) {
	slices.SortFunc(types, func(a, b ComponentType) int { return cmp.Compare(a.Key, b.Key) })
}

// Archetype stores every entity that has exactly one particular set of
// component types, one column per type.
type Archetype struct {
	id       ArchetypeID
	types    []ComponentType
	index    map[store.TypeKey]int
	entities []EntityID
	rows     map[EntityID]int
	data     []ComponentsData
}

// newArchetype expects types sorted by key and free of duplicates.
func newArchetype(types []ComponentType) *Archetype {
	a := &Archetype{
		id:    archetypeID(types),
		types: types,
		index: make(map[store.TypeKey]int, len(types)),
		rows:  make(map[EntityID]int),
		data:  make([]ComponentsData, len(types)),
	}
	for i, t := range types {
		a.index[t.Key] = i
		a.data[i] = newComponentsData(t)
	}
	return a
}

func (a *Archetype) ID() ArchetypeID            { return a.id }
func (a *Archetype) Types() []ComponentType     { return a.types }
func (a *Archetype) Len() int                   { return len(a.entities) }
func (a *Archetype) Entities() []EntityID       { return a.entities }
func (a *Archetype) Data(i int) *ComponentsData { return &a.data[i] }

func (a *Archetype) Has(key store.TypeKey) bool {
	_, ok := a.index[key]
	return ok
}

// ColumnIndex returns the column holding key.
func (a *Archetype) ColumnIndex(key store.TypeKey) (int, bool) {
	i, ok := a.index[key]
	return i, ok
}

// Row returns the row of id.
func (a *Archetype) Row(id EntityID) (int, bool) {
	r, ok := a.rows[id]
	return r, ok
}

func (a *Archetype) sameTypes(types []ComponentType) bool {
	if len(types) != len(a.types) {
		return false
	}
	for i := range types {
		if types[i] != a.types[i] {
			return false
		}
	}
	return true
}

// InsertEntity appends a row. The field set must match the archetype's
// type set exactly.
func (a *Archetype) InsertEntity(id EntityID, fields []Field) {
	if len(fields) != len(a.types) {
		panic(fmt.Sprintf("ecs: %s has %d components, archetype expects %d", id, len(fields), len(a.types)))
	}
	if _, ok := a.rows[id]; ok {
		panic(fmt.Sprintf("ecs: %s already stored in archetype", id))
	}
	order := make([]int, len(fields))
	seen := make([]bool, len(a.types))
	for i, f := range fields {
		col, ok := a.index[f.Type.Key]
		if !ok || seen[col] {
			panic(fmt.Sprintf("ecs: component %s does not fit archetype %v", f.Type, a.types))
		}
		seen[col] = true
		order[i] = col
	}
	for i, f := range fields {
		a.data[order[i]].push(f)
	}
	a.rows[id] = len(a.entities)
	a.entities = append(a.entities, id)
}

// RemoveEntity swap-removes the row of id from every column and tick array
// and returns the removed values with their ticks.
func (a *Archetype) RemoveEntity(id EntityID) ([]Field, bool) {
	row, ok := a.rows[id]
	if !ok {
		return nil, false
	}
	fields := make([]Field, len(a.data))
	for i := range a.data {
		fields[i] = a.data[i].swapRemove(row)
	}
	last := len(a.entities) - 1
	moved := a.entities[last]
	a.entities[row] = moved
	a.rows[moved] = row
	a.entities = a.entities[:last]
	delete(a.rows, id)
	return fields, true
}

// SetComponent overwrites a stored value in place and stamps changed_at.
// added_at is left untouched.
func (a *Archetype) SetComponent(id EntityID, key store.TypeKey, src unsafe.Pointer, tick Tick) {
	row, ok := a.rows[id]
	if !ok {
		panic(fmt.Sprintf("ecs: %s not stored in archetype", id))
	}
	col, ok := a.index[key]
	if !ok {
		panic(fmt.Sprintf("ecs: archetype %v has no component key %d", a.types, key))
	}
	a.data[col].column.Set(row, src)
	a.data[col].changedAt[row] = tick
}

// MatchesFilters evaluates the structural part of f against the type set.
// Ticks are not inspected.
func (a *Archetype) MatchesFilters(f *Filters) bool {
	if f.Empty() {
		return true
	}
	for _, t := range f.Changed {
		if !a.Has(t.Key) {
			return false
		}
	}
	for _, t := range f.With {
		if !a.Has(t.Key) {
			return false
		}
	}
	for _, t := range f.Without {
		if a.Has(t.Key) {
			return false
		}
	}
	for i := range f.Or {
		g := &f.Or[i]
		if !a.existenceMatch(g) && !a.anyPresent(g.Changed) {
			return false
		}
	}
	return true
}

func (a *Archetype) existenceMatch(g *Filters) bool {
	for _, t := range g.With {
		if a.Has(t.Key) {
			return true
		}
	}
	for _, t := range g.Without {
		if !a.Has(t.Key) {
			return true
		}
	}
	return false
}

func (a *Archetype) anyPresent(types []ComponentType) bool {
	for _, t := range types {
		if a.Has(t.Key) {
			return true
		}
	}
	return false
}

// ChangedPlan holds the column indices of every Changed clause of a filter
// set, resolved once against one archetype.
type ChangedPlan struct {
	// All lists columns that must all have changed.
	All []int
	// Any lists, per alternation group still gated on change, columns of
	// which at least one must have changed.
	Any [][]int
}

func (p *ChangedPlan) Empty() bool { return len(p.All) == 0 && len(p.Any) == 0 }

// ChangedIndices resolves the Changed clauses of f. An alternation group
// whose With/Without clause already matches this archetype is dropped, so
// its Changed clauses are never evaluated for these rows.
func (a *Archetype) ChangedIndices(f *Filters) ChangedPlan {
	var p ChangedPlan
	for _, t := range f.Changed {
		if col, ok := a.index[t.Key]; ok {
			p.All = append(p.All, col)
		}
	}
	for i := range f.Or {
		g := &f.Or[i]
		if a.existenceMatch(g) {
			continue
		}
		var cols []int
		for _, t := range g.Changed {
			if col, ok := a.index[t.Key]; ok {
				cols = append(cols, col)
			}
		}
		p.Any = append(p.Any, cols)
	}
	return p
}

// CheckChanged evaluates a resolved plan against one row.
func (a *Archetype) CheckChanged(row int, p *ChangedPlan, lastRun Tick) bool {
	for _, col := range p.All {
		if !ChangedSince(a.data[col].changedAt[row], lastRun) {
			return false
		}
	}
	for _, group := range p.Any {
		matched := false
		for _, col := range group {
			if ChangedSince(a.data[col].changedAt[row], lastRun) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Validate checks that every column and tick array is as long as the
// entity list and that the columns match the declared type set.
func (a *Archetype) Validate() error {
	if len(a.data) != len(a.types) {
		return fmt.Errorf("archetype %x: %d columns for %d types", a.id, len(a.data), len(a.types))
	}
	n := len(a.entities)
	if len(a.rows) != n {
		return fmt.Errorf("archetype %x: %d row entries for %d entities", a.id, len(a.rows), n)
	}
	for i := range a.data {
		d := &a.data[i]
		if d.column.Info() != a.types[i] {
			return fmt.Errorf("archetype %x: column %d holds %s, want %s", a.id, i, d.column.Info(), a.types[i])
		}
		if d.column.Len() != n || len(d.changedAt) != n || len(d.addedAt) != n {
			return fmt.Errorf("archetype %x: column %s has %d values, %d/%d ticks for %d entities",
				a.id, a.types[i], d.column.Len(), len(d.changedAt), len(d.addedAt), n)
		}
	}
	for id, row := range a.rows {
		if row >= n || a.entities[row] != id {
			return fmt.Errorf("archetype %x: %s mapped to row %d", a.id, id, row)
		}
	}
	return nil
}

func (a *Archetype) release() {
	for i := range a.data {
		a.data[i].column.Release()
	}
}
