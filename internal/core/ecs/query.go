package ecs

import (
	"fmt"
	"iter"
	"reflect"
	"unsafe"
)

// Ref is shared access to one component of a query row.
type Ref[T any] struct {
	ptr     *T
	changed Tick
	added   Tick
	lastRun Tick
}

func (r Ref[T]) Get() *T          { return r.ptr }
func (r Ref[T]) Present() bool    { return r.ptr != nil }
func (r Ref[T]) ChangedAt() Tick  { return r.changed }
func (r Ref[T]) AddedAt() Tick    { return r.added }
func (r Ref[T]) HasChanged() bool { return r.ptr != nil && ChangedSince(r.changed, r.lastRun) }
func (r Ref[T]) WasAdded() bool   { return r.ptr != nil && ChangedSince(r.added, r.lastRun) }

// Mut is exclusive access to one component of a query row. Get and Set
// mark the field changed; Peek reads without marking.
type Mut[T any] struct {
	ptr     *T
	changed *Tick
	added   Tick
	lastRun Tick
	tick    Tick
}

// Get returns the component for writing and stamps its changed tick.
func (m Mut[T]) Get() *T {
	if m.ptr != nil {
		*m.changed = m.tick
	}
	return m.ptr
}

// Set writes v and marks the component changed. Setting an absent
// optional component panics.
func (m Mut[T]) Set(v T) {
	if m.ptr == nil {
		panic("ecs: Set on absent optional " + Type[T]().String())
	}
	*m.ptr = v
	*m.changed = m.tick
}

func (m Mut[T]) Peek() *T       { return m.ptr }
func (m Mut[T]) Present() bool  { return m.ptr != nil }
func (m Mut[T]) AddedAt() Tick  { return m.added }
func (m Mut[T]) WasAdded() bool { return m.ptr != nil && ChangedSince(m.added, m.lastRun) }

func (m Mut[T]) ChangedAt() Tick {
	if m.changed == nil {
		return 0
	}
	return *m.changed
}

func (m Mut[T]) HasChanged() bool {
	return m.ptr != nil && ChangedSince(*m.changed, m.lastRun)
}

type bindFunc func(dst unsafe.Pointer, d *ComponentsData, row int, lastRun, tick Tick)

// dataTerm is implemented by the query row field types.
type dataTerm interface {
	dataTerm() (ComponentType, bool, bindFunc)
}

func (Ref[T]) dataTerm() (ComponentType, bool, bindFunc) { return Type[T](), false, bindRef[T] }
func (Mut[T]) dataTerm() (ComponentType, bool, bindFunc) { return Type[T](), true, bindMut[T] }

func bindRef[T any](dst unsafe.Pointer, d *ComponentsData, row int, lastRun, _ Tick) {
	*(*Ref[T])(dst) = Ref[T]{
		ptr:     (*T)(d.column.Get(row)),
		changed: d.changedAt[row],
		added:   d.addedAt[row],
		lastRun: lastRun,
	}
}

func bindMut[T any](dst unsafe.Pointer, d *ComponentsData, row int, lastRun, tick Tick) {
	*(*Mut[T])(dst) = Mut[T]{
		ptr:     (*T)(d.column.Get(row)),
		changed: &d.changedAt[row],
		added:   d.addedAt[row],
		lastRun: lastRun,
		tick:    tick,
	}
}

type queryField struct {
	offset   uintptr
	entity   bool
	typ      ComponentType
	mutable  bool
	optional bool
	bind     bindFunc
}

type queryMatch struct {
	arch    *Archetype
	columns []int // per field; -1 for the entity id or an absent optional
	changed ChangedPlan
}

// Query iterates the rows described by the struct type D. Fields of D may
// be EntityID, Ref[T] or Mut[T] (tag `ecs:"optional"` makes the component
// optional), and filter fields With[T], Without[T], Changed[T] and Or[G],
// usually declared as blank fields.
type Query[D any] struct {
	world    *World
	fields   []queryField
	required []ComponentType
	filters  Filters
	access   []Access

	bound   bool
	lastRun Tick
	tick    Tick

	cached  bool
	gen     uint64
	matches []*queryMatch
	byArch  map[ArchetypeID]*queryMatch
}

// NewQuery builds a query over w for use outside a system. Its change
// filters compare against tick zero.
func NewQuery[D any](w *World) *Query[D] {
	q := &Query[D]{}
	q.init(w)
	return q
}

func (q *Query[D]) init(w *World) {
	*q = Query[D]{world: w, byArch: make(map[ArchetypeID]*queryMatch)}
	t := reflect.TypeFor[D]()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("ecs: query row %s must be a struct", t))
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Type == entityIDType.Type {
			q.fields = append(q.fields, queryField{offset: sf.Offset, entity: true})
			continue
		}
		switch term := reflect.Zero(sf.Type).Interface().(type) {
		case dataTerm:
			typ, mutable, bind := term.dataTerm()
			optional := sf.Tag.Get("ecs") == "optional"
			q.fields = append(q.fields, queryField{
				offset:   sf.Offset,
				typ:      typ,
				mutable:  mutable,
				optional: optional,
				bind:     bind,
			})
			if !optional {
				q.required = append(q.required, typ)
			}
		case filterTerm:
			term.addFilter(&q.filters, false)
		default:
			panic(fmt.Sprintf("ecs: query row %s: field %s has unsupported type %s", t, sf.Name, sf.Type))
		}
	}
	q.access = q.buildAccess(t)
}

func (q *Query[D]) buildAccess(t reflect.Type) []Access {
	var out []Access
	seen := make(map[ComponentType]int)
	add := func(a Access) {
		if i, ok := seen[a.Type]; ok {
			out[i].Mutable = out[i].Mutable || a.Mutable
			return
		}
		seen[a.Type] = len(out)
		out = append(out, a)
	}
	fieldTypes := make(map[ComponentType]bool)
	for _, f := range q.fields {
		if f.entity {
			continue
		}
		if mut, dup := fieldTypes[f.typ]; dup {
			if mut || f.mutable {
				panic(fmt.Sprintf("ecs: query row %s accesses %s twice with a write", t, f.typ))
			}
		}
		fieldTypes[f.typ] = fieldTypes[f.typ] || f.mutable
		add(Access{Type: f.typ, Mutable: f.mutable})
	}
	for _, a := range q.filters.access() {
		add(a)
	}
	return out
}

// Access returns the component accesses of the query.
func (q *Query[D]) Access() []Access { return q.access }

// Filters returns the compiled filter set.
func (q *Query[D]) Filters() *Filters { return &q.filters }

func (q *Query[D]) ticks() (lastRun, tick Tick) {
	if q.bound {
		return q.lastRun, q.tick
	}
	return 0, q.world.clock.Advance()
}

func (q *Query[D]) matchesArchetype(a *Archetype) bool {
	for _, t := range q.required {
		if !a.Has(t.Key) {
			return false
		}
	}
	return a.MatchesFilters(&q.filters)
}

// refresh rebuilds the matched archetype list after archetypes were
// created or evicted.
func (q *Query[D]) refresh() {
	gen := q.world.entities.generation
	if q.cached && q.gen == gen {
		return
	}
	q.matches = nil
	clear(q.byArch)
	for _, a := range q.world.entities.order {
		if !q.matchesArchetype(a) {
			continue
		}
		m := &queryMatch{
			arch:    a,
			columns: make([]int, len(q.fields)),
			changed: a.ChangedIndices(&q.filters),
		}
		for i, f := range q.fields {
			m.columns[i] = -1
			if f.entity {
				continue
			}
			if col, ok := a.ColumnIndex(f.typ.Key); ok {
				m.columns[i] = col
			}
		}
		q.matches = append(q.matches, m)
		q.byArch[a.id] = m
	}
	q.gen, q.cached = gen, true
}

func (q *Query[D]) fill(item *D, m *queryMatch, row int, lastRun, tick Tick) {
	base := unsafe.Pointer(item)
	for i := range q.fields {
		f := &q.fields[i]
		dst := unsafe.Add(base, f.offset)
		if f.entity {
			*(*EntityID)(dst) = m.arch.entities[row]
			continue
		}
		col := m.columns[i]
		if col < 0 {
			continue
		}
		f.bind(dst, &m.arch.data[col], row, lastRun, tick)
	}
}

// Iter yields every matching row in archetype creation order, then row
// order.
func (q *Query[D]) Iter() iter.Seq[D] {
	return func(yield func(D) bool) {
		lastRun, tick := q.ticks()
		q.refresh()
		for _, m := range q.matches {
			a := m.arch
			for row := 0; row < a.Len(); row++ {
				if !a.CheckChanged(row, &m.changed, lastRun) {
					continue
				}
				var item D
				q.fill(&item, m, row, lastRun, tick)
				if !yield(item) {
					return
				}
			}
		}
	}
}

// Get returns the row of id if it matches the query.
func (q *Query[D]) Get(id EntityID) (D, bool) {
	var item D
	lastRun, tick := q.ticks()
	q.refresh()
	a, ok := q.world.entities.locations[id]
	if !ok {
		return item, false
	}
	m, ok := q.byArch[a.id]
	if !ok {
		return item, false
	}
	row := a.rows[id]
	if !a.CheckChanged(row, &m.changed, lastRun) {
		return item, false
	}
	q.fill(&item, m, row, lastRun, tick)
	return item, true
}

func (q *Query[D]) Contains(id EntityID) bool {
	_, ok := q.Get(id)
	return ok
}

func (q *Query[D]) Collect() []D {
	var out []D
	for item := range q.Iter() {
		out = append(out, item)
	}
	return out
}

// Count returns the number of matching rows.
func (q *Query[D]) Count() int {
	lastRun, _ := q.ticks()
	q.refresh()
	n := 0
	for _, m := range q.matches {
		if m.changed.Empty() {
			n += m.arch.Len()
			continue
		}
		for row := 0; row < m.arch.Len(); row++ {
			if m.arch.CheckChanged(row, &m.changed, lastRun) {
				n++
			}
		}
	}
	return n
}

// Single returns the only matching row. ok is false when there are zero or
// several.
func (q *Query[D]) Single() (item D, ok bool) {
	n := 0
	for it := range q.Iter() {
		if n++; n > 1 {
			var zero D
			return zero, false
		}
		item = it
	}
	return item, n == 1
}

type queryParam[D any] struct {
	q *Query[D]
}

func (q *Query[D]) InitParam(w *World) ParamState {
	q.init(w)
	return &queryParam[D]{q: q}
}

func (p *queryParam[D]) Access() []Access { return p.q.access }

func (p *queryParam[D]) Fetch(ctx *SystemContext) reflect.Value {
	p.q.bound, p.q.lastRun, p.q.tick = true, ctx.LastRun, ctx.Tick
	return reflect.ValueOf(p.q)
}

func (p *queryParam[D]) Apply(*World) {}
