package ecs

import (
	"unsafe"

	"github.com/l1jgo/ecsrt/internal/core/store"
)

// ComponentsData is one archetype column together with its change ticks.
// All three slices are index-aligned with the archetype's entity list.
type ComponentsData struct {
	column    *store.Column
	changedAt []Tick
	addedAt   []Tick
}

func newComponentsData(info *store.TypeInfo) ComponentsData {
	return ComponentsData{column: store.NewColumn(info, 0)}
}

func (d *ComponentsData) Type() ComponentType    { return d.column.Info() }
func (d *ComponentsData) Column() *store.Column  { return d.column }
func (d *ComponentsData) Len() int               { return d.column.Len() }
func (d *ComponentsData) ChangedAt(row int) Tick { return d.changedAt[row] }
func (d *ComponentsData) AddedAt(row int) Tick   { return d.addedAt[row] }

func (d *ComponentsData) push(f Field) {
	d.column.Push(f.Ptr)
	d.changedAt = append(d.changedAt, f.ChangedAt)
	d.addedAt = append(d.addedAt, f.AddedAt)
}

func (d *ComponentsData) swapRemove(row int) Field {
	ptr := d.column.SwapRemove(row)
	f := Field{Type: d.column.Info(), Ptr: ptr, ChangedAt: d.changedAt[row], AddedAt: d.addedAt[row]}
	last := len(d.changedAt) - 1
	d.changedAt[row] = d.changedAt[last]
	d.addedAt[row] = d.addedAt[last]
	d.changedAt = d.changedAt[:last]
	d.addedAt = d.addedAt[:last]
	return f
}

// Field is a single component value detached from, or headed for, an
// archetype row.
type Field struct {
	Type      ComponentType
	Ptr       unsafe.Pointer
	ChangedAt Tick
	AddedAt   Tick
}

func (f Field) drop() {
	if f.Type.Drop != nil {
		f.Type.Drop(f.Ptr)
	}
}

func dropFields(fields []Field) {
	for _, f := range fields {
		f.drop()
	}
}
