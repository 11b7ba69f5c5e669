package ecs

import (
	"fmt"
	"reflect"
)

// Filters is a compiled query filter. Top-level clauses combine with AND;
// each entry of Or is an alternation group whose clauses combine with OR.
type Filters struct {
	With    []ComponentType
	Without []ComponentType
	Changed []ComponentType
	Or      []Filters
}

// Empty reports whether the filter accepts everything.
func (f *Filters) Empty() bool {
	return len(f.With) == 0 && len(f.Without) == 0 && len(f.Changed) == 0 && len(f.Or) == 0
}

func (f *Filters) access() []Access {
	var out []Access
	for _, t := range f.Changed {
		out = append(out, Access{Type: t})
	}
	for i := range f.Or {
		out = append(out, f.Or[i].access()...)
	}
	return out
}

// filterTerm is implemented by the filter marker types.
type filterTerm interface {
	addFilter(f *Filters, nested bool)
}

// With requires component T.
type With[T any] struct{}

// Without rejects entities that have component T.
type Without[T any] struct{}

// Changed requires component T and that it was written since the system
// last ran.
type Changed[T any] struct{}

// Or matches when any clause of G matches. G is a struct of With, Without
// and Changed fields; alternation groups do not nest.
type Or[G any] struct{}

func (With[T]) addFilter(f *Filters, _ bool)    { f.With = append(f.With, Type[T]()) }
func (Without[T]) addFilter(f *Filters, _ bool) { f.Without = append(f.Without, Type[T]()) }
func (Changed[T]) addFilter(f *Filters, _ bool) { f.Changed = append(f.Changed, Type[T]()) }

func (Or[G]) addFilter(f *Filters, nested bool) {
	if nested {
		panic("ecs: Or filters cannot be nested")
	}
	t := reflect.TypeFor[G]()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("ecs: Or group %s must be a struct", t))
	}
	var group Filters
	for i := 0; i < t.NumField(); i++ {
		term, ok := reflect.Zero(t.Field(i).Type).Interface().(filterTerm)
		if !ok {
			panic(fmt.Sprintf("ecs: Or group %s: field %s is not a filter", t, t.Field(i).Name))
		}
		term.addFilter(&group, true)
	}
	if group.Empty() {
		panic(fmt.Sprintf("ecs: Or group %s is empty", t))
	}
	f.Or = append(f.Or, group)
}

// FiltersOf compiles the filter fields of struct type T.
func FiltersOf[T any]() Filters {
	t := reflect.TypeFor[T]()
	var f Filters
	for i := 0; i < t.NumField(); i++ {
		if term, ok := reflect.Zero(t.Field(i).Type).Interface().(filterTerm); ok {
			term.addFilter(&f, false)
		}
	}
	return f
}
