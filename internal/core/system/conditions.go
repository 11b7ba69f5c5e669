package system

import (
	"reflect"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

// Not inverts a condition function. The result takes the same parameters.
func Not(cond any) any {
	v := reflect.ValueOf(cond)
	t := v.Type()
	if t.Kind() != reflect.Func || t.NumOut() != 1 || t.Out(0).Kind() != reflect.Bool {
		panic("scheduler: Not expects a function returning bool")
	}
	return reflect.MakeFunc(t, func(args []reflect.Value) []reflect.Value {
		ok := v.Call(args)[0].Bool()
		return []reflect.Value{reflect.ValueOf(!ok).Convert(t.Out(0))}
	}).Interface()
}

func ResourceExists[T any]() func(ecs.OptRes[T]) bool {
	return func(r ecs.OptRes[T]) bool { return r.Present() }
}

// ResourceChanged passes when T was written since the condition last ran.
func ResourceChanged[T any]() func(ecs.OptRes[T]) bool {
	return func(r ecs.OptRes[T]) bool { return r.HasChanged() }
}

// ResourceAdded passes when T was inserted since the condition last ran.
func ResourceAdded[T any]() func(ecs.OptRes[T]) bool {
	return func(r ecs.OptRes[T]) bool { return r.WasAdded() }
}

// ResourceEquals passes when T exists and equals v.
func ResourceEquals[T comparable](v T) func(ecs.OptRes[T]) bool {
	return func(r ecs.OptRes[T]) bool { return r.Present() && *r.Get() == v }
}
