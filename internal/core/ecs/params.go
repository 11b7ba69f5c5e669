package ecs

import (
	"fmt"
	"reflect"
)

// Access is one entry of a system's borrow list, derived once from its
// parameter types.
type Access struct {
	Type     ComponentType
	Mutable  bool
	Resource bool
	// Exclusive accesses conflict with everything.
	Exclusive bool
}

func (a Access) String() string {
	switch {
	case a.Exclusive:
		return "world(exclusive)"
	case a.Type == nil:
		return "none"
	}
	kind, mode := "component", "read"
	if a.Resource {
		kind = "resource"
	}
	if a.Mutable {
		mode = "write"
	}
	return fmt.Sprintf("%s %s(%s)", mode, kind, a.Type)
}

// Conflicts reports whether a and b may not be held at the same time.
func (a Access) Conflicts(b Access) bool {
	if a.Exclusive || b.Exclusive {
		return true
	}
	if a.Resource != b.Resource || a.Type != b.Type {
		return false
	}
	return a.Mutable || b.Mutable
}

// ConflictsAny reports whether any entry of a conflicts with any of b.
func ConflictsAny(a, b []Access) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Conflicts(y) {
				return true
			}
		}
	}
	return false
}

// SystemContext is what one system invocation observes.
type SystemContext struct {
	World   *World
	LastRun Tick
	Tick    Tick
}

// ParamState is the per-system state of one parameter, built once when
// the system is registered.
type ParamState interface {
	Access() []Access
	// Fetch produces the argument for one invocation.
	Fetch(ctx *SystemContext) reflect.Value
	// Apply hands deferred work to the world after the phase ran.
	Apply(w *World)
}

// Param is implemented by every type a system function may accept. The
// method is called on a zero value of the parameter type.
type Param interface {
	InitParam(w *World) ParamState
}

var paramType = reflect.TypeFor[Param]()

// BuildParam builds the state for a parameter of type t.
func BuildParam(w *World, t reflect.Type) (ParamState, error) {
	var v reflect.Value
	if t.Kind() == reflect.Pointer {
		v = reflect.New(t.Elem())
	} else {
		v = reflect.New(t).Elem()
	}
	if !t.Implements(paramType) {
		return nil, fmt.Errorf("unsupported system parameter %s", t)
	}
	return v.Interface().(Param).InitParam(w), nil
}

// Res is shared access to the T resource. A system taking Res[T] panics
// when T is absent; use OptRes to tolerate that.
type Res[T any] struct {
	ptr     *T
	changed Tick
	added   Tick
	lastRun Tick
}

func (r Res[T]) Get() *T          { return r.ptr }
func (r Res[T]) Present() bool    { return r.ptr != nil }
func (r Res[T]) HasChanged() bool { return r.ptr != nil && ChangedSince(r.changed, r.lastRun) }
func (r Res[T]) WasAdded() bool   { return r.ptr != nil && ChangedSince(r.added, r.lastRun) }

func (Res[T]) InitParam(*World) ParamState {
	return &resParam{typ: Type[T](), build: func(e *resourceEntry, ctx *SystemContext) reflect.Value {
		if e == nil {
			return reflect.ValueOf(Res[T]{})
		}
		return reflect.ValueOf(Res[T]{ptr: (*T)(e.ptr), changed: e.changed, added: e.added, lastRun: ctx.LastRun})
	}}
}

// OptRes is Res that tolerates an absent resource.
type OptRes[T any] struct {
	Res[T]
}

func (OptRes[T]) InitParam(w *World) ParamState {
	p := Res[T]{}.InitParam(w).(*resParam)
	p.optional = true
	inner := p.build
	p.build = func(e *resourceEntry, ctx *SystemContext) reflect.Value {
		return reflect.ValueOf(OptRes[T]{Res: inner(e, ctx).Interface().(Res[T])})
	}
	return p
}

// ResMut is exclusive access to the T resource. Get marks the resource
// changed; Peek does not.
type ResMut[T any] struct {
	entry   *resourceEntry
	tick    Tick
	lastRun Tick
}

func (r ResMut[T]) Present() bool { return r.entry != nil }

// Get returns the resource for writing and stamps its changed tick.
func (r ResMut[T]) Get() *T {
	if r.entry == nil {
		return nil
	}
	r.entry.changed = r.tick
	return (*T)(r.entry.ptr)
}

// Peek returns the resource without marking it changed.
func (r ResMut[T]) Peek() *T {
	if r.entry == nil {
		return nil
	}
	return (*T)(r.entry.ptr)
}

func (r ResMut[T]) Set(v T) { *r.Get() = v }

func (r ResMut[T]) HasChanged() bool {
	return r.entry != nil && ChangedSince(r.entry.changed, r.lastRun)
}

func (r ResMut[T]) WasAdded() bool {
	return r.entry != nil && ChangedSince(r.entry.added, r.lastRun)
}

func (ResMut[T]) InitParam(*World) ParamState {
	return &resParam{typ: Type[T](), mutable: true, build: func(e *resourceEntry, ctx *SystemContext) reflect.Value {
		return reflect.ValueOf(ResMut[T]{entry: e, tick: ctx.Tick, lastRun: ctx.LastRun})
	}}
}

// OptResMut is ResMut that tolerates an absent resource.
type OptResMut[T any] struct {
	ResMut[T]
}

func (OptResMut[T]) InitParam(w *World) ParamState {
	p := ResMut[T]{}.InitParam(w).(*resParam)
	p.optional = true
	inner := p.build
	p.build = func(e *resourceEntry, ctx *SystemContext) reflect.Value {
		return reflect.ValueOf(OptResMut[T]{ResMut: inner(e, ctx).Interface().(ResMut[T])})
	}
	return p
}

type resParam struct {
	typ      ComponentType
	mutable  bool
	optional bool
	build    func(*resourceEntry, *SystemContext) reflect.Value
}

func (p *resParam) Access() []Access {
	return []Access{{Type: p.typ, Mutable: p.mutable, Resource: true}}
}

func (p *resParam) Fetch(ctx *SystemContext) reflect.Value {
	e, ok := ctx.World.resources.entry(p.typ)
	if !ok {
		if !p.optional {
			panic(fmt.Sprintf("ecs: resource %s not found", p.typ))
		}
		return p.build(nil, ctx)
	}
	return p.build(e, ctx)
}

func (p *resParam) Apply(*World) {}

// commandsMarker keys the access entry shared by every Commands parameter.
// Systems recording commands never share a batch, which keeps reserved
// entity ids in the order they are applied.
type commandsMarker struct{}

type commandsParam struct {
	cmds *Commands
}

func (*Commands) InitParam(w *World) ParamState {
	return &commandsParam{cmds: NewCommands(w)}
}

func (p *commandsParam) Access() []Access {
	return []Access{{Type: Type[commandsMarker](), Mutable: true, Resource: true}}
}

func (p *commandsParam) Fetch(*SystemContext) reflect.Value { return reflect.ValueOf(p.cmds) }
func (p *commandsParam) Apply(w *World)                     { w.queue.Append(&p.cmds.queue) }

type worldParam struct{}

// InitParam lets a system take *World. Such a system has exclusive access
// and always runs alone in its batch.
func (*World) InitParam(*World) ParamState { return worldParam{} }

func (worldParam) Access() []Access                       { return []Access{{Exclusive: true}} }
func (worldParam) Fetch(ctx *SystemContext) reflect.Value { return reflect.ValueOf(ctx.World) }
func (worldParam) Apply(*World)                           {}
