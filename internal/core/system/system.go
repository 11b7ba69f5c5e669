package system

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

var errorType = reflect.TypeFor[error]()

// System is a function bound to the world. Its parameter types declare what
// it accesses; the access list is derived once, when the system is built.
type System struct {
	name      string
	fn        reflect.Value
	params    []ecs.ParamState
	access    []ecs.Access
	returnErr bool
	condition bool

	conds   []*System
	lastRun ecs.Tick
	runs    uint64
}

// New builds a system from fn. fn may return nothing or an error. It panics
// when a parameter type is unsupported or two parameters conflict.
func New(w *ecs.World, fn any, name string) *System {
	s := build(w, fn, name)
	switch t := s.fn.Type(); {
	case t.NumOut() == 0:
	case t.NumOut() == 1 && t.Out(0) == errorType:
		s.returnErr = true
	default:
		panic(fmt.Sprintf("scheduler: system %s must return nothing or error", s.name))
	}
	return s
}

// NewCondition builds a run condition from fn, which must return bool.
func NewCondition(w *ecs.World, fn any) *System {
	s := build(w, fn, "")
	t := s.fn.Type()
	if t.NumOut() != 1 || t.Out(0).Kind() != reflect.Bool {
		panic(fmt.Sprintf("scheduler: condition %s must return bool", s.name))
	}
	s.condition = true
	return s
}

func build(w *ecs.World, fn any, name string) *System {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		panic(fmt.Sprintf("scheduler: system must be a function, got %T", fn))
	}
	if name == "" {
		name = funcName(v)
	}
	t := v.Type()
	if t.IsVariadic() {
		panic(fmt.Sprintf("scheduler: system %s cannot be variadic", name))
	}
	s := &System{name: name, fn: v}
	for i := 0; i < t.NumIn(); i++ {
		st, err := ecs.BuildParam(w, t.In(i))
		if err != nil {
			panic(fmt.Sprintf("scheduler: system %s: %v", name, err))
		}
		for _, a := range st.Access() {
			for _, b := range s.access {
				if !a.Exclusive && !b.Exclusive && a.Conflicts(b) {
					panic(fmt.Sprintf("scheduler: system %s has conflicting parameters: %s and %s", name, b, a))
				}
			}
		}
		s.params = append(s.params, st)
		s.access = append(s.access, st.Access()...)
	}
	return s
}

func funcName(v reflect.Value) string {
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "anonymous"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (s *System) Name() string         { return s.name }
func (s *System) LastRun() ecs.Tick    { return s.lastRun }
func (s *System) Runs() uint64         { return s.runs }
func (s *System) Access() []ecs.Access { return s.access }

// AddCondition attaches a run condition. Every condition must pass for the
// body to run.
func (s *System) AddCondition(c *System) {
	if !c.condition {
		panic(fmt.Sprintf("scheduler: %s is not a condition", c.name))
	}
	s.conds = append(s.conds, c)
}

// FullAccess is the system's access list including its conditions'.
func (s *System) FullAccess() []ecs.Access {
	out := append([]ecs.Access(nil), s.access...)
	for _, c := range s.conds {
		out = append(out, c.access...)
	}
	return out
}

func (s *System) exclusive() bool {
	for _, a := range s.FullAccess() {
		if a.Exclusive {
			return true
		}
	}
	return false
}

// call advances the clock, fetches the parameters and invokes the function.
// last_run only moves once the function has returned.
func (s *System) call(w *ecs.World) []reflect.Value {
	tick := w.AdvanceTick()
	ctx := &ecs.SystemContext{World: w, LastRun: s.lastRun, Tick: tick}
	args := make([]reflect.Value, len(s.params))
	for i, p := range s.params {
		args[i] = p.Fetch(ctx)
	}
	out := s.fn.Call(args)
	s.lastRun = tick
	s.runs++
	return out
}

// Run evaluates the conditions and, when all pass, the body. Panics are
// recovered into a *TaskError.
func (s *System) Run(w *ecs.World) (ran bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{System: s.name, Value: r, Stack: debug.Stack()}
		}
	}()
	for _, c := range s.conds {
		if !c.call(w)[0].Bool() {
			return false, nil
		}
	}
	out := s.call(w)
	if s.returnErr && !out[0].IsNil() {
		return true, fmt.Errorf("system %s: %w", s.name, out[0].Interface().(error))
	}
	return true, nil
}

// Check evaluates a condition directly.
func (s *System) Check(w *ecs.World) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{System: s.name, Value: r, Stack: debug.Stack()}
		}
	}()
	return s.call(w)[0].Bool(), nil
}

// applyDeferred hands the deferred work of every parameter, conditions
// included, to the world.
func (s *System) applyDeferred(w *ecs.World) {
	for _, c := range s.conds {
		c.applyDeferred(w)
	}
	for _, p := range s.params {
		p.Apply(w)
	}
}
