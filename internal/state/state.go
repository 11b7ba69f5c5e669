// Package state keeps a finite state machine per state type S as a pair of
// resources and emits a Transition event whenever the state changes.
package state

import (
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/event"
)

// Current holds the active state.
type Current[S comparable] struct {
	Value S
}

// Next holds a requested state until ApplyTransition consumes it.
type Next[S comparable] struct {
	value   S
	pending bool
}

// Set requests a switch to s. The last request before ApplyTransition runs
// wins.
func (n *Next[S]) Set(s S) {
	n.value = s
	n.pending = true
}

// Pending returns the requested state, if any.
func (n *Next[S]) Pending() (S, bool) { return n.value, n.pending }

func (n *Next[S]) take() (S, bool) {
	v, ok := n.value, n.pending
	var zero S
	n.value, n.pending = zero, false
	return v, ok
}

// Transition is sent when the state changes.
type Transition[S comparable] struct {
	From, To S
}

// Init installs the state resources with the initial state and registers
// the transition event.
func Init[S comparable](w *ecs.World, initial S) {
	ecs.InsertResource(w, Current[S]{Value: initial})
	ecs.InsertResource(w, Next[S]{})
	event.Register[Transition[S]](w)
}

// Get returns the current state.
func Get[S comparable](w *ecs.World) S {
	return ecs.Resource[Current[S]](w).Value
}

// Set requests a state change from outside a system.
func Set[S comparable](w *ecs.World, s S) {
	n, ok := ecs.ResourceMut[Next[S]](w)
	if !ok {
		panic("state: " + ecs.Type[S]().String() + " not initialised")
	}
	n.Set(s)
}

// ApplyTransition moves a pending Next into Current. Requests for the state
// already active are dropped without an event.
func ApplyTransition[S comparable](cur ecs.ResMut[Current[S]], next ecs.ResMut[Next[S]], out event.Writer[Transition[S]]) {
	if _, ok := next.Peek().Pending(); !ok {
		return
	}
	to, _ := next.Get().take()
	from := cur.Peek().Value
	if to == from {
		return
	}
	cur.Set(Current[S]{Value: to})
	out.Send(Transition[S]{From: from, To: to})
}
