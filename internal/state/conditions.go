package state

import (
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/event"
)

// InState passes while the current state is s.
func InState[S comparable](s S) func(ecs.OptRes[Current[S]]) bool {
	return func(cur ecs.OptRes[Current[S]]) bool {
		return cur.Present() && cur.Get().Value == s
	}
}

func NotInState[S comparable](s S) func(ecs.OptRes[Current[S]]) bool {
	return func(cur ecs.OptRes[Current[S]]) bool {
		return !cur.Present() || cur.Get().Value != s
	}
}

// OnEnter passes during the pass after a transition into s.
func OnEnter[S comparable](s S) func(event.Reader[Transition[S]]) bool {
	return OnTransitionWhere(func(t Transition[S]) bool { return t.To == s })
}

// OnExit passes during the pass after a transition out of s.
func OnExit[S comparable](s S) func(event.Reader[Transition[S]]) bool {
	return OnTransitionWhere(func(t Transition[S]) bool { return t.From == s })
}

func OnTransition[S comparable](from, to S) func(event.Reader[Transition[S]]) bool {
	return OnTransitionWhere(func(t Transition[S]) bool { return t.From == from && t.To == to })
}

// OnTransitionWhere passes when any readable transition satisfies match.
func OnTransitionWhere[S comparable](match func(Transition[S]) bool) func(event.Reader[Transition[S]]) bool {
	return func(r event.Reader[Transition[S]]) bool {
		for t := range r.Iter() {
			if match(t) {
				return true
			}
		}
		return false
	}
}
