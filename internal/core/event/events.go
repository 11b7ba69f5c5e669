package event

import (
	"iter"
	"reflect"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

// Events is a double-buffered event channel stored as a resource. Events
// sent during pass N are readable during pass N+1. Update is called once per
// pass by the Update system.
type Events[E any] struct {
	front []E
	back  []E
	sent  uint64
}

// Send queues an event into the back buffer.
func (e *Events[E]) Send(ev E) {
	e.back = append(e.back, ev)
	e.sent++
}

// Update rotates back -> front and clears the new back buffer.
func (e *Events[E]) Update() {
	e.front, e.back = e.back, e.front[:0]
}

// Readable returns the events readable this pass.
func (e *Events[E]) Readable() []E { return e.front }

// Pending returns the number of events sent this pass.
func (e *Events[E]) Pending() int { return len(e.back) }

// Sent returns the total number of events ever sent.
func (e *Events[E]) Sent() uint64 { return e.sent }

// Clear drops both buffers.
func (e *Events[E]) Clear() {
	e.front = e.front[:0]
	e.back = e.back[:0]
}

// Register inserts an empty Events[E] resource unless one exists.
func Register[E any](w *ecs.World) {
	if !ecs.HasResource[Events[E]](w) {
		ecs.InsertResource(w, Events[E]{})
	}
}

// Update is the system that swaps the Events[E] buffers.
func Update[E any](ev ecs.ResMut[Events[E]]) {
	ev.Get().Update()
}

// Send queues ev directly on the world, outside of any system.
func Send[E any](w *ecs.World, ev E) {
	p, ok := ecs.ResourceMut[Events[E]](w)
	if !ok {
		panic("event: " + ecs.Type[E]().String() + " not registered")
	}
	p.Send(ev)
}

// Reader is the system parameter for reading E events.
type Reader[E any] struct {
	events *Events[E]
}

// Iter yields the readable events in send order.
func (r Reader[E]) Iter() iter.Seq[E] {
	return func(yield func(E) bool) {
		if r.events == nil {
			return
		}
		for _, ev := range r.events.front {
			if !yield(ev) {
				return
			}
		}
	}
}

func (r Reader[E]) Len() int {
	if r.events == nil {
		return 0
	}
	return len(r.events.front)
}

func (r Reader[E]) IsEmpty() bool { return r.Len() == 0 }

// Writer is the system parameter for sending E events.
type Writer[E any] struct {
	events ecs.ResMut[Events[E]]
}

func (w Writer[E]) Send(ev E) { w.events.Get().Send(ev) }

func (w Writer[E]) SendBatch(evs ...E) {
	e := w.events.Get()
	for _, ev := range evs {
		e.Send(ev)
	}
}

type readerState[E any] struct {
	inner ecs.ParamState
}

func (Reader[E]) InitParam(w *ecs.World) ecs.ParamState {
	return &readerState[E]{inner: ecs.Res[Events[E]]{}.InitParam(w)}
}

func (s *readerState[E]) Access() []ecs.Access { return s.inner.Access() }
func (s *readerState[E]) Apply(*ecs.World)     {}

func (s *readerState[E]) Fetch(ctx *ecs.SystemContext) reflect.Value {
	res := s.inner.Fetch(ctx).Interface().(ecs.Res[Events[E]])
	return reflect.ValueOf(Reader[E]{events: res.Get()})
}

type writerState[E any] struct {
	inner ecs.ParamState
}

func (Writer[E]) InitParam(w *ecs.World) ecs.ParamState {
	return &writerState[E]{inner: ecs.ResMut[Events[E]]{}.InitParam(w)}
}

func (s *writerState[E]) Access() []ecs.Access { return s.inner.Access() }
func (s *writerState[E]) Apply(*ecs.World)     {}

func (s *writerState[E]) Fetch(ctx *ecs.SystemContext) reflect.Value {
	res := s.inner.Fetch(ctx).Interface().(ecs.ResMut[Events[E]])
	return reflect.ValueOf(Writer[E]{events: res})
}

// OnEvent is a run condition that passes while E events are readable.
func OnEvent[E any]() func(Reader[E]) bool {
	return func(r Reader[E]) bool { return !r.IsEmpty() }
}
