package state

import (
	"testing"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/event"
	"github.com/l1jgo/ecsrt/internal/core/system"
)

type mode int

const (
	menu mode = iota
	playing
	paused
)

func newPipeline(t *testing.T) (*ecs.World, *system.Scheduler) {
	t.Helper()
	w := ecs.NewWorld()
	s := system.New(w, system.Config{Execution: system.Sequential}, nil)
	s.AddPhase(system.Update, system.Placement[system.PhaseLabel]{})
	s.AddPhase(system.FrameEnd, system.After(system.Update))
	Init(w, menu)
	s.AddSystem(system.FrameEnd, ApplyTransition[mode])
	s.AddSystem(system.FrameEnd, event.Update[Transition[mode]], system.InLayer(system.Post))
	return w, s
}

func TestTransitions(t *testing.T) {
	w, s := newPipeline(t)
	entered, exited, inPlaying, notPaused := 0, 0, 0, 0
	s.AddSystem(system.Update, func() { entered++ }, system.RunIf(OnEnter(playing)))
	s.AddSystem(system.Update, func() { exited++ }, system.RunIf(OnExit(menu)))
	s.AddSystem(system.Update, func() { inPlaying++ }, system.RunIf(InState(playing)))
	s.AddSystem(system.Update, func() { notPaused++ }, system.RunIf(NotInState(paused)))

	s.Run()
	Set(w, playing)
	s.Run()
	if Get[mode](w) != playing {
		t.Fatalf("state = %v after apply", Get[mode](w))
	}
	if entered != 0 || inPlaying != 0 {
		t.Fatal("state systems ran before the transition pass")
	}
	s.Run()
	s.Run()
	if entered != 1 || exited != 1 {
		t.Errorf("entered = %d exited = %d, want 1 each", entered, exited)
	}
	if inPlaying != 2 || notPaused != 4 {
		t.Errorf("inPlaying = %d notPaused = %d", inPlaying, notPaused)
	}
}

func TestSameStateRequestIsDropped(t *testing.T) {
	w, s := newPipeline(t)
	Set(w, menu)
	s.Run()
	if n := ecs.Resource[event.Events[Transition[mode]]](w).Sent(); n != 0 {
		t.Errorf("transition events = %d, want 0", n)
	}
	if _, ok := ecs.Resource[Next[mode]](w).Pending(); ok {
		t.Error("request not consumed")
	}
}

func TestOnTransition(t *testing.T) {
	w, s := newPipeline(t)
	hits := 0
	s.AddSystem(system.Update, func() { hits++ }, system.RunIf(OnTransition(playing, paused)))
	Set(w, playing)
	s.Run()
	s.Run()
	Set(w, paused)
	s.Run()
	s.Run()
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}
