package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/config"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/event"
	"github.com/l1jgo/ecsrt/internal/core/system"
	"github.com/l1jgo/ecsrt/internal/core/timing"
	"github.com/l1jgo/ecsrt/internal/state"
)

func newApp(t *testing.T, mut func(*config.RuntimeConfig)) *App {
	t.Helper()
	cfg := config.Default().Runtime
	cfg.Execution = "sequential"
	if mut != nil {
		mut(&cfg)
	}
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewRejectsUnknownExecution(t *testing.T) {
	cfg := config.Default().Runtime
	cfg.Execution = "eager"
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("unknown execution mode accepted")
	}
}

func TestStartupRunsOnce(t *testing.T) {
	a := newApp(t, nil)
	startup, update := 0, 0
	a.AddSystem(system.Startup, func() { startup++ }).
		AddSystem(system.Update, func() { update++ })
	for range 3 {
		if err := a.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if startup != 1 || update != 3 {
		t.Errorf("startup = %d update = %d", startup, update)
	}
	if _, ok := a.Scheduler().Phase(system.Startup); ok {
		t.Error("startup phase still scheduled")
	}
}

type ping struct{ n int }

func TestAddEvent(t *testing.T) {
	a := newApp(t, nil)
	AddEvent[ping](a)
	AddEvent[ping](a)
	var got []int
	a.AddSystem(system.Update, func(w event.Writer[ping]) { w.Send(ping{n: 1}) })
	a.AddSystem(system.PostUpdate, func(r event.Reader[ping]) {
		for ev := range r.Iter() {
			got = append(got, ev.n)
		}
	})
	a.Update()
	if len(got) != 0 {
		t.Fatalf("event readable in the pass it was sent: %v", got)
	}
	a.Update()
	if len(got) != 1 {
		t.Errorf("got = %v, want one event", got)
	}
}

type phase int

const (
	loading phase = iota
	running
)

func TestInitState(t *testing.T) {
	a := newApp(t, nil)
	InitState(a, loading)
	entered := 0
	a.AddSystem(system.Update, func(n ecs.ResMut[state.Next[phase]]) { n.Get().Set(running) },
		system.RunIf(state.InState(loading)))
	a.AddSystem(system.Update, func() { entered++ }, system.RunIf(state.OnEnter(running)))
	for range 3 {
		a.Update()
	}
	if state.Get[phase](a.World()) != running || entered != 1 {
		t.Errorf("state = %v entered = %d", state.Get[phase](a.World()), entered)
	}
}

func TestDefaultPlugins(t *testing.T) {
	a := newApp(t, nil)
	a.AddDefaultPlugins()
	w := a.World()
	parent := w.Spawn(component.NewTransform(component.Vec3{X: 1}), component.NewLifetime(time.Hour))
	child := w.Spawn(component.NewTransform(component.Vec3{X: 2}))
	w.AddChild(parent, child)
	if err := a.Update(); err != nil {
		t.Fatal(err)
	}
	g := ecs.MustGet[component.GlobalTransform](w, child).Matrix.Translation()
	if !g.ApproxEq(component.Vec3{X: 3}) {
		t.Errorf("child global = %+v", g)
	}
	if !ecs.HasResource[timing.Time](w) || !ecs.HasResource[timing.FixedTime](w) {
		t.Error("time resources missing")
	}
	defer func() {
		if r := recover(); r == nil || !strings.Contains(r.(string), "derived") {
			t.Errorf("recover = %v", r)
		}
	}()
	w.Insert(child, component.GlobalTransform{})
}

func TestRunStopsAfterMaxPasses(t *testing.T) {
	a := newApp(t, func(c *config.RuntimeConfig) {
		c.TickRate = time.Millisecond
		c.MaxPasses = 5
	})
	failing := 0
	a.AddSystem(system.Update, func() error { failing++; return errors.New("flaky") })
	if err := a.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.Scheduler().Passes() != 5 || failing != 5 {
		t.Errorf("passes = %d failing = %d", a.Scheduler().Passes(), failing)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a := newApp(t, func(c *config.RuntimeConfig) { c.TickRate = time.Millisecond })
	ctx, cancel := context.WithCancel(context.Background())
	a.AddSystem(system.Update, func() {
		if a.Scheduler().Passes() == 2 {
			cancel()
		}
	})
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
