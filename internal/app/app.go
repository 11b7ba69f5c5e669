package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsrt/internal/config"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/event"
	"github.com/l1jgo/ecsrt/internal/core/system"
	"github.com/l1jgo/ecsrt/internal/state"
)

// Plugin bundles registrations that belong together.
type Plugin interface {
	Build(a *App)
}

// PluginFunc adapts a function to Plugin.
type PluginFunc func(a *App)

func (f PluginFunc) Build(a *App) { f(a) }

// App owns a world and the scheduler driving it.
type App struct {
	id        uuid.UUID
	cfg       config.RuntimeConfig
	world     *ecs.World
	scheduler *system.Scheduler
	log       *zap.Logger
}

// New builds an app with the default pipeline. A nil log discards output.
func New(cfg config.RuntimeConfig, log *zap.Logger) (*App, error) {
	exec, err := system.ParseExecution(cfg.Execution)
	if err != nil {
		return nil, fmt.Errorf("runtime config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	log = log.With(zap.String("app", id.String()))
	w := ecs.NewWorld()
	s := system.NewDefault(w, system.Config{
		Workers:   cfg.Workers,
		Execution: exec,
		FixedHz:   cfg.FixedHz,
	}, log.Named("scheduler"))
	return &App{id: id, cfg: cfg, world: w, scheduler: s, log: log}, nil
}

func (a *App) ID() uuid.UUID                { return a.id }
func (a *App) World() *ecs.World            { return a.world }
func (a *App) Scheduler() *system.Scheduler { return a.scheduler }
func (a *App) Logger() *zap.Logger          { return a.log }

func (a *App) AddPlugin(p Plugin) *App {
	p.Build(a)
	a.log.Debug("plugin added", zap.String("plugin", fmt.Sprintf("%T", p)))
	return a
}

func (a *App) AddSystem(phase system.PhaseLabel, fn any, opts ...system.SystemOption) *App {
	a.scheduler.AddSystem(phase, fn, opts...)
	return a
}

func (a *App) InsertResource(v any) *App {
	a.world.InsertResource(v)
	return a
}

// AddEvent registers the E channel and swaps its buffers at the end of
// every pass.
func AddEvent[E any](a *App) *App {
	if ecs.HasResource[event.Events[E]](a.world) {
		return a
	}
	event.Register[E](a.world)
	a.scheduler.AddSystem(system.FrameEnd, event.Update[E],
		system.InLayer(system.Post),
		system.Named(fmt.Sprintf("events[%s]", ecs.Type[E]())))
	return a
}

// InitState installs S with its initial value. Requested transitions are
// applied in FrameEnd and visible from the next pass.
func InitState[S comparable](a *App, initial S) *App {
	state.Init(a.world, initial)
	name := ecs.Type[S]().String()
	a.scheduler.AddSystem(system.FrameEnd, state.ApplyTransition[S], system.Named("state["+name+"]"))
	a.scheduler.AddSystem(system.FrameEnd, event.Update[state.Transition[S]],
		system.InLayer(system.Post),
		system.Named("transitions["+name+"]"))
	return a
}

// Update runs one pass of the pipeline.
func (a *App) Update() error {
	return a.scheduler.Run()
}

// Run drives Update at the configured tick rate until ctx is done or the
// configured number of passes ran. System failures are logged by the
// scheduler and do not stop the loop.
func (a *App) Run(ctx context.Context) error {
	rate := a.cfg.TickRate
	if rate <= 0 {
		rate = 16 * time.Millisecond
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	a.log.Info("app started",
		zap.Duration("tick_rate", rate),
		zap.Int("phases", len(a.scheduler.Phases())),
		zap.Int("entities", a.world.Len()),
	)
	for {
		if a.cfg.MaxPasses > 0 && a.scheduler.Passes() >= a.cfg.MaxPasses {
			a.log.Info("app finished", zap.Uint64("passes", a.scheduler.Passes()))
			return nil
		}
		select {
		case <-ctx.Done():
			a.log.Info("app stopped", zap.Uint64("passes", a.scheduler.Passes()))
			return nil
		case <-ticker.C:
			if err := a.Update(); err != nil {
				a.log.Warn("pass finished with failures", zap.Uint64("pass", a.scheduler.Passes()))
			}
		}
	}
}

func (a *App) Close() error {
	return a.scheduler.Close()
}
