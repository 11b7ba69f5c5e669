package system

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

// Config holds the scheduler settings taken from the runtime config.
type Config struct {
	// Workers sizes the pool; <= 0 uses GOMAXPROCS.
	Workers   int
	Execution Execution
	// FixedHz is the FixedUpdate rate of the default pipeline.
	FixedHz float64
}

// SystemOption configures AddSystem.
type SystemOption func(*systemOptions)

type systemOptions struct {
	layer LayerLabel
	name  string
	conds []any
}

// InLayer places the system in layer l instead of Main.
func InLayer(l LayerLabel) SystemOption { return func(o *systemOptions) { o.layer = l } }

// RunIf attaches a run condition.
func RunIf(cond any) SystemOption { return func(o *systemOptions) { o.conds = append(o.conds, cond) } }

// Named overrides the name derived from the function.
func Named(name string) SystemOption { return func(o *systemOptions) { o.name = name } }

// Scheduler runs the phases of the pipeline against one world.
type Scheduler struct {
	world  *ecs.World
	cfg    Config
	phases []*Phase
	pool   *Pool
	log    *zap.Logger
	passes uint64
}

// New returns a scheduler without phases.
func New(w *ecs.World, cfg Config, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{world: w, cfg: cfg, log: log}
	if !ecs.HasResource[Changes](w) {
		ecs.InsertResource(w, Changes{})
	}
	return s
}

// NewDefault returns a scheduler with the default phases and policies.
func NewDefault(w *ecs.World, cfg Config, log *zap.Logger) *Scheduler {
	s := New(w, cfg, log)
	for _, p := range DefaultPhases {
		s.AddPhase(p, Placement[PhaseLabel]{})
	}
	s.SetPolicy(PreStartup, Finite(1))
	s.SetPolicy(Startup, Finite(1))
	hz := cfg.FixedHz
	if hz <= 0 {
		hz = 60
	}
	s.SetPolicy(FixedUpdate, FixedTimestep(hz))
	return s
}

func (s *Scheduler) World() *ecs.World { return s.world }
func (s *Scheduler) Passes() uint64    { return s.passes }

// Phase returns the phase labelled l.
func (s *Scheduler) Phase(l PhaseLabel) (*Phase, bool) {
	for _, p := range s.phases {
		if p.label == l {
			return p, true
		}
	}
	return nil, false
}

func (s *Scheduler) mustPhase(l PhaseLabel) *Phase {
	p, ok := s.Phase(l)
	if !ok {
		panic(fmt.Sprintf("scheduler: unknown phase %s", l))
	}
	return p
}

// Phases returns the phase labels in pipeline order.
func (s *Scheduler) Phases() []PhaseLabel {
	out := make([]PhaseLabel, len(s.phases))
	for i, p := range s.phases {
		out[i] = p.label
	}
	return out
}

// AddPhase inserts a phase with the default layers. Duplicate labels,
// unknown targets and contradictory placements panic.
func (s *Scheduler) AddPhase(l PhaseLabel, at Placement[PhaseLabel]) *Phase {
	if _, ok := s.Phase(l); ok {
		panic(fmt.Sprintf("scheduler: duplicate phase %s", l))
	}
	i := insertIndex(s.Phases(), at, "phase", l)
	p := newPhase(l, s.cfg.Execution)
	s.phases = slices.Insert(s.phases, i, p)
	s.log.Debug("phase added", zap.String("phase", string(l)), zap.Int("index", i))
	return p
}

// RemovePhase drops a phase and its systems. It reports whether it existed.
func (s *Scheduler) RemovePhase(l PhaseLabel) bool {
	i := slices.IndexFunc(s.phases, func(p *Phase) bool { return p.label == l })
	if i < 0 {
		return false
	}
	s.phases = slices.Delete(s.phases, i, i+1)
	s.log.Info("phase removed", zap.String("phase", string(l)))
	return true
}

func (s *Scheduler) AddLayer(phase PhaseLabel, l LayerLabel, at Placement[LayerLabel]) *Layer {
	layer := s.mustPhase(phase).AddLayer(l, at)
	s.log.Debug("layer added", zap.String("phase", string(phase)), zap.String("layer", string(l)))
	return layer
}

func (s *Scheduler) MoveLayer(phase PhaseLabel, l LayerLabel, at Placement[LayerLabel]) {
	s.mustPhase(phase).MoveLayer(l, at)
}

func (s *Scheduler) SetPolicy(phase PhaseLabel, p Policy) {
	p.init(s.world)
	s.mustPhase(phase).policy = p
}

func (s *Scheduler) SetExecution(phase PhaseLabel, e Execution) {
	s.mustPhase(phase).execution = e
}

// AddSystem builds fn and packs it into the first compatible batch of its
// layer. Misconfiguration panics here rather than at run time.
func (s *Scheduler) AddSystem(phase PhaseLabel, fn any, opts ...SystemOption) *System {
	o := systemOptions{layer: Main}
	for _, opt := range opts {
		opt(&o)
	}
	p := s.mustPhase(phase)
	layer := p.mustLayer(o.layer)
	sys := New(s.world, fn, o.name)
	for _, c := range o.conds {
		sys.AddCondition(NewCondition(s.world, c))
	}
	batch := layer.AddSystem(sys)
	s.log.Debug("system added",
		zap.String("phase", string(phase)),
		zap.String("layer", string(o.layer)),
		zap.String("system", sys.name),
		zap.Int("batch", batch),
	)
	return sys
}

// Run executes one pass of the pipeline. Failures of individual systems do
// not stop the pass; they are combined into the returned error.
func (s *Scheduler) Run() error {
	var errs error
	done := make(map[*Phase]bool, len(s.phases))
	for {
		s.applyChanges()
		i := slices.IndexFunc(s.phases, func(p *Phase) bool { return !done[p] })
		if i < 0 {
			break
		}
		p := s.phases[i]
		done[p] = true
		errs = multierr.Append(errs, s.runPhase(p))
	}
	s.passes++
	return errs
}

func (s *Scheduler) runPhase(p *Phase) error {
	n, errs := p.policy.iterations(s.world)
	for i := 0; i < n; i++ {
		errs = multierr.Append(errs, s.runIteration(p))
	}
	p.passes++
	if p.policy.exhausted(p.passes) {
		s.RemovePhase(p.label)
	}
	return errs
}

// runIteration runs every batch of the phase once, then hands the deferred
// queues of the systems to the world and flushes them. Exclusive batches
// see the queues of everything that ran before them applied. Failed
// commands are reported with the system failures.
func (s *Scheduler) runIteration(p *Phase) error {
	var errs error
	var executed []*System
	for _, l := range p.layers {
		for _, b := range l.batches {
			if b.exclusive {
				errs = multierr.Append(errs, s.apply(executed))
				executed = executed[:0]
			}
			errs = multierr.Append(errs, s.runBatch(p.execution, b))
			executed = append(executed, b.systems...)
		}
	}
	return multierr.Append(errs, s.apply(executed))
}

func (s *Scheduler) runBatch(exec Execution, b *Batch) error {
	if exec == Sequential || len(b.systems) == 1 {
		var errs error
		for _, sys := range b.systems {
			errs = multierr.Append(errs, s.runSystem(sys))
		}
		return errs
	}
	if s.pool == nil {
		s.pool = NewPool(s.cfg.Workers)
	}
	tasks := make([]Task, len(b.systems))
	for i, sys := range b.systems {
		tasks[i] = func() error { return s.runSystem(sys) }
	}
	return s.pool.Run(tasks...)
}

func (s *Scheduler) runSystem(sys *System) error {
	_, err := sys.Run(s.world)
	if err != nil {
		s.log.Error("system failed", zap.String("system", sys.name), zap.Error(err))
	}
	return err
}

func (s *Scheduler) apply(systems []*System) error {
	for _, sys := range systems {
		sys.applyDeferred(s.world)
	}
	err := s.world.FlushCommands()
	if err != nil {
		s.log.Error("deferred commands failed", zap.Error(err))
	}
	return err
}

func (s *Scheduler) applyChanges() {
	c, ok := ecs.TryResource[Changes](s.world)
	if !ok || c.Len() == 0 {
		return
	}
	for _, edit := range c.take() {
		edit(s)
	}
}

// Close stops the worker pool.
func (s *Scheduler) Close() error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Close()
}
