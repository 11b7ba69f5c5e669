package system

import (
	"fmt"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/timing"
)

// Execution selects how the batches of a phase run.
type Execution uint8

const (
	// Parallel runs the systems of a batch on the worker pool.
	Parallel Execution = iota
	// Sequential runs every system on the calling goroutine.
	Sequential
)

func (e Execution) String() string {
	if e == Sequential {
		return "sequential"
	}
	return "parallel"
}

// ParseExecution maps a config value to an Execution.
func ParseExecution(s string) (Execution, error) {
	switch s {
	case "", "parallel":
		return Parallel, nil
	case "sequential":
		return Sequential, nil
	}
	return Parallel, fmt.Errorf("unknown execution mode %q", s)
}

// Policy decides how many iterations a phase runs in one pass.
type Policy interface {
	fmt.Stringer
	init(w *ecs.World)
	iterations(w *ecs.World) (int, error)
	// exhausted reports whether the phase is removed after passes passes.
	exhausted(passes int) bool
}

type normal struct{}

// Normal runs the phase once per pass.
func Normal() Policy { return normal{} }

func (normal) String() string                     { return "normal" }
func (normal) init(*ecs.World)                    {}
func (normal) iterations(*ecs.World) (int, error) { return 1, nil }
func (normal) exhausted(int) bool                 { return false }

type finite struct{ n int }

// Finite runs the phase once per pass for n passes, then removes it.
func Finite(n int) Policy {
	if n <= 0 {
		panic("scheduler: finite policy needs a positive pass count")
	}
	return finite{n: n}
}

func (f finite) String() string                   { return fmt.Sprintf("finite(%d)", f.n) }
func (finite) init(*ecs.World)                    {}
func (finite) iterations(*ecs.World) (int, error) { return 1, nil }
func (f finite) exhausted(passes int) bool        { return passes >= f.n }

type fixedTimestep struct{ hz float64 }

// FixedTimestep runs the phase once per whole step accumulated in the
// timing.FixedTime resource, inserting it at rate hz when absent.
func FixedTimestep(hz float64) Policy {
	if hz <= 0 {
		panic("scheduler: fixed timestep needs a positive rate")
	}
	return fixedTimestep{hz: hz}
}

func (f fixedTimestep) String() string { return fmt.Sprintf("fixed(%gHz)", f.hz) }

func (f fixedTimestep) init(w *ecs.World) {
	if !ecs.HasResource[timing.FixedTime](w) {
		ecs.InsertResource(w, timing.NewFixedTime(f.hz))
	}
}

func (f fixedTimestep) iterations(w *ecs.World) (int, error) {
	ft, ok := ecs.TryResource[timing.FixedTime](w)
	if !ok {
		return 0, nil
	}
	return ft.Steps(), nil
}

func (fixedTimestep) exhausted(int) bool { return false }

type custom struct {
	fn   any
	cond *System
}

// Custom runs the phase once per pass when cond returns true. cond is a
// condition function taking system parameters.
func Custom(cond any) Policy { return &custom{fn: cond} }

func (c *custom) String() string { return "custom" }

func (c *custom) init(w *ecs.World) {
	if c.cond == nil {
		c.cond = NewCondition(w, c.fn)
	}
}

func (c *custom) iterations(w *ecs.World) (int, error) {
	ok, err := c.cond.Check(w)
	c.cond.applyDeferred(w)
	if err != nil || !ok {
		return 0, err
	}
	return 1, nil
}

func (*custom) exhausted(int) bool { return false }
