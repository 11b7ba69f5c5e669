package system

import (
	"fmt"
	"slices"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

// Placement constrains where a new phase or layer is inserted relative to
// existing ones. The zero value appends.
type Placement[L comparable] struct {
	Before []L
	After  []L
}

func Before[L comparable](labels ...L) Placement[L] { return Placement[L]{Before: labels} }
func After[L comparable](labels ...L) Placement[L]  { return Placement[L]{After: labels} }

// Between places a label after a and before b.
func Between[L comparable](a, b L) Placement[L] {
	return Placement[L]{After: []L{a}, Before: []L{b}}
}

// insertIndex resolves a placement against the current order. The index is
// one past the latest After target; it must not pass the earliest Before
// target.
func insertIndex[L comparable](order []L, p Placement[L], kind string, label L) int {
	pos := func(target L) int {
		i := slices.Index(order, target)
		if i < 0 {
			panic(fmt.Sprintf("scheduler: %s %v placed relative to unknown %s %v", kind, label, kind, target))
		}
		return i
	}
	lo, hi := 0, len(order)
	for _, t := range p.After {
		lo = max(lo, pos(t)+1)
	}
	for _, t := range p.Before {
		hi = min(hi, pos(t))
	}
	if lo > hi {
		panic(fmt.Sprintf("scheduler: conflicting ordering for %s %v: after %v, before %v", kind, label, p.After, p.Before))
	}
	switch {
	case len(p.After) > 0:
		return lo
	case len(p.Before) > 0:
		return hi
	}
	return len(order)
}

// Batch is a set of systems whose accesses do not conflict.
type Batch struct {
	systems   []*System
	access    []ecs.Access
	exclusive bool
}

func (b *Batch) Systems() []*System { return b.systems }

func (b *Batch) accepts(s *System, access []ecs.Access) bool {
	if len(b.systems) == 0 {
		return true
	}
	if b.exclusive || s.exclusive() {
		return false
	}
	return !ecs.ConflictsAny(b.access, access)
}

func (b *Batch) add(s *System, access []ecs.Access) {
	b.systems = append(b.systems, s)
	b.access = append(b.access, access...)
	b.exclusive = b.exclusive || s.exclusive()
}

// Layer is an ordered list of batches inside a phase.
type Layer struct {
	label   LayerLabel
	batches []*Batch
}

func (l *Layer) Label() LayerLabel { return l.label }
func (l *Layer) Batches() []*Batch { return l.batches }

// AddSystem places s in the first batch that accepts it, or in a new batch.
// It returns the batch index.
func (l *Layer) AddSystem(s *System) int {
	access := s.FullAccess()
	for i, b := range l.batches {
		if b.accepts(s, access) {
			b.add(s, access)
			return i
		}
	}
	b := &Batch{}
	b.add(s, access)
	l.batches = append(l.batches, b)
	return len(l.batches) - 1
}

func (l *Layer) systems() []*System {
	var out []*System
	for _, b := range l.batches {
		out = append(out, b.systems...)
	}
	return out
}

// Phase is one stage of the pipeline: an ordered list of layers plus the
// policy deciding how often it runs.
type Phase struct {
	label     PhaseLabel
	layers    []*Layer
	policy    Policy
	execution Execution
	passes    int
}

func newPhase(label PhaseLabel, exec Execution) *Phase {
	p := &Phase{label: label, policy: Normal(), execution: exec}
	for _, l := range DefaultLayers {
		p.layers = append(p.layers, &Layer{label: l})
	}
	return p
}

func (p *Phase) Label() PhaseLabel    { return p.label }
func (p *Phase) Policy() Policy       { return p.policy }
func (p *Phase) Execution() Execution { return p.execution }
func (p *Phase) Layers() []*Layer     { return p.layers }

func (p *Phase) layerLabels() []LayerLabel {
	out := make([]LayerLabel, len(p.layers))
	for i, l := range p.layers {
		out[i] = l.label
	}
	return out
}

// Layer returns the layer labelled l.
func (p *Phase) Layer(l LayerLabel) (*Layer, bool) {
	for _, layer := range p.layers {
		if layer.label == l {
			return layer, true
		}
	}
	return nil, false
}

func (p *Phase) mustLayer(l LayerLabel) *Layer {
	layer, ok := p.Layer(l)
	if !ok {
		panic(fmt.Sprintf("scheduler: phase %s has no layer %s", p.label, l))
	}
	return layer
}

// AddLayer inserts an empty layer. Duplicate labels panic.
func (p *Phase) AddLayer(l LayerLabel, at Placement[LayerLabel]) *Layer {
	if _, ok := p.Layer(l); ok {
		panic(fmt.Sprintf("scheduler: phase %s already has layer %s", p.label, l))
	}
	i := insertIndex(p.layerLabels(), at, "layer", l)
	layer := &Layer{label: l}
	p.layers = slices.Insert(p.layers, i, layer)
	return layer
}

// MoveLayer re-inserts an existing layer, keeping its batches.
func (p *Phase) MoveLayer(l LayerLabel, at Placement[LayerLabel]) {
	layer := p.mustLayer(l)
	i := slices.Index(p.layers, layer)
	p.layers = slices.Delete(p.layers, i, i+1)
	defer func() {
		if r := recover(); r != nil {
			p.layers = slices.Insert(p.layers, i, layer)
			panic(r)
		}
	}()
	j := insertIndex(p.layerLabels(), at, "layer", l)
	p.layers = slices.Insert(p.layers, j, layer)
}

func (p *Phase) systems() []*System {
	var out []*System
	for _, l := range p.layers {
		out = append(out, l.systems()...)
	}
	return out
}
