package system

// Changes is a resource through which running systems edit the schedule.
// Edits are applied in order at the start of the next phase.
type Changes struct {
	edits []func(*Scheduler)
}

func (c *Changes) Len() int { return len(c.edits) }

func (c *Changes) push(fn func(*Scheduler)) { c.edits = append(c.edits, fn) }

func (c *Changes) AddPhase(label PhaseLabel, at Placement[PhaseLabel]) {
	c.push(func(s *Scheduler) { s.AddPhase(label, at) })
}

func (c *Changes) RemovePhase(label PhaseLabel) {
	c.push(func(s *Scheduler) { s.RemovePhase(label) })
}

func (c *Changes) AddLayer(phase PhaseLabel, layer LayerLabel, at Placement[LayerLabel]) {
	c.push(func(s *Scheduler) { s.AddLayer(phase, layer, at) })
}

func (c *Changes) MoveLayer(phase PhaseLabel, layer LayerLabel, at Placement[LayerLabel]) {
	c.push(func(s *Scheduler) { s.MoveLayer(phase, layer, at) })
}

func (c *Changes) AddSystem(phase PhaseLabel, fn any, opts ...SystemOption) {
	c.push(func(s *Scheduler) { s.AddSystem(phase, fn, opts...) })
}

func (c *Changes) SetPolicy(phase PhaseLabel, p Policy) {
	c.push(func(s *Scheduler) { s.SetPolicy(phase, p) })
}

func (c *Changes) SetExecution(phase PhaseLabel, e Execution) {
	c.push(func(s *Scheduler) { s.SetExecution(phase, e) })
}

func (c *Changes) take() []func(*Scheduler) {
	edits := c.edits
	c.edits = nil
	return edits
}
