package timing

import "time"

// Time is the frame clock resource, advanced once per pass by the time
// update system.
type Time struct {
	last    time.Time
	delta   time.Duration
	elapsed time.Duration
	frame   uint64
}

// Advance records a frame ending at now. The first call only sets the
// reference point.
func (t *Time) Advance(now time.Time) {
	if t.last.IsZero() {
		t.last = now
		t.delta = 0
		return
	}
	t.AdvanceBy(now.Sub(t.last))
	t.last = now
}

// AdvanceBy records a frame of length d without consulting the wall clock.
func (t *Time) AdvanceBy(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.delta = d
	t.elapsed += d
	t.frame++
}

func (t *Time) Delta() time.Duration   { return t.delta }
func (t *Time) Elapsed() time.Duration { return t.elapsed }
func (t *Time) Frame() uint64          { return t.frame }

// FPS derives the instantaneous frame rate from the last delta.
func (t *Time) FPS() float64 {
	if t.delta <= 0 {
		return 0
	}
	return 1 / t.delta.Seconds()
}

// DefaultMaxSteps bounds the fixed steps taken in one pass so that a long
// stall does not turn into a burst of catch-up iterations.
const DefaultMaxSteps = 8

// FixedTime accumulates frame time and hands it out in whole fixed steps.
type FixedTime struct {
	step        time.Duration
	accumulator time.Duration
	maxSteps    int
}

// NewFixedTime returns a FixedTime stepping hz times per second.
func NewFixedTime(hz float64) FixedTime {
	if hz <= 0 {
		panic("timing: fixed rate must be positive")
	}
	return FixedTime{step: time.Duration(float64(time.Second) / hz), maxSteps: DefaultMaxSteps}
}

func (f *FixedTime) Step() time.Duration        { return f.step }
func (f *FixedTime) Accumulated() time.Duration { return f.accumulator }
func (f *FixedTime) Accumulate(d time.Duration) { f.accumulator += d }

// SetMaxSteps changes the per-pass step bound; n <= 0 removes it.
func (f *FixedTime) SetMaxSteps(n int) { f.maxSteps = n }

// Steps consumes and returns the number of whole steps accumulated. Steps
// beyond the bound are discarded.
func (f *FixedTime) Steps() int {
	if f.step <= 0 {
		return 0
	}
	n := int(f.accumulator / f.step)
	f.accumulator -= time.Duration(n) * f.step
	if f.maxSteps > 0 && n > f.maxSteps {
		n = f.maxSteps
	}
	return n
}

// Overstep returns the fraction of a step left in the accumulator.
func (f *FixedTime) Overstep() float64 {
	if f.step <= 0 {
		return 0
	}
	return float64(f.accumulator) / float64(f.step)
}
