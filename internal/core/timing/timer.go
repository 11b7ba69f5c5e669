package timing

import "time"

// TimerMode selects what a Timer does when it reaches its duration.
type TimerMode uint8

const (
	Once TimerMode = iota
	Repeat
	RepeatN
)

// Timer counts elapsed time towards a duration.
type Timer struct {
	duration  time.Duration
	elapsed   time.Duration
	mode      TimerMode
	remaining int
	finished  bool
	times     int
}

func NewTimer(d time.Duration, mode TimerMode) Timer {
	if d <= 0 {
		panic("timing: timer duration must be positive")
	}
	return Timer{duration: d, mode: mode}
}

// NewRepeatN returns a timer that fires n times and then stays finished.
func NewRepeatN(d time.Duration, n int) Timer {
	t := NewTimer(d, RepeatN)
	t.remaining = n
	t.finished = n <= 0
	return t
}

// Tick advances the timer by delta and returns how many times it fired.
func (t *Timer) Tick(delta time.Duration) int {
	t.times = 0
	if t.finished && t.mode != Repeat {
		return 0
	}
	t.elapsed += delta
	switch t.mode {
	case Once:
		if t.elapsed >= t.duration {
			t.elapsed = t.duration
			t.finished = true
			t.times = 1
		}
	case Repeat:
		t.times = int(t.elapsed / t.duration)
		t.elapsed %= t.duration
		t.finished = t.times > 0
	case RepeatN:
		n := min(int(t.elapsed/t.duration), t.remaining)
		t.elapsed %= t.duration
		t.remaining -= n
		t.times = n
		if t.remaining == 0 {
			t.finished = true
			t.elapsed = t.duration
		}
	}
	return t.times
}

// Finished reports whether the timer has reached its duration. A Repeat
// timer is finished only on the tick it wrapped.
func (t *Timer) Finished() bool { return t.finished }

// JustFinished reports whether the last Tick fired the timer.
func (t *Timer) JustFinished() bool { return t.times > 0 }

// TimesFinished returns how often the last Tick fired the timer.
func (t *Timer) TimesFinished() int { return t.times }

func (t *Timer) Elapsed() time.Duration  { return t.elapsed }
func (t *Timer) Duration() time.Duration { return t.duration }
func (t *Timer) Mode() TimerMode         { return t.mode }

func (t *Timer) Remaining() time.Duration { return t.duration - t.elapsed }

// Fraction returns elapsed/duration in [0, 1].
func (t *Timer) Fraction() float64 { return float64(t.elapsed) / float64(t.duration) }

// Reset rewinds the timer. A RepeatN timer is re-armed for n more firings.
func (t *Timer) Reset(n int) {
	t.elapsed = 0
	t.finished = false
	t.times = 0
	if t.mode == RepeatN {
		t.remaining = n
		t.finished = n <= 0
	}
}
