package timing

import (
	"testing"
	"time"
)

func TestTimeAdvance(t *testing.T) {
	var tm Time
	start := time.Unix(100, 0)
	tm.Advance(start)
	if tm.Frame() != 0 || tm.Delta() != 0 {
		t.Fatalf("first advance counted a frame: %d/%v", tm.Frame(), tm.Delta())
	}
	tm.Advance(start.Add(20 * time.Millisecond))
	tm.Advance(start.Add(50 * time.Millisecond))
	if tm.Delta() != 30*time.Millisecond {
		t.Errorf("delta = %v", tm.Delta())
	}
	if tm.Elapsed() != 50*time.Millisecond || tm.Frame() != 2 {
		t.Errorf("elapsed = %v frame = %d", tm.Elapsed(), tm.Frame())
	}
	tm.AdvanceBy(10 * time.Millisecond)
	if fps := tm.FPS(); fps < 99.9 || fps > 100.1 {
		t.Errorf("fps = %v", fps)
	}
}

func TestFixedTimeSteps(t *testing.T) {
	ft := NewFixedTime(50) // 20ms
	ft.Accumulate(45 * time.Millisecond)
	if n := ft.Steps(); n != 2 {
		t.Fatalf("steps = %d, want 2", n)
	}
	if ft.Accumulated() != 5*time.Millisecond {
		t.Errorf("left = %v", ft.Accumulated())
	}
	if n := ft.Steps(); n != 0 {
		t.Errorf("steps from remainder = %d", n)
	}
	if o := ft.Overstep(); o < 0.249 || o > 0.251 {
		t.Errorf("overstep = %v", o)
	}

	ft.Accumulate(time.Second)
	if n := ft.Steps(); n != DefaultMaxSteps {
		t.Errorf("steps after stall = %d, want %d", n, DefaultMaxSteps)
	}
	ft.SetMaxSteps(0)
	ft.Accumulate(100 * time.Millisecond)
	if n := ft.Steps(); n != 5 {
		t.Errorf("unbounded steps = %d, want 5", n)
	}
}

func TestTimerModes(t *testing.T) {
	tests := []struct {
		name  string
		timer Timer
		ticks []time.Duration
		fired []int
		done  bool
	}{
		{"once", NewTimer(time.Second, Once), []time.Duration{600 * time.Millisecond, 600 * time.Millisecond, time.Second}, []int{0, 1, 0}, true},
		{"repeat", NewTimer(time.Second, Repeat), []time.Duration{2500 * time.Millisecond, 600 * time.Millisecond}, []int{2, 1}, true},
		{"repeat n", NewRepeatN(time.Second, 3), []time.Duration{2 * time.Second, 5 * time.Second, time.Second}, []int{2, 1, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := tt.timer
			for i, d := range tt.ticks {
				if got := tm.Tick(d); got != tt.fired[i] {
					t.Errorf("tick %d fired %d, want %d", i, got, tt.fired[i])
				}
			}
			if tm.Finished() != tt.done {
				t.Errorf("finished = %v", tm.Finished())
			}
		})
	}
}

func TestTimerReset(t *testing.T) {
	tm := NewRepeatN(time.Second, 1)
	tm.Tick(time.Second)
	if !tm.Finished() || !tm.JustFinished() {
		t.Fatal("timer did not fire")
	}
	tm.Reset(2)
	if tm.Finished() || tm.Elapsed() != 0 {
		t.Fatal("reset did not rewind")
	}
	if n := tm.Tick(3 * time.Second); n != 2 {
		t.Errorf("fired %d, want 2", n)
	}
	if tm.Fraction() != 1 {
		t.Errorf("fraction = %v", tm.Fraction())
	}
}
