package store

import (
	"math"
	"strings"
	"testing"
	"unsafe"
)

type position struct {
	X, Y float64
}

type handle struct {
	name    string
	dropped *int
}

func (h *handle) Drop() { *h.dropped++ }

type marker struct{}

func mustPanic(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", contains)
		}
		if msg, ok := r.(string); ok && !strings.Contains(msg, contains) {
			t.Fatalf("panic %q does not contain %q", msg, contains)
		}
	}()
	fn()
}

func TestTypeOfIsStable(t *testing.T) {
	a := TypeOf[position]()
	b := TypeOf[position]()
	if a != b {
		t.Fatal("descriptor not cached")
	}
	if a.Size != unsafe.Sizeof(position{}) {
		t.Errorf("size = %d, want %d", a.Size, unsafe.Sizeof(position{}))
	}
	if a.Drop != nil {
		t.Error("position should not have a destructor")
	}
	if TypeOf[handle]().Drop == nil {
		t.Error("handle should have a destructor")
	}
	got, ok := Lookup(a.Key)
	if !ok || got != a {
		t.Errorf("Lookup(%d) = %v, %v", a.Key, got, ok)
	}
	if TypeOf[marker]().Key == a.Key {
		t.Error("distinct types share a key")
	}
}

func TestColumnPushGet(t *testing.T) {
	c := NewColumn(TypeOf[position](), 0)
	for i := 0; i < 10; i++ {
		PushValue(c, position{X: float64(i), Y: float64(-i)})
	}
	if c.Len() != 10 {
		t.Fatalf("len = %d, want 10", c.Len())
	}
	for i := 0; i < 10; i++ {
		p := At[position](c, i)
		if p.X != float64(i) || p.Y != float64(-i) {
			t.Errorf("slot %d = %+v", i, *p)
		}
	}
	view := Slice[position](c)
	if len(view) != 10 || view[9].X != 9 {
		t.Errorf("slice view = %v", view)
	}
}

func TestColumnGrowthIsGeometric(t *testing.T) {
	c := NewColumn(TypeOf[int](), 0)
	caps := []int{}
	for i := 0; i < 33; i++ {
		PushValue(c, i)
		if len(caps) == 0 || caps[len(caps)-1] != c.Cap() {
			caps = append(caps, c.Cap())
		}
	}
	want := []int{4, 8, 16, 32, 64}
	if len(caps) != len(want) {
		t.Fatalf("capacities = %v, want %v", caps, want)
	}
	for i := range want {
		if caps[i] != want[i] {
			t.Fatalf("capacities = %v, want %v", caps, want)
		}
	}
}

func TestColumnSwapRemoveReturnsOwnership(t *testing.T) {
	dropped := 0
	c := NewColumn(TypeOf[handle](), 2)
	for _, name := range []string{"a", "b", "c"} {
		PushValue(c, handle{name: name, dropped: &dropped})
	}

	out := (*handle)(c.SwapRemove(0))
	if out.name != "a" {
		t.Errorf("removed %q, want a", out.name)
	}
	if dropped != 0 {
		t.Errorf("remove ran destructor %d times", dropped)
	}
	if c.Len() != 2 || At[handle](c, 0).name != "c" || At[handle](c, 1).name != "b" {
		t.Errorf("after swap remove: %v", Slice[handle](c))
	}

	c.Clear()
	if dropped != 2 {
		t.Errorf("clear dropped %d values, want 2", dropped)
	}
	if c.Len() != 0 || c.Cap() == 0 {
		t.Errorf("clear: len=%d cap=%d", c.Len(), c.Cap())
	}
}

func TestColumnSetDropsReplaced(t *testing.T) {
	dropped := 0
	c := NewColumn(TypeOf[handle](), 0)
	PushValue(c, handle{name: "old", dropped: &dropped})
	repl := handle{name: "new", dropped: &dropped}
	c.Set(0, unsafe.Pointer(&repl))
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if At[handle](c, 0).name != "new" {
		t.Errorf("value = %q", At[handle](c, 0).name)
	}
}

func TestColumnShrinkTo(t *testing.T) {
	c := NewColumn(TypeOf[int](), 64)
	for i := 0; i < 5; i++ {
		PushValue(c, i)
	}
	c.ShrinkTo(2)
	if c.Cap() != 5 {
		t.Errorf("cap = %d, want 5 (never below len)", c.Cap())
	}
	if got := Slice[int](c); got[4] != 4 {
		t.Errorf("values lost on shrink: %v", got)
	}
	c.ShrinkTo(100)
	if c.Cap() != 5 {
		t.Errorf("shrink grew column to %d", c.Cap())
	}
	c.Clear()
	c.ShrinkTo(0)
	if c.Cap() != 0 {
		t.Errorf("cap = %d, want 0 after shrinking empty column", c.Cap())
	}
	PushValue(c, 7)
	if *At[int](c, 0) != 7 {
		t.Error("column unusable after full shrink")
	}
}

func TestColumnZeroSized(t *testing.T) {
	c := NewColumn(TypeOf[marker](), 0)
	for i := 0; i < 100; i++ {
		PushValue(c, marker{})
	}
	c.SwapRemove(50)
	if c.Len() != 99 {
		t.Errorf("len = %d, want 99", c.Len())
	}
}

func TestColumnMisuse(t *testing.T) {
	c := NewColumn(TypeOf[int](), 0)
	PushValue(c, 1)

	mustPanic(t, "out of range", func() { c.Get(1) })
	mustPanic(t, "out of range", func() { c.SwapRemove(-1) })
	mustPanic(t, "accessed as", func() { At[position](c, 0) })
	mustPanic(t, "capacity overflow", func() { c.Reserve(math.MaxInt) })
}

func TestBox(t *testing.T) {
	info, p := Box(position{X: 3})
	if info != TypeOf[position]() {
		t.Fatalf("info = %v", info)
	}
	if (*position)(p).X != 3 {
		t.Errorf("boxed value = %+v", *(*position)(p))
	}
	mustPanic(t, "untyped nil", func() { Box(nil) })
}
