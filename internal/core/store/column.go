package store

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

const minGrowth = 4

// Column stores values of one type contiguously. The backing array is a
// typed Go slice so the collector still sees pointers held by the values;
// every accessor is bounds checked.
type Column struct {
	info *TypeInfo
	data reflect.Value // []T, len == cap
	base unsafe.Pointer
	len  int
	cap  int
}

// NewColumn creates a column for info with room for capacity values.
func NewColumn(info *TypeInfo, capacity int) *Column {
	c := &Column{info: info}
	if capacity > 0 {
		c.realloc(capacity)
	}
	return c
}

func (c *Column) Info() *TypeInfo { return c.info }
func (c *Column) Len() int        { return c.len }
func (c *Column) Cap() int        { return c.cap }
func (c *Column) IsEmpty() bool   { return c.len == 0 }

// Reserve makes room for at least additional more values. Growth doubles
// the capacity and never shrinks it.
func (c *Column) Reserve(additional int) {
	if additional < 0 {
		panic("store: negative reserve")
	}
	need := c.len + additional
	if need < c.len {
		panic("store: capacity overflow")
	}
	if need <= c.cap {
		return
	}
	next := need
	if c.cap <= math.MaxInt/2 && c.cap*2 > next {
		next = c.cap * 2
	}
	if next < minGrowth {
		next = minGrowth
	}
	c.realloc(next)
}

// ShrinkTo releases capacity down to n, never below the current length.
// Shrinking an empty column to zero frees the backing array.
func (c *Column) ShrinkTo(n int) {
	if n < c.len {
		n = c.len
	}
	if n >= c.cap {
		return
	}
	c.realloc(n)
}

// Push appends a copy of *src.
func (c *Column) Push(src unsafe.Pointer) {
	c.Reserve(1)
	c.info.Copy(c.at(c.len), src)
	c.len++
}

// Get returns the address of the value at i. The address stays valid
// until the column grows, shrinks or removes that slot.
func (c *Column) Get(i int) unsafe.Pointer {
	c.check(i)
	return c.at(i)
}

// Set overwrites the value at i with a copy of *src. The replaced value is
// dropped.
func (c *Column) Set(i int, src unsafe.Pointer) {
	c.check(i)
	p := c.at(i)
	if c.info.Drop != nil {
		c.info.Drop(p)
	}
	c.info.Copy(p, src)
}

// SwapRemove moves the last value into slot i and hands the removed value
// back to the caller in a fresh allocation. No destructor runs.
func (c *Column) SwapRemove(i int) unsafe.Pointer {
	c.check(i)
	out := c.info.New()
	c.info.Copy(out, c.at(i))
	last := c.len - 1
	if i != last {
		c.info.Copy(c.at(i), c.at(last))
	}
	c.info.Zero(c.at(last))
	c.len--
	return out
}

// Clear drops every stored value and resets the length. Capacity is kept.
func (c *Column) Clear() {
	for i := 0; i < c.len; i++ {
		p := c.at(i)
		if c.info.Drop != nil {
			c.info.Drop(p)
		}
		c.info.Zero(p)
	}
	c.len = 0
}

// Release clears the column and frees its backing array.
func (c *Column) Release() {
	c.Clear()
	c.realloc(0)
}

// Value boxes the value at i.
func (c *Column) Value(i int) any {
	return c.info.Value(c.Get(i))
}

func (c *Column) at(i int) unsafe.Pointer {
	return unsafe.Add(c.base, uintptr(i)*c.info.Size)
}

func (c *Column) check(i int) {
	if i < 0 || i >= c.len {
		panic(fmt.Sprintf("store: index %d out of range [0:%d] in %s column", i, c.len, c.info))
	}
}

func (c *Column) realloc(n int) {
	if n == 0 {
		c.data = reflect.Value{}
		c.base = nil
		c.cap = 0
		return
	}
	if c.info.Size != 0 && uintptr(n) > uintptr(math.MaxInt)/c.info.Size {
		panic("store: capacity overflow")
	}
	data := reflect.MakeSlice(reflect.SliceOf(c.info.Type), n, n)
	if c.len > 0 {
		reflect.Copy(data, c.data.Slice(0, c.len))
	}
	c.data = data
	c.base = data.UnsafePointer()
	c.cap = n
}

// At returns a typed pointer to the value at i. It panics when the column
// does not hold T.
func At[T any](c *Column, i int) *T {
	c.info.mustBe(reflect.TypeFor[T]())
	return (*T)(c.Get(i))
}

// Slice returns a typed view over the stored values. The view aliases the
// column and is invalidated by any structural change.
func Slice[T any](c *Column) []T {
	c.info.mustBe(reflect.TypeFor[T]())
	if c.len == 0 {
		return nil
	}
	return unsafe.Slice((*T)(c.base), c.len)
}

// PushValue appends v. It panics when the column does not hold T.
func PushValue[T any](c *Column, v T) {
	c.info.mustBe(reflect.TypeFor[T]())
	c.Push(unsafe.Pointer(&v))
}
