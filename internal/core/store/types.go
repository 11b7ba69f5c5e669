package store

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// TypeKey identifies a stored type for the lifetime of the process.
// Keys are handed out in first-use order and never reused.
type TypeKey uint32

// Dropper is implemented by values that must release something when a
// slot still owning them is cleared.
type Dropper interface {
	Drop()
}

// TypeInfo is the runtime descriptor of one component or resource type.
type TypeInfo struct {
	Key   TypeKey
	Type  reflect.Type
	Size  uintptr
	Align uintptr
	// Drop is nil unless *T implements Dropper.
	Drop func(unsafe.Pointer)
}

func (ti *TypeInfo) String() string {
	return ti.Type.String()
}

// New allocates a zero value and returns a pointer to it.
func (ti *TypeInfo) New() unsafe.Pointer {
	return reflect.New(ti.Type).UnsafePointer()
}

// Copy assigns *src to *dst. Both must point at values of this type.
func (ti *TypeInfo) Copy(dst, src unsafe.Pointer) {
	reflect.NewAt(ti.Type, dst).Elem().Set(reflect.NewAt(ti.Type, src).Elem())
}

// Zero resets *p to the zero value.
func (ti *TypeInfo) Zero(p unsafe.Pointer) {
	reflect.NewAt(ti.Type, p).Elem().SetZero()
}

// Value boxes *p into an interface.
func (ti *TypeInfo) Value(p unsafe.Pointer) any {
	return reflect.NewAt(ti.Type, p).Elem().Interface()
}

var registry = struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*TypeInfo
	byKey  []*TypeInfo
}{
	byType: make(map[reflect.Type]*TypeInfo),
}

var dropperType = reflect.TypeFor[Dropper]()

// TypeOf returns the descriptor for T, registering it on first use.
func TypeOf[T any]() *TypeInfo {
	return Info(reflect.TypeFor[T]())
}

// Info returns the descriptor for t, registering it on first use.
func Info(t reflect.Type) *TypeInfo {
	if t == nil {
		panic("store: nil type")
	}
	registry.mu.RLock()
	info, ok := registry.byType[t]
	registry.mu.RUnlock()
	if ok {
		return info
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if info, ok := registry.byType[t]; ok {
		return info
	}
	info = &TypeInfo{
		Key:   TypeKey(len(registry.byKey)),
		Type:  t,
		Size:  t.Size(),
		Align: uintptr(t.Align()),
	}
	if reflect.PointerTo(t).Implements(dropperType) {
		info.Drop = func(p unsafe.Pointer) {
			reflect.NewAt(t, p).Interface().(Dropper).Drop()
		}
	}
	registry.byType[t] = info
	registry.byKey = append(registry.byKey, info)
	return info
}

// Lookup returns the descriptor registered under key.
func Lookup(key TypeKey) (*TypeInfo, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if int(key) >= len(registry.byKey) {
		return nil, false
	}
	return registry.byKey[key], true
}

// Box copies v into a fresh heap slot and returns its descriptor and
// address. The caller owns the slot.
func Box(v any) (*TypeInfo, unsafe.Pointer) {
	if v == nil {
		panic("store: cannot box untyped nil")
	}
	rv := reflect.ValueOf(v)
	p := reflect.New(rv.Type())
	p.Elem().Set(rv)
	return Info(rv.Type()), p.UnsafePointer()
}

func (ti *TypeInfo) mustBe(t reflect.Type) {
	if ti.Type != t {
		panic(fmt.Sprintf("store: column holds %s, accessed as %s", ti.Type, t))
	}
}
