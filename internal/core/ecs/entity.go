package ecs

import (
	"strconv"

	"github.com/l1jgo/ecsrt/internal/core/store"
)

// EntityID is a 32-bit entity handle. Ids increase monotonically and are
// never reused within a run. Every entity stores its own id as a component.
type EntityID uint32

func (id EntityID) String() string { return "entity#" + strconv.FormatUint(uint64(id), 10) }

// ComponentType identifies a component or resource type.
type ComponentType = *store.TypeInfo

// Type returns the ComponentType of T.
func Type[T any]() ComponentType { return store.TypeOf[T]() }

var entityIDType = store.TypeOf[EntityID]()

// Parent links a child entity to its parent.
type Parent struct {
	ID EntityID
}

// Children lists the direct children of an entity in insertion order.
type Children struct {
	IDs []EntityID
}

var (
	parentType   = store.TypeOf[Parent]()
	childrenType = store.TypeOf[Children]()
)

func (c *Children) remove(id EntityID) bool {
	for i, child := range c.IDs {
		if child == id {
			c.IDs = append(c.IDs[:i:i], c.IDs[i+1:]...)
			return true
		}
	}
	return false
}
