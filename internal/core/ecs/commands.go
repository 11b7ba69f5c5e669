package ecs

import (
	"fmt"
	"unsafe"

	"github.com/l1jgo/ecsrt/internal/core/store"
)

type commandKind uint8

const (
	cmdSpawn commandKind = iota
	cmdDespawn
	cmdDespawnRecursive
	cmdInsert
	cmdRemove
	cmdAddChild
	cmdRemoveChild
	cmdInsertResource
	cmdRemoveResource
	cmdFunc
)

type command struct {
	kind   commandKind
	entity EntityID
	other  EntityID
	typ    ComponentType
	ptr    unsafe.Pointer
	fn     func(*World)
}

func (c *command) apply(w *World) {
	e := w.entities
	if c.stale(e) {
		if c.kind == cmdInsert && c.typ.Drop != nil {
			c.typ.Drop(c.ptr)
		}
		return
	}
	switch c.kind {
	case cmdSpawn:
		e.SpawnFields(c.entity, nil)
	case cmdDespawn:
		e.Despawn(c.entity)
	case cmdDespawnRecursive:
		e.DespawnRecursive(c.entity)
	case cmdInsert:
		e.InsertComponent(c.entity, c.typ, c.ptr)
	case cmdRemove:
		if p := e.RemoveComponent(c.entity, c.typ); c.typ.Drop != nil {
			c.typ.Drop(p)
		}
	case cmdAddChild:
		e.AddChild(c.entity, c.other)
	case cmdRemoveChild:
		e.RemoveChild(c.entity, c.other)
	case cmdInsertResource:
		w.resources.insert(c.typ, c.ptr)
	case cmdRemoveResource:
		w.resources.Remove(c.typ)
	case cmdFunc:
		c.fn(w)
	}
}

// stale reports whether c targets an entity that no longer exists, e.g.
// one despawned earlier in the same flush. Stale commands are skipped.
func (c *command) stale(e *Entities) bool {
	switch c.kind {
	case cmdInsert, cmdRemove:
		return !e.Contains(c.entity)
	case cmdAddChild, cmdRemoveChild:
		return !e.Contains(c.entity) || !e.Contains(c.other)
	}
	return false
}

func (k commandKind) String() string {
	switch k {
	case cmdSpawn:
		return "spawn"
	case cmdDespawn:
		return "despawn"
	case cmdDespawnRecursive:
		return "despawn-recursive"
	case cmdInsert:
		return "insert"
	case cmdRemove:
		return "remove"
	case cmdAddChild:
		return "add-child"
	case cmdRemoveChild:
		return "remove-child"
	case cmdInsertResource:
		return "insert-resource"
	case cmdRemoveResource:
		return "remove-resource"
	}
	return "func"
}

// safeApply applies c, turning a panic into an error so the rest of the
// queue still runs.
func (c *command) safeApply(w *World) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ecs: %s command on %s failed: %v", c.kind, c.entity, r)
		}
	}()
	c.apply(w)
	return nil
}

// CommandQueue is an ordered list of deferred structural changes.
type CommandQueue struct {
	cmds []command
}

func (q *CommandQueue) Len() int { return len(q.cmds) }

func (q *CommandQueue) push(c command) { q.cmds = append(q.cmds, c) }

// Append moves every command of other to the end of q.
func (q *CommandQueue) Append(other *CommandQueue) {
	q.cmds = append(q.cmds, other.cmds...)
	other.cmds = other.cmds[:0]
}

func (q *CommandQueue) take() []command {
	cmds := q.cmds
	q.cmds = nil
	return cmds
}

// Commands records structural changes from a running system. They are
// applied once the system's phase has finished executing.
type Commands struct {
	world *World
	queue CommandQueue
}

// NewCommands returns a recorder for w. Apply it with ApplyCommands.
// Spawn reserves ids up front, so a recorder holding spawns must be applied:
// direct World.Spawn panics while reserved ids are outstanding.
func NewCommands(w *World) *Commands {
	return &Commands{world: w}
}

// ApplyCommands moves c's commands into the world queue and flushes it.
func (w *World) ApplyCommands(c *Commands) error {
	w.queue.Append(&c.queue)
	return w.FlushCommands()
}

// Spawn reserves an entity id and queues its creation followed by one
// insert per component.
func (c *Commands) Spawn(components ...any) *EntityCommands {
	id := c.world.entities.Reserve()
	c.queue.push(command{kind: cmdSpawn, entity: id})
	ec := &EntityCommands{id: id, cmds: c}
	for _, v := range components {
		ec.Insert(v)
	}
	return ec
}

// Entity returns a recorder for an existing entity.
func (c *Commands) Entity(id EntityID) *EntityCommands {
	return &EntityCommands{id: id, cmds: c}
}

// InsertResource queues v to be stored under its dynamic type.
func (c *Commands) InsertResource(v any) *Commands {
	t, p := store.Box(v)
	c.queue.push(command{kind: cmdInsertResource, typ: t, ptr: p})
	return c
}

func (c *Commands) RemoveResource(t ComponentType) *Commands {
	c.queue.push(command{kind: cmdRemoveResource, typ: t})
	return c
}

// Add queues an arbitrary world mutation.
func (c *Commands) Add(fn func(*World)) *Commands {
	c.queue.push(command{kind: cmdFunc, fn: fn})
	return c
}

func (c *Commands) Len() int { return c.queue.Len() }

// EntityCommands chains commands that target one entity id, which may not
// exist yet when the commands are recorded.
type EntityCommands struct {
	id   EntityID
	cmds *Commands
}

func (ec *EntityCommands) ID() EntityID { return ec.id }

// Insert queues v. Inserting a type with a registered companion also
// queues the companion; inserting EntityID or a companion type panics.
func (ec *EntityCommands) Insert(v any) *EntityCommands {
	w := ec.cmds.world
	t, p := store.Box(v)
	w.checkInsert(t)
	ec.cmds.queue.push(command{kind: cmdInsert, entity: ec.id, typ: t, ptr: p})
	if derive, ok := w.derive[t.Key]; ok {
		dt, dp := store.Box(derive(p))
		ec.cmds.queue.push(command{kind: cmdInsert, entity: ec.id, typ: dt, ptr: dp})
	}
	return ec
}

// Remove queues removal of the t component. Applying it fails if the
// entity exists but has no such component.
func (ec *EntityCommands) Remove(t ComponentType) *EntityCommands {
	if t == entityIDType {
		panic("ecs: EntityID cannot be removed")
	}
	ec.cmds.queue.push(command{kind: cmdRemove, entity: ec.id, typ: t})
	return ec
}

func (ec *EntityCommands) AddChild(child EntityID) *EntityCommands {
	ec.cmds.queue.push(command{kind: cmdAddChild, entity: ec.id, other: child})
	return ec
}

func (ec *EntityCommands) RemoveChild(child EntityID) *EntityCommands {
	ec.cmds.queue.push(command{kind: cmdRemoveChild, entity: ec.id, other: child})
	return ec
}

func (ec *EntityCommands) Despawn() {
	ec.cmds.queue.push(command{kind: cmdDespawn, entity: ec.id})
}

// DespawnRecursive queues removal of the entity and all its descendants.
func (ec *EntityCommands) DespawnRecursive() {
	ec.cmds.queue.push(command{kind: cmdDespawnRecursive, entity: ec.id})
}
