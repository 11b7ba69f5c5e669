package component

import (
	"time"

	"github.com/l1jgo/ecsrt/internal/core/timing"
)

// Transform is an entity's placement relative to its parent.
// Pure data; propagation happens in the transform system.
type Transform struct {
	Translation Vec3
	Rotation    Quat
	Scale       Vec3
}

// NewTransform places an unrotated, unscaled transform at t.
func NewTransform(t Vec3) Transform {
	return Transform{Translation: t, Rotation: Identity, Scale: One}
}

// Matrix returns the local affine matrix.
func (t *Transform) Matrix() Mat4 { return Compose(t.Translation, t.Rotation, t.Scale) }

// GlobalTransform is the world-space matrix of an entity. It is derived
// from Transform on insert and kept current by transform propagation.
type GlobalTransform struct {
	Matrix Mat4
}

// DeriveGlobal computes the initial GlobalTransform of a Transform.
func DeriveGlobal(t *Transform) GlobalTransform { return GlobalTransform{Matrix: t.Matrix()} }

// Lifetime despawns its entity, with all descendants, once the timer ends.
type Lifetime struct {
	Timer timing.Timer
}

func NewLifetime(d time.Duration) Lifetime {
	return Lifetime{Timer: timing.NewTimer(d, timing.Once)}
}

// Name labels an entity for logs and scenes.
type Name struct {
	Value string
}
