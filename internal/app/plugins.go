package app

import (
	"time"

	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/system"
	"github.com/l1jgo/ecsrt/internal/core/timing"
	builtin "github.com/l1jgo/ecsrt/internal/system"
)

// TimePlugin inserts Time and advances it from the wall clock in First.
var TimePlugin = PluginFunc(func(a *App) {
	a.InsertResource(timing.Time{})
	a.AddSystem(system.First, builtin.UpdateTime(time.Now), system.Named("update_time"))
})

// TransformPlugin derives GlobalTransform from Transform and keeps the
// hierarchy propagated in PostUpdate.
var TransformPlugin = PluginFunc(func(a *App) {
	ecs.DeriveComponent(a.world, component.DeriveGlobal)
	a.AddSystem(system.PostUpdate, builtin.PropagateTransforms)
})

// CleanupPlugin despawns entities whose Lifetime ran out. Needs TimePlugin.
var CleanupPlugin = PluginFunc(func(a *App) {
	a.AddSystem(system.FrameEnd, builtin.DespawnExpired, system.InLayer(system.Pre))
})

// AddDefaultPlugins adds the time, transform and cleanup plugins.
func (a *App) AddDefaultPlugins() *App {
	return a.AddPlugin(TimePlugin).AddPlugin(TransformPlugin).AddPlugin(CleanupPlugin)
}
