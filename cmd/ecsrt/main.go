package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/ecsrt/internal/app"
	"github.com/l1jgo/ecsrt/internal/config"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/system"
	"github.com/l1jgo/ecsrt/internal/core/timing"
	"github.com/l1jgo/ecsrt/internal/scene"
	"github.com/l1jgo/ecsrt/internal/scripting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/ecsrt.toml"
	if p := os.Getenv("ECSRT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Build the app
	a, err := app.New(cfg.Runtime, log)
	if err != nil {
		return err
	}
	defer a.Close()
	a.AddDefaultPlugins()
	a.AddPlugin(app.PluginFunc(statsPlugin))

	// 4. Scene
	if cfg.Scene.Path != "" {
		reg := scene.NewRegistry()
		scene.Builtins(reg)
		sc, err := scene.Load(cfg.Scene.Path, reg)
		if err != nil {
			return err
		}
		a.AddSystem(system.Startup, scene.Spawner(sc, log), system.Named("spawn_scene"))
		log.Info("scene loaded", zap.String("path", cfg.Scene.Path), zap.Int("entities", sc.Count()))
	}

	// 5. Scripts
	if cfg.Scripting.Enabled {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("init scripting: %w", err)
		}
		defer engine.Close()
		a.InsertResource(scripting.NewVars())
		for _, h := range scriptHooks {
			if !engine.Has(h.fn) {
				continue
			}
			opts := []system.SystemOption{system.Named("lua:" + h.fn)}
			if engine.Has(h.fn + "_if") {
				opts = append(opts, system.RunIf(engine.Condition(h.fn+"_if")))
			}
			a.AddSystem(h.phase, engine.System(h.fn), opts...)
			log.Debug("lua system registered", zap.String("fn", h.fn), zap.String("phase", string(h.phase)))
		}
	}

	// 6. Run until signalled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdownCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	return a.Run(ctx)
}

// scriptHooks maps global Lua functions to the phase they run in. A
// function named <fn>_if, when defined, is used as its run condition.
var scriptHooks = []struct {
	fn    string
	phase system.PhaseLabel
}{
	{"startup", system.Startup},
	{"fixed_update", system.FixedUpdate},
	{"update", system.Update},
	{"frame_end", system.FrameEnd},
}

// statsTimer paces the periodic world summary.
type statsTimer struct {
	timing.Timer
}

func statsPlugin(a *app.App) {
	log := a.Logger()
	a.InsertResource(statsTimer{Timer: timing.NewTimer(5*time.Second, timing.Repeat)})
	a.AddSystem(system.Last, func(w *ecs.World) {
		t := ecs.Resource[statsTimer](w)
		if t.Tick(ecs.Resource[timing.Time](w).Delta()) == 0 {
			return
		}
		tm := ecs.Resource[timing.Time](w)
		log.Info("world stats",
			zap.Int("entities", w.Len()),
			zap.Uint64("frame", tm.Frame()),
			zap.Float64("fps", tm.FPS()),
			zap.Uint64("tick", uint64(w.Tick())),
		)
	}, system.Named("stats"))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
