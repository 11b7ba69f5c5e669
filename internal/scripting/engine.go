package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

// Engine wraps a single gopher-lua VM. Scripted systems may be packed into
// the same parallel batch, so every VM call holds mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file in dir, in name
// order. A missing dir yields an engine without scripts.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	vm.SetGlobal("log", vm.NewFunction(e.luaLog))

	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua source.
func (e *Engine) DoString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.DoString(src)
}

// Has reports whether a global function named fn is defined.
func (e *Engine) Has(fn string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// luaLog exposes log(msg) to scripts.
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// call invokes the global fn with vars as a table and returns the first
// result. Changes the script makes to the table are copied back into vars
// when write is set.
func (e *Engine) call(fn string, vars *Vars, write bool) (lua.LValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.vm.GetGlobal(fn)
	if f == lua.LNil {
		return lua.LNil, fmt.Errorf("lua function %s not found", fn)
	}
	t := vars.toTable(e.vm)
	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return lua.LNil, fmt.Errorf("lua %s: %w", fn, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	if write {
		vars.fromTable(t)
	}
	return result, nil
}

// System returns a system calling the Lua function fn(vars) each time it
// runs. Script errors are returned to the scheduler as system failures.
func (e *Engine) System(fn string) func(ecs.ResMut[Vars]) error {
	return func(v ecs.ResMut[Vars]) error {
		_, err := e.call(fn, v.Get(), true)
		return err
	}
}

// Condition returns a run condition backed by the Lua function fn(vars).
// Errors and non-boolean results count as false.
func (e *Engine) Condition(fn string) func(ecs.Res[Vars]) bool {
	return func(v ecs.Res[Vars]) bool {
		result, err := e.call(fn, v.Get(), false)
		if err != nil {
			e.log.Error("lua condition failed", zap.String("fn", fn), zap.Error(err))
			return false
		}
		return lua.LVAsBool(result)
	}
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
