package scripting

import (
	lua "github.com/yuin/gopher-lua"
)

// Vars is the resource shared between Go and Lua. Scripts see it as a
// table of numbers, strings and booleans.
type Vars struct {
	values map[string]any
}

func NewVars() Vars { return Vars{values: make(map[string]any)} }

func (v *Vars) Set(key string, value any) {
	switch value.(type) {
	case float64, string, bool:
	case int:
		value = float64(value.(int))
	default:
		panic("scripting: unsupported var type for " + key)
	}
	if v.values == nil {
		v.values = make(map[string]any)
	}
	v.values[key] = value
}

func (v *Vars) Number(key string) (float64, bool) {
	n, ok := v.values[key].(float64)
	return n, ok
}

func (v *Vars) String(key string) (string, bool) {
	s, ok := v.values[key].(string)
	return s, ok
}

func (v *Vars) Bool(key string) (bool, bool) {
	b, ok := v.values[key].(bool)
	return b, ok
}

func (v *Vars) Len() int { return len(v.values) }

func (v *Vars) toTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	for k, val := range v.values {
		switch val := val.(type) {
		case float64:
			t.RawSetString(k, lua.LNumber(val))
		case string:
			t.RawSetString(k, lua.LString(val))
		case bool:
			t.RawSetString(k, lua.LBool(val))
		}
	}
	return t
}

// fromTable replaces the values with the string-keyed scalars of t.
func (v *Vars) fromTable(t *lua.LTable) {
	clear(v.values)
	if v.values == nil {
		v.values = make(map[string]any)
	}
	t.ForEach(func(k, val lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch val := val.(type) {
		case lua.LNumber:
			v.values[string(key)] = float64(val)
		case lua.LString:
			v.values[string(key)] = string(val)
		case lua.LBool:
			v.values[string(key)] = bool(val)
		}
	})
}
