// Package scripting implements the dispatcher's fallback path (spec.md §3:
// "an open registry into which consumers register custom handlers keyed by
// a category:verb string") as Lua scripts. Consumers drop .lua files into a
// directory; each script calls the Go-exposed `register(actionType, fn)` to
// bind a handler, and Engine.Call resolves to it at dispatch time.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only — it is
// driven from the Engine's one logical thread (spec.md §5), same as every
// other dispatcher handler.
type Engine struct {
	vm       *lua.LState
	handlers map[string]*lua.LFunction
	log      *zap.Logger
}

// NewEngine creates a Lua VM, exposes the `register` builtin, and loads every
// .lua file directly under scriptsDir.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	e := &Engine{vm: vm, handlers: make(map[string]*lua.LFunction), log: log}

	vm.SetGlobal("register", vm.NewFunction(e.luaRegister))

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// luaRegister implements the `register(actionType, fn)` builtin scripts call
// at load time. actionType is stored verbatim — "tokens:customFilter" is a
// legal Lua string argument even though it isn't a legal Lua identifier.
func (e *Engine) luaRegister(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	e.handlers[name] = fn
	return 0
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	// Deterministic load order: two scripts registering the same action
	// type should resolve the same way on every run (spec.md §5 determinism).
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Call implements dispatcher.FallbackHandler. It looks up the handler
// registered for actionType, marshals payload into a Lua table, and
// unmarshals the single return value back into a Go value.
func (e *Engine) Call(actionType string, payload map[string]any) (any, error) {
	fn, ok := e.handlers[actionType]
	if !ok {
		return nil, fmt.Errorf("no lua handler registered for action %q", actionType)
	}

	arg := e.toLua(payload)
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, arg); err != nil {
		return nil, fmt.Errorf("lua handler %q: %w", actionType, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return e.fromLua(result), nil
}

// toLua converts a Go value (map[string]any, []any, string, bool, number, or
// nil) into the equivalent lua.LValue.
func (e *Engine) toLua(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case map[string]any:
		t := e.vm.NewTable()
		for k, item := range val {
			t.RawSetString(k, e.toLua(item))
		}
		return t
	case []any:
		t := e.vm.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, e.toLua(item))
		}
		return t
	case string:
		return lua.LString(val)
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// fromLua converts a Lua return value back into a plain Go value. Tables
// with only consecutive integer keys starting at 1 become []any; anything
// else becomes map[string]any.
func (e *Engine) fromLua(lv lua.LValue) any {
	switch val := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			isArray := true
			val.ForEach(func(k, _ lua.LValue) {
				if kn, ok := k.(lua.LNumber); !ok || int(kn) < 1 || int(kn) > n {
					isArray = false
				}
			})
			if isArray {
				out := make([]any, n)
				for i := 1; i <= n; i++ {
					out[i-1] = e.fromLua(val.RawGetInt(i))
				}
				return out
			}
		}
		out := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			out[k.String()] = e.fromLua(v)
		})
		return out
	default:
		return lv.String()
	}
}

func (e *Engine) Close() {
	e.vm.Close()
}
