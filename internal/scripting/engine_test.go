package scripting

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func TestEngineCallRoutesToRegisteredHandler(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "greet.lua", `
register("custom:greet", function(payload)
	return "hello " .. payload.name
end)
`)

	e, err := NewEngine(dir, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	out, err := e.Call("custom:greet", map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "hello ada" {
		t.Fatalf("out = %v, want %q", out, "hello ada")
	}
}

func TestEngineCallUnknownActionErrors(t *testing.T) {
	e, err := NewEngine(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	if _, err := e.Call("custom:missing", map[string]any{}); err == nil {
		t.Fatalf("expected an error for an unregistered action")
	}
}

func TestEngineLoadsScriptsInSortedOrder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.lua", `
order = order or {}
table.insert(order, "b")
register("trace:b", function(p) return "b" end)
`)
	writeScript(t, dir, "a.lua", `
order = order or {}
table.insert(order, "a")
register("trace:order", function(p) return order end)
`)

	e, err := NewEngine(dir, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	out, err := e.Call("trace:order", map[string]any{})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	arr, ok := out.([]any)
	if !ok || len(arr) != 2 || arr[0] != "a" || arr[1] != "b" {
		t.Fatalf("out = %#v, want [a b] (a.lua loaded before b.lua alphabetically)", out)
	}
}

func TestToLuaAndFromLuaRoundTripNestedValues(t *testing.T) {
	e, err := NewEngine(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	in := map[string]any{
		"name":  "ada",
		"count": 3,
		"tags":  []any{"x", "y"},
	}
	out := e.fromLua(e.toLua(in))
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("round trip did not produce a map: %#v", out)
	}
	if m["name"] != "ada" {
		t.Fatalf("name = %v, want ada", m["name"])
	}
	if m["count"] != float64(3) {
		t.Fatalf("count = %v, want 3", m["count"])
	}
	tags, ok := m["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "x" || tags[1] != "y" {
		t.Fatalf("tags = %#v, want [x y]", m["tags"])
	}
}
