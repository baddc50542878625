package rules_test

import (
	"testing"

	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/engine"
	"github.com/l1jgo/simcore/internal/rules"
)

func TestPolicyFiresOnceWhenOnceIsSet(t *testing.T) {
	e := engine.New(engine.Config{}, nil)

	fired := 0
	e.RegisterPolicy(&rules.Policy{
		Name:      "greet",
		Condition: func(rules.Target) bool { return true },
		Effect:    rules.Effect{Func: func(rules.Target) error { fired++; return nil }},
		Once:      true,
		Enabled:   true,
	})

	e.Dispatch("space:createZone", map[string]any{"name": "hand"}, nil)
	e.Dispatch("space:createZone", map[string]any{"name": "discard"}, nil)

	if fired != 1 {
		t.Fatalf("policy fired %d times, want 1", fired)
	}
}

func TestRuleOnceConvergesViaChronicle(t *testing.T) {
	e := engine.New(engine.Config{}, nil)

	fired := 0
	e.RegisterRule(&rules.Rule{
		Name:      "welcome",
		Condition: func(rules.Target) bool { return true },
		Effect:    rules.Effect{Func: func(rules.Target) error { fired++; return nil }},
		Once:      true,
		Enabled:   true,
	})

	e.Dispatch("space:createZone", map[string]any{"name": "hand"}, nil)
	e.Dispatch("space:createZone", map[string]any{"name": "discard"}, nil)

	if fired != 1 {
		t.Fatalf("rule fired %d times, want 1", fired)
	}
	if _, ok := e.Chronicle().State().RulesFired["welcome"]; !ok {
		t.Fatalf("rule firing was not recorded in the Chronicle")
	}
}

func TestPolicyPanicIsIsolated(t *testing.T) {
	e := engine.New(engine.Config{}, nil)

	var errs []string
	event.On(e.Bus(), event.PolicyError, func(env event.Envelope) {
		if m, ok := env.Payload.(map[string]any); ok {
			errs = append(errs, m["name"].(string))
		}
	})

	e.RegisterPolicy(&rules.Policy{
		Name:      "broken",
		Condition: func(rules.Target) bool { return true },
		Effect:    rules.Effect{Func: func(rules.Target) error { panic("boom") }},
		Enabled:   true,
	})
	secondRan := false
	e.RegisterPolicy(&rules.Policy{
		Name:      "healthy",
		Priority:  -1,
		Condition: func(rules.Target) bool { return true },
		Effect:    rules.Effect{Func: func(rules.Target) error { secondRan = true; return nil }},
		Enabled:   true,
	})

	// Dispatching must not panic even though "broken"'s effect does.
	e.Dispatch("space:createZone", map[string]any{"name": "hand"}, nil)

	if len(errs) != 1 || errs[0] != "broken" {
		t.Fatalf("expected exactly one policy:error for %q, got %v", "broken", errs)
	}
	if !secondRan {
		t.Fatalf("a panicking policy should not block subsequent policies")
	}
}
