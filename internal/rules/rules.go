// Package rules implements the reactive layer above the dispatcher: Policy
// (transient, evaluated after every dispatch) and Rule (the same shape, plus
// convergent "fire-once" state recorded in the Chronicle so concurrent peers
// observing the same trigger cannot double-fire).
package rules

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/dispatcher"
)

// Target is the minimal engine surface a condition/effect needs: enough to
// dispatch further actions, inspect the Chronicle, and touch the bus. The
// engine façade satisfies this structurally, so this package never imports
// it (avoids the obvious import cycle).
type Target interface {
	Dispatch(actionType string, payload dispatcher.Payload, seed *int64) dispatcher.Result
	Chronicle() *chronicle.Chronicle
	Bus() *event.Bus
	Now() time.Time
}

// ActionSpec is a data-only action description, used when an effect is "an
// ordered array of action specs" rather than a function (spec.md §4.5).
type ActionSpec struct {
	Type    string
	Payload dispatcher.Payload
	Seed    *int64
}

// Script is the minimal ordered-sequence effect. internal/recorder owns the
// richer delay/abort Script runner; this is the shape an Effect embeds when
// it wants that runner without rules depending on recorder's scheduling
// details.
type Script interface {
	Run(target Target) error
}

// Effect holds exactly one of its fields; Run dispatches to whichever is set,
// in the priority Func > Action > Actions > Script.
type Effect struct {
	Func    func(Target) error
	Action  *ActionSpec
	Actions []ActionSpec
	Script  Script
}

func (e Effect) Run(t Target) error {
	switch {
	case e.Func != nil:
		return e.Func(t)
	case e.Action != nil:
		res := t.Dispatch(e.Action.Type, e.Action.Payload, e.Action.Seed)
		if !res.OK {
			return res.Err
		}
		return nil
	case len(e.Actions) > 0:
		for _, spec := range e.Actions {
			res := t.Dispatch(spec.Type, spec.Payload, spec.Seed)
			if !res.OK {
				return res.Err
			}
		}
		return nil
	case e.Script != nil:
		return e.Script.Run(t)
	}
	return nil
}

// Policy is transient: its once-fired state lives only in process memory.
type Policy struct {
	Name      string
	Condition func(Target) bool
	Effect    Effect
	Priority  int
	Once      bool
	Enabled   bool

	fired bool
}

// Rule is a Policy plus convergent fired state: a once-rule's firing is
// recorded in the Chronicle's rules.fired map before its effect runs.
type Rule struct {
	Name      string
	Condition func(Target) bool
	Effect    Effect
	Priority  int
	Once      bool
	Enabled   bool
}

// Engine holds the registered policies and rules and evaluates them, in
// priority order, after every dispatch.
type Engine struct {
	policies []*Policy
	ruleset  []*Rule
	log      *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

func (e *Engine) RegisterPolicy(p *Policy) {
	e.policies = append(e.policies, p)
	e.sortPolicies()
}

func (e *Engine) UnregisterPolicy(name string) {
	for i, p := range e.policies {
		if p.Name == name {
			e.policies = append(e.policies[:i], e.policies[i+1:]...)
			return
		}
	}
}

func (e *Engine) ClearPolicies() { e.policies = nil }

func (e *Engine) PolicyNames() []string {
	out := make([]string, 0, len(e.policies))
	for _, p := range e.policies {
		out = append(out, p.Name)
	}
	return out
}

func (e *Engine) RegisterRule(r *Rule) {
	e.ruleset = append(e.ruleset, r)
	e.sortRules()
}

func (e *Engine) UnregisterRule(name string) {
	for i, r := range e.ruleset {
		if r.Name == name {
			e.ruleset = append(e.ruleset[:i], e.ruleset[i+1:]...)
			return
		}
	}
}

func (e *Engine) ClearRules() { e.ruleset = nil }

func (e *Engine) RuleNames() []string {
	out := make([]string, 0, len(e.ruleset))
	for _, r := range e.ruleset {
		out = append(out, r.Name)
	}
	return out
}

func (e *Engine) sortPolicies() {
	sort.SliceStable(e.policies, func(i, j int) bool { return e.policies[i].Priority > e.policies[j].Priority })
}

func (e *Engine) sortRules() {
	sort.SliceStable(e.ruleset, func(i, j int) bool { return e.ruleset[i].Priority > e.ruleset[j].Priority })
}

// Evaluate runs every enabled policy and rule in priority order against t.
// Condition/effect panics and errors are isolated per spec.md §4.5: they
// surface as policy:error/rule:error and never interrupt the remaining
// policies or a subsequent dispatch.
func (e *Engine) Evaluate(t Target) {
	for _, p := range e.policies {
		if !p.Enabled || (p.Once && p.fired) {
			continue
		}
		e.runPolicy(t, p)
	}
	for _, r := range e.ruleset {
		if !r.Enabled {
			continue
		}
		e.runRule(t, r)
	}
}

func (e *Engine) runPolicy(t Target, p *Policy) {
	defer func() {
		if rec := recover(); rec != nil {
			e.emitPolicyError(t, p.Name, fmt.Errorf("policy panic: %v", rec))
		}
	}()
	if !p.Condition(t) {
		return
	}
	if err := p.Effect.Run(t); err != nil {
		e.emitPolicyError(t, p.Name, err)
		return
	}
	if p.Once {
		p.fired = true
	}
	event.Publish(t.Bus(), event.PolicyTriggered, p.Name)
}

func (e *Engine) runRule(t Target, r *Rule) {
	defer func() {
		if rec := recover(); rec != nil {
			e.emitRuleError(t, r.Name, fmt.Errorf("rule panic: %v", rec))
		}
	}()
	if r.Once {
		if _, already := t.Chronicle().State().RulesFired[r.Name]; already {
			return
		}
	}
	if !r.Condition(t) {
		return
	}
	if r.Once {
		if err := t.Chronicle().Change("rule:"+r.Name, func(d *chronicle.Document) error {
			if _, already := d.RulesFired[r.Name]; already {
				return fmt.Errorf("rule %q already fired", r.Name)
			}
			d.RulesFired[r.Name] = t.Now().UnixMilli()
			return nil
		}); err != nil {
			// Another peer recorded the firing first; this is expected
			// convergent behavior, not an error worth surfacing.
			return
		}
	}
	if err := r.Effect.Run(t); err != nil {
		e.emitRuleError(t, r.Name, err)
		return
	}
	event.Publish(t.Bus(), event.RuleTriggered, r.Name)
}

func (e *Engine) emitPolicyError(t Target, name string, err error) {
	e.log.Warn("policy error", zap.String("policy", name), zap.Error(err))
	event.Publish(t.Bus(), event.PolicyError, map[string]any{"name": name, "error": err.Error()})
}

func (e *Engine) emitRuleError(t Target, name string, err error) {
	e.log.Warn("rule error", zap.String("rule", name), zap.Error(err))
	event.Publish(t.Bus(), event.RuleError, map[string]any{"name": name, "error": err.Error()})
}
