// Package engine implements the Engine façade (spec.md §4.4): it owns the
// Chronicle, the dispatcher, the event bus and the policy/rule set, and
// exposes dispatch/undo/redo/snapshot/restore as the single entry point a
// consumer (or the Room server) drives a simulation through.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/dispatcher"
	"github.com/l1jgo/simcore/internal/recorder"
	"github.com/l1jgo/simcore/internal/rules"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/worker"
	"github.com/l1jgo/simcore/internal/worldstate"
)

// Config mirrors the Engine constructor options spec.md §6 lists under
// "Configuration recognized by the Engine constructor". AutoConnect selects
// ambient behavior the Room/consensus layers read, not the Engine itself,
// which is transport-agnostic. UseWorker/WorkerOptions route the
// offloadable batch actions (batch:shuffle, batch:draw) through a worker
// pool instead of running them inline.
type Config struct {
	AutoConnect bool
	UseWorker   bool
	WorkerOptions worker.Options

	// ScriptsDir, when non-empty, loads a Lua fallback handler (internal/scripting)
	// from the directory and registers it via SetFallback, so custom
	// category:verb actions not covered by the native registry resolve there.
	ScriptsDir string

	// InitialStack, InitialZones and InitialSourceStacks seed the Chronicle
	// document's stack/space/source primitives at construction time,
	// mirroring the constructor's {stack, space, source} options.
	InitialStack        []worldstate.Token
	InitialZones        []string
	InitialSourceStacks [][]worldstate.Token
}

// Snapshot is the engine's serializable state (spec.md §4.4): policy
// *definitions* are code, not data, so only their names round-trip —
// callers must re-register policies/rules after Restore.
type Snapshot struct {
	Chronicle string              `json:"chronicle"`
	History   []dispatcher.Action `json:"history"`
	Policies  []string            `json:"policies"`
	Rules     []string            `json:"rules"`
}

// ActionDescriptor is one entry of AvailableActions' advisory menu.
type ActionDescriptor struct {
	Type string `json:"type"`
}

// Engine is a single-threaded cooperative actor (spec.md §5): every method
// here is expected to run on one logical goroutine per room; two Engines
// never share state.
type Engine struct {
	cfg    Config
	chron  *chronicle.Chronicle
	disp   *dispatcher.Dispatcher
	bus    *event.Bus
	rules  *rules.Engine
	script *scripting.Engine
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	bus := event.NewBus(log)
	chron := chronicle.New(bus)
	disp := dispatcher.New(chron, bus, log)
	if cfg.UseWorker {
		disp.EnableWorker(worker.New(cfg.WorkerOptions))
	}
	e := &Engine{
		cfg:   cfg,
		chron: chron,
		disp:  disp,
		bus:   bus,
		rules: rules.NewEngine(log),
		log:   log,
	}
	if cfg.ScriptsDir != "" {
		if se, err := scripting.NewEngine(cfg.ScriptsDir, log); err != nil {
			log.Warn("scripting fallback unavailable", zap.Error(err))
		} else {
			e.script = se
			disp.SetFallback(se)
		}
	}
	e.seed(cfg)
	return e
}

// seed applies the constructor's {stack, space, source} options directly to
// the Chronicle document, bypassing Change since no handler/history record
// should exist for the engine's initial state.
func (e *Engine) seed(cfg Config) {
	if len(cfg.InitialStack) == 0 && len(cfg.InitialZones) == 0 && len(cfg.InitialSourceStacks) == 0 {
		return
	}
	doc := e.chron.State()
	if len(cfg.InitialStack) > 0 {
		doc.Stack = worldstate.NewStack(cfg.InitialStack)
	}
	for _, name := range cfg.InitialZones {
		_ = doc.Space.CreateZone(name, nil)
	}
	if len(cfg.InitialSourceStacks) > 0 {
		doc.Source = worldstate.NewSource()
		for _, toks := range cfg.InitialSourceStacks {
			doc.Source.AddStack(worldstate.NewStack(toks))
		}
	}
}

// Chronicle, Bus and Now round out rules.Target / recorder.ApplyTarget /
// recorder.DispatchTarget structurally — Engine is never type-asserted
// against those interfaces, Go just checks the methods line up.
func (e *Engine) Chronicle() *chronicle.Chronicle { return e.chron }
func (e *Engine) Bus() *event.Bus                 { return e.bus }
func (e *Engine) Now() time.Time                  { return time.Now() }

// Dispatch is the canonical entry point. Synchronous from the caller's
// perspective: policy/rule evaluation completes before Dispatch returns.
func (e *Engine) Dispatch(actionType string, payload dispatcher.Payload, seed *int64) dispatcher.Result {
	res := e.disp.Dispatch(actionType, payload, seed)
	e.rules.Evaluate(e)
	return res
}

// Apply is the Recorder's raw replay path: it bypasses policy evaluation and
// history logging entirely.
func (e *Engine) Apply(actionType string, payload dispatcher.Payload) (any, error) {
	return e.disp.Apply(actionType, payload)
}

func (e *Engine) Undo() *dispatcher.Action {
	a := e.disp.Undo()
	if a != nil {
		e.rules.Evaluate(e)
	}
	return a
}

func (e *Engine) Redo() *dispatcher.Action {
	a := e.disp.Redo()
	if a != nil {
		e.rules.Evaluate(e)
	}
	return a
}

// Snapshot captures chronicle state, history, and policy/rule names.
func (e *Engine) Snapshot() (Snapshot, error) {
	b64, err := e.chron.SaveToBase64()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return Snapshot{
		Chronicle: b64,
		History:   e.disp.History(),
		Policies:  e.rules.PolicyNames(),
		Rules:     e.rules.RuleNames(),
	}, nil
}

// Restore replaces Chronicle state and history from s. Policy/rule
// definitions are not restored — application code must re-register them.
func (e *Engine) Restore(s Snapshot) error {
	if err := e.chron.LoadFromBase64(s.Chronicle); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	e.disp.RestoreHistory(s.History)
	event.Publish(e.bus, event.EngineRestored, s)
	return nil
}

// AvailableActions is an advisory menu of every registered native action
// type (spec.md §4.4).
func (e *Engine) AvailableActions() []ActionDescriptor {
	types := e.disp.AvailableActions()
	out := make([]ActionDescriptor, 0, len(types))
	for _, t := range types {
		out = append(out, ActionDescriptor{Type: t})
	}
	return out
}

func (e *Engine) SetFallback(fb dispatcher.FallbackHandler) { e.disp.SetFallback(fb) }

func (e *Engine) RegisterPolicy(p *rules.Policy) {
	e.rules.RegisterPolicy(p)
	event.Publish(e.bus, event.EnginePolicy, p.Name)
}

func (e *Engine) UnregisterPolicy(name string) {
	e.rules.UnregisterPolicy(name)
	event.Publish(e.bus, event.EnginePolicyRemoved, name)
}

func (e *Engine) ClearPolicies() {
	e.rules.ClearPolicies()
	event.Publish(e.bus, event.EnginePolicyCleared, nil)
}

func (e *Engine) RegisterRule(r *rules.Rule) {
	e.rules.RegisterRule(r)
	event.Publish(e.bus, event.EnginePolicy, r.Name)
}

func (e *Engine) UnregisterRule(name string) {
	e.rules.UnregisterRule(name)
	event.Publish(e.bus, event.EnginePolicyRemoved, name)
}

func (e *Engine) ClearRules() {
	e.rules.ClearRules()
	event.Publish(e.bus, event.EnginePolicyCleared, nil)
}

// Transactions exposes the process-visible transfer/steal/trade log.
func (e *Engine) Transactions() []worldstate.Transaction { return e.disp.Transactions() }

// History exposes the action history list as-is.
func (e *Engine) History() []dispatcher.Action { return e.disp.History() }

// Shutdown emits engine:shutdown and releases the Lua VM, if one was loaded.
// The caller is responsible for severing any network/room association
// afterward.
func (e *Engine) Shutdown() {
	if e.script != nil {
		e.script.Close()
	}
	event.Publish(e.bus, event.EngineShutdown, nil)
}

// ScriptEffect adapts a recorder.Script into a rules.Effect's Script slot —
// rules.Script only needs Dispatch+Bus, which Engine (and any rules.Target)
// already provides structurally.
type ScriptEffect struct {
	Script *recorder.Script
	Ctx    context.Context
}

func (s ScriptEffect) Run(t rules.Target) error {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return s.Script.Run(ctx, t)
}
