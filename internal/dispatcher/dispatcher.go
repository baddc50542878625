// Package dispatcher implements the Action Dispatcher: a name→handler
// registry with a native path (the ~68 built-in actions of spec.md §4.3)
// and a fallback path for consumer-registered or scripted actions.
package dispatcher

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/worker"
	"github.com/l1jgo/simcore/internal/worldstate"
)

// Payload is the open-shaped map every action reads its fields from. Native
// handlers pull typed fields out with the get* helpers in payload.go;
// the fallback path passes it through unparsed (spec.md §9: "the fallback
// registry for custom actions accepts a generic serialized payload").
type Payload = map[string]any

// HandlerFunc is a native or consumer-registered action handler. It reads
// and mutates world state only through ctx.Chronicle.Change.
type HandlerFunc func(ctx *Context, payload Payload) (result any, err error)

type entry struct {
	fn         HandlerFunc
	reversible bool
	offload    *offloadSpec
}

// ComputeFunc is the pure half of an offloadable action: it reads a
// snapshot (never the live Chronicle) and returns whatever data Commit
// needs to fold the result back in. Safe to run concurrently with the
// dispatching goroutine, and safe to run twice (worker + inline fallback)
// since it never mutates shared state.
type ComputeFunc func(snapshot *chronicle.Document, payload Payload) (data any, err error)

// CommitFunc is the single point where an offloaded action's data is
// applied to the live document, inside one Chronicle.Change call.
type CommitFunc func(d *chronicle.Document, payload Payload, data any) (result any, err error)

type offloadSpec struct {
	compute ComputeFunc
	commit  CommitFunc
}

// FallbackHandler is consulted when no native or Go-registered handler
// matches an action type — e.g. a Lua-scripted action (see
// internal/scripting).
type FallbackHandler interface {
	Call(actionType string, payload Payload) (any, error)
}

// Action is the append-only history record (spec.md §3, §6 wire format).
type Action struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Timestamp  int64   `json:"timestamp"`
	Payload    Payload `json:"payload"`
	Seed       *int64  `json:"seed,omitempty"`
	Reversible bool    `json:"reversible"`
	Result     any     `json:"result,omitempty"`
}

// Result is dispatch's non-throwing return value (spec.md §7: "dispatch
// returns undefined on failure and emits the appropriate event").
type Result struct {
	OK     bool
	Value  any
	Err    error
	Action *Action
}

// Context is what a handler sees: the Chronicle to mutate through, the bus
// to observe (handlers normally don't publish directly — Dispatch does that
// for them — but policies/rules read it), and a transaction sink for the
// agent trade/transfer/steal actions.
type Context struct {
	Chronicle    *chronicle.Chronicle
	Bus          *event.Bus
	now          func() time.Time
	recordTxn    func(worldstate.Transaction)
}

// Now returns the dispatcher's clock (overridable in tests).
func (c *Context) Now() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// RecordTransaction appends txn to the process-visible transaction log
// (spec.md §4.3), stamping its id and timestamp.
func (c *Context) RecordTransaction(txn worldstate.Transaction) {
	if c.recordTxn != nil {
		c.recordTxn(txn)
	}
}

// Dispatcher is the name→handler registry and the single legal mutator of
// world state.
type Dispatcher struct {
	chron    *chronicle.Chronicle
	bus      *event.Bus
	log      *zap.Logger
	native   map[string]entry
	fallback FallbackHandler
	pool     *worker.Pool

	history []Action
	future  []Action
	txLog   []worldstate.Transaction

	onTransaction func(worldstate.Transaction)
	nowFn         func() time.Time
}

func New(chron *chronicle.Chronicle, bus *event.Bus, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		chron:  chron,
		bus:    bus,
		log:    log,
		native: make(map[string]entry),
		nowFn:  time.Now,
	}
	registerNativeActions(d)
	return d
}

// SetFallback attaches the open registry's handler (e.g. a Lua engine).
func (d *Dispatcher) SetFallback(fb FallbackHandler) { d.fallback = fb }

// EnableWorker attaches a worker pool; offloadable actions registered via
// RegisterOffloadable race their compute phase against it (spec.md §6
// useWorker/workerOptions). A nil pool (the default) makes every
// offloadable action run its compute phase inline, synchronously.
func (d *Dispatcher) EnableWorker(pool *worker.Pool) { d.pool = pool }

// RegisterOffloadable adds an action whose compute phase MAY run on the
// worker pool (spec.md §8 scenario 6, §5 "CPU-heavy deterministic batch
// operations"). compute must not touch the live Chronicle; commit is the
// only place the result is folded back in, exactly once.
func (d *Dispatcher) RegisterOffloadable(actionType string, reversible bool, compute ComputeFunc, commit CommitFunc) {
	d.native[actionType] = entry{reversible: reversible, offload: &offloadSpec{compute: compute, commit: commit}}
}

// OnTransaction registers a sink invoked synchronously every time an
// agent:transfer/steal/trade action commits a Transaction.
func (d *Dispatcher) OnTransaction(fn func(worldstate.Transaction)) { d.onTransaction = fn }

// Register adds (or replaces) a native/consumer handler for actionType.
func (d *Dispatcher) Register(actionType string, reversible bool, fn HandlerFunc) {
	d.native[actionType] = entry{fn: fn, reversible: reversible}
}

// AvailableActions lists every registered native action type, advisory only
// (spec.md §4.4 availableActions).
func (d *Dispatcher) AvailableActions() []string {
	out := make([]string, 0, len(d.native))
	for t := range d.native {
		out = append(out, t)
	}
	return out
}

func (d *Dispatcher) History() []Action { return append([]Action(nil), d.history...) }
func (d *Dispatcher) Future() []Action  { return append([]Action(nil), d.future...) }
func (d *Dispatcher) Transactions() []worldstate.Transaction {
	return append([]worldstate.Transaction(nil), d.txLog...)
}

// Dispatch is the canonical entry point (spec.md §4.3 dispatch protocol).
func (d *Dispatcher) Dispatch(actionType string, payload Payload, seed *int64) Result {
	e, ok := d.native[actionType]
	var fn HandlerFunc
	reversible := false
	switch {
	case ok && e.offload != nil:
		reversible = e.reversible
		fn = d.offloadedHandler(actionType, e.offload)
	case ok:
		fn = e.fn
		reversible = e.reversible
	case d.fallback != nil:
		fb := d.fallback
		fn = func(ctx *Context, p Payload) (any, error) { return fb.Call(actionType, p) }
	default:
		d.emitError(actionType, fmt.Errorf("unknown action type %q", actionType))
		return Result{OK: false, Err: fmt.Errorf("unknown action type %q", actionType)}
	}

	ctx := &Context{
		Chronicle: d.chron,
		Bus:       d.bus,
		now:       d.nowFn,
		recordTxn: d.recordTransaction,
	}

	result, err := d.safeInvoke(fn, ctx, payload)
	if err != nil {
		d.emitError(actionType, err)
		return Result{OK: false, Err: err}
	}

	action := Action{
		ID:         uuid.NewString(),
		Type:       actionType,
		Timestamp:  d.nowFn().UnixMilli(),
		Payload:    payload,
		Seed:       seed,
		Reversible: reversible,
		Result:     result,
	}
	d.history = append(d.history, action)
	d.future = d.future[:0]

	event.Publish(d.bus, event.EngineAction, action)
	event.Publish(d.bus, actionType, result)

	return Result{OK: true, Value: result, Action: &action}
}

// safeInvoke recovers a handler panic into a Handler exception error
// (spec.md §7 category 3), grounded on the teacher's packet.Registry
// safeCall recover() pattern.
func (d *Dispatcher) safeInvoke(fn HandlerFunc, ctx *Context, payload Payload) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, payload)
}

// offloadedHandler wraps an offloadSpec into an ordinary HandlerFunc: it
// races the compute phase against the worker pool, falls back to an inline
// recompute on timeout (emitting engine:warning, spec.md §5), and always
// commits exactly once on the calling goroutine.
func (d *Dispatcher) offloadedHandler(actionType string, spec *offloadSpec) HandlerFunc {
	return func(ctx *Context, payload Payload) (any, error) {
		snapshot := ctx.Chronicle.State()

		var data any
		var err error
		if d.pool != nil {
			var timedOut bool
			data, err, timedOut = d.pool.Run(func() (any, error) { return spec.compute(snapshot, payload) })
			if timedOut {
				d.log.Warn("worker offload timed out, falling back to inline execution",
					zap.String("type", actionType))
				event.Publish(d.bus, event.EngineWarning, map[string]any{
					"type":   actionType,
					"reason": "worker offload timeout",
				})
				data, err = spec.compute(snapshot, payload)
			}
		} else {
			data, err = spec.compute(snapshot, payload)
		}
		if err != nil {
			return nil, err
		}

		var result any
		commitErr := ctx.Chronicle.Change(actionType, func(doc *chronicle.Document) error {
			var cerr error
			result, cerr = spec.commit(doc, payload, data)
			return cerr
		})
		return result, commitErr
	}
}

func (d *Dispatcher) emitError(actionType string, err error) {
	d.log.Warn("dispatch failed", zap.String("type", actionType), zap.Error(err))
	event.Publish(d.bus, event.EngineError, map[string]any{
		"type":  actionType,
		"error": err.Error(),
	})
}

func (d *Dispatcher) recordTransaction(txn worldstate.Transaction) {
	txn.ID = uuid.NewString()
	txn.Timestamp = d.nowFn().UnixMilli()
	d.txLog = append(d.txLog, txn)
	if d.onTransaction != nil {
		d.onTransaction(txn)
	}
}

// Undo pops the most recent history entry. Reversible actions move to the
// future list and emit engine:undo; non-reversible actions are discarded
// without touching Chronicle state — undo is advisory bookkeeping only, not
// a state rewind (see DESIGN.md's "undo semantics" decision).
func (d *Dispatcher) Undo() *Action {
	if len(d.history) == 0 {
		return nil
	}
	last := d.history[len(d.history)-1]
	d.history = d.history[:len(d.history)-1]
	if last.Reversible {
		d.future = append(d.future, last)
		event.Publish(d.bus, event.EngineUndo, last)
	}
	return &last
}

// Redo pops the future list and re-dispatches the action against the
// *current* Chronicle state (spec.md §4.3, §9 open question: this is not a
// true timeline rewind, kept for parity with the documented source
// behavior).
func (d *Dispatcher) Redo() *Action {
	if len(d.future) == 0 {
		return nil
	}
	next := d.future[len(d.future)-1]
	d.future = d.future[:len(d.future)-1]

	res := d.Dispatch(next.Type, next.Payload, next.Seed)
	if !res.OK {
		return nil
	}
	event.Publish(d.bus, event.EngineRedo, *res.Action)
	return res.Action
}

// RestoreHistory replaces the history/future lists as-is, for audit —
// spec.md §6: "history is restored as-is for audit but is not re-applied."
func (d *Dispatcher) RestoreHistory(history []Action) {
	d.history = append([]Action(nil), history...)
	d.future = d.future[:0]
}

// Apply runs a handler directly against the current Chronicle state without
// recording history or running policies — the Recorder's raw replay path
// (spec.md §4.7).
func (d *Dispatcher) Apply(actionType string, payload Payload) (any, error) {
	e, ok := d.native[actionType]
	var fn HandlerFunc
	if ok && e.offload != nil {
		fn = d.offloadedHandler(actionType, e.offload)
	} else if ok {
		fn = e.fn
	} else if d.fallback != nil {
		fb := d.fallback
		fn = func(ctx *Context, p Payload) (any, error) { return fb.Call(actionType, p) }
	} else {
		return nil, fmt.Errorf("unknown action type %q", actionType)
	}
	ctx := &Context{Chronicle: d.chron, Bus: d.bus, now: d.nowFn, recordTxn: d.recordTransaction}
	return d.safeInvoke(fn, ctx, payload)
}
