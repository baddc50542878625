package room

import (
	"github.com/l1jgo/simcore/internal/engine"
)

// GameHooks supplies the domain-specific pieces the Room server can't derive
// from the core alone (spec.md §4.10): the registration/readiness/reset
// action types, per-seat valid-action queries, and observation filtering.
type GameHooks interface {
	// RegisterActionType names the action dispatched when a client seats,
	// carrying {clientId, seat}.
	RegisterActionType() string
	// ReadyActionType names the action a client dispatches between games.
	ReadyActionType() string
	// ResetActionType names the action dispatched once every seat is ready.
	ResetActionType() string
	// ValidActions lists the action types legal for seat right now.
	ValidActions(e *engine.Engine, seat int) []string
	// ObserveState returns the state mirrored to seat, with any
	// seat-private information (e.g. other hands) filtered out.
	ObserveState(e *engine.Engine, seat int) any
}

// DefaultHooks is the generic fallback used when a consumer doesn't supply
// domain hooks: every seat sees the full raw Chronicle document and the
// dispatcher's full advisory action menu, and registration/ready/reset are
// no-ops. Real games should supply their own GameHooks.
type DefaultHooks struct{}

func (DefaultHooks) RegisterActionType() string { return "" }
func (DefaultHooks) ReadyActionType() string    { return "" }
func (DefaultHooks) ResetActionType() string    { return "" }

func (DefaultHooks) ValidActions(e *engine.Engine, seat int) []string {
	descs := e.AvailableActions()
	out := make([]string, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.Type)
	}
	return out
}

func (DefaultHooks) ObserveState(e *engine.Engine, seat int) any {
	return e.Chronicle().State()
}
