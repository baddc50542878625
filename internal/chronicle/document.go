package chronicle

import "github.com/l1jgo/simcore/internal/worldstate"

// Document is the Chronicle's single source of truth: the serializable
// slices of every world primitive, plus the rules.fired map that lets
// convergent "once" rules agree across peers (spec.md §3).
type Document struct {
	Stack      *worldstate.Stack             `json:"stack,omitempty"`
	Space      *worldstate.Space             `json:"space"`
	Source     *worldstate.Source            `json:"source,omitempty"`
	Agents     map[string]*worldstate.Agent   `json:"agents"`
	Game       *worldstate.GameState          `json:"game"`
	RulesFired map[string]int64               `json:"rulesFired"`

	// Version increments on every committed change and backs the
	// last-writer-wins convergence rule used by mergeRemote.
	Version int64 `json:"version"`
}

// NewDocument returns an empty document with initialized containers.
func NewDocument() *Document {
	return &Document{
		Space:      worldstate.NewSpace(),
		Agents:     make(map[string]*worldstate.Agent),
		Game:       worldstate.NewGameState(),
		RulesFired: make(map[string]int64),
	}
}

// Clone deep-copies the document so a mutator can be tried against a
// throwaway copy and discarded on error, leaving the live document
// untouched (spec.md §4.1: "mutators that throw leave the document
// unchanged").
func (d *Document) Clone() *Document {
	out := &Document{
		Version: d.Version,
	}
	if d.Stack != nil {
		out.Stack = d.Stack.Clone()
	}
	if d.Space != nil {
		out.Space = d.Space.Clone()
	}
	if d.Source != nil {
		out.Source = d.Source.Clone()
	}
	out.Agents = make(map[string]*worldstate.Agent, len(d.Agents))
	for name, a := range d.Agents {
		out.Agents[name] = a.Clone()
	}
	out.Game = d.Game.Clone()
	out.RulesFired = make(map[string]int64, len(d.RulesFired))
	for k, v := range d.RulesFired {
		out.RulesFired[k] = v
	}
	return out
}
