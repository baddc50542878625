package dispatcher

import "github.com/l1jgo/simcore/internal/worldstate"

// registerNativeActions wires every built-in action family into d (spec.md
// §4.3's ~68 native actions). Called once from New.
func registerNativeActions(d *Dispatcher) {
	registerStackActions(d)
	registerSpaceActions(d)
	registerSourceActions(d)
	registerAgentActions(d)
	registerTokenActions(d)
	registerGameActions(d)
	registerBatchActions(d)
	registerDebugActions(d)
}

func registerDebugActions(disp *Dispatcher) {
	// debug:snapshot dumps the live document for inspection tools; it never
	// touches Chronicle.Change since it performs no mutation.
	disp.Register("debug:snapshot", false, func(ctx *Context, p Payload) (any, error) {
		return ctx.Chronicle.State(), nil
	})

	disp.Register("debug:history", false, func(ctx *Context, p Payload) (any, error) {
		return struct {
			History      []Action               `json:"history"`
			Future       []Action               `json:"future"`
			Transactions []worldstate.Transaction `json:"transactions"`
		}{
			History:      disp.History(),
			Future:       disp.Future(),
			Transactions: disp.Transactions(),
		}, nil
	})
}
