package dispatcher

import (
	"github.com/l1jgo/simcore/internal/chronicle"
)

func registerGameActions(disp *Dispatcher) {
	disp.Register("game:start", false, func(ctx *Context, p Payload) (any, error) {
		return nil, ctx.Chronicle.Change("game:start", func(d *chronicle.Document) error {
			d.Game.Started = true
			d.Game.Ended = false
			d.Game.Paused = false
			d.Game.StartTime = ctx.Now().UnixMilli()
			if d.Game.Phase == "" {
				d.Game.Phase = "setup"
			}
			return nil
		})
	})

	disp.Register("game:end", false, func(ctx *Context, p Payload) (any, error) {
		winner := getStringOpt(p, "winner", "")
		return nil, ctx.Chronicle.Change("game:end", func(d *chronicle.Document) error {
			d.Game.Ended = true
			d.Game.Winner = winner
			return nil
		})
	})

	disp.Register("game:pause", false, func(ctx *Context, p Payload) (any, error) {
		return nil, ctx.Chronicle.Change("game:pause", func(d *chronicle.Document) error {
			d.Game.Paused = true
			return nil
		})
	})

	disp.Register("game:resume", false, func(ctx *Context, p Payload) (any, error) {
		return nil, ctx.Chronicle.Change("game:resume", func(d *chronicle.Document) error {
			d.Game.Paused = false
			return nil
		})
	})

	disp.Register("game:nextPhase", false, func(ctx *Context, p Payload) (any, error) {
		explicit := getStringOpt(p, "phase", "")
		var phase string
		err := ctx.Chronicle.Change("game:nextPhase", func(d *chronicle.Document) error {
			phase = d.Game.NextPhase(explicit)
			return nil
		})
		return phase, err
	})

	disp.Register("game:setProperty", false, func(ctx *Context, p Payload) (any, error) {
		key, err := getString(p, "key")
		if err != nil {
			return nil, err
		}
		value := p["value"]
		return nil, ctx.Chronicle.Change("game:setProperty", func(d *chronicle.Document) error {
			d.Game.Set(key, value)
			return nil
		})
	})

	disp.Register("game:getState", false, func(ctx *Context, p Payload) (any, error) {
		return ctx.Chronicle.State().Game, nil
	})
}
