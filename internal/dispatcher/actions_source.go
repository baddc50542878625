package dispatcher

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/worldstate"
)

func requireSource(d *chronicle.Document) (*worldstate.Source, error) {
	if d.Source == nil {
		return nil, fmt.Errorf("no source attached to this engine")
	}
	return d.Source, nil
}

func registerSourceActions(disp *Dispatcher) {
	disp.Register("source:draw", true, func(ctx *Context, p Payload) (any, error) {
		var tok worldstate.Token
		err := ctx.Chronicle.Change("source:draw", func(d *chronicle.Document) error {
			src, err := requireSource(d)
			if err != nil {
				return err
			}
			tok, err = src.Draw()
			return err
		})
		return tok, err
	})

	disp.Register("source:shuffle", false, func(ctx *Context, p Payload) (any, error) {
		seed := getSeed(p, "seed")
		return nil, ctx.Chronicle.Change("source:shuffle", func(d *chronicle.Document) error {
			src, err := requireSource(d)
			if err != nil {
				return err
			}
			src.Shuffle(seed)
			return nil
		})
	})

	disp.Register("source:burn", true, func(ctx *Context, p Payload) (any, error) {
		count := getInt(p, "count", 1)
		return nil, ctx.Chronicle.Change("source:burn", func(d *chronicle.Document) error {
			src, err := requireSource(d)
			if err != nil {
				return err
			}
			src.Burn(count)
			return nil
		})
	})

	disp.Register("source:reset", false, func(ctx *Context, p Payload) (any, error) {
		return nil, ctx.Chronicle.Change("source:reset", func(d *chronicle.Document) error {
			src, err := requireSource(d)
			if err != nil {
				return err
			}
			src.Reset()
			return nil
		})
	})

	disp.Register("source:addStack", false, func(ctx *Context, p Payload) (any, error) {
		toks := getTokenSlice(p, "stack")
		return nil, ctx.Chronicle.Change("source:addStack", func(d *chronicle.Document) error {
			if d.Source == nil {
				d.Source = worldstate.NewSource()
			}
			d.Source.AddStack(worldstate.NewStack(toks))
			return nil
		})
	})

	disp.Register("source:removeStack", false, func(ctx *Context, p Payload) (any, error) {
		index := getInt(p, "index", 0)
		var removed *worldstate.Stack
		err := ctx.Chronicle.Change("source:removeStack", func(d *chronicle.Document) error {
			src, err := requireSource(d)
			if err != nil {
				return err
			}
			removed, err = src.RemoveStack(index)
			return err
		})
		return removed, err
	})

	disp.Register("source:inspect", false, func(ctx *Context, p Payload) (any, error) {
		src, err := requireSource(ctx.Chronicle.State())
		if err != nil {
			return nil, err
		}
		return src.Inspect(), nil
	})
}
