package dispatcher

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/worldstate"
)

func requireStack(d *chronicle.Document) (*worldstate.Stack, error) {
	if d.Stack == nil {
		return nil, fmt.Errorf("no stack attached to this engine")
	}
	return d.Stack, nil
}

func registerStackActions(disp *Dispatcher) {
	disp.Register("stack:shuffle", false, func(ctx *Context, p Payload) (any, error) {
		seed := getSeed(p, "seed")
		return nil, ctx.Chronicle.Change("stack:shuffle", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			s.Shuffle(seed)
			return nil
		})
	})

	disp.Register("stack:draw", true, func(ctx *Context, p Payload) (any, error) {
		count := getInt(p, "count", 1)
		var drawn []worldstate.Token
		err := ctx.Chronicle.Change("stack:draw", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			drawn = s.Draw(count)
			return nil
		})
		return drawn, err
	})

	disp.Register("stack:reset", false, func(ctx *Context, p Payload) (any, error) {
		return nil, ctx.Chronicle.Change("stack:reset", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			s.Reset()
			return nil
		})
	})

	disp.Register("stack:burn", true, func(ctx *Context, p Payload) (any, error) {
		count := getInt(p, "count", 1)
		return nil, ctx.Chronicle.Change("stack:burn", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			s.Burn(count)
			return nil
		})
	})

	disp.Register("stack:peek", false, func(ctx *Context, p Payload) (any, error) {
		count := getInt(p, "count", 1)
		s, err := requireStack(ctx.Chronicle.State())
		if err != nil {
			return nil, err
		}
		return s.Peek(count), nil
	})

	disp.Register("stack:cut", true, func(ctx *Context, p Payload) (any, error) {
		position := getInt(p, "position", 0)
		topToBottom := getBool(p, "topToBottom", true)
		return nil, ctx.Chronicle.Change("stack:cut", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			return s.Cut(position, topToBottom)
		})
	})

	disp.Register("stack:insertAt", true, func(ctx *Context, p Payload) (any, error) {
		tok, err := getToken(p, "card")
		if err != nil {
			return nil, err
		}
		position := getInt(p, "position", 0)
		return nil, ctx.Chronicle.Change("stack:insertAt", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			return s.InsertAt(tok, position)
		})
	})

	disp.Register("stack:removeAt", true, func(ctx *Context, p Payload) (any, error) {
		position := getInt(p, "position", 0)
		var removed worldstate.Token
		err := ctx.Chronicle.Change("stack:removeAt", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			removed, err = s.RemoveAt(position)
			return err
		})
		return removed, err
	})

	disp.Register("stack:swap", true, func(ctx *Context, p Payload) (any, error) {
		p1 := getInt(p, "position1", 0)
		p2 := getInt(p, "position2", 0)
		return nil, ctx.Chronicle.Change("stack:swap", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			return s.Swap(p1, p2)
		})
	})

	disp.Register("stack:reverse", true, func(ctx *Context, p Payload) (any, error) {
		return nil, ctx.Chronicle.Change("stack:reverse", func(d *chronicle.Document) error {
			s, err := requireStack(d)
			if err != nil {
				return err
			}
			s.Reverse()
			return nil
		})
	})
}
