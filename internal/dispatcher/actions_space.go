package dispatcher

import (
	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/worldstate"
)

func registerSpaceActions(disp *Dispatcher) {
	disp.Register("space:place", true, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		tok, err := getToken(p, "token")
		if err != nil {
			return nil, err
		}
		opts := worldstate.PlaceOpts{
			X:      getFloatPtr(p, "x"),
			Y:      getFloatPtr(p, "y"),
			FaceUp: getBoolPtr(p, "faceUp"),
			Label:  getStringOpt(p, "label", ""),
		}
		var placed worldstate.Placement
		err = ctx.Chronicle.Change("space:place", func(d *chronicle.Document) error {
			var err error
			placed, err = d.Space.Place(zone, tok, opts)
			return err
		})
		return placed, err
	})

	disp.Register("space:clear", true, func(ctx *Context, p Payload) (any, error) {
		return nil, ctx.Chronicle.Change("space:clear", func(d *chronicle.Document) error {
			d.Space.Clear()
			return nil
		})
	})

	disp.Register("space:move", true, func(ctx *Context, p Payload) (any, error) {
		from, err := getString(p, "from")
		if err != nil {
			return nil, err
		}
		to, err := getString(p, "to")
		if err != nil {
			return nil, err
		}
		placement, err := getString(p, "placement")
		if err != nil {
			return nil, err
		}
		x := getFloatPtr(p, "x")
		y := getFloatPtr(p, "y")
		var moved worldstate.Placement
		err = ctx.Chronicle.Change("space:move", func(d *chronicle.Document) error {
			var err error
			moved, err = d.Space.Move(from, to, placement, x, y)
			return err
		})
		return moved, err
	})

	disp.Register("space:flip", true, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		placement, err := getString(p, "placement")
		if err != nil {
			return nil, err
		}
		faceUp := getBoolPtr(p, "faceUp")
		var flipped worldstate.Placement
		err = ctx.Chronicle.Change("space:flip", func(d *chronicle.Document) error {
			var err error
			flipped, err = d.Space.Flip(zone, placement, faceUp)
			return err
		})
		return flipped, err
	})

	disp.Register("space:remove", true, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		placement, err := getString(p, "placement")
		if err != nil {
			return nil, err
		}
		var removed worldstate.Placement
		err = ctx.Chronicle.Change("space:remove", func(d *chronicle.Document) error {
			var err error
			removed, err = d.Space.Remove(zone, placement)
			return err
		})
		return removed, err
	})

	disp.Register("space:createZone", false, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		meta := getMeta(p, "meta")
		return nil, ctx.Chronicle.Change("space:createZone", func(d *chronicle.Document) error {
			return d.Space.CreateZone(name, meta)
		})
	})

	disp.Register("space:deleteZone", false, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		return nil, ctx.Chronicle.Change("space:deleteZone", func(d *chronicle.Document) error {
			return d.Space.DeleteZone(name)
		})
	})

	disp.Register("space:clearZone", true, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		return nil, ctx.Chronicle.Change("space:clearZone", func(d *chronicle.Document) error {
			return d.Space.ClearZone(zone)
		})
	})

	disp.Register("space:shuffleZone", false, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		seed := getSeed(p, "seed")
		return nil, ctx.Chronicle.Change("space:shuffleZone", func(d *chronicle.Document) error {
			return d.Space.ShuffleZone(zone, seed)
		})
	})

	disp.Register("space:transferZone", true, func(ctx *Context, p Payload) (any, error) {
		from, err := getString(p, "from")
		if err != nil {
			return nil, err
		}
		to, err := getString(p, "to")
		if err != nil {
			return nil, err
		}
		return nil, ctx.Chronicle.Change("space:transferZone", func(d *chronicle.Document) error {
			return d.Space.TransferZone(from, to)
		})
	})

	disp.Register("space:fanZone", false, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		centerX := getFloat(p, "centerX", 0)
		centerY := getFloat(p, "centerY", 0)
		radius := getFloat(p, "radius", 100)
		arcAngle := getFloat(p, "arcAngle", 120)
		return nil, ctx.Chronicle.Change("space:fanZone", func(d *chronicle.Document) error {
			return d.Space.FanZone(zone, centerX, centerY, radius, arcAngle)
		})
	})

	disp.Register("space:stackZone", false, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		x := getFloat(p, "x", 0)
		y := getFloat(p, "y", 0)
		offsetY := getFloat(p, "offsetY", 1)
		return nil, ctx.Chronicle.Change("space:stackZone", func(d *chronicle.Document) error {
			return d.Space.StackZone(zone, x, y, offsetY)
		})
	})

	disp.Register("space:spreadZone", false, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		startX := getFloat(p, "startX", 0)
		startY := getFloat(p, "startY", 0)
		spacing := getFloat(p, "spacing", 50)
		horizontal := getBool(p, "horizontal", true)
		return nil, ctx.Chronicle.Change("space:spreadZone", func(d *chronicle.Document) error {
			return d.Space.SpreadZone(zone, startX, startY, spacing, horizontal)
		})
	})

	disp.Register("space:lockZone", false, func(ctx *Context, p Payload) (any, error) {
		zone, err := getString(p, "zone")
		if err != nil {
			return nil, err
		}
		locked := getBool(p, "locked", true)
		return nil, ctx.Chronicle.Change("space:lockZone", func(d *chronicle.Document) error {
			return d.Space.LockZone(zone, locked)
		})
	})
}
