package dispatcher

import (
	"github.com/google/uuid"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/worldstate"
)

// findTokenAnywhere locates a token by id across the stack, space and every
// agent inventory, returning a mutable pointer-free copy plus a setter that
// writes a replacement back into the same container.
func findTokenAnywhere(d *chronicle.Document, id string) (worldstate.Token, func(worldstate.Token), bool) {
	if d.Stack != nil {
		for i, t := range d.Stack.Tokens {
			if t.ID == id {
				idx := i
				return t, func(nt worldstate.Token) { d.Stack.Tokens[idx] = nt }, true
			}
		}
	}
	if d.Space != nil {
		for _, z := range d.Space.Zones {
			for i, pl := range z.Placements {
				if pl.Token.ID == id {
					idx := i
					zone := z
					return pl.Token, func(nt worldstate.Token) { zone.Placements[idx].Token = nt }, true
				}
			}
		}
	}
	for _, a := range d.Agents {
		for i, t := range a.Inventory {
			if t.ID == id {
				idx := i
				agent := a
				return t, func(nt worldstate.Token) { agent.Inventory[idx] = nt }, true
			}
		}
	}
	return worldstate.Token{}, nil, false
}

func removeTokenAnywhere(d *chronicle.Document, id string) (worldstate.Token, bool) {
	if d.Stack != nil {
		for i, t := range d.Stack.Tokens {
			if t.ID == id {
				d.Stack.Tokens = append(d.Stack.Tokens[:i], d.Stack.Tokens[i+1:]...)
				return t, true
			}
		}
	}
	if d.Space != nil {
		for _, z := range d.Space.Zones {
			for i, pl := range z.Placements {
				if pl.Token.ID == id {
					z.Placements = append(z.Placements[:i], z.Placements[i+1:]...)
					return pl.Token, true
				}
			}
		}
	}
	for _, a := range d.Agents {
		if t, err := a.RemoveToken(id); err == nil {
			return t, true
		}
	}
	return worldstate.Token{}, false
}

func registerTokenActions(disp *Dispatcher) {
	disp.Register("token:transform", true, func(ctx *Context, p Payload) (any, error) {
		tokenID, err := getString(p, "token")
		if err != nil {
			return nil, err
		}
		props := getMeta(p, "properties")
		var updated worldstate.Token
		err = ctx.Chronicle.Change("token:transform", func(d *chronicle.Document) error {
			tok, setter, ok := findTokenAnywhere(d, tokenID)
			if !ok {
				return worldstate.ErrTokenNotFound
			}
			if tok.Meta == nil {
				tok.Meta = make(map[string]any, len(props))
			}
			for k, v := range props {
				tok.Meta[k] = v
			}
			setter(tok)
			updated = tok
			return nil
		})
		return updated, err
	})

	disp.Register("token:attach", true, func(ctx *Context, p Payload) (any, error) {
		hostID, err := getString(p, "host")
		if err != nil {
			return nil, err
		}
		attachmentID, err := getString(p, "attachment")
		if err != nil {
			return nil, err
		}
		attachType := getStringOpt(p, "attachmentType", "default")
		var host worldstate.Token
		err = ctx.Chronicle.Change("token:attach", func(d *chronicle.Document) error {
			h, setH, ok := findTokenAnywhere(d, hostID)
			if !ok {
				return worldstate.ErrTokenNotFound
			}
			a, setA, ok := findTokenAnywhere(d, attachmentID)
			if !ok {
				return worldstate.ErrTokenNotFound
			}
			h.Attachments = append(h.Attachments, attachmentID)
			a.AttachedTo = hostID
			if a.Meta == nil {
				a.Meta = map[string]any{}
			}
			a.Meta["attachmentType"] = attachType
			setH(h)
			setA(a)
			host = h
			return nil
		})
		return host, err
	})

	disp.Register("token:detach", true, func(ctx *Context, p Payload) (any, error) {
		hostID, err := getString(p, "host")
		if err != nil {
			return nil, err
		}
		attachmentID := getStringOpt(p, "attachmentId", getStringOpt(p, "attachment", ""))
		var detached worldstate.Token
		var found bool
		err = ctx.Chronicle.Change("token:detach", func(d *chronicle.Document) error {
			h, setH, ok := findTokenAnywhere(d, hostID)
			if !ok {
				return worldstate.ErrTokenNotFound
			}
			for i, aid := range h.Attachments {
				if aid == attachmentID {
					h.Attachments = append(h.Attachments[:i], h.Attachments[i+1:]...)
					break
				}
			}
			setH(h)
			if a, setA, ok := findTokenAnywhere(d, attachmentID); ok {
				a.AttachedTo = ""
				setA(a)
				detached = a
				found = true
			}
			return nil
		})
		if !found {
			return nil, err
		}
		return detached, err
	})

	disp.Register("token:merge", true, func(ctx *Context, p Payload) (any, error) {
		ids := getStringSlice(p, "tokens")
		if len(ids) < 2 {
			return nil, worldstate.ErrInvalidMerge
		}
		props := getMeta(p, "resultProperties")
		keepOriginals := getBool(p, "keepOriginals", false)
		var merged worldstate.Token
		err := ctx.Chronicle.Change("token:merge", func(d *chronicle.Document) error {
			merged = worldstate.Token{
				ID:         uuid.NewString(),
				FaceUp:     true,
				MergedFrom: append([]string(nil), ids...),
				Meta:       props,
			}
			for _, id := range ids {
				if keepOriginals {
					tok, setter, ok := findTokenAnywhere(d, id)
					if ok {
						tok.MergedInto = merged.ID
						setter(tok)
					}
					continue
				}
				removeTokenAnywhere(d, id)
			}
			return nil
		})
		return merged, err
	})

	disp.Register("token:split", true, func(ctx *Context, p Payload) (any, error) {
		tokenID, err := getString(p, "token")
		if err != nil {
			return nil, err
		}
		count := getInt(p, "count", 2)
		if count < 2 {
			return nil, worldstate.ErrInvalidSplit
		}
		props := getMeta(p, "properties")
		var parts []worldstate.Token
		err = ctx.Chronicle.Change("token:split", func(d *chronicle.Document) error {
			orig, found := removeTokenAnywhere(d, tokenID)
			if !found {
				return worldstate.ErrTokenNotFound
			}
			ids := make([]string, count)
			for i := 0; i < count; i++ {
				ids[i] = uuid.NewString()
			}
			for i := 0; i < count; i++ {
				t := worldstate.Token{
					ID:         ids[i],
					Label:      orig.Label,
					Tags:       append([]string(nil), orig.Tags...),
					FaceUp:     orig.FaceUp,
					SplitFrom:  orig.ID,
					SplitInto:  ids,
					SplitIndex: i,
					Meta:       props,
				}
				parts = append(parts, t)
			}
			return nil
		})
		return parts, err
	})
}
