package dispatcher

import (
	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/worldstate"
)

func requireAgent(d *chronicle.Document, name string) (*worldstate.Agent, error) {
	a, ok := d.Agents[name]
	if !ok {
		return nil, worldstate.ErrAgentNotFound
	}
	return a, nil
}

func registerAgentActions(disp *Dispatcher) {
	disp.Register("agent:create", false, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		meta := getMeta(p, "meta")
		var created *worldstate.Agent
		err = ctx.Chronicle.Change("agent:create", func(d *chronicle.Document) error {
			if _, exists := d.Agents[name]; exists {
				return worldstate.ErrAgentExists
			}
			created = worldstate.NewAgent(name, meta)
			d.Agents[name] = created
			return nil
		})
		return created, err
	})

	disp.Register("agent:remove", false, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		return nil, ctx.Chronicle.Change("agent:remove", func(d *chronicle.Document) error {
			if _, err := requireAgent(d, name); err != nil {
				return err
			}
			delete(d.Agents, name)
			return nil
		})
	})

	disp.Register("agent:setActive", false, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		active := getBool(p, "active", true)
		return nil, ctx.Chronicle.Change("agent:setActive", func(d *chronicle.Document) error {
			a, err := requireAgent(d, name)
			if err != nil {
				return err
			}
			a.Active = active
			return nil
		})
	})

	disp.Register("agent:giveResource", true, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		resource, err := getString(p, "resource")
		if err != nil {
			return nil, err
		}
		amount := getInt64(p, "amount", 1)
		return nil, ctx.Chronicle.Change("agent:giveResource", func(d *chronicle.Document) error {
			a, err := requireAgent(d, name)
			if err != nil {
				return err
			}
			a.GiveResource(resource, amount)
			return nil
		})
	})

	disp.Register("agent:takeResource", true, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		resource, err := getString(p, "resource")
		if err != nil {
			return nil, err
		}
		amount := getInt64(p, "amount", 1)
		var taken int64
		err = ctx.Chronicle.Change("agent:takeResource", func(d *chronicle.Document) error {
			a, err := requireAgent(d, name)
			if err != nil {
				return err
			}
			taken = a.TakeResource(resource, amount)
			return nil
		})
		return taken, err
	})

	disp.Register("agent:addToken", true, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		tok, err := getToken(p, "token")
		if err != nil {
			return nil, err
		}
		return nil, ctx.Chronicle.Change("agent:addToken", func(d *chronicle.Document) error {
			a, err := requireAgent(d, name)
			if err != nil {
				return err
			}
			a.AddToken(tok)
			return nil
		})
	})

	disp.Register("agent:removeToken", true, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		tokenID, err := getString(p, "tokenId")
		if err != nil {
			return nil, err
		}
		var removed worldstate.Token
		err = ctx.Chronicle.Change("agent:removeToken", func(d *chronicle.Document) error {
			a, err := requireAgent(d, name)
			if err != nil {
				return err
			}
			removed, err = a.RemoveToken(tokenID)
			return err
		})
		return removed, err
	})

	disp.Register("agent:drawCards", true, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		count := getInt(p, "count", 1)
		from := getStringOpt(p, "source", "stack")
		var drawn []worldstate.Token
		err = ctx.Chronicle.Change("agent:drawCards", func(d *chronicle.Document) error {
			a, err := requireAgent(d, name)
			if err != nil {
				return err
			}
			switch from {
			case "source":
				src, err := requireSource(d)
				if err != nil {
					return err
				}
				for i := 0; i < count; i++ {
					t, err := src.Draw()
					if err != nil {
						break
					}
					drawn = append(drawn, t)
				}
			default:
				s, err := requireStack(d)
				if err != nil {
					return err
				}
				drawn = s.Draw(count)
			}
			for _, t := range drawn {
				a.AddToken(t)
			}
			return nil
		})
		return drawn, err
	})

	disp.Register("agent:discardCards", true, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		ids := getStringSlice(p, "cards")
		var discarded []worldstate.Token
		err = ctx.Chronicle.Change("agent:discardCards", func(d *chronicle.Document) error {
			a, err := requireAgent(d, name)
			if err != nil {
				return err
			}
			for _, id := range ids {
				t, err := a.RemoveToken(id)
				if err != nil {
					continue
				}
				discarded = append(discarded, t)
			}
			return nil
		})
		return discarded, err
	})

	disp.Register("agent:get", false, func(ctx *Context, p Payload) (any, error) {
		name, err := getString(p, "name")
		if err != nil {
			return nil, err
		}
		return requireAgent(ctx.Chronicle.State(), name)
	})

	disp.Register("agent:getAll", false, func(ctx *Context, p Payload) (any, error) {
		doc := ctx.Chronicle.State()
		out := make([]*worldstate.Agent, 0, len(doc.Agents))
		for _, a := range doc.Agents {
			out = append(out, a)
		}
		return out, nil
	})

	disp.Register("agent:transferResource", true, func(ctx *Context, p Payload) (any, error) {
		from, err := getString(p, "from")
		if err != nil {
			return nil, err
		}
		to, err := getString(p, "to")
		if err != nil {
			return nil, err
		}
		resource, err := getString(p, "resource")
		if err != nil {
			return nil, err
		}
		amount := getInt64(p, "amount", 0)
		var txn worldstate.Transaction
		err = ctx.Chronicle.Change("agent:transferResource", func(d *chronicle.Document) error {
			src, err := requireAgent(d, from)
			if err != nil {
				return err
			}
			dst, err := requireAgent(d, to)
			if err != nil {
				return err
			}
			if src.Resources[resource] < amount {
				return worldstate.ErrInsufficientResource
			}
			src.TakeResource(resource, amount)
			dst.GiveResource(resource, amount)
			txn = worldstate.Transaction{Type: "transfer", From: from, To: to, Resource: resource, Amount: amount}
			return nil
		})
		if err == nil {
			ctx.RecordTransaction(txn)
		}
		return txn, err
	})

	disp.Register("agent:transferToken", true, func(ctx *Context, p Payload) (any, error) {
		from, err := getString(p, "from")
		if err != nil {
			return nil, err
		}
		to, err := getString(p, "to")
		if err != nil {
			return nil, err
		}
		tokenID, err := getString(p, "tokenId")
		if err != nil {
			return nil, err
		}
		var txn worldstate.Transaction
		err = ctx.Chronicle.Change("agent:transferToken", func(d *chronicle.Document) error {
			src, err := requireAgent(d, from)
			if err != nil {
				return err
			}
			dst, err := requireAgent(d, to)
			if err != nil {
				return err
			}
			tok, err := src.RemoveToken(tokenID)
			if err != nil {
				return err
			}
			dst.AddToken(tok)
			txn = worldstate.Transaction{Type: "transfer", From: from, To: to, TokenID: tokenID}
			return nil
		})
		if err == nil {
			ctx.RecordTransaction(txn)
		}
		return txn, err
	})

	disp.Register("agent:stealResource", true, func(ctx *Context, p Payload) (any, error) {
		from, err := getString(p, "from")
		if err != nil {
			return nil, err
		}
		to, err := getString(p, "to")
		if err != nil {
			return nil, err
		}
		resource, err := getString(p, "resource")
		if err != nil {
			return nil, err
		}
		amount := getInt64(p, "amount", 0)
		var txn worldstate.Transaction
		err = ctx.Chronicle.Change("agent:stealResource", func(d *chronicle.Document) error {
			src, err := requireAgent(d, from)
			if err != nil {
				return err
			}
			dst, err := requireAgent(d, to)
			if err != nil {
				return err
			}
			taken := src.TakeResource(resource, amount)
			dst.GiveResource(resource, taken)
			txn = worldstate.Transaction{Type: "steal", From: from, To: to, Resource: resource, Amount: taken}
			return nil
		})
		if err == nil {
			ctx.RecordTransaction(txn)
		}
		return txn, err
	})

	disp.Register("agent:stealToken", true, func(ctx *Context, p Payload) (any, error) {
		from, err := getString(p, "from")
		if err != nil {
			return nil, err
		}
		to, err := getString(p, "to")
		if err != nil {
			return nil, err
		}
		tokenID, err := getString(p, "tokenId")
		if err != nil {
			return nil, err
		}
		var txn worldstate.Transaction
		err = ctx.Chronicle.Change("agent:stealToken", func(d *chronicle.Document) error {
			src, err := requireAgent(d, from)
			if err != nil {
				return err
			}
			dst, err := requireAgent(d, to)
			if err != nil {
				return err
			}
			tok, err := src.RemoveToken(tokenID)
			if err != nil {
				return err
			}
			dst.AddToken(tok)
			txn = worldstate.Transaction{Type: "steal", From: from, To: to, TokenID: tokenID}
			return nil
		})
		if err == nil {
			ctx.RecordTransaction(txn)
		}
		return txn, err
	})

	disp.Register("agent:trade", true, func(ctx *Context, p Payload) (any, error) {
		agent1, err := getString(p, "agent1")
		if err != nil {
			return nil, err
		}
		agent2, err := getString(p, "agent2")
		if err != nil {
			return nil, err
		}
		offer1 := getMeta(p, "offer1")
		offer2 := getMeta(p, "offer2")
		var txn worldstate.Transaction
		err = ctx.Chronicle.Change("agent:trade", func(d *chronicle.Document) error {
			a1, err := requireAgent(d, agent1)
			if err != nil {
				return err
			}
			a2, err := requireAgent(d, agent2)
			if err != nil {
				return err
			}
			// Validate both sides can afford their offer before mutating
			// anything — the trade is atomic: both succeed or both fail.
			if err := canAfford(a1, offer1); err != nil {
				return err
			}
			if err := canAfford(a2, offer2); err != nil {
				return err
			}
			settle(a1, a2, offer1)
			settle(a2, a1, offer2)
			txn = worldstate.Transaction{Type: "trade", From: agent1, To: agent2}
			return nil
		})
		if err == nil {
			ctx.RecordTransaction(txn)
		}
		return txn, err
	})
}

func canAfford(a *worldstate.Agent, offer map[string]any) error {
	for resource, v := range offer {
		amount, ok := asInt64(v)
		if !ok {
			continue
		}
		if a.Resources[resource] < amount {
			return worldstate.ErrInsufficientResource
		}
	}
	return nil
}

func settle(from, to *worldstate.Agent, offer map[string]any) {
	for resource, v := range offer {
		amount, ok := asInt64(v)
		if !ok {
			continue
		}
		from.TakeResource(resource, amount)
		to.GiveResource(resource, amount)
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
