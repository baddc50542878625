package dispatcher

import (
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/worldstate"
)

// collectionFrom resolves the "tokens|source" selector spec.md §3's
// batch/tokens actions share: an inline "tokens" list wins if present,
// otherwise "source" flattens the document's composite Source across all
// of its stacks. "zone" and "stack" are additive conveniences beyond the
// two literal options, letting a caller filter a single named zone or the
// document's lone Stack without first assembling an inline token list.
func collectionFrom(d *chronicle.Document, p Payload) []worldstate.Token {
	if toks := getTokenSlice(p, "tokens"); toks != nil {
		return toks
	}
	if getBool(p, "source", false) && d.Source != nil {
		var out []worldstate.Token
		for _, s := range d.Source.Stacks {
			out = append(out, s.Tokens...)
		}
		return out
	}
	if zone := getStringOpt(p, "zone", ""); zone != "" && d.Space != nil {
		if z, ok := d.Space.Zones[zone]; ok {
			out := make([]worldstate.Token, 0, len(z.Placements))
			for _, pl := range z.Placements {
				out = append(out, pl.Token)
			}
			return out
		}
	}
	if getBool(p, "stack", false) && d.Stack != nil {
		return append([]worldstate.Token(nil), d.Stack.Tokens...)
	}
	return nil
}

func registerBatchActions(disp *Dispatcher) {
	disp.Register("tokens:filter", false, func(ctx *Context, p Payload) (any, error) {
		pred := getMeta(p, "predicate")
		tokens := collectionFrom(ctx.Chronicle.State(), p)
		out := make([]worldstate.Token, 0, len(tokens))
		for _, t := range tokens {
			if evalPredicate(t, pred) {
				out = append(out, t)
			}
		}
		return out, nil
	})

	// tokens:map applies one of the three collection-wide operations
	// spec.md §3 enumerates to the tokens named in "tokens" (ids, resolved
	// live — unlike filter/count/find's read-only snapshot selector, map
	// mutates). "flip" toggles each token's FaceUp in place; "merge"
	// combines them into one new token exactly like token:merge with
	// keepOriginals=false; "unmerge" is merge's inverse, restoring a
	// previously merged token's original ids from its recorded MergedFrom
	// provenance (mirroring token:split, it returns the restored tokens
	// without re-placing them in any container).
	disp.Register("tokens:map", true, func(ctx *Context, p Payload) (any, error) {
		ids := getStringSlice(p, "tokens")
		operation := getStringOpt(p, "operation", "flip")
		var result any
		err := ctx.Chronicle.Change("tokens:map", func(d *chronicle.Document) error {
			switch operation {
			case "flip":
				out := make([]worldstate.Token, 0, len(ids))
				for _, id := range ids {
					tok, setter, ok := findTokenAnywhere(d, id)
					if !ok {
						return worldstate.ErrTokenNotFound
					}
					tok.FaceUp = !tok.FaceUp
					setter(tok)
					out = append(out, tok)
				}
				result = out
				return nil
			case "merge":
				if len(ids) < 2 {
					return worldstate.ErrInvalidMerge
				}
				merged := worldstate.Token{
					ID:         uuid.NewString(),
					FaceUp:     true,
					MergedFrom: append([]string(nil), ids...),
					Meta:       getMeta(p, "resultProperties"),
				}
				for _, id := range ids {
					removeTokenAnywhere(d, id)
				}
				result = merged
				return nil
			case "unmerge":
				var restored []worldstate.Token
				for _, id := range ids {
					tok, found := removeTokenAnywhere(d, id)
					if !found {
						return worldstate.ErrTokenNotFound
					}
					if len(tok.MergedFrom) == 0 {
						return worldstate.ErrInvalidOperation
					}
					for _, origID := range tok.MergedFrom {
						restored = append(restored, worldstate.Token{
							ID:        origID,
							Label:     tok.Label,
							Tags:      append([]string(nil), tok.Tags...),
							FaceUp:    true,
							SplitFrom: tok.ID,
						})
					}
				}
				result = restored
				return nil
			default:
				return worldstate.ErrInvalidOperation
			}
		})
		return result, err
	})

	// tokens:forEach applies an operation to every token the tokens|source
	// selector resolves, one at a time. Only "flip" makes sense applied to
	// a single token in isolation — "merge"/"unmerge" are collection-wide
	// operations and belong to tokens:map instead.
	disp.Register("tokens:forEach", true, func(ctx *Context, p Payload) (any, error) {
		operation := getStringOpt(p, "operation", "flip")
		if operation != "flip" {
			return nil, worldstate.ErrInvalidOperation
		}
		var count int
		err := ctx.Chronicle.Change("tokens:forEach", func(d *chronicle.Document) error {
			for _, t := range collectionFrom(d, p) {
				tok, setter, ok := findTokenAnywhere(d, t.ID)
				if !ok {
					continue
				}
				tok.FaceUp = !tok.FaceUp
				setter(tok)
				count++
			}
			return nil
		})
		return count, err
	})

	// tokens:collect unions every selector in "sources" (each one a
	// tokens|source|zone|stack selector, same shape collectionFrom already
	// understands) and optionally pulls in each result's attachments too.
	disp.Register("tokens:collect", false, func(ctx *Context, p Payload) (any, error) {
		d := ctx.Chronicle.State()
		sourcesRaw, _ := p["sources"].([]any)
		seen := make(map[string]bool)
		var out []worldstate.Token
		add := func(t worldstate.Token) {
			if seen[t.ID] {
				return
			}
			seen[t.ID] = true
			out = append(out, t)
		}
		for _, raw := range sourcesRaw {
			sel, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			for _, t := range collectionFrom(d, sel) {
				add(t)
			}
		}
		if getBool(p, "includeAttachments", false) {
			for _, t := range append([]worldstate.Token(nil), out...) {
				for _, aid := range t.Attachments {
					if a, _, ok := findTokenAnywhere(d, aid); ok {
						add(a)
					}
				}
			}
		}
		return out, nil
	})

	disp.Register("tokens:count", false, func(ctx *Context, p Payload) (any, error) {
		pred := getMeta(p, "predicate")
		tokens := collectionFrom(ctx.Chronicle.State(), p)
		n := 0
		for _, t := range tokens {
			if evalPredicate(t, pred) {
				n++
			}
		}
		return n, nil
	})

	disp.Register("tokens:find", false, func(ctx *Context, p Payload) (any, error) {
		pred := getMeta(p, "predicate")
		tokens := collectionFrom(ctx.Chronicle.State(), p)
		for _, t := range tokens {
			if evalPredicate(t, pred) {
				return t, nil
			}
		}
		return nil, nil
	})

	// batch:shuffle and batch:draw operate on caller-supplied deck arrays
	// rather than any named zone/stack in the Chronicle — spec.md §3 gives
	// them a decks[][] contract, not a zones/agents one, which makes them a
	// general multi-deck utility layered beside (not replacing) the
	// single-Stack stack:shuffle/stack:draw actions. They are registered
	// offloadable: the shuffle/draw math runs as a pure ComputeFunc so it
	// can race the worker pool, and is folded back into the live Chronicle
	// by a single Commit call (spec.md §8 scenario 6, §5 worker-offload
	// fallback) — though neither action actually needs to touch the
	// document, since their whole input and output travels in the payload.
	disp.RegisterOffloadable("batch:shuffle", false, computeBatchShuffle, commitBatchShuffle)
	disp.RegisterOffloadable("batch:draw", true, computeBatchDraw, commitBatchDraw)
}

func getTokenMatrix(p Payload, key string) [][]worldstate.Token {
	v, ok := p[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([][]worldstate.Token, 0, len(raw))
	for _, e := range raw {
		sub, ok := e.([]any)
		if !ok {
			out = append(out, nil)
			continue
		}
		out = append(out, getTokenSlice(Payload{"d": sub}, "d"))
	}
	return out
}

// deckSeed derives a deterministic per-deck seed from seedPrefix and the
// deck's index, so repeated dispatches with the same prefix reproduce the
// same shuffle for the same deck — spec.md §8's seed-determinism property,
// scaled across multiple independent decks sharing one prefix.
func deckSeed(seedPrefix string, index int) int64 {
	h := fnv.New64a()
	h.Write([]byte(seedPrefix))
	h.Write([]byte{byte(index), byte(index >> 8), byte(index >> 16), byte(index >> 24)})
	return int64(h.Sum64())
}

func computeBatchShuffle(_ *chronicle.Document, p Payload) (any, error) {
	decks := getTokenMatrix(p, "decks")
	seedPrefix := getStringOpt(p, "seedPrefix", "")
	out := make([][]worldstate.Token, len(decks))
	for i, deck := range decks {
		shuffled := append([]worldstate.Token(nil), deck...)
		var r *rand.Rand
		if seedPrefix != "" {
			r = rand.New(rand.NewSource(deckSeed(seedPrefix, i)))
		} else {
			r = rand.New(rand.NewSource(rand.Int63()))
		}
		r.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		out[i] = shuffled
	}
	return out, nil
}

func commitBatchShuffle(_ *chronicle.Document, _ Payload, data any) (any, error) {
	return data.([][]worldstate.Token), nil
}

type drawResult struct {
	drawn [][]worldstate.Token
	decks [][]worldstate.Token
}

func computeBatchDraw(_ *chronicle.Document, p Payload) (any, error) {
	decks := getTokenMatrix(p, "decks")
	counts := getIntSlice(p, "counts")
	if len(counts) != len(decks) {
		return nil, worldstate.ErrDeckCountMismatch
	}
	drawn := make([][]worldstate.Token, len(decks))
	remaining := make([][]worldstate.Token, len(decks))
	for i, deck := range decks {
		n := counts[i]
		if n > len(deck) {
			n = len(deck)
		}
		drawn[i] = append([]worldstate.Token(nil), deck[:n]...)
		remaining[i] = append([]worldstate.Token(nil), deck[n:]...)
	}
	return drawResult{drawn: drawn, decks: remaining}, nil
}

func commitBatchDraw(_ *chronicle.Document, _ Payload, data any) (any, error) {
	res := data.(drawResult)
	return map[string]any{"drawn": res.drawn, "decks": res.decks}, nil
}
