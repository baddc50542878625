package dispatcher

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/worldstate"
)

// The get* helpers pull typed fields out of an open-shaped Payload,
// returning an input error (spec.md §7 category 1) when a required field is
// missing or the wrong shape — mirroring how the fallback/native split
// treats payloads as dynamic data rather than compiled structs.

func getString(p Payload, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	return s, nil
}

func getStringOpt(p Payload, key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func getInt(p Payload, key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func getInt64(p Payload, key string, def int64) int64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return def
}

func getBool(p Payload, key string, def bool) bool {
	if v, ok := p[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func getFloat(p Payload, key string, def float64) float64 {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func getFloatPtr(p Payload, key string) *float64 {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case float64:
			f := n
			return &f
		case int:
			f := float64(n)
			return &f
		}
	}
	return nil
}

func getBoolPtr(p Payload, key string) *bool {
	if v, ok := p[key]; ok {
		if b, ok := v.(bool); ok {
			return &b
		}
	}
	return nil
}

func getSeed(p Payload, key string) *int64 {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case int64:
			s := n
			return &s
		case int:
			s := int64(n)
			return &s
		case float64:
			s := int64(n)
			return &s
		}
	}
	return nil
}

func getStringSlice(p Payload, key string) []string {
	v, ok := p[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func getIntSlice(p Payload, key string) []int {
	v, ok := p[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, e := range raw {
		switch n := e.(type) {
		case int:
			out = append(out, n)
		case int64:
			out = append(out, int(n))
		case float64:
			out = append(out, int(n))
		}
	}
	return out
}

func getToken(p Payload, key string) (worldstate.Token, error) {
	v, ok := p[key]
	if !ok {
		return worldstate.Token{}, fmt.Errorf("missing required field %q", key)
	}
	switch t := v.(type) {
	case worldstate.Token:
		return t, nil
	case map[string]any:
		tok := worldstate.Token{}
		tok.ID = getStringOpt(t, "id", "")
		tok.Label = getStringOpt(t, "label", "")
		tok.Tags = getStringSlice(t, "tags")
		tok.FaceUp = getBool(t, "faceUp", true)
		if meta, ok := t["meta"].(map[string]any); ok {
			tok.Meta = meta
		}
		return tok, nil
	default:
		return worldstate.Token{}, fmt.Errorf("field %q must be a token", key)
	}
}

func getTokenSlice(p Payload, key string) []worldstate.Token {
	v, ok := p[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]worldstate.Token, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		tok, err := getToken(Payload{"t": m}, "t")
		if err != nil {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func getMeta(p Payload, key string) map[string]any {
	if v, ok := p[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
