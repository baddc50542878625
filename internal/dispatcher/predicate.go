package dispatcher

import "github.com/l1jgo/simcore/internal/worldstate"

// Predicate is the data-only matcher spec.md §3's batch/tokens actions take
// as their "predicate" field. It travels over the wire as a plain Payload
// (no closures survive JSON), the same open-shaped-map convention every
// other native action field uses. An absent or empty predicate matches
// every token.
//
// Recognized keys, all implicitly ANDed together:
//
//	tag         string   — token must carry this tag
//	label       string   — exact Label match
//	faceUp      bool     — exact FaceUp match
//	attachedTo  string   — exact AttachedTo match ("" means unattached)
//	meta        object   — every key/value must equal the token's Meta entry
//	not         object   — negates a nested predicate
//	any         [object] — at least one nested predicate matches (OR)
func evalPredicate(t worldstate.Token, pred Payload) bool {
	if len(pred) == 0 {
		return true
	}
	if tag, ok := pred["tag"].(string); ok && !t.HasTag(tag) {
		return false
	}
	if label, ok := pred["label"].(string); ok && t.Label != label {
		return false
	}
	if faceUp, ok := pred["faceUp"].(bool); ok && t.FaceUp != faceUp {
		return false
	}
	if attachedTo, ok := pred["attachedTo"].(string); ok && t.AttachedTo != attachedTo {
		return false
	}
	if meta, ok := pred["meta"].(map[string]any); ok {
		for k, v := range meta {
			if t.Meta == nil || t.Meta[k] != v {
				return false
			}
		}
	}
	if nested, ok := pred["not"].(map[string]any); ok && evalPredicate(t, nested) {
		return false
	}
	if anyRaw, ok := pred["any"].([]any); ok {
		matched := false
		for _, n := range anyRaw {
			if nested, ok := n.(map[string]any); ok && evalPredicate(t, nested) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
