package worldstate

import "strconv"

// idFromCounter builds a short, deterministic, prefix-tagged identifier from
// a monotonic counter. Used for placement ids, where determinism (not
// global uniqueness) is what snapshot round-tripping and replay require.
func idFromCounter(prefix string, n int) string {
	return prefix + "-" + strconv.Itoa(n)
}
