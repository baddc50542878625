package room

import (
	"crypto/rand"
	"fmt"
)

// crockford is Crockford's base32 alphabet: it keeps the digits 0 and 1 and
// drops the letters I, L and O that read like them (and U), so spoken-aloud
// room codes don't get mistyped.
const crockford = "ABCDEFGHJKMNPQRSTVWXYZ0123456789"

// generateCode returns an 8-character code shaped "ABCD-1234".
func generateCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	out := make([]byte, 8)
	for i, b := range buf {
		out[i] = crockford[int(b)%len(crockford)]
	}
	return fmt.Sprintf("%s-%s", out[:4], out[4:]), nil
}

// maxCodeAttempts bounds retries when a freshly generated code collides with
// a live room (spec.md §4.10: "collisions retry with a new random code up to
// a bounded number of attempts").
const maxCodeAttempts = 10
