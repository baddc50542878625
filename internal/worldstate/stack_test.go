package worldstate

import "testing"

func tokens(ids ...string) []Token {
	out := make([]Token, len(ids))
	for i, id := range ids {
		out[i] = Token{ID: id}
	}
	return out
}

func TestStackDrawClampsToAvailable(t *testing.T) {
	s := NewStack(tokens("a", "b", "c"))
	drawn := s.Draw(10)
	if len(drawn) != 3 {
		t.Fatalf("drew %d, want 3 (clamped)", len(drawn))
	}
	if s.Size() != 0 {
		t.Fatalf("stack size = %d, want 0", s.Size())
	}
}

func TestStackDrawRemovesFromTop(t *testing.T) {
	s := NewStack(tokens("a", "b", "c"))
	drawn := s.Draw(1)
	if len(drawn) != 1 || drawn[0].ID != "a" {
		t.Fatalf("drew %+v, want [a]", drawn)
	}
	if s.Size() != 2 {
		t.Fatalf("stack size = %d, want 2", s.Size())
	}
}

func TestStackShuffleIsDeterministicForASeed(t *testing.T) {
	seed := int64(42)
	s1 := NewStack(tokens("a", "b", "c", "d", "e"))
	s2 := NewStack(tokens("a", "b", "c", "d", "e"))

	s1.Shuffle(&seed)
	s2.Shuffle(&seed)

	for i := range s1.Tokens {
		if s1.Tokens[i].ID != s2.Tokens[i].ID {
			t.Fatalf("same-seed shuffles diverged at index %d: %q vs %q", i, s1.Tokens[i].ID, s2.Tokens[i].ID)
		}
	}
}

func TestStackResetRestoresOriginalOrder(t *testing.T) {
	s := NewStack(tokens("a", "b", "c"))
	seed := int64(1)
	s.Shuffle(&seed)
	s.Draw(1)

	s.Reset()
	if s.Size() != 3 {
		t.Fatalf("size after reset = %d, want 3", s.Size())
	}
	for i, id := range []string{"a", "b", "c"} {
		if s.Tokens[i].ID != id {
			t.Fatalf("reset order[%d] = %q, want %q", i, s.Tokens[i].ID, id)
		}
	}
}

func TestStackCutTopToBottom(t *testing.T) {
	s := NewStack(tokens("a", "b", "c", "d"))
	if err := s.Cut(1, true); err != nil {
		t.Fatalf("cut: %v", err)
	}
	want := []string{"b", "c", "d", "a"}
	for i, id := range want {
		if s.Tokens[i].ID != id {
			t.Fatalf("order[%d] = %q, want %q", i, s.Tokens[i].ID, id)
		}
	}
}

func TestStackCutOutOfRangeErrors(t *testing.T) {
	s := NewStack(tokens("a", "b"))
	if err := s.Cut(5, true); err != ErrIndexOutOfRange {
		t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestStackCloneIsIndependent(t *testing.T) {
	s := NewStack(tokens("a", "b"))
	clone := s.Clone()
	clone.Draw(1)
	if s.Size() != 2 {
		t.Fatalf("mutating clone affected original: size = %d, want 2", s.Size())
	}
}
