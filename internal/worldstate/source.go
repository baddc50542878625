package worldstate

// Source is an ordered collection of Stacks acting as a composite draw
// pool (e.g. a casino shoe). Draws fall through to the next stack when the
// head stack empties.
type Source struct {
	Stacks []*Stack `json:"stacks"`
}

func NewSource(stacks ...*Stack) *Source {
	return &Source{Stacks: stacks}
}

func (src *Source) Clone() *Source {
	out := &Source{Stacks: make([]*Stack, len(src.Stacks))}
	for i, s := range src.Stacks {
		out.Stacks[i] = s.Clone()
	}
	return out
}

// Draw pulls one token from the head stack, falling through to subsequent
// stacks when the head is empty.
func (src *Source) Draw() (Token, error) {
	for _, s := range src.Stacks {
		if s.Size() > 0 {
			drawn := s.Draw(1)
			return drawn[0], nil
		}
	}
	return Token{}, ErrEmptyStack
}

func (src *Source) Shuffle(seed *int64) {
	for i, s := range src.Stacks {
		var stackSeed *int64
		if seed != nil {
			derived := *seed + int64(i)
			stackSeed = &derived
		}
		s.Shuffle(stackSeed)
	}
}

// Burn discards n tokens total from the head of the composite pool,
// falling through across stack boundaries.
func (src *Source) Burn(n int) []Token {
	burned := make([]Token, 0, n)
	for n > 0 {
		t, err := src.Draw()
		if err != nil {
			break
		}
		burned = append(burned, t)
		n--
	}
	return burned
}

func (src *Source) Reset() {
	for _, s := range src.Stacks {
		s.Reset()
	}
}

func (src *Source) AddStack(s *Stack) {
	src.Stacks = append(src.Stacks, s)
}

func (src *Source) RemoveStack(index int) (*Stack, error) {
	if index < 0 || index >= len(src.Stacks) {
		return nil, ErrIndexOutOfRange
	}
	s := src.Stacks[index]
	src.Stacks = append(src.Stacks[:index], src.Stacks[index+1:]...)
	return s, nil
}

type SourceInfo struct {
	StackCount int `json:"stackCount"`
	TotalCards int `json:"totalCards"`
}

func (src *Source) Inspect() SourceInfo {
	total := 0
	for _, s := range src.Stacks {
		total += s.Size()
	}
	return SourceInfo{StackCount: len(src.Stacks), TotalCards: total}
}
