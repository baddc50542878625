package worldstate

// Agent is a seat in the simulation: a stable identity with resources and
// an owned-token inventory. Resources never go negative.
type Agent struct {
	Name      string           `json:"name"`
	Active    bool             `json:"active"`
	Resources map[string]int64 `json:"resources"`
	Inventory []Token          `json:"inventory"`
	HandZone  string           `json:"handZone,omitempty"`
	Turn      int              `json:"turn"`
	Meta      map[string]any   `json:"meta,omitempty"`
}

func NewAgent(name string, meta map[string]any) *Agent {
	return &Agent{
		Name:      name,
		Active:    true,
		Resources: make(map[string]int64),
		Meta:      meta,
	}
}

func (a *Agent) Clone() *Agent {
	out := &Agent{
		Name:      a.Name,
		Active:    a.Active,
		Turn:      a.Turn,
		HandZone:  a.HandZone,
		Resources: make(map[string]int64, len(a.Resources)),
		Inventory: cloneTokens(a.Inventory),
	}
	for k, v := range a.Resources {
		out.Resources[k] = v
	}
	if a.Meta != nil {
		out.Meta = make(map[string]any, len(a.Meta))
		for k, v := range a.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

// GiveResource increases a resource balance.
func (a *Agent) GiveResource(resource string, amount int64) {
	a.Resources[resource] += amount
}

// TakeResource decreases a resource balance, clamped at zero. Returns the
// amount actually removed.
func (a *Agent) TakeResource(resource string, amount int64) int64 {
	have := a.Resources[resource]
	if amount > have {
		amount = have
	}
	a.Resources[resource] = have - amount
	return amount
}

func (a *Agent) AddToken(tok Token) {
	a.Inventory = append(a.Inventory, tok)
}

func (a *Agent) RemoveToken(tokenID string) (Token, error) {
	for i, t := range a.Inventory {
		if t.ID == tokenID {
			a.Inventory = append(a.Inventory[:i], a.Inventory[i+1:]...)
			return t, nil
		}
	}
	return Token{}, ErrTokenNotFound
}

func (a *Agent) HasToken(tokenID string) bool {
	for _, t := range a.Inventory {
		if t.ID == tokenID {
			return true
		}
	}
	return false
}
