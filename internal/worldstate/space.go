package worldstate

import (
	"math"
	"math/rand"
	"sort"
)

// Placement binds a token to a zone with an optional 2D coordinate and
// face orientation. Placement ids are unique within their zone.
type Placement struct {
	ID     string `json:"id"`
	Token  Token  `json:"token"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	FaceUp bool    `json:"faceUp"`
}

// Zone is a named ordered sequence of placements. Locked zones reject
// mutations.
type Zone struct {
	Name       string         `json:"name"`
	Locked     bool           `json:"locked"`
	Tags       []string       `json:"tags,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	Placements []Placement    `json:"placements"`
}

// Space is a set of named zones — the zoned tabletop.
type Space struct {
	Zones map[string]*Zone `json:"zones"`

	nextPlacement int
}

func NewSpace() *Space {
	return &Space{Zones: make(map[string]*Zone)}
}

func (sp *Space) Clone() *Space {
	out := &Space{
		Zones:         make(map[string]*Zone, len(sp.Zones)),
		nextPlacement: sp.nextPlacement,
	}
	for name, z := range sp.Zones {
		nz := &Zone{
			Name:       z.Name,
			Locked:     z.Locked,
			Tags:       append([]string(nil), z.Tags...),
			Placements: make([]Placement, len(z.Placements)),
		}
		if z.Meta != nil {
			nz.Meta = make(map[string]any, len(z.Meta))
			for k, v := range z.Meta {
				nz.Meta[k] = v
			}
		}
		for i, p := range z.Placements {
			nz.Placements[i] = Placement{ID: p.ID, Token: p.Token.Clone(), X: p.X, Y: p.Y, FaceUp: p.FaceUp}
		}
		out.Zones[name] = nz
	}
	return out
}

func (sp *Space) nextPlacementID() string {
	sp.nextPlacement++
	return idFromCounter("plc", sp.nextPlacement)
}

func (sp *Space) CreateZone(name string, meta map[string]any) error {
	if _, ok := sp.Zones[name]; ok {
		return ErrZoneExists
	}
	sp.Zones[name] = &Zone{Name: name, Meta: meta}
	return nil
}

func (sp *Space) DeleteZone(name string) error {
	z, ok := sp.Zones[name]
	if !ok {
		return ErrZoneNotFound
	}
	_ = z // non-empty zones simply drop their placements (scrapped)
	delete(sp.Zones, name)
	return nil
}

// findToken reports the (zone, placement-index) of a token if placed anywhere.
func (sp *Space) findToken(tokenID string) (zone string, idx int, ok bool) {
	for name, z := range sp.Zones {
		for i, p := range z.Placements {
			if p.Token.ID == tokenID {
				return name, i, true
			}
		}
	}
	return "", 0, false
}

type PlaceOpts struct {
	X      *float64
	Y      *float64
	FaceUp *bool
	Label  string
}

// Place binds token to zone, returning the new placement.
func (sp *Space) Place(zoneName string, tok Token, opts PlaceOpts) (Placement, error) {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return Placement{}, ErrZoneNotFound
	}
	if z.Locked {
		return Placement{}, ErrZoneLocked
	}
	p := Placement{
		ID:     sp.nextPlacementID(),
		Token:  tok,
		FaceUp: true,
	}
	if opts.X != nil {
		p.X = *opts.X
	}
	if opts.Y != nil {
		p.Y = *opts.Y
	}
	if opts.FaceUp != nil {
		p.FaceUp = *opts.FaceUp
	}
	z.Placements = append(z.Placements, p)
	return p, nil
}

// Clear removes every placement from every zone (tokens are scrapped by the caller).
func (sp *Space) Clear() {
	for _, z := range sp.Zones {
		z.Placements = nil
	}
}

// Move relocates a placement from one zone to another, optionally updating
// its coordinate.
func (sp *Space) Move(from, to, placementID string, x, y *float64) (Placement, error) {
	fz, ok := sp.Zones[from]
	if !ok {
		return Placement{}, ErrZoneNotFound
	}
	tz, ok := sp.Zones[to]
	if !ok {
		return Placement{}, ErrZoneNotFound
	}
	if tz.Locked {
		return Placement{}, ErrZoneLocked
	}
	idx := -1
	for i, p := range fz.Placements {
		if p.ID == placementID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Placement{}, ErrPlacementMissing
	}
	p := fz.Placements[idx]
	fz.Placements = append(fz.Placements[:idx], fz.Placements[idx+1:]...)
	if x != nil {
		p.X = *x
	}
	if y != nil {
		p.Y = *y
	}
	tz.Placements = append(tz.Placements, p)
	return p, nil
}

// Flip sets (or toggles, when faceUp is nil) a placement's face orientation.
func (sp *Space) Flip(zoneName, placementID string, faceUp *bool) (Placement, error) {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return Placement{}, ErrZoneNotFound
	}
	for i, p := range z.Placements {
		if p.ID == placementID {
			if faceUp != nil {
				z.Placements[i].FaceUp = *faceUp
			} else {
				z.Placements[i].FaceUp = !z.Placements[i].FaceUp
			}
			return z.Placements[i], nil
		}
	}
	return Placement{}, ErrPlacementMissing
}

// Remove strips a placement out of its zone, returning it.
func (sp *Space) Remove(zoneName, placementID string) (Placement, error) {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return Placement{}, ErrZoneNotFound
	}
	for i, p := range z.Placements {
		if p.ID == placementID {
			z.Placements = append(z.Placements[:i], z.Placements[i+1:]...)
			return p, nil
		}
	}
	return Placement{}, ErrPlacementMissing
}

func (sp *Space) ClearZone(zoneName string) error {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return ErrZoneNotFound
	}
	z.Placements = nil
	return nil
}

func (sp *Space) ShuffleZone(zoneName string, seed *int64) error {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return ErrZoneNotFound
	}
	var r *rand.Rand
	if seed != nil {
		r = rand.New(rand.NewSource(*seed))
	} else {
		r = rand.New(rand.NewSource(rand.Int63()))
	}
	r.Shuffle(len(z.Placements), func(i, j int) {
		z.Placements[i], z.Placements[j] = z.Placements[j], z.Placements[i]
	})
	return nil
}

// TransferZone moves every placement from one zone into another, in order.
func (sp *Space) TransferZone(from, to string) error {
	fz, ok := sp.Zones[from]
	if !ok {
		return ErrZoneNotFound
	}
	tz, ok := sp.Zones[to]
	if !ok {
		return ErrZoneNotFound
	}
	if tz.Locked {
		return ErrZoneLocked
	}
	tz.Placements = append(tz.Placements, fz.Placements...)
	fz.Placements = nil
	return nil
}

// FanZone lays out a zone's placements along an arc.
func (sp *Space) FanZone(zoneName string, centerX, centerY, radius, arcAngle float64) error {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return ErrZoneNotFound
	}
	n := len(z.Placements)
	if n == 0 {
		return nil
	}
	startAngle := -arcAngle / 2
	step := 0.0
	if n > 1 {
		step = arcAngle / float64(n-1)
	}
	for i := range z.Placements {
		angle := (startAngle + step*float64(i)) * (math.Pi / 180)
		z.Placements[i].X = centerX + radius*math.Sin(angle)
		z.Placements[i].Y = centerY - radius*math.Cos(angle)
	}
	return nil
}

// StackZone lays placements directly atop one another with a small vertical offset.
func (sp *Space) StackZone(zoneName string, x, y, offsetY float64) error {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return ErrZoneNotFound
	}
	for i := range z.Placements {
		z.Placements[i].X = x
		z.Placements[i].Y = y + offsetY*float64(i)
	}
	return nil
}

// SpreadZone lays placements in a straight line, horizontal or vertical.
func (sp *Space) SpreadZone(zoneName string, startX, startY, spacing float64, horizontal bool) error {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return ErrZoneNotFound
	}
	for i := range z.Placements {
		if horizontal {
			z.Placements[i].X = startX + spacing*float64(i)
			z.Placements[i].Y = startY
		} else {
			z.Placements[i].X = startX
			z.Placements[i].Y = startY + spacing*float64(i)
		}
	}
	return nil
}

func (sp *Space) LockZone(zoneName string, locked bool) error {
	z, ok := sp.Zones[zoneName]
	if !ok {
		return ErrZoneNotFound
	}
	z.Locked = locked
	return nil
}

// ZoneNames returns zone names in a stable, sorted order.
func (sp *Space) ZoneNames() []string {
	names := make([]string, 0, len(sp.Zones))
	for n := range sp.Zones {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
