package room

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/l1jgo/simcore/internal/dispatcher"
	"github.com/l1jgo/simcore/internal/engine"
)

// State is a room's position in the LOBBY→READY→PLAYING→ENDED lifecycle
// (spec.md §4.10). A seat's connection state is orthogonal and tracked on
// the Seat itself.
type State int

const (
	Lobby State = iota
	Ready
	Playing
	Ended
)

func (s State) String() string {
	switch s {
	case Lobby:
		return "lobby"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Seat is one player slot. Conn is nil while disconnected; the clientId
// binding survives a closed socket so a reconnecting client resumes the
// same seat.
type Seat struct {
	Index     int
	ClientID  string
	Conn      *Connection
	Connected bool
	Ready     bool
}

// Room holds exactly one Engine and a fixed set of seats.
type Room struct {
	Code         string
	Variant      string
	PasswordHash string // bcrypt hash of the join password, empty if none set
	MaxMembers   int
	IsPrivate    bool

	Engine *engine.Engine
	Hooks  GameHooks

	mu      sync.Mutex
	state   State
	seats   []*Seat
	created time.Time
	log     *zap.Logger
}

func newRoom(code string, opts CreateOptions, eng *engine.Engine, hooks GameHooks, log *zap.Logger) *Room {
	max := opts.MaxMembers
	if max <= 0 {
		max = 2
	}
	var hash string
	if opts.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			// A hash that can never compare equal: the room stays
			// password-protected (failing closed) instead of opening up.
			log.Warn("failed to hash room password, room will reject every join", zap.String("room", code), zap.Error(err))
			hash = "!"
		} else {
			hash = string(h)
		}
	}
	return &Room{
		Code:         code,
		Variant:      opts.Variant,
		PasswordHash: hash,
		MaxMembers:   max,
		IsPrivate:    opts.IsPrivate,
		Engine:       eng,
		Hooks:        hooks,
		state:        Lobby,
		created:      time.Now(),
		log:          log.With(zap.String("room", code)),
	}
}

// CreateOptions mirrors the room:create command fields.
type CreateOptions struct {
	Variant    string
	Password   string
	MaxMembers int
	IsPrivate  bool
}

func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Room) memberCount() int {
	n := 0
	for _, s := range r.seats {
		if s.ClientID != "" {
			n++
		}
	}
	return n
}

// seatFor returns the existing seat bound to clientID, if any.
func (r *Room) seatFor(clientID string) *Seat {
	for _, s := range r.seats {
		if s.ClientID == clientID {
			return s
		}
	}
	return nil
}

// join seats clientID at the lowest free index, or resumes its existing seat
// if it's already bound (reconnection). Returns an error if the room is
// full or password-protected and mismatched; the room's lifecycle state is
// not checked.
func (r *Room) join(clientID, password string, conn *Connection) (*Seat, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.seatFor(clientID); existing != nil {
		existing.Conn = conn
		existing.Connected = true
		return existing, false, nil
	}

	if r.PasswordHash != "" && bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password)) != nil {
		return nil, false, errRoomPassword
	}
	if r.memberCount() >= r.MaxMembers {
		return nil, false, errRoomFull
	}

	used := make(map[int]bool, len(r.seats))
	for _, s := range r.seats {
		used[s.Index] = true
	}
	index := 0
	for used[index] {
		index++
	}
	seat := &Seat{Index: index, ClientID: clientID, Conn: conn, Connected: true}
	r.seats = append(r.seats, seat)
	if r.memberCount() >= r.MaxMembers {
		r.state = Ready
	}
	return seat, true, nil
}

// leave releases clientID's seat entirely (not just a disconnect). Reports
// whether the room is now empty.
func (r *Room) leave(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.seats {
		if s.ClientID == clientID {
			r.seats = append(r.seats[:i], r.seats[i+1:]...)
			break
		}
	}
	return len(r.seats) == 0
}

// disconnect marks a seat's socket gone without releasing the seat binding.
func (r *Room) disconnect(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.seatFor(clientID); s != nil {
		s.Conn = nil
		s.Connected = false
	}
}

func (r *Room) seatsSnapshot() []*Seat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Seat, len(r.seats))
	copy(out, r.seats)
	return out
}

// dispatch forwards a client action into the room's Engine, then runs the
// post-dispatch lifecycle checks (game start/end, readiness/reset).
func (r *Room) dispatch(actionType string, payload dispatcher.Payload) dispatcher.Result {
	res := r.Engine.Dispatch(actionType, payload, nil)
	r.advanceLifecycle(actionType, res)
	return res
}

func (r *Room) advanceLifecycle(actionType string, res dispatcher.Result) {
	if !res.OK {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	game := r.Engine.Chronicle().State().Game
	switch {
	case r.state == Ready && game.Started:
		r.state = Playing
	case r.state == Playing && game.Ended:
		r.state = Ended
	}
}

// setReady marks clientID's seat ready and reports whether every connected
// seat is now ready (the caller dispatches the domain reset action when
// this returns true).
func (r *Room) setReady(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.seatFor(clientID); s != nil {
		s.Ready = true
	}
	if len(r.seats) == 0 {
		return false
	}
	for _, s := range r.seats {
		if s.Connected && !s.Ready {
			return false
		}
	}
	return true
}

// resetForNextGame dispatches the domain reset action and clears readiness.
func (r *Room) resetForNextGame() dispatcher.Result {
	var resetType string
	if r.Hooks != nil {
		resetType = r.Hooks.ResetActionType()
	}
	res := r.Engine.Dispatch(resetType, dispatcher.Payload{}, nil)
	r.mu.Lock()
	for _, s := range r.seats {
		s.Ready = false
	}
	r.state = Ready
	r.mu.Unlock()
	return res
}

func (r *Room) summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSummary{RoomCode: r.Code, Variant: r.Variant, Members: r.memberCount(), Max: r.MaxMembers}
}
