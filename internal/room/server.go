// Package room implements the Authoritative Room Server (spec.md §4.10):
// a multi-room host that multiplexes many games over websocket connections,
// assigns stable seats keyed by a client-presented clientId, relays
// per-seat-filtered state broadcasts, and survives client reconnection.
package room

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/dispatcher"
	"github.com/l1jgo/simcore/internal/engine"
)

var (
	errRoomFull     = errors.New("room is full")
	errRoomPassword = errors.New("incorrect room password")
	errRoomNotFound = errors.New("room not found")
	errMaxRooms     = errors.New("server has reached its room limit")
)

// EngineFactory builds a fresh Engine for a newly created room.
type EngineFactory func() *engine.Engine

// Server is one process's room registry.
type Server struct {
	upgrader websocket.Upgrader
	newRoom  EngineFactory
	hooks    GameHooks
	maxRooms int
	log      *zap.Logger

	mu     sync.Mutex
	rooms  map[string]*Room
	socket map[string]*Room // clientId -> current room, for dispatch routing
}

func NewServer(newRoom EngineFactory, hooks GameHooks, maxRooms int, log *zap.Logger) *Server {
	if hooks == nil {
		hooks = DefaultHooks{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		newRoom:  newRoom,
		hooks:    hooks,
		maxRooms: maxRooms,
		log:      log,
		rooms:    make(map[string]*Room),
		socket:   make(map[string]*Room),
	}
}

// ServeHTTP upgrades the connection and runs its read/write pumps until the
// socket closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := newConnection(ws, "", s.log)
	go conn.writePump()

	var clientID string
	var currentRoom *Room

	conn.Send(welcomeFrame(false))

	conn.readPump(func(frame ClientFrame) {
		if frame.ClientID != "" {
			clientID = frame.ClientID
		}
		switch frame.Command {
		case "room:create":
			currentRoom = s.handleCreate(conn, clientID, frame)
		case "room:join":
			currentRoom = s.handleJoin(conn, clientID, frame)
		case "room:leave":
			s.handleLeave(conn, clientID, currentRoom)
			currentRoom = nil
		case "room:list":
			s.handleList(conn, frame)
		case "dispatch":
			s.handleDispatch(conn, clientID, currentRoom, frame)
		default:
			conn.Send(errorFrame("unknown command"))
		}
	})

	if currentRoom != nil {
		s.markDisconnected(clientID, currentRoom)
	}
}

func (s *Server) handleCreate(conn *Connection, clientID string, frame ClientFrame) *Room {
	s.mu.Lock()
	if s.maxRooms > 0 && len(s.rooms) >= s.maxRooms {
		s.mu.Unlock()
		conn.Send(errorFrame(errMaxRooms.Error()))
		return nil
	}
	s.mu.Unlock()

	var code string
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		c, err := generateCode()
		if err != nil {
			conn.Send(errorFrame(err.Error()))
			return nil
		}
		s.mu.Lock()
		_, exists := s.rooms[c]
		s.mu.Unlock()
		if !exists {
			code = c
			break
		}
	}
	if code == "" {
		conn.Send(errorFrame("could not allocate a unique room code"))
		return nil
	}

	rm := newRoom(code, CreateOptions{
		Variant:    frame.Variant,
		Password:   frame.Password,
		MaxMembers: frame.MaxMembers,
		IsPrivate:  frame.IsPrivate,
	}, s.newRoom(), s.hooks, s.log)

	s.mu.Lock()
	s.rooms[code] = rm
	s.mu.Unlock()

	seat, _, err := rm.join(clientID, frame.Password, conn)
	if err != nil {
		conn.Send(errorFrame(err.Error()))
		return nil
	}
	s.registerSeat(rm, seat, clientID)

	conn.Send(ServerFrame{Command: "room:created", RoomCode: code, State: s.hooks.ObserveState(rm.Engine, seat.Index)})
	return rm
}

func (s *Server) handleJoin(conn *Connection, clientID string, frame ClientFrame) *Room {
	s.mu.Lock()
	rm, ok := s.rooms[frame.RoomCode]
	s.mu.Unlock()
	if !ok {
		conn.Send(errorFrame(errRoomNotFound.Error()))
		return nil
	}

	seat, isNew, err := rm.join(clientID, frame.Password, conn)
	if err != nil {
		conn.Send(errorFrame(err.Error()))
		return nil
	}
	if isNew {
		s.registerSeat(rm, seat, clientID)
	}

	conn.Send(ServerFrame{
		Command:     "room:joined",
		RoomCode:    rm.Code,
		PlayerIndex: seat.Index,
		State:       s.hooks.ObserveState(rm.Engine, seat.Index),
	})
	s.broadcastState(rm)
	return rm
}

// registerSeat dispatches the domain *:register action, carrying clientId,
// before the room:created/room:joined response is sent — ordering the
// spec requires so the ack reflects post-registration state.
func (s *Server) registerSeat(rm *Room, seat *Seat, clientID string) {
	s.mu.Lock()
	s.socket[clientID] = rm
	s.mu.Unlock()

	if rm.Hooks == nil || rm.Hooks.RegisterActionType() == "" {
		return
	}
	rm.dispatch(rm.Hooks.RegisterActionType(), dispatcher.Payload{
		"clientId": clientID,
		"seat":     seat.Index,
	})
}

func (s *Server) handleLeave(conn *Connection, clientID string, rm *Room) {
	if rm == nil {
		conn.Send(ServerFrame{Command: "room:left"})
		return
	}
	empty := rm.leave(clientID)
	s.mu.Lock()
	delete(s.socket, clientID)
	if empty {
		delete(s.rooms, rm.Code)
	}
	s.mu.Unlock()
	conn.Send(ServerFrame{Command: "room:left"})
	if !empty {
		s.broadcastState(rm)
	}
}

func (s *Server) handleList(conn *Connection, frame ClientFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RoomSummary, 0, len(s.rooms))
	for _, rm := range s.rooms {
		if rm.IsPrivate {
			continue
		}
		sum := rm.summary()
		if sum.Members >= sum.Max {
			continue
		}
		out = append(out, sum)
	}
	conn.Send(ServerFrame{Command: "room:list", Rooms: out})
}

func (s *Server) handleDispatch(conn *Connection, clientID string, rm *Room, frame ClientFrame) {
	if rm == nil {
		conn.Send(errorFrame("not in a room"))
		return
	}
	res := rm.dispatch(frame.Type, frame.Payload)
	if !res.OK {
		conn.Send(errorFrame(res.Err.Error()))
	}

	if rm.Hooks != nil && frame.Type == rm.Hooks.ReadyActionType() && frame.Type != "" {
		if rm.setReady(clientID) {
			rm.resetForNextGame()
			s.broadcastState(rm)
			s.broadcastReadyForNext(rm)
			return
		}
	}
	s.broadcastState(rm)
}

func (s *Server) markDisconnected(clientID string, rm *Room) {
	if rm == nil {
		return
	}
	rm.disconnect(clientID)
	s.broadcastState(rm)
}

// broadcastState sends every connected seat of rm a state frame filtered
// through GameHooks.ObserveState (spec.md §4.10: "a single state frame to
// every connected seat... filtered by observation rules").
func (s *Server) broadcastState(rm *Room) {
	if rm == nil {
		return
	}
	seats := rm.seatsSnapshot()
	valid := make(map[int][]string, len(seats))
	for _, seat := range seats {
		valid[seat.Index] = rm.Hooks.ValidActions(rm.Engine, seat.Index)
	}
	for _, seat := range seats {
		if !seat.Connected || seat.Conn == nil {
			continue
		}
		seat.Conn.Send(ServerFrame{
			Command:      "state",
			RoomCode:     rm.Code,
			State:        rm.Hooks.ObserveState(rm.Engine, seat.Index),
			ValidActions: valid,
		})
	}
}

func (s *Server) broadcastReadyForNext(rm *Room) {
	for _, seat := range rm.seatsSnapshot() {
		if seat.Connected && seat.Conn != nil {
			seat.Conn.Send(ServerFrame{Command: "state", RoomCode: rm.Code, ReadyForNext: true})
		}
	}
}
