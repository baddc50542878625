package room

import "github.com/l1jgo/simcore/internal/dispatcher"

// ClientFrame is the envelope every inbound client message is decoded into.
// Not every field applies to every command — see spec.md §4.10's protocol
// table.
type ClientFrame struct {
	Command    string             `json:"command"`
	ClientID   string             `json:"clientId"`
	RoomCode   string             `json:"roomCode,omitempty"`
	Variant    string             `json:"variant,omitempty"`
	Password   string             `json:"password,omitempty"`
	MaxMembers int                `json:"maxMembers,omitempty"`
	IsPrivate  bool               `json:"isPrivate,omitempty"`
	Type       string             `json:"type,omitempty"`
	Payload    dispatcher.Payload `json:"payload,omitempty"`
}

// ServerFrame is the envelope every outbound message is encoded from.
type ServerFrame struct {
	Command      string           `json:"command"`
	RoomCode     string           `json:"roomCode,omitempty"`
	PlayerIndex  int              `json:"playerIndex,omitempty"`
	State        any              `json:"state,omitempty"`
	Rooms        []RoomSummary    `json:"rooms,omitempty"`
	Message      string           `json:"message,omitempty"`
	ValidActions map[int][]string `json:"validActions,omitempty"`
	ReadyForNext bool             `json:"readyForNextGame,omitempty"`
}

// RoomSummary is one entry of a room:list response.
type RoomSummary struct {
	RoomCode string `json:"roomCode"`
	Variant  string `json:"variant"`
	Members  int    `json:"members"`
	Max      int    `json:"max"`
}

func welcomeFrame(inRoom bool) ServerFrame {
	return ServerFrame{Command: "welcome", State: map[string]any{"inRoom": inRoom}}
}

func errorFrame(message string) ServerFrame {
	return ServerFrame{Command: "room:error", Message: message}
}
