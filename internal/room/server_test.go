package room

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/l1jgo/simcore/internal/engine"
)

func newTestServer(t *testing.T, maxRooms int) (*Server, string) {
	t.Helper()
	srv := NewServer(func() *engine.Engine { return engine.New(engine.Config{}, nil) }, DefaultHooks{}, maxRooms, nil)
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)
	return srv, "ws" + strings.TrimPrefix(httpSrv.URL, "http")
}

func dialClient(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) ServerFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame ServerFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestServerCreateAndJoinRoomLifecycle(t *testing.T) {
	_, url := newTestServer(t, 0)

	host := dialClient(t, url)
	readFrame(t, host) // welcome

	if err := host.WriteJSON(ClientFrame{Command: "room:create", ClientID: "alice", MaxMembers: 2}); err != nil {
		t.Fatalf("write create: %v", err)
	}
	created := readFrame(t, host)
	if created.Command != "room:created" || created.RoomCode == "" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	guest := dialClient(t, url)
	readFrame(t, guest) // welcome

	if err := guest.WriteJSON(ClientFrame{Command: "room:join", ClientID: "bob", RoomCode: created.RoomCode}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	joined := readFrame(t, guest)
	if joined.Command != "room:joined" || joined.PlayerIndex != 1 {
		t.Fatalf("unexpected join response: %+v", joined)
	}

	// Joining a second seat broadcasts a state frame to the first (already
	// connected) seat too.
	hostState := readFrame(t, host)
	if hostState.Command != "state" {
		t.Fatalf("host did not receive a state broadcast after bob joined: %+v", hostState)
	}
}

func TestServerJoinUnknownRoomErrors(t *testing.T) {
	_, url := newTestServer(t, 0)
	conn := dialClient(t, url)
	readFrame(t, conn) // welcome

	if err := conn.WriteJSON(ClientFrame{Command: "room:join", ClientID: "alice", RoomCode: "NOPE-0000"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	resp := readFrame(t, conn)
	if resp.Command != "room:error" {
		t.Fatalf("expected room:error for an unknown room code, got %+v", resp)
	}
}

func TestServerRoomListExcludesPrivateAndFullRooms(t *testing.T) {
	_, url := newTestServer(t, 0)

	host := dialClient(t, url)
	readFrame(t, host) // welcome
	host.WriteJSON(ClientFrame{Command: "room:create", ClientID: "alice", MaxMembers: 1, IsPrivate: true})
	readFrame(t, host) // room:created

	lister := dialClient(t, url)
	readFrame(t, lister) // welcome
	lister.WriteJSON(ClientFrame{Command: "room:list"})
	resp := readFrame(t, lister)
	if resp.Command != "room:list" {
		t.Fatalf("unexpected list response: %+v", resp)
	}
	if len(resp.Rooms) != 0 {
		t.Fatalf("expected the private room to be excluded from room:list, got %+v", resp.Rooms)
	}
}

func TestServerMaxRoomsRejectsCreateBeyondLimit(t *testing.T) {
	_, url := newTestServer(t, 1)

	first := dialClient(t, url)
	readFrame(t, first) // welcome
	first.WriteJSON(ClientFrame{Command: "room:create", ClientID: "alice"})
	readFrame(t, first) // room:created

	second := dialClient(t, url)
	readFrame(t, second) // welcome
	second.WriteJSON(ClientFrame{Command: "room:create", ClientID: "bob"})
	resp := readFrame(t, second)
	if resp.Command != "room:error" {
		t.Fatalf("expected room:error once the server's room limit is reached, got %+v", resp)
	}
}
