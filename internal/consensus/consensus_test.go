package consensus_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/consensus"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/netchannel"
)

// newClientChannel spins up a websocket echo-less test server and returns a
// netchannel.Channel already connected to it, plus the server-side conn the
// test can write raw frames on.
func newClientChannel(t *testing.T, bus *event.Bus) (*netchannel.Channel, *websocket.Conn) {
	t.Helper()
	var upgrader websocket.Upgrader
	serverConnCh := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("server upgrade: %v", err)
			return
		}
		serverConnCh <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("client dial: %v", err)
	}

	dialed := false
	dial := func(_ context.Context) (*websocket.Conn, error) {
		if dialed {
			return nil, context.Canceled
		}
		dialed = true
		return clientConn, nil
	}

	ch := netchannel.New(dial, netchannel.Options{}, bus, nil)
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	serverConn := <-serverConnCh
	t.Cleanup(func() { serverConn.Close() })
	return ch, serverConn
}

func TestSyncMergesRemoteDeltaReceivedOverChannel(t *testing.T) {
	bus := event.NewBus(nil)
	chron := chronicle.New(bus)
	ch, serverConn := newClientChannel(t, bus)

	s := consensus.New(chron, ch, nil, bus, nil)
	go s.Run()
	defer s.Stop()

	remoteDoc := chronicle.NewDocument()
	remoteDoc.Version = chron.State().Version + 3
	if err := remoteDoc.Space.CreateZone("remote-zone", nil); err != nil {
		t.Fatalf("seed remote doc: %v", err)
	}
	delta := consensus.Delta{Kind: "remote:test", Document: remoteDoc, Version: remoteDoc.Version}

	data, err := netchannel.JSONCodec{}.Encode(delta)
	if err != nil {
		t.Fatalf("encode delta: %v", err)
	}
	if err := serverConn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("server write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if chron.State().Version == remoteDoc.Version {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if chron.State().Version != remoteDoc.Version {
		t.Fatalf("chronicle version = %d, want %d (remote delta not merged)", chron.State().Version, remoteDoc.Version)
	}
	if _, ok := chron.State().Space.Zones["remote-zone"]; !ok {
		t.Fatalf("merged document missing remote zone")
	}
}

func TestSyncBroadcastsLocalStateChangeOverChannel(t *testing.T) {
	bus := event.NewBus(nil)
	chron := chronicle.New(bus)
	ch, serverConn := newClientChannel(t, bus)

	_ = consensus.New(chron, ch, nil, bus, nil)

	if err := chron.Change("create zone", func(d *chronicle.Document) error {
		return d.Space.CreateZone("local-zone", nil)
	}); err != nil {
		t.Fatalf("change: %v", err)
	}

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := serverConn.ReadMessage()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}

	var delta consensus.Delta
	if err := netchannel.JSONCodec{}.Decode(data, &delta); err != nil {
		t.Fatalf("decode broadcast delta: %v", err)
	}
	if _, ok := delta.Document.Space.Zones["local-zone"]; !ok {
		t.Fatalf("broadcast delta missing local zone: %+v", delta)
	}
}
