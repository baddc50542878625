package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16
)

// Connection is one client's socket. I/O happens only in readPump/writePump;
// every other goroutine talks to it through Send/Close (grounded on the
// channel-per-session idiom of the original TCP transport, with the
// ping/pong keepalive of a websocket hub).
type Connection struct {
	ws       *websocket.Conn
	clientID string

	out chan []byte

	closeOnce sync.Once
	closeCh   chan struct{}
	closed    bool
	mu        sync.Mutex

	log *zap.Logger
}

func newConnection(ws *websocket.Conn, clientID string, log *zap.Logger) *Connection {
	return &Connection{
		ws:       ws,
		clientID: clientID,
		out:      make(chan []byte, 32),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.String("clientId", clientID)),
	}
}

// Send queues frame for delivery. Non-blocking: a full outbound queue closes
// the connection rather than letting a slow client back-pressure the room.
func (c *Connection) Send(frame ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.log.Error("marshal server frame failed", zap.Error(err))
		return
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	select {
	case c.out <- data:
	default:
		c.log.Warn("outbound queue full, dropping slow connection")
		c.Close()
	}
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.closeCh)
		c.ws.Close()
	})
}

// readPump decodes inbound frames and hands each to onFrame. It owns read
// deadlines and pong handling; call it from its own goroutine.
func (c *Connection) readPump(onFrame func(ClientFrame)) {
	defer c.Close()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Debug("malformed client frame", zap.Error(err))
			continue
		}
		onFrame(frame)
	}
}

// writePump drains the outbound queue and pings on idle; call it from its
// own goroutine.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case data := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
