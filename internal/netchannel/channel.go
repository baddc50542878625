package netchannel

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/core/event"
)

// Options configures reconnection backoff and outbound buffering, mirroring
// config.NetworkConfig.
type Options struct {
	Codec             Codec
	MessageBufferSize int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	MaxAttempts       int // 0 = unbounded
	Jitter            bool
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.Codec == nil {
		o.Codec = JSONCodec{}
	}
	if o.MessageBufferSize <= 0 {
		o.MessageBufferSize = 100
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 200 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	return o
}

// Dialer produces a fresh connection; Channel calls it once per connect
// attempt (initial connect and every reconnect).
type Dialer func(ctx context.Context) (*websocket.Conn, error)

// Channel is a reconnecting, framed, bidirectional peer channel. Outbound
// sends made while disconnected queue into a bounded ring buffer; overflow
// drops the oldest frame and emits a warning (spec.md §4.8).
type Channel struct {
	dial Dialer
	opts Options
	bus  *event.Bus
	log  *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	outbound [][]byte
	attempt  int
	stopped  bool

	incoming chan []byte
}

func New(dial Dialer, opts Options, bus *event.Bus, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{
		dial:     dial,
		opts:     opts.withDefaults(),
		bus:      bus,
		log:      log,
		incoming: make(chan []byte, 64),
	}
}

// Incoming is the stream of raw decoded-frame bytes read off the wire.
func (c *Channel) Incoming() <-chan []byte { return c.incoming }

// Connect dials once; on failure it hands off to the reconnect loop, which
// keeps retrying with exponential backoff until MaxAttempts is exhausted
// (0 = unbounded) or Disconnect is called.
func (c *Channel) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		go c.reconnectLoop(ctx)
		return fmt.Errorf("connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.attempt = 0
	c.mu.Unlock()
	event.Publish(c.bus, event.NetReady, nil)
	go c.readPump(ctx)
	c.flushOutbound()
	return nil
}

// Disconnect closes the live connection and stops further reconnect
// attempts.
func (c *Channel) Disconnect() error {
	c.mu.Lock()
	c.stopped = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	event.Publish(c.bus, event.NetDisconnected, nil)
	return nil
}

// Send encodes frame with the channel's codec and writes it, or buffers it
// if the channel is currently disconnected.
func (c *Channel) Send(frame any) error {
	data, err := c.opts.Codec.Encode(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.bufferOutbound(data)
		return nil
	}
	if err := c.writeDeadline(conn, data); err != nil {
		event.Publish(c.bus, event.NetError, err.Error())
		c.bufferOutbound(data)
		go c.handleDisconnect(context.Background())
		return nil
	}
	return nil
}

func (c *Channel) writeDeadline(conn *websocket.Conn, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// bufferOutbound enqueues data, dropping the oldest frame and emitting
// engine:warning on overflow (spec.md §4.8, §8: "exactly one warning per
// overflow").
func (c *Channel) bufferOutbound(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.outbound) >= c.opts.MessageBufferSize {
		c.outbound = c.outbound[1:]
		event.Publish(c.bus, event.EngineWarning, "netchannel: outbound buffer overflow, dropped oldest frame")
	}
	c.outbound = append(c.outbound, data)
}

func (c *Channel) flushOutbound() {
	c.mu.Lock()
	conn := c.conn
	pending := c.outbound
	c.outbound = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}
	for _, data := range pending {
		if err := c.writeDeadline(conn, data); err != nil {
			c.bufferOutbound(data)
			return
		}
	}
}

func (c *Channel) readPump(ctx context.Context) {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(ctx)
			return
		}
		select {
		case c.incoming <- data:
		default:
			c.log.Warn("netchannel: incoming buffer full, dropping frame")
		}
	}
}

func (c *Channel) handleDisconnect(ctx context.Context) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	stopped := c.stopped
	c.mu.Unlock()

	event.Publish(c.bus, event.NetDisconnected, nil)
	if !stopped {
		go c.reconnectLoop(ctx)
	}
}

// reconnectLoop retries Connect with exponential backoff: delay doubles
// each attempt up to MaxDelay, optionally jittered by up to 50%.
func (c *Channel) reconnectLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		stopped := c.stopped
		c.attempt++
		attempt := c.attempt
		c.mu.Unlock()
		if stopped {
			return
		}
		if c.opts.MaxAttempts > 0 && attempt > c.opts.MaxAttempts {
			event.Publish(c.bus, event.NetError, "netchannel: max reconnect attempts exhausted")
			return
		}

		delay := backoffDelay(c.opts.BaseDelay, c.opts.MaxDelay, attempt, c.opts.Jitter)
		event.Publish(c.bus, event.NetReconnecting, map[string]any{"attempt": attempt, "delay": delay.String()})

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		conn, err := c.dial(ctx)
		if err != nil {
			continue
		}
		c.mu.Lock()
		c.conn = conn
		c.attempt = 0
		c.mu.Unlock()
		event.Publish(c.bus, event.NetReconnected, map[string]any{"attempt": attempt})
		go c.readPump(ctx)
		c.flushOutbound()
		return
	}
}

func backoffDelay(base, max time.Duration, attempt int, jitter bool) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}
	if jitter {
		half := delay / 2
		delay = half + time.Duration(rand.Int63n(int64(half)+1))
	}
	return delay
}
