package netchannel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/l1jgo/simcore/internal/core/event"
)

func TestBackoffDelayDoublesUpToMax(t *testing.T) {
	base := 100 * time.Millisecond
	max := 1 * time.Second

	d1 := backoffDelay(base, max, 1, false)
	if d1 != base {
		t.Fatalf("attempt 1 delay = %v, want %v", d1, base)
	}
	d2 := backoffDelay(base, max, 2, false)
	if d2 != 2*base {
		t.Fatalf("attempt 2 delay = %v, want %v", d2, 2*base)
	}
	d10 := backoffDelay(base, max, 10, false)
	if d10 != max {
		t.Fatalf("attempt 10 delay = %v, want capped at %v", d10, max)
	}
}

func TestBackoffDelayJitterStaysWithinHalfToFullRange(t *testing.T) {
	base := 100 * time.Millisecond
	max := 1 * time.Second
	for i := 0; i < 20; i++ {
		d := backoffDelay(base, max, 3, true)
		full := 4 * base
		if d < full/2 || d > full {
			t.Fatalf("jittered delay %v out of range [%v, %v]", d, full/2, full)
		}
	}
}

func TestChannelSendBuffersWhileDisconnectedAndWarnsOnOverflow(t *testing.T) {
	bus := event.NewBus(nil)
	var warnings int
	event.On(bus, event.EngineWarning, func(event.Envelope) { warnings++ })

	dial := func(_ context.Context) (*websocket.Conn, error) {
		return nil, fmt.Errorf("no transport in this test")
	}
	ch := New(dial, Options{MessageBufferSize: 2}, bus, nil)
	_ = ch.Send(map[string]any{"n": 1})
	_ = ch.Send(map[string]any{"n": 2})
	_ = ch.Send(map[string]any{"n": 3}) // overflow: drops oldest, 1 warning

	if len(ch.outbound) != 2 {
		t.Fatalf("outbound length = %d, want 2 (bounded)", len(ch.outbound))
	}
	if warnings != 1 {
		t.Fatalf("warnings = %d, want 1", warnings)
	}
}
