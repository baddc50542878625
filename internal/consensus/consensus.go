// Package consensus bridges the Chronicle and a peer channel (spec.md
// §4.9): on every local state:changed it packages the delta and forwards it
// through the channel; on every remote delta it feeds chronicle.MergeRemote.
// It does not otherwise interpret payload contents.
package consensus

import (
	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/netchannel"
)

// Delta is the wire shape a Chronicle change is packaged into. It carries
// the full document and the version it was produced at — sufficient causal
// metadata for the Chronicle's last-writer-wins merge rule.
type Delta struct {
	Kind     string              `json:"kind"`
	Document *chronicle.Document `json:"document"`
	Version  int64               `json:"version"`
}

// Sync wires a Chronicle to a Channel in both directions.
type Sync struct {
	chron *chronicle.Chronicle
	ch    *netchannel.Channel
	codec netchannel.Codec
	bus   *event.Bus
	log   *zap.Logger

	stop chan struct{}
}

func New(chron *chronicle.Chronicle, ch *netchannel.Channel, codec netchannel.Codec, bus *event.Bus, log *zap.Logger) *Sync {
	if log == nil {
		log = zap.NewNop()
	}
	if codec == nil {
		codec = netchannel.JSONCodec{}
	}
	s := &Sync{chron: chron, ch: ch, codec: codec, bus: bus, log: log, stop: make(chan struct{})}

	event.On(bus, event.StateChanged, func(e event.Envelope) {
		notice, ok := e.Payload.(chronicle.ChangeNotice)
		if !ok || notice.Remote {
			// Never re-broadcast a change that arrived from a peer —
			// that would bounce it back out and loop.
			return
		}
		s.broadcastLocal(notice.Label)
	})

	return s
}

func (s *Sync) broadcastLocal(label string) {
	doc := s.chron.State()
	delta := Delta{Kind: label, Document: doc, Version: doc.Version}
	if err := s.ch.Send(delta); err != nil {
		s.log.Warn("consensus: send delta failed", zap.Error(err))
	}
}

// Run drains the channel's incoming frames and feeds each into
// chronicle.MergeRemote, until the channel closes or Stop is called.
func (s *Sync) Run() {
	for {
		select {
		case <-s.stop:
			return
		case raw, ok := <-s.ch.Incoming():
			if !ok {
				return
			}
			var delta Delta
			if err := s.codec.Decode(raw, &delta); err != nil {
				s.log.Warn("consensus: malformed delta", zap.Error(err))
				continue
			}
			if err := s.chron.MergeRemote(chronicle.RemoteUpdate{Document: delta.Document, Version: delta.Version}); err != nil {
				s.log.Warn("consensus: merge remote failed", zap.Error(err))
			}
		}
	}
}

func (s *Sync) Stop() { close(s.stop) }
