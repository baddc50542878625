package recorder

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/dispatcher"
)

// Record is the plain structured shape a captured action is serialized to.
type Record struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Payload   dispatcher.Payload `json:"payload"`
	Seed      *int64             `json:"seed,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// ApplyTarget is the engine surface replay needs: the dispatcher's raw apply
// path, bypassing policy evaluation and history logging so replay is
// idempotent with respect to action counts.
type ApplyTarget interface {
	Apply(actionType string, payload dispatcher.Payload) (any, error)
	Bus() *event.Bus
}

// ReplayOptions configures Recorder.Replay.
type ReplayOptions struct {
	Delay       time.Duration
	StopOnError bool
}

// Recorder subscribes to engine:action and captures every dispatched action.
type Recorder struct {
	bus     *event.Bus
	log     *zap.Logger
	records []Record
}

// New subscribes to bus and begins capturing. Emits recorder:start.
func New(bus *event.Bus, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Recorder{bus: bus, log: log}
	event.On(bus, event.EngineAction, func(e event.Envelope) {
		action, ok := e.Payload.(dispatcher.Action)
		if !ok {
			return
		}
		r.records = append(r.records, Record{
			ID:        action.ID,
			Type:      action.Type,
			Payload:   action.Payload,
			Seed:      action.Seed,
			Timestamp: action.Timestamp,
		})
	})
	event.Publish(bus, event.RecorderStart, nil)
	return r
}

func (r *Recorder) Records() []Record { return append([]Record(nil), r.records...) }

// Stop emits recorder:stop; the recorder keeps its captured records.
func (r *Recorder) Stop() { event.Publish(r.bus, event.RecorderStop, nil) }

// Clear discards every captured record.
func (r *Recorder) Clear() {
	r.records = nil
	event.Publish(r.bus, event.RecorderClear, nil)
}

// Import replaces the recorder's records with a previously exported log.
func (r *Recorder) Import(records []Record) {
	r.records = append([]Record(nil), records...)
	event.Publish(r.bus, event.RecorderImport, len(records))
}

// Replay re-applies every captured record, in order, into target via its raw
// apply path. A zero Delay replays immediately; StopOnError halts the replay
// on the first apply error instead of skipping past it.
func (r *Recorder) Replay(target ApplyTarget, opts ReplayOptions) error {
	event.Publish(target.Bus(), event.RecorderReplayStart, len(r.records))
	for _, rec := range r.records {
		if opts.Delay > 0 {
			time.Sleep(opts.Delay)
		}
		if _, err := target.Apply(rec.Type, rec.Payload); err != nil {
			r.log.Warn("replay step failed", zap.String("type", rec.Type), zap.Error(err))
			event.Publish(target.Bus(), event.RecorderReplayError, map[string]any{
				"type": rec.Type, "error": err.Error(),
			})
			if opts.StopOnError {
				return err
			}
		}
	}
	event.Publish(target.Bus(), event.RecorderReplayComplete, len(r.records))
	return nil
}
