// Package recorder implements the Script sequencer and the action Recorder
// (spec.md §4.7): Script dispatches an ordered list of steps honoring
// inter-step delays and a cooperative abort signal; Recorder captures every
// dispatched action and can replay them into a fresh engine through its raw
// apply path.
package recorder

import (
	"context"
	"time"

	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/dispatcher"
)

// Step is one entry of a Script.
type Step struct {
	Type       string
	Payload    dispatcher.Payload
	Delay      time.Duration
	Reversible bool
}

// DispatchTarget is the engine surface Script needs: dispatch plus a bus to
// announce start/complete/stop on.
type DispatchTarget interface {
	Dispatch(actionType string, payload dispatcher.Payload, seed *int64) dispatcher.Result
	Bus() *event.Bus
}

// Script is an ordered, delay-aware, abortable sequence of dispatches.
type Script struct {
	Name  string
	Steps []Step
}

// Run dispatches every step in order. ctx cancellation is the cooperative
// abort signal: a step boundary checks ctx.Err() before dispatching the
// next step, so an in-flight dispatch always completes.
func (s *Script) Run(ctx context.Context, target DispatchTarget) error {
	event.Publish(target.Bus(), event.ScriptStart, s.Name)
	for _, step := range s.Steps {
		select {
		case <-ctx.Done():
			event.Publish(target.Bus(), event.ScriptStop, s.Name)
			return ctx.Err()
		default:
		}
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				event.Publish(target.Bus(), event.ScriptStop, s.Name)
				return ctx.Err()
			case <-timer.C:
			}
		}
		res := target.Dispatch(step.Type, step.Payload, nil)
		if !res.OK {
			event.Publish(target.Bus(), event.ScriptStop, s.Name)
			return res.Err
		}
	}
	event.Publish(target.Bus(), event.ScriptComplete, s.Name)
	return nil
}
