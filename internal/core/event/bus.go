package event

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Bus is an in-process publish/subscribe hub that delivers events
// synchronously, in registration order, to every subscriber of that event's
// type. Emit never defers delivery to a later tick: by the time it returns,
// every subscriber has observed the event (or panicked and been isolated).
type Bus struct {
	mu       sync.Mutex
	handlers map[reflect.Type][]any
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[reflect.Type][]any),
		log:      log,
	}
}

// Subscribe registers a typed handler for events of type T. Handlers for the
// same type are invoked in the order they were subscribed.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Emit delivers event to every subscriber of T, synchronously, in
// registration order. A subscriber that panics is recovered and logged; it
// does not prevent delivery to the remaining subscribers.
func Emit[T any](b *Bus, ev T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	handlers := make([]any, len(b.handlers[t]))
	copy(handlers, b.handlers[t])
	b.mu.Unlock()

	for _, h := range handlers {
		callHandler(b.log, h, ev)
	}
}

func callHandler(log *zap.Logger, handler any, event any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("event subscriber panicked",
				zap.Any("event", reflect.TypeOf(event)),
				zap.Any("recovered", r),
			)
		}
	}()
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
