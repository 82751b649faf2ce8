package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/koscakluka/meethost/core/broadcast"
	"github.com/koscakluka/meethost/core/events"
	"github.com/koscakluka/meethost/core/intent"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EventCallback receives the payload of an engine notification.
type EventCallback func(data map[string]any)

type eventHandler func(data map[string]any) error

// eventRouter turns engine broadcasts into handler calls. It owns exactly one
// registration for its lifetime.
type eventRouter struct {
	mu           sync.Mutex
	manager      *broadcast.Manager
	registration *broadcast.Registration
	handlers     map[events.Kind][]eventHandler
	logger       *slog.Logger
}

func newEventRouter(manager *broadcast.Manager, logger *slog.Logger) *eventRouter {
	return &eventRouter{
		manager:  manager,
		handlers: map[events.Kind][]eventHandler{},
		logger:   logger,
	}
}

// handle appends h to the handlers of kind. Handlers run in the order they
// were added.
func (r *eventRouter) handle(kind events.Kind, h eventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = append(r.handlers[kind], h)
}

// register subscribes to every known event action. Registering twice keeps
// the first registration.
func (r *eventRouter) register() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registration != nil {
		return
	}
	r.registration = r.manager.Register(r, broadcast.NewFilter(events.Actions()...))
}

func (r *eventRouter) unregister() {
	r.mu.Lock()
	registration := r.registration
	r.mu.Unlock()

	if registration != nil {
		registration.Unregister()
	}
}

func (r *eventRouter) registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registration != nil && r.registration.Active()
}

func (r *eventRouter) OnReceive(in *intent.Intent) {
	if !r.registered() {
		r.drop(in.Action, "router unregistered")
		return
	}

	envelope := events.Decode(in)
	kind, ok := envelope.Kind()
	if !ok {
		r.drop(envelope.Action(), "unknown action")
		return
	}

	r.mu.Lock()
	handlers := append([]eventHandler(nil), r.handlers[kind]...)
	r.mu.Unlock()
	if len(handlers) == 0 {
		r.drop(envelope.Action(), unhandledReason(kind))
		return
	}

	if eventsDispatched != nil {
		eventsDispatched.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind.String())))
	}
	for _, h := range handlers {
		if err := r.dispatch(kind, h, envelope.Data()); err != nil {
			r.logger.Warn("Event handler failed", "kind", kind.String(), "error", err)
		}
	}
}

// dispatch isolates handler panics so one faulty handler cannot take the
// host down.
func (r *eventRouter) dispatch(kind events.Kind, h eventHandler, data map[string]any) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler for %s panicked: %v", kind, recovered)
		}
	}()
	return h(data)
}

func (r *eventRouter) drop(action, reason string) {
	r.logger.Debug("Dropping event", "action", action, "reason", reason)
	if eventsDropped != nil {
		eventsDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// unhandledReason tells reserved kinds, which have no default handler, apart
// from kinds whose handlers were never installed.
func unhandledReason(kind events.Kind) string {
	if kind.Reserved() {
		return "reserved"
	}
	return "no handler"
}

func callbackHandler(callback EventCallback) eventHandler {
	return func(data map[string]any) error {
		callback(data)
		return nil
	}
}
