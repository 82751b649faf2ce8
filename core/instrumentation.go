package host

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/koscakluka/meethost/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	eventsDispatched, _ = meter.Int64Counter("meethost.events.dispatched")
	eventsDropped, _    = meter.Int64Counter("meethost.events.dropped")
)
