package events

import (
	"maps"

	"github.com/koscakluka/meethost/core/intent"
)

// Envelope is the decoded form of one engine notification. It is immutable
// once built.
type Envelope struct {
	kind   Kind
	known  bool
	action string
	data   map[string]any
}

// Decode builds an envelope from a raw notification. It never fails: an
// unknown action or a nil intent produces an envelope whose Kind reports
// false, and callers are expected to ignore it.
func Decode(in *intent.Intent) Envelope {
	if in == nil {
		return Envelope{data: map[string]any{}}
	}

	kind, known := KindForAction(in.Action)
	data := in.Extras()
	if data == nil {
		data = map[string]any{}
	}

	return Envelope{kind: kind, known: known, action: in.Action, data: data}
}

func (e Envelope) Kind() (Kind, bool) { return e.kind, e.known }

// Action is the raw action string the envelope was decoded from.
func (e Envelope) Action() string { return e.action }

// Data returns a copy of the payload. It is never nil.
func (e Envelope) Data() map[string]any { return maps.Clone(e.data) }

// NewNotification builds the broadcast the engine side sends for kind.
func NewNotification(kind Kind, data map[string]any) *intent.Intent {
	return intent.New(kind.Action()).PutExtras(data)
}
