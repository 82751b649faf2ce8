package host

import (
	"log/slog"

	"github.com/koscakluka/meethost/core/broadcast"
	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/events"
)

type ActivityOption func(*Activity)

type kindCallback struct {
	kind    events.Kind
	handler eventHandler
}

func WithLogger(logger *slog.Logger) ActivityOption {
	return func(a *Activity) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithDelegate(delegate Delegate) ActivityOption {
	return func(a *Activity) {
		if delegate != nil {
			a.delegate = delegate
		}
	}
}

// WithBroadcastManager sets the manager the host listens on. Hosts sharing a
// manager with their view must use the same one.
func WithBroadcastManager(manager *broadcast.Manager) ActivityOption {
	return func(a *Activity) {
		if manager != nil {
			a.broadcasts = manager
		}
	}
}

func WithOngoingService(service OngoingService) ActivityOption {
	return func(a *Activity) { a.ongoing = service }
}

// WithConnectionService registers joined conferences with service and aborts
// its connections on destroy.
func WithConnectionService(service ConnectionService) ActivityOption {
	return func(a *Activity) {
		a.connections = service
		a.useConnectionService = service != nil
	}
}

// WithFinishHandler is called once, the first time the host finishes.
func WithFinishHandler(onFinish func()) ActivityOption {
	return func(a *Activity) { a.onFinish = onFinish }
}

// WithExtraInitialize runs during Create. Returning true postpones the
// initial join until the host calls Initialize itself.
func WithExtraInitialize(extraInitialize func(a *Activity) bool) ActivityOption {
	return func(a *Activity) { a.extraInitialize = extraInitialize }
}

// WithDefaultOptions fills every option a join leaves unset.
func WithDefaultOptions(defaults conference.Options) ActivityOption {
	return func(a *Activity) { a.defaults = defaults }
}

// WithEventCallback calls callback for every notification of kind, after the
// host's own handling of it.
func WithEventCallback(kind events.Kind, callback EventCallback) ActivityOption {
	return func(a *Activity) {
		if callback == nil {
			return
		}
		a.callbacks = append(a.callbacks, kindCallback{kind: kind, handler: callbackHandler(callback)})
	}
}

func WithConferenceJoinedCallback(callback EventCallback) ActivityOption {
	return WithEventCallback(events.KindConferenceJoined, callback)
}

func WithConferenceWillJoinCallback(callback EventCallback) ActivityOption {
	return WithEventCallback(events.KindConferenceWillJoin, callback)
}

func WithConferenceTerminatedCallback(callback EventCallback) ActivityOption {
	return WithEventCallback(events.KindConferenceTerminated, callback)
}

func WithParticipantJoinedCallback(callback func(events.ParticipantInfo)) ActivityOption {
	return withParticipantCallback(events.KindParticipantJoined, callback)
}

func WithParticipantLeftCallback(callback func(events.ParticipantInfo)) ActivityOption {
	return withParticipantCallback(events.KindParticipantLeft, callback)
}

func WithReadyToCloseCallback(callback func()) ActivityOption {
	return func(a *Activity) {
		if callback == nil {
			return
		}
		a.callbacks = append(a.callbacks, kindCallback{
			kind:    events.KindReadyToClose,
			handler: func(map[string]any) error { callback(); return nil },
		})
	}
}

func withParticipantCallback(kind events.Kind, callback func(events.ParticipantInfo)) ActivityOption {
	return func(a *Activity) {
		if callback == nil {
			return
		}
		a.callbacks = append(a.callbacks, kindCallback{
			kind: kind,
			handler: func(data map[string]any) error {
				info, err := events.DecodeParticipant(data)
				if err != nil {
					return err
				}
				callback(info)
				return nil
			},
		})
	}
}
