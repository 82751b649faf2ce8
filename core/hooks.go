package host

import (
	"github.com/koscakluka/meethost/core/events"
)

// installDefaultHandlers wires the host's own reactions to engine
// notifications. Application callbacks are added after these.
func (a *Activity) installDefaultHandlers() {
	a.router.handle(events.KindConferenceJoined, a.onConferenceJoined)
	a.router.handle(events.KindConferenceTerminated, a.onConferenceTerminated)
	a.router.handle(events.KindConferenceWillJoin, a.onConferenceWillJoin)
	a.router.handle(events.KindParticipantJoined, a.onParticipantJoined)
	a.router.handle(events.KindParticipantLeft, a.onParticipantLeft)
	a.router.handle(events.KindReadyToClose, a.onReadyToClose)
}

func (a *Activity) onConferenceJoined(data map[string]any) error {
	a.logger.Info("Conference joined", "data", data)

	if a.ongoing != nil {
		a.ongoing.Launch(data)
	}

	if a.useConnectionService && a.connections != nil {
		info, err := events.DecodeConference(data)
		if err != nil {
			return err
		}
		a.mu.Lock()
		previous := a.connectionID
		a.connectionID = a.connections.StartConnection(info.URL)
		a.mu.Unlock()
		if previous != "" {
			a.connections.EndConnection(previous)
		}
	}
	return nil
}

func (a *Activity) onConferenceTerminated(data map[string]any) error {
	a.logger.Info("Conference terminated", "data", data)

	if a.ongoing != nil {
		a.ongoing.Abort()
	}

	a.mu.Lock()
	id := a.connectionID
	a.connectionID = ""
	a.mu.Unlock()
	if id != "" && a.connections != nil {
		a.connections.EndConnection(id)
	}
	return nil
}

func (a *Activity) onConferenceWillJoin(data map[string]any) error {
	a.logger.Info("Conference will join", "data", data)
	return nil
}

func (a *Activity) onParticipantJoined(data map[string]any) error {
	info, err := events.DecodeParticipant(data)
	if err != nil {
		return err
	}
	a.logger.Info("Participant joined", "participant", info.ParticipantID, "name", info.DisplayName)
	return nil
}

func (a *Activity) onParticipantLeft(data map[string]any) error {
	info, err := events.DecodeParticipant(data)
	if err != nil {
		return err
	}
	a.logger.Info("Participant left", "participant", info.ParticipantID)
	return nil
}

func (a *Activity) onReadyToClose(map[string]any) error {
	a.logger.Info("Ready to close")
	a.isReadyToClose.Store(true)
	a.Finish()
	return nil
}
