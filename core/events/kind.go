package events

import (
	"slices"
	"strings"
)

// ActionPrefix namespaces every action string exchanged with the engine.
const ActionPrefix = "org.juncto.meet."

// Kind identifies an engine notification. The string value is the stable
// suffix of its action and must never change once published.
type Kind string

const (
	KindConferenceJoined      Kind = "CONFERENCE_JOINED"
	KindConferenceWillJoin    Kind = "CONFERENCE_WILL_JOIN"
	KindConferenceTerminated  Kind = "CONFERENCE_TERMINATED"
	KindParticipantJoined     Kind = "PARTICIPANT_JOINED"
	KindParticipantLeft       Kind = "PARTICIPANT_LEFT"
	KindReadyToClose          Kind = "READY_TO_CLOSE"
	KindAudioMutedChanged     Kind = "AUDIO_MUTED_CHANGED"
	KindVideoMutedChanged     Kind = "VIDEO_MUTED_CHANGED"
	KindScreenShareToggled    Kind = "SCREEN_SHARE_TOGGLED"
	KindEndpointTextMessage   Kind = "ENDPOINT_TEXT_MESSAGE_RECEIVED"
	KindParticipantsInfo      Kind = "PARTICIPANTS_INFO_RETRIEVED"
	KindChatMessageReceived   Kind = "CHAT_MESSAGE_RECEIVED"
	KindChatToggled           Kind = "CHAT_TOGGLED"
	KindTranscriptionChunk    Kind = "TRANSCRIPTION_CHUNK_RECEIVED"
	KindCustomButtonPressed   Kind = "CUSTOM_BUTTON_PRESSED"
	KindConferenceUniqueIDSet Kind = "CONFERENCE_UNIQUE_ID_SET"
	KindRecordingStatus       Kind = "RECORDING_STATUS_CHANGED"
)

// kinds is the closed table. Append only.
var kinds = []Kind{
	KindConferenceJoined,
	KindConferenceWillJoin,
	KindConferenceTerminated,
	KindParticipantJoined,
	KindParticipantLeft,
	KindReadyToClose,
	KindAudioMutedChanged,
	KindVideoMutedChanged,
	KindScreenShareToggled,
	KindEndpointTextMessage,
	KindParticipantsInfo,
	KindChatMessageReceived,
	KindChatToggled,
	KindTranscriptionChunk,
	KindCustomButtonPressed,
	KindConferenceUniqueIDSet,
	KindRecordingStatus,
}

var reserved = map[Kind]struct{}{
	KindTranscriptionChunk:    {},
	KindCustomButtonPressed:   {},
	KindConferenceUniqueIDSet: {},
	KindRecordingStatus:       {},
}

// Action returns the action string the engine broadcasts for k.
func (k Kind) Action() string { return ActionPrefix + string(k) }

// Reserved reports whether k is part of the table without a default handler.
func (k Kind) Reserved() bool {
	_, ok := reserved[k]
	return ok
}

func (k Kind) String() string { return string(k) }

// Kinds returns every known kind in table order.
func Kinds() []Kind { return slices.Clone(kinds) }

// Actions returns the action string of every known kind.
func Actions() []string {
	actions := make([]string, 0, len(kinds))
	for _, k := range kinds {
		actions = append(actions, k.Action())
	}
	return actions
}

// KindForAction resolves an action string. Matching ignores case; an unknown
// action reports false.
func KindForAction(action string) (Kind, bool) {
	for _, k := range kinds {
		if strings.EqualFold(k.Action(), action) {
			return k, true
		}
	}
	return "", false
}

// KindForName resolves the bare kind name used on the engine wire
// ("conference_joined" and "CONFERENCE_JOINED" both resolve).
func KindForName(name string) (Kind, bool) {
	for _, k := range kinds {
		if strings.EqualFold(string(k), name) {
			return k, true
		}
	}
	return "", false
}
