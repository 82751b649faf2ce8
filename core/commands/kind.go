// Package commands defines the actions a host application sends to the
// conferencing engine, and builders for the intents that carry them.
package commands

import (
	"slices"
	"strings"
)

const ActionPrefix = "org.juncto.meet."

// Kind identifies an inbound command.
type Kind string

const (
	KindSetAudioMuted               Kind = "SET_AUDIO_MUTED"
	KindHangUp                      Kind = "HANG_UP"
	KindSendEndpointTextMessage     Kind = "SEND_ENDPOINT_TEXT_MESSAGE"
	KindToggleScreenShare           Kind = "TOGGLE_SCREEN_SHARE"
	KindRetrieveParticipantsInfo    Kind = "RETRIEVE_PARTICIPANTS_INFO"
	KindOpenChat                    Kind = "OPEN_CHAT"
	KindCloseChat                   Kind = "CLOSE_CHAT"
	KindSendChatMessage             Kind = "SEND_CHAT_MESSAGE"
	KindSetVideoMuted               Kind = "SET_VIDEO_MUTED"
	KindSetClosedCaptionsEnabled    Kind = "SET_CLOSED_CAPTIONS_ENABLED"
	KindToggleCamera                Kind = "TOGGLE_CAMERA"
	KindShowNotification            Kind = "SHOW_NOTIFICATION"
	KindHideNotification            Kind = "HIDE_NOTIFICATION"
	KindStartRecording              Kind = "START_RECORDING"
	KindStopRecording               Kind = "STOP_RECORDING"
	KindOverwriteConfig             Kind = "OVERWRITE_CONFIG"
	KindSendCameraFacingModeMessage Kind = "SEND_CAMERA_FACING_MODE_MESSAGE"
)

var kinds = []Kind{
	KindSetAudioMuted,
	KindHangUp,
	KindSendEndpointTextMessage,
	KindToggleScreenShare,
	KindRetrieveParticipantsInfo,
	KindOpenChat,
	KindCloseChat,
	KindSendChatMessage,
	KindSetVideoMuted,
	KindSetClosedCaptionsEnabled,
	KindToggleCamera,
	KindShowNotification,
	KindHideNotification,
	KindStartRecording,
	KindStopRecording,
	KindOverwriteConfig,
	KindSendCameraFacingModeMessage,
}

func (k Kind) Action() string { return ActionPrefix + string(k) }
func (k Kind) String() string { return string(k) }

func Kinds() []Kind { return slices.Clone(kinds) }

func Actions() []string {
	actions := make([]string, 0, len(kinds))
	for _, k := range kinds {
		actions = append(actions, k.Action())
	}
	return actions
}

// KindForAction resolves an action string, ignoring case.
func KindForAction(action string) (Kind, bool) {
	for _, k := range kinds {
		if strings.EqualFold(k.Action(), action) {
			return k, true
		}
	}
	return "", false
}

// KindForName resolves a bare command name such as "hang_up".
func KindForName(name string) (Kind, bool) {
	for _, k := range kinds {
		if strings.EqualFold(string(k), name) {
			return k, true
		}
	}
	return "", false
}
