package commands

import (
	"maps"

	"github.com/google/uuid"
	"github.com/koscakluka/meethost/core/intent"
)

// Extras keys understood by the engine.
const (
	ExtraMuted              = "muted"
	ExtraEnabled            = "enabled"
	ExtraTo                 = "to"
	ExtraMessage            = "message"
	ExtraRequestID          = "requestId"
	ExtraCameraFacingMode   = "cameraFacingMode"
	ExtraAppearance         = "appearance"
	ExtraDescription        = "description"
	ExtraTimeout            = "timeout"
	ExtraTitle              = "title"
	ExtraUID                = "uid"
	ExtraMode               = "mode"
	ExtraDropboxToken       = "dropboxToken"
	ExtraShouldShare        = "shouldShare"
	ExtraRTMPStreamKey      = "rtmpStreamKey"
	ExtraRTMPBroadcastID    = "rtmpBroadcastID"
	ExtraYouTubeStreamKey   = "youtubeStreamKey"
	ExtraYouTubeBroadcastID = "youtubeBroadcastID"
	ExtraExtraMetadata      = "extraMetadata"
	ExtraTranscription      = "transcription"
	ExtraConfig             = "config"
)

type RecordingMode string

const (
	RecordingModeFile   RecordingMode = "file"
	RecordingModeStream RecordingMode = "stream"
)

type NotificationAppearance string

const (
	AppearanceNormal  NotificationAppearance = "normal"
	AppearanceSuccess NotificationAppearance = "success"
	AppearanceWarning NotificationAppearance = "warning"
	AppearanceError   NotificationAppearance = "error"
)

type NotificationTimeout string

const (
	TimeoutShort  NotificationTimeout = "short"
	TimeoutMedium NotificationTimeout = "medium"
	TimeoutLong   NotificationTimeout = "long"
	TimeoutSticky NotificationTimeout = "sticky"
)

type CameraFacingMode string

const (
	CameraFacingUser        CameraFacingMode = "user"
	CameraFacingEnvironment CameraFacingMode = "environment"
)

// New builds a bare command intent with the given extras.
func New(kind Kind, extras map[string]any) *intent.Intent {
	return intent.New(kind.Action()).PutExtras(extras)
}

func SetAudioMuted(muted bool) *intent.Intent {
	return New(KindSetAudioMuted, map[string]any{ExtraMuted: muted})
}

func SetVideoMuted(muted bool) *intent.Intent {
	return New(KindSetVideoMuted, map[string]any{ExtraMuted: muted})
}

func HangUp() *intent.Intent { return New(KindHangUp, nil) }

// SendEndpointTextMessage sends message to participant to, or to everyone
// when to is empty.
func SendEndpointTextMessage(to, message string) *intent.Intent {
	return New(KindSendEndpointTextMessage, map[string]any{ExtraTo: to, ExtraMessage: message})
}

func ToggleScreenShare(enabled bool) *intent.Intent {
	return New(KindToggleScreenShare, map[string]any{ExtraEnabled: enabled})
}

// RetrieveParticipantsInfo asks for the roster. The engine answers with
// PARTICIPANTS_INFO_RETRIEVED carrying the same request id; an empty
// requestID gets a fresh one.
func RetrieveParticipantsInfo(requestID string) *intent.Intent {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return New(KindRetrieveParticipantsInfo, map[string]any{ExtraRequestID: requestID})
}

// OpenChat opens the chat panel, on a private conversation with participantID
// when it is not empty.
func OpenChat(participantID string) *intent.Intent {
	return New(KindOpenChat, map[string]any{ExtraTo: participantID})
}

func CloseChat() *intent.Intent { return New(KindCloseChat, nil) }

func SendChatMessage(participantID, message string) *intent.Intent {
	return New(KindSendChatMessage, map[string]any{ExtraTo: participantID, ExtraMessage: message})
}

func SetClosedCaptionsEnabled(enabled bool) *intent.Intent {
	return New(KindSetClosedCaptionsEnabled, map[string]any{ExtraEnabled: enabled})
}

func ToggleCamera() *intent.Intent { return New(KindToggleCamera, nil) }

type Notification struct {
	UID         string
	Title       string
	Description string
	Appearance  NotificationAppearance
	Timeout     NotificationTimeout
}

// ShowNotification displays an in-conference notification. A missing UID is
// generated so the caller can hide it later.
func ShowNotification(n Notification) *intent.Intent {
	if n.UID == "" {
		n.UID = uuid.NewString()
	}
	if n.Appearance == "" {
		n.Appearance = AppearanceNormal
	}
	if n.Timeout == "" {
		n.Timeout = TimeoutShort
	}
	return New(KindShowNotification, map[string]any{
		ExtraUID:         n.UID,
		ExtraTitle:       n.Title,
		ExtraDescription: n.Description,
		ExtraAppearance:  string(n.Appearance),
		ExtraTimeout:     string(n.Timeout),
	})
}

func HideNotification(uid string) *intent.Intent {
	return New(KindHideNotification, map[string]any{ExtraUID: uid})
}

type Recording struct {
	Mode               RecordingMode
	DropboxToken       string
	ShouldShare        bool
	RTMPStreamKey      string
	RTMPBroadcastID    string
	YouTubeStreamKey   string
	YouTubeBroadcastID string
	ExtraMetadata      map[string]any
	Transcription      bool
}

func StartRecording(r Recording) *intent.Intent {
	extras := map[string]any{
		ExtraMode:          string(r.Mode),
		ExtraShouldShare:   r.ShouldShare,
		ExtraTranscription: r.Transcription,
	}
	optional := map[string]string{
		ExtraDropboxToken:       r.DropboxToken,
		ExtraRTMPStreamKey:      r.RTMPStreamKey,
		ExtraRTMPBroadcastID:    r.RTMPBroadcastID,
		ExtraYouTubeStreamKey:   r.YouTubeStreamKey,
		ExtraYouTubeBroadcastID: r.YouTubeBroadcastID,
	}
	for key, value := range optional {
		if value != "" {
			extras[key] = value
		}
	}
	if len(r.ExtraMetadata) > 0 {
		extras[ExtraExtraMetadata] = maps.Clone(r.ExtraMetadata)
	}
	return New(KindStartRecording, extras)
}

func StopRecording(mode RecordingMode, transcription bool) *intent.Intent {
	return New(KindStopRecording, map[string]any{ExtraMode: string(mode), ExtraTranscription: transcription})
}

// OverwriteConfig replaces engine config values for the running conference.
func OverwriteConfig(config map[string]any) *intent.Intent {
	return New(KindOverwriteConfig, map[string]any{ExtraConfig: maps.Clone(config)})
}

func SendCameraFacingModeMessage(to string, mode CameraFacingMode) *intent.Intent {
	return New(KindSendCameraFacingModeMessage, map[string]any{ExtraTo: to, ExtraCameraFacingMode: string(mode)})
}
