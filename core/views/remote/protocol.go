package remote

import (
	"github.com/koscakluka/meethost/core/conference"
)

// Frame types exchanged with the engine. Every frame is a JSON text message.
const (
	FrameJoin    = "join"
	FrameAbort   = "abort"
	FramePiP     = "pip"
	FrameCommand = "command"
	FrameEvent   = "event"
)

// Frame is the single wire message. Which fields are set depends on Type:
// join carries Options, command carries Action and Data, event carries Name
// and Data.
type Frame struct {
	Type    string              `json:"type"`
	Options *conference.Payload `json:"options,omitempty"`
	Action  string              `json:"action,omitempty"`
	Name    string              `json:"name,omitempty"`
	Data    map[string]any      `json:"data,omitempty"`
}

func JoinFrame(options conference.Options) Frame {
	payload := options.Payload()
	return Frame{Type: FrameJoin, Options: &payload}
}

// CommandFrame carries a command by its bare name, such as "HANG_UP".
func CommandFrame(name string, data map[string]any) Frame {
	return Frame{Type: FrameCommand, Action: name, Data: data}
}

// EventFrame carries an engine notification by its bare name, such as
// "CONFERENCE_JOINED".
func EventFrame(name string, data map[string]any) Frame {
	return Frame{Type: FrameEvent, Name: name, Data: data}
}
