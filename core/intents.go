package host

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/intent"
)

const (
	// ActionConference launches a host with explicit conference options
	// stored under ExtraConferenceOptions.
	ActionConference       = "org.juncto.meet.CONFERENCE"
	ExtraConferenceOptions = "JunctoMeetConferenceOptions"

	ActionConfigurationChanged = "onConfigurationChanged"
	ExtraNewConfig             = "newConfig"
)

var ErrNoConferenceOptions = errors.New("intent carries no conference options")

// LaunchIntent builds the intent that starts a host joining options.
func LaunchIntent(options conference.Options) *intent.Intent {
	return intent.New(ActionConference).PutExtra(ExtraConferenceOptions, options)
}

// LaunchURLIntent builds a launch intent for a conference URL or bare room.
func LaunchURLIntent(rawURL string) *intent.Intent {
	return LaunchIntent(conference.NewBuilder().SetRoom(rawURL).Build())
}

// ConferenceOptions resolves the conference options carried by in. A view
// intent uses its data URI as the room; a conference intent carries them as
// an extra. Any other intent yields ErrNoConferenceOptions.
func ConferenceOptions(in *intent.Intent) (conference.Options, error) {
	if in == nil {
		return conference.Options{}, ErrNoConferenceOptions
	}

	switch in.Action {
	case intent.ActionView:
		if in.Data == nil {
			return conference.Options{}, ErrNoConferenceOptions
		}
		return conference.NewBuilder().SetRoom(in.Data.String()).Build(), nil

	case ActionConference:
		extra, ok := in.Extra(ExtraConferenceOptions)
		if !ok {
			return conference.Options{}, ErrNoConferenceOptions
		}
		return optionsFromExtra(extra)
	}
	return conference.Options{}, ErrNoConferenceOptions
}

func optionsFromExtra(extra any) (conference.Options, error) {
	switch typed := extra.(type) {
	case conference.Options:
		return typed, nil
	case *conference.Options:
		if typed == nil {
			return conference.Options{}, ErrNoConferenceOptions
		}
		return *typed, nil
	case conference.Payload:
		return conference.FromPayload(typed), nil
	case map[string]any:
		return conference.FromMap(typed)
	case json.RawMessage:
		var options conference.Options
		if err := json.Unmarshal(typed, &options); err != nil {
			return conference.Options{}, fmt.Errorf("invalid conference options: %w", err)
		}
		return options, nil
	case string:
		return conference.NewBuilder().SetRoom(typed).Build(), nil
	}
	return conference.Options{}, fmt.Errorf("unsupported conference options extra %T", extra)
}
