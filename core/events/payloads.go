package events

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ParticipantInfo is the payload of PARTICIPANT_JOINED and PARTICIPANT_LEFT.
type ParticipantInfo struct {
	ParticipantID string `mapstructure:"participantId"`
	DisplayName   string `mapstructure:"displayName"`
	Name          string `mapstructure:"name"`
	Email         string `mapstructure:"email"`
	AvatarURL     string `mapstructure:"avatarUrl"`
	Role          string `mapstructure:"role"`
	IsLocal       bool   `mapstructure:"isLocal"`
}

// ConferenceInfo is the payload of the conference join/terminate kinds.
type ConferenceInfo struct {
	URL   string `mapstructure:"url"`
	Error string `mapstructure:"error"`
}

// DecodeParticipant decodes a participant payload. A payload without a
// participant id is rejected.
func DecodeParticipant(data map[string]any) (ParticipantInfo, error) {
	var info ParticipantInfo
	if err := decodePayload(data, &info); err != nil {
		return ParticipantInfo{}, fmt.Errorf("invalid participant payload: %w", err)
	}
	if info.ParticipantID == "" {
		return ParticipantInfo{}, fmt.Errorf("invalid participant payload: missing participantId")
	}
	return info, nil
}

func DecodeConference(data map[string]any) (ConferenceInfo, error) {
	var info ConferenceInfo
	if err := decodePayload(data, &info); err != nil {
		return ConferenceInfo{}, fmt.Errorf("invalid conference payload: %w", err)
	}
	return info, nil
}

func decodePayload(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}
