package remote

import (
	"encoding/json"
	"testing"

	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameWireShape(t *testing.T) {
	testCases := []struct {
		name     string
		frame    Frame
		expected string
	}{
		{name: "join", frame: JoinFrame(conference.NewBuilder().SetRoom("r1").Build()), expected: `{"type":"join","options":{"room":"r1"}}`},
		{name: "abort", frame: Frame{Type: FrameAbort}, expected: `{"type":"abort"}`},
		{name: "command", frame: CommandFrame("HANG_UP", nil), expected: `{"type":"command","action":"HANG_UP"}`},
		{name: "event", frame: EventFrame("READY_TO_CLOSE", map[string]any{"a": 1}), expected: `{"type":"event","name":"READY_TO_CLOSE","data":{"a":1}}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			encoded, err := json.Marshal(testCase.frame)
			require.NoError(t, err)
			assert.JSONEq(t, testCase.expected, string(encoded))
		})
	}
}

func TestNotificationKeepsUnknownNames(t *testing.T) {
	known := notification(EventFrame("conference_joined", map[string]any{"url": "u"}))
	assert.Equal(t, events.KindConferenceJoined.Action(), known.Action)

	unknown := notification(EventFrame("BRAND_NEW", nil))
	assert.Equal(t, "org.juncto.meet.BRAND_NEW", unknown.Action)
	_, ok := events.Decode(unknown).Kind()
	assert.False(t, ok)
}
