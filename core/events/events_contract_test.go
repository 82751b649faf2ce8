package events

import (
	"strings"
	"testing"

	"github.com/koscakluka/meethost/core/intent"
	"pgregory.net/rapid"
)

func TestKindForActionResolvesEveryKind(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			got, ok := KindForAction(kind.Action())
			if !ok {
				t.Fatalf("expected %q to resolve", kind.Action())
			}
			if got != kind {
				t.Fatalf("expected kind %q, got %q", kind, got)
			}
		})
	}
}

func TestKindForActionIgnoresCase(t *testing.T) {
	testCases := []struct {
		name     string
		action   string
		expected Kind
	}{
		{name: "lower", action: "org.juncto.meet.conference_joined", expected: KindConferenceJoined},
		{name: "mixed", action: "Org.Juncto.Meet.Ready_To_Close", expected: KindReadyToClose},
		{name: "upper", action: "ORG.JUNCTO.MEET.PARTICIPANT_LEFT", expected: KindParticipantLeft},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, ok := KindForAction(testCase.action)
			if !ok || got != testCase.expected {
				t.Fatalf("expected %q, got %q (ok=%t)", testCase.expected, got, ok)
			}
		})
	}
}

func TestKindForActionRejectsUnknownActions(t *testing.T) {
	for _, action := range []string{"", "CONFERENCE_JOINED", "org.juncto.meet.", "org.juncto.meet.CONFERENCE_JOINED ", "org.juncto.meet.HANG_UP"} {
		if kind, ok := KindForAction(action); ok {
			t.Fatalf("expected %q not to resolve, got %q", action, kind)
		}
	}
}

func TestActionsAreUnique(t *testing.T) {
	seen := map[string]Kind{}
	for _, kind := range Kinds() {
		action := strings.ToLower(kind.Action())
		if other, ok := seen[action]; ok {
			t.Fatalf("action %q shared by %q and %q", action, other, kind)
		}
		seen[action] = kind
	}
}

func TestReservedKinds(t *testing.T) {
	for _, kind := range []Kind{KindTranscriptionChunk, KindCustomButtonPressed, KindConferenceUniqueIDSet, KindRecordingStatus} {
		if !kind.Reserved() {
			t.Fatalf("expected %q to be reserved", kind)
		}
	}
	if KindReadyToClose.Reserved() {
		t.Fatalf("ready to close must not be reserved")
	}
}

func TestKindForActionProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom(Kinds()).Draw(t, "kind")
		flips := rapid.SliceOfN(rapid.Bool(), len(kind.Action()), len(kind.Action())).Draw(t, "flips")

		var b strings.Builder
		for i, r := range kind.Action() {
			if flips[i] {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteString(strings.ToLower(string(r)))
			}
		}

		got, ok := KindForAction(b.String())
		if !ok || got != kind {
			t.Fatalf("expected %q for %q, got %q (ok=%t)", kind, b.String(), got, ok)
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		suffix := rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "suffix")
		action := ActionPrefix + "UNKNOWN_" + suffix
		if kind, ok := KindForAction(action); ok {
			t.Fatalf("expected %q not to resolve, got %q", action, kind)
		}
	})
}

func TestDecodeKnownActionWithPayload(t *testing.T) {
	envelope := Decode(intent.New(KindConferenceJoined.Action()).PutExtra("a", 1))

	kind, ok := envelope.Kind()
	if !ok || kind != KindConferenceJoined {
		t.Fatalf("expected conference joined, got %q (ok=%t)", kind, ok)
	}
	data := envelope.Data()
	if len(data) != 1 || data["a"] != 1 {
		t.Fatalf("expected data {a:1}, got %v", data)
	}
}

func TestDecodeUnknownActionHasNoKind(t *testing.T) {
	envelope := Decode(intent.New("org.example.SOMETHING_ELSE").PutExtra("a", 1))

	if kind, ok := envelope.Kind(); ok {
		t.Fatalf("expected no kind, got %q", kind)
	}
	if envelope.Action() != "org.example.SOMETHING_ELSE" {
		t.Fatalf("expected raw action to be kept, got %q", envelope.Action())
	}
}

func TestDecodeWithoutPayloadYieldsEmptyData(t *testing.T) {
	for name, in := range map[string]*intent.Intent{
		"no extras":  intent.New(KindReadyToClose.Action()),
		"nil intent": nil,
	} {
		t.Run(name, func(t *testing.T) {
			data := Decode(in).Data()
			if data == nil || len(data) != 0 {
				t.Fatalf("expected empty non-nil data, got %#v", data)
			}
		})
	}
}

func TestEnvelopeDataIsImmutable(t *testing.T) {
	envelope := Decode(intent.New(KindParticipantJoined.Action()).PutExtra("participantId", "p1"))

	data := envelope.Data()
	data["participantId"] = "changed"

	if got := envelope.Data()["participantId"]; got != "p1" {
		t.Fatalf("expected envelope payload to be unchanged, got %v", got)
	}
}

func TestDecodeParticipant(t *testing.T) {
	info, err := DecodeParticipant(map[string]any{
		"participantId": "abc",
		"displayName":   "Ana",
		"isLocal":       "false",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ParticipantID != "abc" || info.DisplayName != "Ana" || info.IsLocal {
		t.Fatalf("unexpected participant %+v", info)
	}

	if _, err := DecodeParticipant(map[string]any{}); err == nil {
		t.Fatalf("expected missing participant id to fail")
	}
	if _, err := DecodeParticipant(map[string]any{"participantId": map[string]any{"nested": true}}); err == nil {
		t.Fatalf("expected malformed participant id to fail")
	}
}
