// Package events defines the typed notification contract between the
// conferencing engine and its host.
//
// Every kind is bound to a permanent action string of the form
// org.juncto.meet.<KIND>. Lookup from action string back to kind is
// case-insensitive; an unknown action never resolves.
//
// Session lifecycle (dispatched by the host by default)
//
//   - ConferenceWillJoin (CONFERENCE_WILL_JOIN): the engine started joining.
//   - ConferenceJoined (CONFERENCE_JOINED): the local participant is in.
//   - ConferenceTerminated (CONFERENCE_TERMINATED): the conference ended,
//     optionally with an "error" entry in the payload.
//   - ParticipantJoined (PARTICIPANT_JOINED), ParticipantLeft
//     (PARTICIPANT_LEFT): remote roster changes, payload decodes into
//     [ParticipantInfo].
//   - ReadyToClose (READY_TO_CLOSE): the engine finished shutting down and
//     the host may dispose of its UI.
//
// Media and messaging (application callbacks only)
//
//   - AudioMutedChanged, VideoMutedChanged, ScreenShareToggled,
//     EndpointTextMessageReceived, ParticipantsInfoRetrieved,
//     ChatMessageReceived, ChatToggled.
//
// Reserved
//
//   - TranscriptionChunkReceived, CustomButtonPressed, ConferenceUniqueIDSet,
//     RecordingStatusChanged: part of the action table so hosts subscribe to
//     them, but no default handler exists.
package events
