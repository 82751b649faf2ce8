// Package simengine is a stand-in conferencing engine. It speaks the remote
// view's WebSocket protocol and answers joins, aborts and commands with the
// notifications a real engine would send, without any media.
package simengine

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/meethost/core/commands"
	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/events"
	"github.com/koscakluka/meethost/core/views/remote"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/meethost/internal/simengine"

type Engine struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	observe  func(remote.Frame)

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithFrameObserver is called with every frame received from a host.
func WithFrameObserver(observe func(remote.Frame)) Option {
	return func(e *Engine) { e.observe = observe }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   otelslog.NewLogger(scopeName),
		sessions: map[*session]struct{}{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Warn("Failed to upgrade host connection", "error", err)
		return
	}

	s := &session{engine: e, conn: conn, localID: uuid.NewString()}
	e.mu.Lock()
	e.sessions[s] = struct{}{}
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		s.serve()

		e.mu.Lock()
		delete(e.sessions, s)
		e.mu.Unlock()
	}()
}

// Sessions returns the number of connected hosts.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Close disconnects every host and waits for their sessions to end.
func (e *Engine) Close() {
	e.mu.Lock()
	for s := range e.sessions {
		s.close()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

type session struct {
	engine  *Engine
	conn    *websocket.Conn
	writeMu sync.Mutex
	localID string

	url          string
	displayName  string
	audioMuted   bool
	videoMuted   bool
	inConference bool
}

func (s *session) serve() {
	defer s.conn.Close()

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.engine.logger.Debug("Host connection ended", "error", err)
			return
		}

		var frame remote.Frame
		if err := json.Unmarshal(msg, &frame); err != nil {
			s.engine.logger.Warn("Ignoring malformed host frame", "error", err)
			continue
		}
		if s.engine.observe != nil {
			s.engine.observe(frame)
		}
		s.handle(frame)
	}
}

func (s *session) handle(frame remote.Frame) {
	switch frame.Type {
	case remote.FrameJoin:
		var options conference.Options
		if frame.Options != nil {
			options = conference.FromPayload(*frame.Options)
		}
		s.join(options)
	case remote.FrameAbort:
		s.hangUp()
	case remote.FramePiP:
		s.engine.logger.Info("Entering picture-in-picture")
	case remote.FrameCommand:
		s.command(frame.Action, frame.Data)
	default:
		s.engine.logger.Warn("Ignoring unknown frame", "type", frame.Type)
	}
}

// join shows the welcome page for empty options and otherwise joins, leaving
// any conference already in progress.
func (s *session) join(options conference.Options) {
	if options.Room() == "" {
		s.engine.logger.Info("Showing welcome page")
		return
	}
	if s.inConference {
		s.terminate()
	}

	s.url = options.URL()
	s.audioMuted, _ = options.AudioMuted()
	s.videoMuted, _ = options.VideoMuted()
	if info, ok := options.UserInfo(); ok {
		s.displayName = info.DisplayName
	}

	s.emit(events.KindConferenceWillJoin, map[string]any{"url": s.url})
	s.inConference = true
	s.emit(events.KindConferenceJoined, map[string]any{"url": s.url})
	s.emit(events.KindParticipantJoined, s.localParticipant())
}

func (s *session) terminate() {
	s.inConference = false
	s.emit(events.KindConferenceTerminated, map[string]any{"url": s.url})
}

func (s *session) hangUp() {
	if s.inConference {
		s.terminate()
	}
	s.emit(events.KindReadyToClose, nil)
}

func (s *session) command(name string, data map[string]any) {
	kind, ok := commands.KindForName(name)
	if !ok {
		s.engine.logger.Warn("Ignoring unknown command", "command", name)
		return
	}

	switch kind {
	case commands.KindHangUp:
		s.hangUp()
	case commands.KindSetAudioMuted:
		s.audioMuted, _ = data[commands.ExtraMuted].(bool)
		s.emit(events.KindAudioMutedChanged, map[string]any{"muted": s.audioMuted})
	case commands.KindSetVideoMuted:
		s.videoMuted, _ = data[commands.ExtraMuted].(bool)
		s.emit(events.KindVideoMutedChanged, map[string]any{"muted": s.videoMuted})
	case commands.KindToggleScreenShare:
		sharing, _ := data[commands.ExtraEnabled].(bool)
		s.emit(events.KindScreenShareToggled, map[string]any{"participantId": s.localID, "sharing": sharing})
	case commands.KindOpenChat:
		s.emit(events.KindChatToggled, map[string]any{"isOpen": true})
	case commands.KindCloseChat:
		s.emit(events.KindChatToggled, map[string]any{"isOpen": false})
	case commands.KindSendChatMessage:
		to, _ := data[commands.ExtraTo].(string)
		s.emit(events.KindChatMessageReceived, map[string]any{
			"senderId":  s.localID,
			"message":   data[commands.ExtraMessage],
			"isPrivate": to != "",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	case commands.KindSendEndpointTextMessage:
		s.emit(events.KindEndpointTextMessage, map[string]any{"senderId": s.localID, "message": data[commands.ExtraMessage]})
	case commands.KindRetrieveParticipantsInfo:
		participants := []any{}
		if s.inConference {
			participants = append(participants, s.localParticipant())
		}
		s.emit(events.KindParticipantsInfo, map[string]any{
			"requestId":        data[commands.ExtraRequestID],
			"participantsInfo": participants,
		})
	case commands.KindStartRecording:
		s.emit(events.KindRecordingStatus, map[string]any{"on": true, "mode": data[commands.ExtraMode]})
	case commands.KindStopRecording:
		s.emit(events.KindRecordingStatus, map[string]any{"on": false, "mode": data[commands.ExtraMode]})
	default:
		s.engine.logger.Info("Command accepted", "command", kind.String())
	}
}

func (s *session) localParticipant() map[string]any {
	return map[string]any{
		"participantId": s.localID,
		"displayName":   s.displayName,
		"isLocal":       true,
	}
}

func (s *session) emit(kind events.Kind, data map[string]any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(remote.EventFrame(kind.String(), data)); err != nil {
		s.engine.logger.Warn("Failed to send event", "kind", kind.String(), "error", err)
	}
}

func (s *session) close() {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine shutting down"),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()
	_ = s.conn.Close()
}
