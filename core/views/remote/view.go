// Package remote implements the conference view over a WebSocket connection
// to an out-of-process engine. Engine notifications are rebroadcast to the
// host and command broadcasts are forwarded to the engine.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/meethost/core/broadcast"
	"github.com/koscakluka/meethost/core/commands"
	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/events"
	"github.com/koscakluka/meethost/core/intent"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrClosed = errors.New("remote view closed")

const closeTimeout = time.Second

type View struct {
	conn       *websocket.Conn
	connMu     sync.Mutex
	broadcasts *broadcast.Manager
	commands   *broadcast.Registration
	logger     *slog.Logger

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

type Option func(*options)

type options struct {
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(o *options) { o.dialer = dialer }
}

// WithHeader adds headers to the handshake request, e.g. for authorization.
func WithHeader(header http.Header) Option {
	return func(o *options) { o.header = header.Clone() }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Dial connects to the engine at rawURL. Notifications from the engine are
// sent through broadcasts, and command broadcasts on it go to the engine.
func Dial(ctx context.Context, rawURL string, broadcasts *broadcast.Manager, opts ...Option) (*View, error) {
	ctx, span := tracer.Start(ctx, "remote.connect")
	defer span.End()
	span.SetAttributes(attribute.String("engine.url", rawURL))

	o := options{dialer: websocket.DefaultDialer, logger: logger}
	for _, opt := range opts {
		opt(&o)
	}

	conn, _, err := o.dialer.DialContext(ctx, rawURL, o.header)
	if err != nil {
		recordedErr := fmt.Errorf("failed to connect to engine: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return nil, recordedErr
	}

	v := &View{
		conn:       conn,
		broadcasts: broadcasts,
		logger:     o.logger.With("engine", rawURL),
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	v.commands = broadcasts.Register(broadcast.ReceiverFunc(v.forwardCommand), broadcast.NewFilter(commands.Actions()...))

	go v.readMessages()
	return v, nil
}

func (v *View) Join(options conference.Options) {
	if err := v.send(JoinFrame(options)); err != nil {
		v.logger.Warn("Failed to send join", "error", err)
	}
}

func (v *View) Abort() {
	if err := v.send(Frame{Type: FrameAbort}); err != nil {
		v.logger.Warn("Failed to send abort", "error", err)
	}
}

func (v *View) EnterPictureInPicture() {
	if err := v.send(Frame{Type: FramePiP}); err != nil {
		v.logger.Warn("Failed to send picture-in-picture request", "error", err)
	}
}

// Done is closed once the connection to the engine is gone.
func (v *View) Done() <-chan struct{} { return v.done }

// Close stops forwarding commands and closes the connection. It waits for
// the read loop to exit.
func (v *View) Close() error {
	var err error
	v.closeOnce.Do(func() {
		close(v.closing)
		v.commands.Unregister()

		v.connMu.Lock()
		if writeErr := v.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeTimeout),
		); writeErr != nil {
			v.logger.Debug("Engine connection already closing", "error", writeErr)
		}
		v.connMu.Unlock()

		select {
		case <-v.done:
		case <-time.After(closeTimeout):
		}

		if closeErr := v.conn.Close(); closeErr != nil {
			select {
			case <-v.done:
			default:
				err = fmt.Errorf("failed to close engine connection: %w", closeErr)
			}
		}
		<-v.done
	})
	return err
}

func (v *View) send(frame Frame) error {
	select {
	case <-v.closing:
		return ErrClosed
	case <-v.done:
		return ErrClosed
	default:
	}

	v.connMu.Lock()
	defer v.connMu.Unlock()
	if err := v.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", frame.Type, err)
	}
	return nil
}

func (v *View) forwardCommand(in *intent.Intent) {
	kind, ok := commands.KindForAction(in.Action)
	if !ok {
		return
	}
	if err := v.send(CommandFrame(kind.String(), in.Extras())); err != nil {
		v.logger.Warn("Failed to forward command", "command", kind.String(), "error", err)
	}
}

func (v *View) readMessages() {
	defer close(v.done)

	for {
		msgType, msg, err := v.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-v.closing:
				default:
					v.logger.Warn("Engine connection lost", "error", err)
				}
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(msg, &frame); err != nil {
			v.logger.Warn("Ignoring malformed engine frame", "error", err)
			continue
		}
		if frame.Type != FrameEvent {
			v.logger.Debug("Ignoring engine frame", "type", frame.Type)
			continue
		}
		v.broadcasts.SendBroadcast(notification(frame))
	}
}

// notification turns an event frame into a broadcast. Names outside the
// event table are still broadcast under the common prefix so receivers see
// and drop them themselves.
func notification(frame Frame) *intent.Intent {
	if kind, ok := events.KindForName(frame.Name); ok {
		return events.NewNotification(kind, frame.Data)
	}
	return intent.New(events.ActionPrefix + frame.Name).PutExtras(frame.Data)
}
