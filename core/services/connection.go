package services

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ConnectionState string

const (
	ConnectionActive       ConnectionState = "active"
	ConnectionDisconnected ConnectionState = "disconnected"
)

// DisconnectCause values reported to the disconnect callback.
const (
	CauseLocal   = "local"
	CauseAborted = "aborted"
)

// Connection is one call registered with the platform telephony stack.
type Connection struct {
	ID        string
	URL       string
	State     ConnectionState
	StartedAt time.Time
}

type ConnectionService struct {
	mu           sync.Mutex
	connections  map[string]*Connection
	onDisconnect func(c Connection, cause string)
	now          func() time.Time
}

type ConnectionServiceOption func(*ConnectionService)

func WithDisconnectCallback(callback func(c Connection, cause string)) ConnectionServiceOption {
	return func(s *ConnectionService) { s.onDisconnect = callback }
}

func NewConnectionService(opts ...ConnectionServiceOption) *ConnectionService {
	s := &ConnectionService{connections: map[string]*Connection{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartConnection registers an active call for url and returns its id.
func (s *ConnectionService) StartConnection(url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Connection{ID: uuid.NewString(), URL: url, State: ConnectionActive, StartedAt: s.now()}
	s.connections[c.ID] = c
	logger.Info("Telephony connection started", "id", c.ID, "url", url)
	return c.ID
}

func (s *ConnectionService) EndConnection(id string) {
	s.disconnect(CauseLocal, func(c *Connection) bool { return c.ID == id })
}

// AbortConnections disconnects every active call.
func (s *ConnectionService) AbortConnections() {
	s.disconnect(CauseAborted, func(*Connection) bool { return true })
}

// Connections returns the active calls ordered by start time.
func (s *ConnectionService) Connections() []Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Connection, 0, len(s.connections))
	for _, c := range s.connections {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Connection) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *ConnectionService) disconnect(cause string, match func(*Connection) bool) {
	s.mu.Lock()
	var ended []Connection
	for id, c := range s.connections {
		if !match(c) {
			continue
		}
		c.State = ConnectionDisconnected
		ended = append(ended, *c)
		delete(s.connections, id)
	}
	s.mu.Unlock()

	for _, c := range ended {
		logger.Info("Telephony connection ended", "id", c.ID, "cause", cause)
		if s.onDisconnect != nil {
			s.onDisconnect(c, cause)
		}
	}
}
