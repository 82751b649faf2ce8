// Package services holds the host integrations that live alongside a
// conference: the ongoing-conference notification and the telephony
// connection registry.
package services

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OngoingNotification is what the host shows while a conference runs.
type OngoingNotification struct {
	ID        string
	URL       string
	StartedAt time.Time
	Data      map[string]any
}

// Notifier renders the ongoing notification. Implementations must not block.
type Notifier interface {
	ShowOngoing(n OngoingNotification)
	HideOngoing(id string)
}

type OngoingConferenceService struct {
	mu       sync.Mutex
	notifier Notifier
	current  *OngoingNotification
	now      func() time.Time
}

func NewOngoingConferenceService(notifier Notifier) *OngoingConferenceService {
	return &OngoingConferenceService{notifier: notifier, now: time.Now}
}

// Launch shows the notification for the joined conference described by
// data. Launching while one is shown replaces its content and keeps its id.
func (s *OngoingConferenceService) Launch(data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := OngoingNotification{ID: uuid.NewString(), StartedAt: s.now(), Data: maps.Clone(data)}
	if url, ok := data["url"]; ok {
		n.URL = fmt.Sprint(url)
	}
	if s.current != nil {
		n.ID, n.StartedAt = s.current.ID, s.current.StartedAt
	}
	s.current = &n

	logger.Info("Ongoing conference notification shown", "id", n.ID, "url", n.URL)
	if s.notifier != nil {
		s.notifier.ShowOngoing(n)
	}
}

// Abort hides the notification if one is shown.
func (s *OngoingConferenceService) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	id := s.current.ID
	s.current = nil

	logger.Info("Ongoing conference notification hidden", "id", id)
	if s.notifier != nil {
		s.notifier.HideOngoing(id)
	}
}

func (s *OngoingConferenceService) Current() (OngoingNotification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return OngoingNotification{}, false
	}
	return *s.current, true
}
