package host

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/koscakluka/meethost/core/conference"
)

var (
	ErrNilView          = errors.New("view is nil")
	ErrViewAlreadyHeld  = errors.New("a view handle is already held")
	errNoViewHandleHeld = errors.New("no view handle held")
)

// SessionController owns the single handle to the embedded view. Every
// request made while no handle is held is a logged no-op.
type SessionController struct {
	mu     sync.Mutex
	view   View
	logger *slog.Logger
}

func newSessionController(logger *slog.Logger) *SessionController {
	return &SessionController{logger: logger}
}

// Acquire stores the view handle. It fails if view is nil or another handle
// is already held.
func (s *SessionController) Acquire(view View) error {
	if view == nil {
		return ErrNilView
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil {
		return ErrViewAlreadyHeld
	}
	s.view = view
	return nil
}

func (s *SessionController) HasView() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view != nil
}

// Join asks the view to join options. Zero options open the welcome page.
func (s *SessionController) Join(options conference.Options) {
	view, ok := s.current("join")
	if !ok {
		return
	}
	s.logger.Info("Joining conference", "url", options.URL())
	view.Join(options)
}

// Leave asks the view to abort the current conference.
func (s *SessionController) Leave() {
	view, ok := s.current("leave")
	if !ok {
		return
	}
	view.Abort()
}

// EnterPictureInPicture is ignored by views that don't support it.
func (s *SessionController) EnterPictureInPicture() {
	view, ok := s.current("enter picture-in-picture")
	if !ok {
		return
	}
	pip, ok := view.(PictureInPictureView)
	if !ok {
		s.logger.Debug("View does not support picture-in-picture")
		return
	}
	pip.EnterPictureInPicture()
}

// ReleaseHandle drops the view handle. Releasing twice is harmless.
func (s *SessionController) ReleaseHandle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = nil
}

func (s *SessionController) current(operation string) (View, bool) {
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()

	if view == nil {
		s.logger.Warn("Cannot "+operation, "error", errNoViewHandleHeld)
		return nil, false
	}
	return view, true
}
