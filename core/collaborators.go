package host

import (
	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/intent"
)

// View is the embedded conferencing view. Calls are one-way requests; the
// view reports progress through broadcasts.
type View interface {
	Join(options conference.Options)
	Abort()
}

// PictureInPictureView is implemented by views that can shrink into a
// floating window when the user leaves the host.
type PictureInPictureView interface {
	EnterPictureInPicture()
}

type PermissionListener func(requestCode int, permissions []string, grantResults []int) bool

// Delegate receives the host callbacks the engine runtime needs verbatim.
type Delegate interface {
	OnHostResume()
	OnHostPause()
	OnHostDestroy()
	OnBackPressed()
	OnNewIntent(in *intent.Intent)
	OnActivityResult(requestCode, resultCode int, data *intent.Intent)
	RequestPermissions(permissions []string, requestCode int, listener PermissionListener)
	OnRequestPermissionsResult(requestCode int, permissions []string, grantResults []int)
}

// NoopDelegate ignores every callback. Embed it to implement only the
// callbacks you need.
type NoopDelegate struct{}

func (NoopDelegate) OnHostResume()                                       {}
func (NoopDelegate) OnHostPause()                                        {}
func (NoopDelegate) OnHostDestroy()                                      {}
func (NoopDelegate) OnBackPressed()                                      {}
func (NoopDelegate) OnNewIntent(*intent.Intent)                          {}
func (NoopDelegate) OnActivityResult(int, int, *intent.Intent)           {}
func (NoopDelegate) RequestPermissions([]string, int, PermissionListener) {}
func (NoopDelegate) OnRequestPermissionsResult(int, []string, []int)     {}

// OngoingService shows the ongoing-conference notification.
type OngoingService interface {
	Launch(data map[string]any)
	Abort()
}

// ConnectionService registers calls with the platform telephony stack.
type ConnectionService interface {
	StartConnection(url string) string
	EndConnection(id string)
	AbortConnections()
}
