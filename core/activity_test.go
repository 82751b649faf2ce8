package host

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/koscakluka/meethost/core/broadcast"
	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/events"
	"github.com/koscakluka/meethost/core/intent"
)

type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func (r *callRecorder) count(call string) int {
	n := 0
	for _, c := range r.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

type recordingView struct {
	calls  *callRecorder
	mu     sync.Mutex
	joined []conference.Options
}

func (v *recordingView) Join(options conference.Options) {
	v.mu.Lock()
	v.joined = append(v.joined, options)
	v.mu.Unlock()
	v.calls.record("view.join")
}

func (v *recordingView) Abort()                 { v.calls.record("view.abort") }
func (v *recordingView) EnterPictureInPicture() { v.calls.record("view.pip") }

func (v *recordingView) joins() []conference.Options {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.joined)
}

// hostProbe observes the activity from inside its collaborators so tests can
// check what each teardown step saw.
type hostProbe struct {
	calls    *callRecorder
	activity *Activity
}

func (p *hostProbe) observed(name string) {
	p.calls.record("%s view=%t listening=%t", name, p.activity.Session().HasView(), p.activity.Broadcasts().ReceiverCount() > 0)
}

type recordingOngoing struct {
	*hostProbe
	launched []map[string]any
}

func (o *recordingOngoing) Launch(data map[string]any) {
	o.launched = append(o.launched, data)
	o.calls.record("ongoing.launch")
}

func (o *recordingOngoing) Abort() { o.observed("ongoing.abort") }

type recordingConnections struct {
	*hostProbe
	started []string
	ended   []string
	panics  bool
}

func (c *recordingConnections) StartConnection(url string) string {
	c.started = append(c.started, url)
	return fmt.Sprintf("conn-%d", len(c.started))
}

func (c *recordingConnections) EndConnection(id string) { c.ended = append(c.ended, id) }

func (c *recordingConnections) AbortConnections() {
	c.observed("connections.abort")
	if c.panics {
		panic("telephony stack gone")
	}
}

type recordingDelegate struct {
	NoopDelegate
	*hostProbe
}

func (d recordingDelegate) OnHostResume()                { d.calls.record("delegate.resume") }
func (d recordingDelegate) OnHostPause()                 { d.calls.record("delegate.pause") }
func (d recordingDelegate) OnHostDestroy()               { d.observed("delegate.destroy") }
func (d recordingDelegate) OnBackPressed()               { d.calls.record("delegate.back") }
func (d recordingDelegate) OnNewIntent(in *intent.Intent) { d.calls.record("delegate.new_intent %s", in.Action) }
func (d recordingDelegate) OnActivityResult(requestCode, resultCode int, _ *intent.Intent) {
	d.calls.record("delegate.activity_result %d %d", requestCode, resultCode)
}
func (d recordingDelegate) RequestPermissions(permissions []string, requestCode int, _ PermissionListener) {
	d.calls.record("delegate.request_permissions %v %d", permissions, requestCode)
}
func (d recordingDelegate) OnRequestPermissionsResult(requestCode int, permissions []string, grantResults []int) {
	d.calls.record("delegate.permissions_result %d %v %v", requestCode, permissions, grantResults)
}

type testHost struct {
	activity    *Activity
	view        *recordingView
	calls       *callRecorder
	ongoing     *recordingOngoing
	connections *recordingConnections
	finished    int
}

func newTestHost(t *testing.T, opts ...ActivityOption) *testHost {
	t.Helper()

	calls := &callRecorder{}
	probe := &hostProbe{calls: calls}
	h := &testHost{
		view:        &recordingView{calls: calls},
		calls:       calls,
		ongoing:     &recordingOngoing{hostProbe: probe},
		connections: &recordingConnections{hostProbe: probe},
	}

	base := []ActivityOption{
		WithDelegate(recordingDelegate{hostProbe: probe}),
		WithOngoingService(h.ongoing),
		WithConnectionService(h.connections),
		WithFinishHandler(func() { h.finished++ }),
	}
	h.activity = NewActivity(append(base, opts...)...)
	probe.activity = h.activity
	return h
}

func (h *testHost) create(t *testing.T, launch *intent.Intent) {
	t.Helper()
	if err := h.activity.Create(t.Context(), launch, h.view); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
}

func (h *testHost) notify(kind events.Kind, data map[string]any) {
	h.activity.Broadcasts().SendBroadcast(events.NewNotification(kind, data))
}

func mustViewIntent(t *testing.T, rawURL string) *intent.Intent {
	t.Helper()
	in, err := intent.NewView(rawURL)
	if err != nil {
		t.Fatalf("unexpected url error: %v", err)
	}
	return in
}

func TestCreateJoinsRoomOfViewIntent(t *testing.T) {
	h := newTestHost(t)

	h.create(t, mustViewIntent(t, "https://example.test/room42"))

	joins := h.view.joins()
	if len(joins) != 1 {
		t.Fatalf("expected one join, got %d", len(joins))
	}
	if joins[0].Room() != "room42" {
		t.Fatalf("expected room room42, got %q", joins[0].Room())
	}
	if joins[0].ServerURL() != "https://example.test" {
		t.Fatalf("expected server https://example.test, got %q", joins[0].ServerURL())
	}
	if h.activity.State() != StateCreated {
		t.Fatalf("expected created state, got %q", h.activity.State())
	}
	if h.calls.count("delegate.resume") != 1 {
		t.Fatalf("expected host resume on create, got %v", h.calls.snapshot())
	}
}

func TestCreateResolvesLaunchIntents(t *testing.T) {
	testCases := []struct {
		name         string
		launch       *intent.Intent
		expectedRoom string
		expectedZero bool
	}{
		{name: "conference options", launch: LaunchIntent(conference.NewBuilder().SetServerURL("https://meet.test").SetRoom("daily").Build()), expectedRoom: "daily"},
		{name: "conference url", launch: LaunchURLIntent("https://meet.test/standup"), expectedRoom: "standup"},
		{name: "options map", launch: intent.New(ActionConference).PutExtra(ExtraConferenceOptions, map[string]any{"room": "mapped", "audioMuted": "true"}), expectedRoom: "mapped"},
		{name: "no intent", launch: nil, expectedZero: true},
		{name: "unrelated intent", launch: intent.New("org.example.MAIN"), expectedZero: true},
		{name: "malformed options", launch: intent.New(ActionConference).PutExtra(ExtraConferenceOptions, 42), expectedZero: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			h := newTestHost(t)

			h.create(t, testCase.launch)

			joins := h.view.joins()
			if len(joins) != 1 {
				t.Fatalf("expected one join, got %d", len(joins))
			}
			if testCase.expectedZero {
				if !joins[0].IsZero() {
					t.Fatalf("expected welcome page join, got %q", joins[0].URL())
				}
				return
			}
			if joins[0].Room() != testCase.expectedRoom {
				t.Fatalf("expected room %q, got %q", testCase.expectedRoom, joins[0].Room())
			}
		})
	}
}

func TestCreateTwiceFails(t *testing.T) {
	h := newTestHost(t)
	h.create(t, nil)

	if err := h.activity.Create(t.Context(), nil, h.view); err == nil {
		t.Fatalf("expected second create to fail")
	}
	if len(h.view.joins()) != 1 {
		t.Fatalf("expected second create not to join again")
	}
}

func TestExtraInitializePostponesJoin(t *testing.T) {
	h := newTestHost(t, WithExtraInitialize(func(*Activity) bool { return true }))

	h.create(t, LaunchURLIntent("https://meet.test/later"))
	if len(h.view.joins()) != 0 {
		t.Fatalf("expected no join before initialize")
	}

	h.activity.Initialize()
	joins := h.view.joins()
	if len(joins) != 1 || joins[0].Room() != "later" {
		t.Fatalf("expected deferred join of later, got %v", joins)
	}
}

func TestPostponedInitializeKeepsLaunchIntentAfterDelegateRelaunch(t *testing.T) {
	h := newTestHost(t, WithExtraInitialize(func(*Activity) bool { return true }))
	h.create(t, LaunchURLIntent("https://meet.test/room42"))

	if err := h.activity.NewIntent(intent.New("com.example.NOTIFICATION_TAP")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.calls.count("delegate.new_intent com.example.NOTIFICATION_TAP") != 1 {
		t.Fatalf("expected delegate to receive the relaunch, got %v", h.calls.snapshot())
	}
	if got := h.activity.Intent(); got == nil || got.Action != ActionConference {
		t.Fatalf("expected launch intent to be kept, got %v", got)
	}

	h.activity.Initialize()
	joins := h.view.joins()
	if len(joins) != 1 || joins[0].Room() != "room42" {
		t.Fatalf("expected deferred join of room42, got %v", joins)
	}
}

func TestDefaultOptionsFillUnsetFields(t *testing.T) {
	defaults := conference.NewBuilder().SetServerURL("https://default.test").SetAudioMuted(true).Build()
	h := newTestHost(t, WithDefaultOptions(defaults))

	h.create(t, LaunchURLIntent("team"))

	joined := h.view.joins()[0]
	if joined.ServerURL() != "https://default.test" || joined.Room() != "team" {
		t.Fatalf("expected default server with room team, got %q", joined.URL())
	}
	if muted, set := joined.AudioMuted(); !muted || !set {
		t.Fatalf("expected audio muted default to apply")
	}
}

func TestReadyToCloseFinishesExactlyOnce(t *testing.T) {
	h := newTestHost(t)
	h.create(t, LaunchURLIntent("https://meet.test/room"))

	h.notify(events.KindReadyToClose, nil)

	if !h.activity.IsReadyToClose() {
		t.Fatalf("expected ready to close")
	}
	if h.finished != 1 {
		t.Fatalf("expected one finish request, got %d", h.finished)
	}

	h.activity.Finish()

	if h.finished != 1 {
		t.Fatalf("expected finish not to be requested again, got %d", h.finished)
	}
	if got := h.calls.count("view.abort"); got != 0 {
		t.Fatalf("expected no leave after ready to close, got %d", got)
	}
}

func TestFinishLeavesUntilReadyToClose(t *testing.T) {
	h := newTestHost(t)
	h.create(t, nil)

	h.activity.Finish()
	h.activity.Finish()

	if got := h.calls.count("view.abort"); got != 2 {
		t.Fatalf("expected a leave per finish, got %d", got)
	}
	if h.finished != 1 {
		t.Fatalf("expected one finish request, got %d", h.finished)
	}
}

func TestDestroyWithoutFinishTearsDownInOrder(t *testing.T) {
	h := newTestHost(t)
	h.create(t, LaunchURLIntent("https://meet.test/room"))

	h.activity.Destroy()

	var teardown []string
	for _, call := range h.calls.snapshot() {
		if call != "view.join" && call != "delegate.resume" {
			teardown = append(teardown, call)
		}
	}
	expected := []string{
		"view.abort",
		"connections.abort view=false listening=true",
		"ongoing.abort view=false listening=true",
		"delegate.destroy view=false listening=false",
	}
	if !slices.Equal(teardown, expected) {
		t.Fatalf("expected teardown %v, got %v", expected, teardown)
	}
	if h.activity.State() != StateDestroyed {
		t.Fatalf("expected destroyed state, got %q", h.activity.State())
	}
}

func TestDestroyAfterReadyToCloseSkipsLeave(t *testing.T) {
	h := newTestHost(t)
	h.create(t, nil)
	h.notify(events.KindReadyToClose, nil)

	h.activity.Destroy()

	if got := h.calls.count("view.abort"); got != 0 {
		t.Fatalf("expected no leave, got %d", got)
	}
}

func TestDestroyTwiceIsIdempotent(t *testing.T) {
	h := newTestHost(t)
	h.create(t, nil)

	h.activity.Destroy()
	if h.activity.Session().HasView() {
		t.Fatalf("expected view handle to be released")
	}
	callsAfterFirst := len(h.calls.snapshot())

	h.activity.Destroy()
	if h.activity.Session().HasView() {
		t.Fatalf("expected view handle to stay released")
	}
	if got := len(h.calls.snapshot()); got != callsAfterFirst {
		t.Fatalf("expected second destroy to do nothing, got %v", h.calls.snapshot()[callsAfterFirst:])
	}
}

func TestDestroyContinuesPastFailingStep(t *testing.T) {
	h := newTestHost(t)
	h.connections.panics = true
	h.create(t, nil)

	h.activity.Destroy()

	if h.calls.count("ongoing.abort view=false listening=true") != 1 {
		t.Fatalf("expected ongoing abort after failing step, got %v", h.calls.snapshot())
	}
	if h.calls.count("delegate.destroy view=false listening=false") != 1 {
		t.Fatalf("expected host destroy after failing step, got %v", h.calls.snapshot())
	}
	if h.activity.State() != StateDestroyed {
		t.Fatalf("expected destroyed state, got %q", h.activity.State())
	}
}

func TestNewIntentJoinsWithoutDelegate(t *testing.T) {
	h := newTestHost(t)
	h.create(t, LaunchURLIntent("https://meet.test/first"))

	if err := h.activity.NewIntent(LaunchURLIntent("https://meet.test/second")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joins := h.view.joins()
	if len(joins) != 2 || joins[1].Room() != "second" {
		t.Fatalf("expected join of second room, got %d joins", len(joins))
	}
	for _, call := range h.calls.snapshot() {
		if call == "delegate.new_intent "+ActionConference {
			t.Fatalf("expected delegate not to see the relaunch")
		}
	}
	if got := h.activity.Intent(); got == nil || got.Action != ActionConference {
		t.Fatalf("expected relaunch intent to be kept, got %v", got)
	}
}

func TestNewIntentWithoutOptionsGoesToDelegate(t *testing.T) {
	h := newTestHost(t)
	h.create(t, nil)

	if err := h.activity.NewIntent(intent.New("org.example.SHARE")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.calls.count("delegate.new_intent org.example.SHARE") != 1 {
		t.Fatalf("expected delegate to receive the intent, got %v", h.calls.snapshot())
	}
	if len(h.view.joins()) != 1 {
		t.Fatalf("expected no extra join")
	}
}

func TestNewIntentAfterDestroyIsRejected(t *testing.T) {
	h := newTestHost(t)
	h.create(t, nil)
	h.activity.Destroy()

	if err := h.activity.NewIntent(LaunchURLIntent("room")); !errors.Is(err, ErrNotAlive) {
		t.Fatalf("expected ErrNotAlive, got %v", err)
	}
}

func TestConferenceJoinedLaunchesServices(t *testing.T) {
	var joined []map[string]any
	h := newTestHost(t, WithConferenceJoinedCallback(func(data map[string]any) { joined = append(joined, data) }))
	h.create(t, nil)

	h.notify(events.KindConferenceJoined, map[string]any{"url": "https://meet.test/room"})

	if len(h.ongoing.launched) != 1 || h.ongoing.launched[0]["url"] != "https://meet.test/room" {
		t.Fatalf("expected ongoing launch with url, got %v", h.ongoing.launched)
	}
	if !slices.Equal(h.connections.started, []string{"https://meet.test/room"}) {
		t.Fatalf("expected connection for room, got %v", h.connections.started)
	}
	if len(joined) != 1 {
		t.Fatalf("expected application callback once, got %d", len(joined))
	}

	h.notify(events.KindConferenceTerminated, map[string]any{"url": "https://meet.test/room"})

	if !slices.Equal(h.connections.ended, []string{"conn-1"}) {
		t.Fatalf("expected connection to end, got %v", h.connections.ended)
	}
}

func TestMalformedPayloadDoesNotStopDispatch(t *testing.T) {
	var typed, raw int
	h := newTestHost(t,
		WithParticipantJoinedCallback(func(events.ParticipantInfo) { typed++ }),
		WithEventCallback(events.KindParticipantJoined, func(map[string]any) { raw++ }),
	)
	h.create(t, nil)

	h.notify(events.KindParticipantJoined, map[string]any{"displayName": "no id"})
	h.notify(events.KindParticipantJoined, map[string]any{"participantId": "p1"})

	if typed != 1 {
		t.Fatalf("expected typed callback only for the valid payload, got %d", typed)
	}
	if raw != 2 {
		t.Fatalf("expected raw callback for both payloads, got %d", raw)
	}
}

func TestPanickingCallbackIsIsolated(t *testing.T) {
	var reached bool
	h := newTestHost(t,
		WithEventCallback(events.KindAudioMutedChanged, func(map[string]any) { panic("boom") }),
		WithEventCallback(events.KindAudioMutedChanged, func(map[string]any) { reached = true }),
	)
	h.create(t, nil)

	h.notify(events.KindAudioMutedChanged, map[string]any{"muted": true})

	if !reached {
		t.Fatalf("expected later callback to run")
	}
}

func TestReservedKindsReachApplicationCallbacks(t *testing.T) {
	var pressed []map[string]any
	h := newTestHost(t, WithEventCallback(events.KindCustomButtonPressed, func(data map[string]any) { pressed = append(pressed, data) }))
	h.create(t, nil)

	h.notify(events.KindCustomButtonPressed, map[string]any{"id": "btn"})

	if len(pressed) != 1 || pressed[0]["id"] != "btn" {
		t.Fatalf("expected reserved kind callback, got %v", pressed)
	}
}

func TestNoDispatchAfterDestroy(t *testing.T) {
	var joined int
	h := newTestHost(t, WithConferenceJoinedCallback(func(map[string]any) { joined++ }))
	h.create(t, nil)
	h.activity.Destroy()

	h.notify(events.KindConferenceJoined, nil)
	h.activity.router.OnReceive(events.NewNotification(events.KindConferenceJoined, nil))

	if joined != 0 {
		t.Fatalf("expected no dispatch after destroy, got %d", joined)
	}
}

func TestUnknownActionIsDropped(t *testing.T) {
	var called int
	h := newTestHost(t, WithEventCallback(events.KindConferenceJoined, func(map[string]any) { called++ }))
	h.create(t, nil)

	h.activity.router.OnReceive(intent.New("org.juncto.meet.SOMETHING_NEW").PutExtra("a", 1))

	if called != 0 {
		t.Fatalf("expected unknown action not to dispatch")
	}
}

func TestLifecycleForwarding(t *testing.T) {
	h := newTestHost(t)
	h.create(t, nil)

	h.activity.Resume()
	h.activity.Stop()
	h.activity.BackPressed()
	h.activity.ActivityResult(7, -1, nil)
	h.activity.RequestPermissions([]string{"camera"}, 3, nil)
	h.activity.RequestPermissionsResult(3, []string{"camera"}, []int{0})
	h.activity.UserLeaveHint()

	for _, expected := range []string{
		"delegate.pause",
		"delegate.back",
		"delegate.activity_result 7 -1",
		"delegate.request_permissions [camera] 3",
		"delegate.permissions_result 3 [camera] [0]",
		"view.pip",
	} {
		if h.calls.count(expected) != 1 {
			t.Fatalf("expected %q once, got %v", expected, h.calls.snapshot())
		}
	}
	if h.calls.count("delegate.resume") != 2 {
		t.Fatalf("expected resume on create and on Resume, got %v", h.calls.snapshot())
	}
	if h.activity.State() != StateActive {
		t.Fatalf("expected active state, got %q", h.activity.State())
	}
}

func TestConfigurationChangedIsBroadcast(t *testing.T) {
	h := newTestHost(t)
	h.create(t, nil)

	var received []*intent.Intent
	h.activity.Broadcasts().Register(broadcast.ReceiverFunc(func(in *intent.Intent) { received = append(received, in) }), broadcast.NewFilter(ActionConfigurationChanged))

	h.activity.ConfigurationChanged(map[string]any{"orientation": "landscape"})

	if len(received) != 1 {
		t.Fatalf("expected one configuration broadcast, got %d", len(received))
	}
	config, _ := received[0].Extra(ExtraNewConfig)
	if config.(map[string]any)["orientation"] != "landscape" {
		t.Fatalf("unexpected configuration %v", config)
	}
}
