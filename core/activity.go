package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/koscakluka/meethost/core/broadcast"
	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/intent"
	"github.com/koscakluka/meethost/core/services"
	"github.com/koscakluka/meethost/internal/fsm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateInitialized State = "initialized"
	StateCreated     State = "created"
	StateActive      State = "active"
	StateDestroying  State = "destroying"
	StateDestroyed   State = "destroyed"
)

type lifecycleEvent string

const (
	lifecycleCreate    lifecycleEvent = "create"
	lifecycleResume    lifecycleEvent = "resume"
	lifecycleStop      lifecycleEvent = "stop"
	lifecycleDestroy   lifecycleEvent = "destroy"
	lifecycleDestroyed lifecycleEvent = "destroyed"
)

var lifecycle = []fsm.Transition[State, lifecycleEvent]{
	{From: StateInitialized, Event: lifecycleCreate, To: StateCreated},
	{From: StateCreated, Event: lifecycleResume, To: StateActive},
	{From: StateCreated, Event: lifecycleStop, To: StateCreated},
	{From: StateActive, Event: lifecycleResume, To: StateActive},
	{From: StateActive, Event: lifecycleStop, To: StateActive},
	{From: StateCreated, Event: lifecycleDestroy, To: StateDestroying},
	{From: StateActive, Event: lifecycleDestroy, To: StateDestroying},
	{From: StateDestroying, Event: lifecycleDestroyed, To: StateDestroyed},
}

var ErrNotAlive = errors.New("activity is not alive")

// Activity hosts one embedded conference view for the lifetime of a host
// screen. Lifecycle methods are expected to be called from a single goroutine,
// the same one broadcasts are delivered on.
type Activity struct {
	id string

	machine    *fsm.Machine[State, lifecycleEvent]
	session    *SessionController
	router     *eventRouter
	broadcasts *broadcast.Manager
	delegate   Delegate

	ongoing              OngoingService
	connections          ConnectionService
	useConnectionService bool

	defaults        conference.Options
	extraInitialize func(a *Activity) bool
	onFinish        func()
	callbacks       []kindCallback

	mu             sync.Mutex
	launchIntent   *intent.Intent
	connectionID   string
	isReadyToClose atomic.Bool
	finishOnce     sync.Once

	logger      *slog.Logger
	baseContext context.Context
}

func NewActivity(opts ...ActivityOption) *Activity {
	a := &Activity{
		id:          uuid.NewString(),
		machine:     fsm.MustNew(StateInitialized, lifecycle),
		delegate:    NoopDelegate{},
		ongoing:     services.NewOngoingConferenceService(nil),
		logger:      logger,
		baseContext: context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("activity", a.id)
	if a.broadcasts == nil {
		a.broadcasts = broadcast.NewManager()
	}

	a.session = newSessionController(a.logger)
	a.router = newEventRouter(a.broadcasts, a.logger)
	a.installDefaultHandlers()
	for _, callback := range a.callbacks {
		a.router.handle(callback.kind, callback.handler)
	}
	return a
}

func (a *Activity) ID() string                     { return a.id }
func (a *Activity) State() State                   { return a.machine.State() }
func (a *Activity) Session() *SessionController    { return a.session }
func (a *Activity) Broadcasts() *broadcast.Manager { return a.broadcasts }
func (a *Activity) IsReadyToClose() bool           { return a.isReadyToClose.Load() }

// Intent returns the intent the activity was created with, or the last
// relaunch that carried conference options.
func (a *Activity) Intent() *intent.Intent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.launchIntent.Clone()
}

// Create brings the activity up around view: it acquires the view handle,
// starts listening for engine notifications and, unless the extra
// initialization hook postpones it, joins the conference of launch.
func (a *Activity) Create(ctx context.Context, launch *intent.Intent, view View) error {
	ctx, span := tracer.Start(ctx, "activity.create", trace.WithAttributes(attribute.String("activity.id", a.id)))
	defer span.End()
	a.baseContext = ctx

	if _, err := a.machine.Fire(lifecycleCreate); err != nil {
		recordedErr := fmt.Errorf("failed to create activity: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return recordedErr
	}

	a.mu.Lock()
	a.launchIntent = launch.Clone()
	a.mu.Unlock()

	if err := a.session.Acquire(view); err != nil {
		span.SetAttributes(attribute.Bool("view.acquired", false))
		a.logger.Warn("Activity created without a view", "error", err)
	}

	a.delegate.OnHostResume()
	a.router.register()

	if a.extraInitialize == nil || !a.extraInitialize(a) {
		a.Initialize()
	}
	return nil
}

// Initialize joins the conference of the launch intent. Without usable
// options the view opens its welcome page.
func (a *Activity) Initialize() {
	options, err := ConferenceOptions(a.Intent())
	if err != nil && !errors.Is(err, ErrNoConferenceOptions) {
		a.logger.Warn("Ignoring invalid launch options", "error", err)
	}
	a.Join(options)
}

// Join joins options, completed with the activity's defaults.
func (a *Activity) Join(options conference.Options) {
	merged, err := conference.MergeDefaults(a.defaults, options)
	if err != nil {
		a.logger.Warn("Failed to apply default conference options", "error", err)
		merged = options
	}
	a.session.Join(merged)
}

// JoinURL joins the conference at rawURL, which may also be a bare room.
func (a *Activity) JoinURL(rawURL string) {
	a.Join(conference.NewBuilder().SetRoom(rawURL).Build())
}

func (a *Activity) leave() {
	a.session.Leave()
}

func (a *Activity) Resume() {
	if _, err := a.machine.Fire(lifecycleResume); err != nil {
		a.logger.Warn("Ignoring resume", "error", err)
		return
	}
	a.delegate.OnHostResume()
}

func (a *Activity) Stop() {
	if _, err := a.machine.Fire(lifecycleStop); err != nil {
		a.logger.Warn("Ignoring stop", "error", err)
		return
	}
	a.delegate.OnHostPause()
}

// NewIntent handles a relaunch of the running activity. Intents carrying
// conference options are joined directly; all others go to the delegate.
func (a *Activity) NewIntent(in *intent.Intent) error {
	_, span := tracer.Start(a.baseContext, "activity.new_intent", trace.WithAttributes(attribute.String("activity.id", a.id)))
	defer span.End()

	if !a.alive() {
		span.RecordError(ErrNotAlive)
		span.SetStatus(codes.Error, ErrNotAlive.Error())
		return ErrNotAlive
	}

	// Only a relaunch that carries a conference replaces the launch intent;
	// a postponed Initialize must still join the original one.
	options, err := ConferenceOptions(in)
	if err == nil {
		a.mu.Lock()
		a.launchIntent = in.Clone()
		a.mu.Unlock()

		span.SetAttributes(attribute.String("conference.url", options.URL()))
		a.Join(options)
		return nil
	}
	if !errors.Is(err, ErrNoConferenceOptions) {
		a.logger.Warn("Ignoring invalid relaunch options", "error", err)
	}
	a.delegate.OnNewIntent(in)
	return nil
}

// Finish closes the activity. Unless the engine already reported it is ready
// to close, the conference is left first. The finish handler runs once.
func (a *Activity) Finish() {
	if !a.isReadyToClose.Load() {
		a.logger.Info("Leaving conference before finishing")
		a.leave()
	}

	a.finishOnce.Do(func() {
		a.logger.Info("Finishing activity")
		if a.onFinish != nil {
			a.onFinish()
		}
	})
}

// Destroy tears the activity down in order: leave (unless ready to close),
// release the view, abort connections and the ongoing notification, stop
// listening and notify the delegate. A failing step never stops the ones
// after it. Destroying twice is a no-op.
func (a *Activity) Destroy() {
	_, span := tracer.Start(a.baseContext, "activity.destroy", trace.WithAttributes(attribute.String("activity.id", a.id)))
	defer span.End()

	if _, err := a.machine.Fire(lifecycleDestroy); err != nil {
		a.logger.Debug("Ignoring destroy", "state", a.State(), "error", err)
		return
	}

	steps := []struct {
		name string
		run  func()
	}{
		{name: "leave", run: func() {
			if !a.isReadyToClose.Load() {
				a.logger.Info("Leaving conference on destroy")
				a.leave()
			}
		}},
		{name: "release view", run: a.session.ReleaseHandle},
		{name: "abort connections", run: func() {
			if a.useConnectionService && a.connections != nil {
				a.connections.AbortConnections()
			}
		}},
		{name: "abort ongoing conference", run: func() {
			if a.ongoing != nil {
				a.ongoing.Abort()
			}
		}},
		{name: "stop listening", run: a.router.unregister},
		{name: "destroy host", run: a.delegate.OnHostDestroy},
	}

	for _, step := range steps {
		if err := runStep(step.run); err != nil {
			recordedErr := fmt.Errorf("failed to %s: %w", step.name, err)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
			a.logger.Error("Destroy step failed", "step", step.name, "error", err)
		}
	}

	if _, err := a.machine.Fire(lifecycleDestroyed); err != nil {
		a.logger.Error("Failed to complete destroy", "error", err)
	}
}

func runStep(step func()) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	step()
	return nil
}

func (a *Activity) alive() bool {
	switch a.State() {
	case StateCreated, StateActive:
		return true
	}
	return false
}

func (a *Activity) BackPressed() { a.delegate.OnBackPressed() }

func (a *Activity) ActivityResult(requestCode, resultCode int, data *intent.Intent) {
	a.delegate.OnActivityResult(requestCode, resultCode, data)
}

func (a *Activity) RequestPermissions(permissions []string, requestCode int, listener PermissionListener) {
	a.delegate.RequestPermissions(permissions, requestCode, listener)
}

func (a *Activity) RequestPermissionsResult(requestCode int, permissions []string, grantResults []int) {
	a.delegate.OnRequestPermissionsResult(requestCode, permissions, grantResults)
}

// UserLeaveHint is called when the user navigates away from the host.
func (a *Activity) UserLeaveHint() {
	a.session.EnterPictureInPicture()
}

// ConfigurationChanged rebroadcasts the host's new configuration for the
// engine runtime.
func (a *Activity) ConfigurationChanged(config map[string]any) {
	a.broadcasts.SendBroadcast(intent.New(ActionConfigurationChanged).PutExtra(ExtraNewConfig, config))
}
