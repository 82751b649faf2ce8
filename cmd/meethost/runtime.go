package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	host "github.com/koscakluka/meethost/core"
	"github.com/koscakluka/meethost/core/broadcast"
	"github.com/koscakluka/meethost/core/intent"
	"github.com/koscakluka/meethost/core/looper"
	"github.com/koscakluka/meethost/core/services"
	"github.com/koscakluka/meethost/core/views/remote"
	"github.com/koscakluka/meethost/internal/config"
)

// hostRuntime is one activity with its looper, broadcast manager and remote
// view. All activity calls go through the looper.
type hostRuntime struct {
	looper     *looper.Looper
	broadcasts *broadcast.Manager
	view       *remote.View
	activity   *host.Activity
	logger     *slog.Logger

	finishOnce sync.Once
	finished   chan struct{}
}

func startHost(ctx context.Context, cfg config.Config, launch *intent.Intent, logger *slog.Logger, opts ...host.ActivityOption) (*hostRuntime, error) {
	// The looper outlives ctx so the activity can still be finished and
	// destroyed after an interrupt.
	lp := looper.New(context.WithoutCancel(ctx))
	if err := lp.Start(); err != nil {
		return nil, err
	}

	rt := &hostRuntime{
		looper:     lp,
		broadcasts: broadcast.NewManager(broadcast.WithExecutor(lp)),
		logger:     logger,
		finished:   make(chan struct{}),
	}

	view, err := remote.Dial(ctx, cfg.Engine.URL, rt.broadcasts, remote.WithLogger(logger))
	if err != nil {
		_ = lp.Stop()
		return nil, err
	}
	rt.view = view

	base := []host.ActivityOption{
		host.WithLogger(logger),
		host.WithBroadcastManager(rt.broadcasts),
		host.WithDelegate(cliDelegate{logger: logger}),
		host.WithOngoingService(services.NewOngoingConferenceService(logNotifier{logger: logger})),
		host.WithDefaultOptions(cfg.Conference.Options()),
		host.WithFinishHandler(func() { rt.finishOnce.Do(func() { close(rt.finished) }) }),
	}
	if cfg.ConnectionService {
		base = append(base, host.WithConnectionService(services.NewConnectionService(
			services.WithDisconnectCallback(func(c services.Connection, cause string) {
				logger.Info("Connection ended", "id", c.ID, "url", c.URL, "cause", cause)
			}),
		)))
	}
	rt.activity = host.NewActivity(append(base, opts...)...)

	var createErr error
	if err := lp.Do(func() { createErr = rt.activity.Create(ctx, launch, view) }); err != nil {
		createErr = err
	}
	if createErr != nil {
		_ = view.Close()
		_ = lp.Stop()
		return nil, fmt.Errorf("failed to start host: %w", createErr)
	}
	return rt, nil
}

// Do runs fn with the activity on the looper and waits for it.
func (rt *hostRuntime) Do(fn func(a *host.Activity)) error {
	return rt.looper.Do(func() { fn(rt.activity) })
}

func (rt *hostRuntime) NewIntent(in *intent.Intent) error {
	var intentErr error
	if err := rt.Do(func(a *host.Activity) { intentErr = a.NewIntent(in) }); err != nil {
		return err
	}
	return intentErr
}

// SendCommand broadcasts a command intent and reports whether the view is
// listening for it.
func (rt *hostRuntime) SendCommand(in *intent.Intent) bool {
	return rt.broadcasts.SendBroadcast(in)
}

func (rt *hostRuntime) State() (host.State, bool) {
	var (
		state        host.State
		readyToClose bool
	)
	if err := rt.Do(func(a *host.Activity) { state, readyToClose = a.State(), a.IsReadyToClose() }); err != nil {
		return host.StateDestroyed, true
	}
	return state, readyToClose
}

// Finished is closed when the activity asks to be finished.
func (rt *hostRuntime) Finished() <-chan struct{} { return rt.finished }

// EngineGone is closed when the engine connection drops.
func (rt *hostRuntime) EngineGone() <-chan struct{} { return rt.view.Done() }

// Wait blocks until the activity finishes, the engine goes away or ctx ends.
func (rt *hostRuntime) Wait(ctx context.Context) {
	select {
	case <-ctx.Done():
		rt.logger.Info("Interrupted, leaving conference")
		_ = rt.Do(func(a *host.Activity) { a.Finish() })
	case <-rt.finished:
	case <-rt.view.Done():
		rt.logger.Warn("Engine connection closed")
	}
}

// Shutdown destroys the activity and releases the view and looper.
func (rt *hostRuntime) Shutdown() error {
	destroyErr := rt.Do(func(a *host.Activity) { a.Destroy() })
	if errors.Is(destroyErr, looper.ErrStopped) {
		destroyErr = nil
	}
	return errors.Join(destroyErr, rt.view.Close(), rt.looper.Stop())
}

type cliDelegate struct {
	host.NoopDelegate
	logger *slog.Logger
}

func (d cliDelegate) OnNewIntent(in *intent.Intent) {
	d.logger.Info("Ignoring intent without conference options", "intent", in.String())
}

func (d cliDelegate) OnHostDestroy() { d.logger.Debug("Host destroyed") }

type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) ShowOngoing(notification services.OngoingNotification) {
	n.logger.Info("In conference", "url", notification.URL, "since", notification.StartedAt.Format("15:04:05"))
}

func (n logNotifier) HideOngoing(string) { n.logger.Info("Conference ended") }
