// Package looper runs posted work on a single goroutine, in order. Hosts use
// it as their main thread so lifecycle calls and event dispatch never race.
package looper

import (
	"context"
	"errors"
	"fmt"

	"github.com/frostbyte73/core"
)

var (
	ErrNotStarted = errors.New("looper: not started")
	ErrStopped    = errors.New("looper: stopped")
)

const defaultQueueSize = 64

type task struct {
	fn   func()
	done chan struct{}
}

type Looper struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan task
	exited chan struct{}

	started core.Fuse
	stopped core.Fuse
}

func New(ctx context.Context) *Looper {
	ctx, cancel := context.WithCancel(ctx)
	return &Looper{
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan task, defaultQueueSize),
		exited: make(chan struct{}),
	}
}

// Start launches the loop goroutine. It can be called once.
func (l *Looper) Start() error {
	if !l.started.Break() {
		return fmt.Errorf("looper: already started")
	}

	go func() {
		defer close(l.exited)
		for {
			select {
			case t := <-l.queue:
				l.run(t)
			case <-l.ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop ends the loop and waits for the goroutine to exit. Work still queued
// is dropped; callers blocked in Do are released with ErrStopped.
func (l *Looper) Stop() error {
	if !l.stopped.Break() {
		return fmt.Errorf("looper: already stopped")
	}
	l.cancel()
	if l.started.IsBroken() {
		<-l.exited
	}
	return nil
}

// Done is closed once the loop has been stopped, either with Stop or by the
// parent context.
func (l *Looper) Done() <-chan struct{} { return l.ctx.Done() }

// Post queues fn without waiting for it to run.
func (l *Looper) Post(fn func()) error {
	_, err := l.post(fn)
	return err
}

// Do queues fn and waits until it has run. Calling Do from a function
// already running on the looper deadlocks.
func (l *Looper) Do(fn func()) error {
	done, err := l.post(fn)
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-l.ctx.Done():
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (l *Looper) post(fn func()) (chan struct{}, error) {
	if !l.started.IsBroken() {
		return nil, ErrNotStarted
	}
	if l.stopped.IsBroken() || l.ctx.Err() != nil {
		return nil, ErrStopped
	}

	t := task{fn: fn, done: make(chan struct{})}
	select {
	case l.queue <- t:
		return t.done, nil
	case <-l.ctx.Done():
		return nil, ErrStopped
	}
}

func (l *Looper) run(t task) {
	defer close(t.done)
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("Looper task panicked", "panic", recovered)
		}
	}()

	if t.fn != nil {
		t.fn()
	}
}
