// Package broadcast is an in-process broadcast channel: receivers register
// for a set of actions and get every matching intent sent through the
// manager.
package broadcast

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/meethost/core/intent"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Receiver interface {
	OnReceive(in *intent.Intent)
}

type ReceiverFunc func(in *intent.Intent)

func (f ReceiverFunc) OnReceive(in *intent.Intent) { f(in) }

// Executor runs deliveries for SendBroadcast. A looper.Looper satisfies it.
type Executor interface {
	Post(fn func()) error
}

type Manager struct {
	mu       sync.RWMutex
	byAction map[string][]*Registration
	executor Executor
}

type Option func(*Manager)

// WithExecutor makes SendBroadcast hand deliveries to executor instead of
// running them on the sender's goroutine.
func WithExecutor(executor Executor) Option {
	return func(m *Manager) { m.executor = executor }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{byAction: map[string][]*Registration{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registration ties a receiver to its filter. Once unregistered it never
// receives again, including broadcasts that were already queued.
type Registration struct {
	manager  *Manager
	receiver Receiver
	filter   Filter
	dead     atomic.Bool
}

func (r *Registration) Unregister() { r.manager.Unregister(r) }

func (r *Registration) Active() bool { return !r.dead.Load() }

func (m *Manager) Register(receiver Receiver, filter Filter) *Registration {
	reg := &Registration{manager: m, receiver: receiver, filter: filter}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range filter.keys() {
		m.byAction[key] = append(m.byAction[key], reg)
	}
	return reg
}

// Unregister removes reg. It is safe to call more than once.
func (m *Manager) Unregister(reg *Registration) {
	if reg == nil || reg.dead.Swap(true) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range reg.filter.keys() {
		regs := m.byAction[key]
		out := regs[:0]
		for _, r := range regs {
			if r != reg {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			delete(m.byAction, key)
		} else {
			m.byAction[key] = out
		}
	}
}

// ReceiverCount returns the number of live registrations.
func (m *Manager) ReceiverCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[*Registration]struct{}{}
	for _, regs := range m.byAction {
		for _, r := range regs {
			seen[r] = struct{}{}
		}
	}
	return len(seen)
}

// SendBroadcast delivers in to every matching receiver, through the executor
// when one is configured. It reports whether any receiver matched.
func (m *Manager) SendBroadcast(in *intent.Intent) bool {
	if m.executor == nil {
		return m.SendBroadcastSync(in)
	}

	regs := m.matching(in)
	if len(regs) == 0 {
		return false
	}
	m.count(in, "async")

	snapshot := in.Clone()
	if err := m.executor.Post(func() { m.deliver(snapshot, regs) }); err != nil {
		logger.Warn("Dropping broadcast, executor unavailable", "action", in.Action, "error", err)
		return false
	}
	return true
}

// SendBroadcastSync delivers in on the calling goroutine before returning.
func (m *Manager) SendBroadcastSync(in *intent.Intent) bool {
	regs := m.matching(in)
	if len(regs) == 0 {
		return false
	}
	m.count(in, "sync")
	m.deliver(in.Clone(), regs)
	return true
}

func (m *Manager) matching(in *intent.Intent) []*Registration {
	if in == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Registration(nil), m.byAction[strings.ToLower(in.Action)]...)
}

func (m *Manager) deliver(in *intent.Intent, regs []*Registration) {
	for _, reg := range regs {
		if reg.dead.Load() {
			continue
		}
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("Broadcast receiver panicked", "action", in.Action, "panic", recovered)
				}
			}()
			reg.receiver.OnReceive(in.Clone())
		}()
	}
}

func (m *Manager) count(in *intent.Intent, mode string) {
	if broadcastsSent == nil {
		return
	}
	broadcastsSent.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("action", in.Action),
		attribute.String("mode", mode),
	))
}
