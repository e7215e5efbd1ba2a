// Package feed keeps the console's snapshot WebSocket session alive and hands
// every decoded snapshot to a single handler, in arrival order.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/gorilla/websocket"
)

// DefaultReconnectDelay is the fixed pause between a closure and the next
// dial. There is no backoff and no retry cap.
const DefaultReconnectDelay = time.Second

// Handler receives each decoded snapshot on the read goroutine.
type Handler func(domain.Snapshot)

// Observer is notified of feed events. metrics.Metrics implements it.
type Observer interface {
	FrameReceived()
	FrameMalformed()
	HandlerPanicked()
	Reconnecting()
}

type nopObserver struct{}

func (nopObserver) FrameReceived()   {}
func (nopObserver) FrameMalformed()  {}
func (nopObserver) HandlerPanicked() {}
func (nopObserver) Reconnecting()    {}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default WaitFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	URL            string
	ReconnectDelay time.Duration
	Dialer         Dialer
	Wait           WaitFunc
	Observer       Observer
	Logger         *slog.Logger
}

// Manager owns the connection lifecycle: dial, read, decode, dispatch, and
// reconnect after every closure.
type Manager struct {
	url      string
	delay    time.Duration
	dialer   Dialer
	wait     WaitFunc
	observer Observer
	handler  Handler
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	session   Session
	listeners []func(State)
}

// New creates a Manager that delivers snapshots to handler.
func New(handler Handler, opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = NewWSDialer()
	}
	if opts.Wait == nil {
		opts.Wait = Sleep
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		url:      opts.URL,
		delay:    opts.ReconnectDelay,
		dialer:   opts.Dialer,
		wait:     opts.Wait,
		observer: opts.Observer,
		handler:  handler,
		logger:   opts.Logger.With(slog.String("component", "feed")),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnStateChange registers fn to be called after every state transition.
// Listeners run synchronously on the goroutine that caused the change.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Connect dials a new session, closing any previous one. It does not start
// reading; Run does that.
func (m *Manager) Connect(ctx context.Context) error {
	_, err := m.connect(ctx)
	return err
}

func (m *Manager) connect(ctx context.Context) (Session, error) {
	m.setState(Connecting)

	sess, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		return nil, fmt.Errorf("feed: connect: %w: %w", domain.ErrWSDisconnect, err)
	}

	m.mu.Lock()
	prev := m.session
	m.session = sess
	m.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	if err := ctx.Err(); err != nil {
		m.dropSession(sess)
		return nil, fmt.Errorf("feed: connect: %w", err)
	}

	m.setState(Open)
	m.logger.Info("session open", slog.String("url", m.url))
	return sess, nil
}

// Run connects and reads until ctx is cancelled. Every closure, whether a
// failed dial, a peer close or a network error, is followed by exactly one
// wait of the reconnect delay before the next dial.
func (m *Manager) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, m.closeSession)
	defer stop()

	for {
		sess, err := m.connect(ctx)
		if err == nil {
			err = m.read(sess)
			m.dropSession(sess)
		}
		if ctx.Err() != nil {
			m.setState(Disconnected)
			return ctx.Err()
		}

		m.logger.Warn("session closed, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", m.delay),
		)
		m.setState(Connecting)
		m.observer.Reconnecting()

		if err := m.wait(ctx, m.delay); err != nil {
			m.setState(Disconnected)
			return err
		}
	}
}

// read consumes frames until the session fails.
func (m *Manager) read(sess Session) error {
	for {
		mt, data, err := sess.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return fmt.Errorf("feed: read: %w: closed with code %d", domain.ErrWSDisconnect, ce.Code)
			}
			return fmt.Errorf("feed: read: %w: %w", domain.ErrWSDisconnect, err)
		}
		m.observer.FrameReceived()

		if mt != websocket.TextMessage {
			m.observer.FrameMalformed()
			m.logger.Warn("dropping non-text frame", slog.Int("type", mt), slog.Int("len", len(data)))
			continue
		}

		snap, err := domain.DecodeSnapshot(data)
		if err != nil {
			m.observer.FrameMalformed()
			m.logger.Warn("dropping malformed snapshot",
				slog.String("error", err.Error()),
				slog.Int("len", len(data)),
			)
			continue
		}

		m.dispatch(snap)
	}
}

func (m *Manager) dispatch(snap domain.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.observer.HandlerPanicked()
			m.logger.Error("snapshot handler panicked", slog.Any("panic", r))
		}
	}()
	m.handler(snap)
}

func (m *Manager) closeSession() {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	if sess != nil {
		_ = sess.Close()
	}
}

func (m *Manager) dropSession(sess Session) {
	_ = sess.Close()
	m.mu.Lock()
	if m.session == sess {
		m.session = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}
