// Package bus provides an in-process SignalBus for single-binary runs.
package bus

import (
	"context"
	"log/slog"
	"path"
	"sync"

	"github.com/alanyoungcy/polyconsole/internal/domain"
)

const subscriberBuffer = 64

type subscriber struct {
	pattern string
	ch      chan []byte
}

// Memory is a fan-out pub/sub with Redis-like semantics: glob channel
// patterns, at-most-once delivery, and slow subscribers lose messages
// instead of blocking publishers.
type Memory struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	latest []byte
	logger *slog.Logger
}

// NewMemory creates an empty bus.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		subs:   make(map[*subscriber]struct{}),
		logger: logger.With(slog.String("component", "bus")),
	}
}

func (m *Memory) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := append([]byte(nil), payload...)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for s := range m.subs {
		if ok, _ := path.Match(s.pattern, channel); !ok {
			continue
		}
		select {
		case s.ch <- data:
		default:
			m.logger.Warn("dropping message for slow subscriber", slog.String("channel", channel))
		}
	}
	return nil
}

// Subscribe returns a channel that closes when ctx ends.
func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if _, err := path.Match(channel, ""); err != nil {
		return nil, err
	}
	s := &subscriber{pattern: channel, ch: make(chan []byte, subscriberBuffer)}

	m.mu.Lock()
	m.subs[s] = struct{}{}
	m.mu.Unlock()

	context.AfterFunc(ctx, func() {
		m.mu.Lock()
		delete(m.subs, s)
		m.mu.Unlock()
		close(s.ch)
	})
	return s.ch, nil
}

func (m *Memory) SaveLatest(_ context.Context, payload []byte) error {
	m.mu.Lock()
	m.latest = append([]byte(nil), payload...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Latest(context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), m.latest...), nil
}

var (
	_ domain.SignalBus   = (*Memory)(nil)
	_ domain.LatestStore = (*Memory)(nil)
)
