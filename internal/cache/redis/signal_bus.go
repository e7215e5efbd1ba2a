package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/redis/go-redis/v9"
)

// latestTTL bounds how long a stale snapshot can prime a new client after
// the backend stops publishing.
const latestTTL = 10 * time.Minute

// SignalBus implements domain.SignalBus with Redis pub/sub and
// domain.LatestStore with a single string key.
type SignalBus struct {
	c *Client
}

// NewSignalBus creates a SignalBus on c.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{c: c}
}

// Publish sends payload to channel. Delivery is at most once.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.c.rdb.Publish(ctx, sb.c.key(channel), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads that closes when ctx ends. Glob
// channels use PSUBSCRIBE.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	name := sb.c.key(channel)
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = sb.c.rdb.PSubscribe(ctx, name)
	} else {
		pubsub = sb.c.rdb.Subscribe(ctx, name)
	}

	// Wait for the subscription confirmation so no publish is missed after
	// Subscribe returns.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// SaveLatest stores payload as the most recent snapshot.
func (sb *SignalBus) SaveLatest(ctx context.Context, payload []byte) error {
	if err := sb.c.rdb.Set(ctx, sb.c.key("snapshot:latest"), payload, latestTTL).Err(); err != nil {
		return fmt.Errorf("redis: save latest: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot or domain.ErrNotFound.
func (sb *SignalBus) Latest(ctx context.Context) ([]byte, error) {
	data, err := sb.c.rdb.Get(ctx, sb.c.key("snapshot:latest")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: latest: %w", err)
	}
	return data, nil
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

var (
	_ domain.SignalBus   = (*SignalBus)(nil)
	_ domain.LatestStore = (*SignalBus)(nil)
)
