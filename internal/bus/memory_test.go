package bus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory() *Memory {
	return NewMemory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message")
		return nil
	}
}

func TestPublishFansOutByPattern(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newMemory()

	exact, err := m.Subscribe(ctx, domain.SnapshotChannel)
	require.NoError(t, err)
	glob, err := m.Subscribe(ctx, "ch:*")
	require.NoError(t, err)
	other, err := m.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, domain.SnapshotChannel, []byte(`{"running":true}`)))

	assert.Equal(t, `{"running":true}`, string(receive(t, exact)))
	assert.Equal(t, `{"running":true}`, string(receive(t, glob)))
	assert.Empty(t, other)
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newMemory()
	ch, err := m.Subscribe(ctx, "x")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	require.NoError(t, m.Publish(context.Background(), "x", []byte("late")))
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newMemory()
	ch, err := m.Subscribe(ctx, "x")
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, m.Publish(ctx, "x", []byte("m")))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestLatest(t *testing.T) {
	m := newMemory()
	_, err := m.Latest(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, m.SaveLatest(context.Background(), []byte("a")))
	require.NoError(t, m.SaveLatest(context.Background(), []byte("b")))
	got, err := m.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}
