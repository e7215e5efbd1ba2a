package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/alanyoungcy/polyconsole/internal/feed"
	"github.com/alanyoungcy/polyconsole/internal/presenter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
	return s.err
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.titles...)
}

func TestNotifyFiltersEvents(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier([]Sender{s}, []string{EventTradeClosed}, quietLogger())

	require.NoError(t, n.Notify(context.Background(), EventConnectionLost, "lost", ""))
	require.NoError(t, n.Notify(context.Background(), EventTradeClosed, "closed", ""))
	assert.Equal(t, []string{"closed"}, s.got())
}

func TestNotifyJoinsSenderErrors(t *testing.T) {
	bad := &recordingSender{err: errors.New("boom")}
	good := &recordingSender{}
	n := NewNotifier([]Sender{bad, good}, nil, quietLogger())

	err := n.Notify(context.Background(), EventCommandFailed, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"t"}, good.got())
}

func TestNotifierWithoutSenders(t *testing.T) {
	n := NewNotifier(nil, nil, quietLogger())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), EventTradeClosed, "t", "m"))
	n.Go(EventTradeClosed, "t", "m")
	assert.NoError(t, n.Close())
}

func TestAlertsConnectionEdges(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier([]Sender{s}, nil, quietLogger())
	a := NewAlerts(n)

	// Initial connect attempts are not outages.
	for _, st := range []feed.State{feed.Connecting, feed.Open, feed.Connecting, feed.Connecting, feed.Open, feed.Open} {
		a.ConnectionState(st)
		n.Wait()
	}
	assert.Equal(t, []string{"Connection lost", "Connection restored"}, s.got())
}

func TestAlertsSnapshotAndCommands(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier([]Sender{s}, nil, quietLogger())
	a := NewAlerts(n)

	a.Snapshot(domain.Snapshot{Balance: domain.Some(1001)}, presenter.Result{TradeClosed: true, Seq: 4})
	n.Wait()
	a.Snapshot(domain.Snapshot{Error: "feed crashed"}, presenter.Result{})
	n.Wait()
	a.Snapshot(domain.Snapshot{Error: "feed crashed"}, presenter.Result{})
	n.Wait()
	a.CommandFailed("stop", domain.ErrNotConfirmed)
	a.CommandFailed("stop", nil)
	a.CommandFailed("start", domain.ErrCommandTransport)
	n.Wait()

	assert.Equal(t, []string{"Trade closed T4", "Backend error", "Command failed: start"}, s.got())
}

func TestTelegramSender(t *testing.T) {
	var path string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "42").WithAPIBase(srv.URL)
	require.NoError(t, s.Send(context.Background(), "Title", "body"))
	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "42", payload["chat_id"])
	assert.Equal(t, "*Title*\nbody", payload["text"])
}

func TestDiscordSenderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: unexpected status 400")
}
