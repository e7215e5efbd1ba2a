package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyconsole/internal/bus"
	"github.com/alanyoungcy/polyconsole/internal/command"
	"github.com/alanyoungcy/polyconsole/internal/config"
	"github.com/alanyoungcy/polyconsole/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWireBackendFallsBackToMemoryBus(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "backend"

	deps, cleanup, err := Wire(context.Background(), &cfg, quietLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &bus.Memory{}, deps.Bus)
	assert.Equal(t, deps.Bus, deps.Latest.(domain.SignalBus))
	assert.NotNil(t, deps.Metrics)
	assert.False(t, deps.Notifier.Enabled())
}

func TestWireConsoleModesSkipBus(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "headless"
	cfg.Notify.DiscordWebhookURL = "http://127.0.0.1:1/hook"

	deps, cleanup, err := Wire(context.Background(), &cfg, quietLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.Bus)
	assert.Nil(t, deps.Latest)
	assert.True(t, deps.Notifier.Enabled())
}

func TestWireRedisUnreachable(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "backend"
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.MaxRetries = 0

	_, _, err := Wire(context.Background(), &cfg, quietLogger())
	assert.ErrorContains(t, err, "wire: redis")
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "trade"
	a := New(&cfg, quietLogger())
	defer a.Close()

	assert.ErrorContains(t, a.Run(context.Background()), `unsupported mode "trade"`)
}

type recordedRequest struct {
	path, body string
}

func commandBackend(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{path: r.URL.Path, body: string(body)})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newCommandApp(baseURL string) *App {
	cfg := config.Defaults()
	cfg.Console.BaseURL = baseURL
	return New(&cfg, quietLogger())
}

func TestRunCommand(t *testing.T) {
	ts, requests := commandBackend(t, http.StatusOK)
	a := newCommandApp(ts.URL)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, a.RunCommand(ctx, []string{"start"}, nil, &out))
	require.NoError(t, a.RunCommand(ctx, []string{"close", "abc"}, nil, &out))
	require.NoError(t, a.RunCommand(ctx, []string{"close-all"}, command.AlwaysConfirm, &out))
	require.NoError(t, a.RunCommand(ctx, []string{"stop"}, nil, &out))

	assert.Equal(t, "start sent\nclose sent\nclose_all sent\nstop sent\n", out.String())
	reqs := requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, "/api/start", reqs[0].path)
	assert.Equal(t, "/api/close", reqs[1].path)
	assert.JSONEq(t, `{"asset_id":"abc"}`, reqs[1].body)
	assert.Equal(t, "/api/close_all", reqs[2].path)
	assert.Equal(t, "/api/stop", reqs[3].path)
}

func TestRunCommandCloseAllDeclined(t *testing.T) {
	ts, requests := commandBackend(t, http.StatusOK)
	a := newCommandApp(ts.URL)

	refuse := command.ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	var out bytes.Buffer
	require.NoError(t, a.RunCommand(context.Background(), []string{"close-all"}, refuse, &out))
	assert.Equal(t, "close_all cancelled\n", out.String())
	assert.Empty(t, requests())
}

func TestRunCommandCloseAllWithoutConfirmSetting(t *testing.T) {
	ts, requests := commandBackend(t, http.StatusOK)
	a := newCommandApp(ts.URL)
	a.cfg.Console.ConfirmCloseAll = false

	var out bytes.Buffer
	require.NoError(t, a.RunCommand(context.Background(), []string{"close-all"}, nil, &out))
	assert.Len(t, requests(), 1)
}

func TestRunCommandErrors(t *testing.T) {
	ts, _ := commandBackend(t, http.StatusServiceUnavailable)
	a := newCommandApp(ts.URL)
	ctx := context.Background()

	err := a.RunCommand(ctx, []string{"start"}, nil, io.Discard)
	assert.ErrorIs(t, err, domain.ErrCommandRejected)
	assert.ErrorContains(t, err, "start:")

	for _, args := range [][]string{nil, {"close"}, {"launch"}, {"start", "now"}} {
		assert.ErrorIs(t, a.RunCommand(ctx, args, nil, io.Discard), ErrUsage, args)
	}
}
