package command

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
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, contentType, requestID string
	body                                 []byte
}

type backend struct {
	mu       sync.Mutex
	requests []recorded
	status   int
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.requests = append(b.requests, recorded{
		method:      r.Method,
		path:        r.URL.Path,
		contentType: r.Header.Get("Content-Type"),
		requestID:   r.Header.Get(RequestIDHeader),
		body:        body,
	})
	status := b.status
	b.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (b *backend) all() []recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recorded(nil), b.requests...)
}

type outcomes struct {
	names []string
	errs  []error
}

func (o *outcomes) CommandDone(name string, err error) {
	o.names = append(o.names, name)
	o.errs = append(o.errs, err)
}

func newTestDispatcher(t *testing.T, b *backend, obs Observer) *Dispatcher {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return NewDispatcher(Options{
		BaseURL:  srv.URL + "/",
		Observer: obs,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestStartStopPostOnce(t *testing.T) {
	b := &backend{}
	d := newTestDispatcher(t, b, nil)

	require.NoError(t, d.Start(context.Background()))
	require.NoError(t, d.Stop(context.Background()))

	reqs := b.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, "/api/start", reqs[0].path)
	assert.Equal(t, "/api/stop", reqs[1].path)
	assert.Empty(t, reqs[0].body)

	_, err := uuid.Parse(reqs[0].requestID)
	assert.NoError(t, err)
	assert.NotEqual(t, reqs[0].requestID, reqs[1].requestID)
}

func TestClosePositionBody(t *testing.T) {
	b := &backend{}
	d := newTestDispatcher(t, b, nil)

	require.NoError(t, d.ClosePosition(context.Background(), "abc"))

	reqs := b.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/close", reqs[0].path)
	assert.Contains(t, reqs[0].contentType, "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(reqs[0].body, &body))
	assert.Equal(t, map[string]string{"asset_id": "abc"}, body)
}

func TestDuplicateCallsAreNotDeduplicated(t *testing.T) {
	b := &backend{}
	d := newTestDispatcher(t, b, nil)

	require.NoError(t, d.ClosePosition(context.Background(), "abc"))
	require.NoError(t, d.ClosePosition(context.Background(), "abc"))
	assert.Len(t, b.all(), 2)
}

func TestCloseAllRequiresConfirmation(t *testing.T) {
	b := &backend{}
	d := newTestDispatcher(t, b, nil)

	var asked string
	refuse := ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		asked = prompt
		return false, nil
	})

	err := d.CloseAll(context.Background(), refuse)
	require.ErrorIs(t, err, domain.ErrNotConfirmed)
	assert.Equal(t, CloseAllPrompt, asked)
	assert.Empty(t, b.all())

	require.ErrorIs(t, d.CloseAll(context.Background(), nil), domain.ErrNotConfirmed)
	assert.Empty(t, b.all())

	failing := ConfirmFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("no tty")
	})
	require.Error(t, d.CloseAll(context.Background(), failing))
	assert.Empty(t, b.all())

	require.NoError(t, d.CloseAll(context.Background(), AlwaysConfirm))
	reqs := b.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/close_all", reqs[0].path)
}

func TestRejectedStatus(t *testing.T) {
	b := &backend{status: http.StatusServiceUnavailable}
	obs := &outcomes{}
	d := newTestDispatcher(t, b, obs)

	err := d.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrCommandRejected)
	assert.Contains(t, err.Error(), "503")
	assert.Len(t, b.all(), 1, "no retry")
	assert.Equal(t, []string{Start}, obs.names)
	assert.ErrorIs(t, obs.errs[0], domain.ErrCommandRejected)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	obs := &outcomes{}
	d := NewDispatcher(Options{
		BaseURL:  url,
		Observer: obs,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	err := d.Stop(context.Background())
	require.ErrorIs(t, err, domain.ErrCommandTransport)
	assert.Equal(t, []string{Stop}, obs.names)
}
