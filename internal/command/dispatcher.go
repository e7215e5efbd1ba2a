// Package command sends fire-and-forget control requests to the bot backend.
// Results are never read back: the next snapshot shows the effect.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/google/uuid"
)

// Command names, also used as metric labels.
const (
	Start    = "start"
	Stop     = "stop"
	Close    = "close"
	CloseAll = "close_all"
)

const (
	defaultTimeout = 10 * time.Second
	maxDrain       = 64 << 10

	// RequestIDHeader carries a per-request id for backend log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Observer is told the outcome of every dispatched command.
type Observer interface {
	CommandDone(name string, err error)
}

type nopObserver struct{}

func (nopObserver) CommandDone(string, error) {}

// Options configures a Dispatcher.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Observer   Observer
	Logger     *slog.Logger
}

// Dispatcher issues exactly one POST per call: no retries, no idempotency key.
type Dispatcher struct {
	baseURL  string
	client   *http.Client
	observer Observer
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher for the backend at opts.BaseURL.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		client:   opts.HTTPClient,
		observer: opts.Observer,
		logger:   opts.Logger.With(slog.String("component", "command")),
	}
}

// Start asks the backend to start trading.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.post(ctx, Start, "/api/start", nil)
}

// Stop asks the backend to stop trading.
func (d *Dispatcher) Stop(ctx context.Context) error {
	return d.post(ctx, Stop, "/api/stop", nil)
}

// ClosePosition asks the backend to close the position in assetID.
func (d *Dispatcher) ClosePosition(ctx context.Context, assetID string) error {
	return d.post(ctx, Close, "/api/close", map[string]string{"asset_id": assetID})
}

// CloseAll asks confirm first and sends the request only when the operator
// agrees. A refusal returns domain.ErrNotConfirmed.
func (d *Dispatcher) CloseAll(ctx context.Context, confirm Confirmer) error {
	if confirm == nil {
		return fmt.Errorf("command: %s: %w", CloseAll, domain.ErrNotConfirmed)
	}
	ok, err := confirm.Confirm(ctx, CloseAllPrompt)
	if err != nil {
		return fmt.Errorf("command: %s: confirm: %w", CloseAll, err)
	}
	if !ok {
		d.logger.Info("close all not confirmed")
		return fmt.Errorf("command: %s: %w", CloseAll, domain.ErrNotConfirmed)
	}
	return d.post(ctx, CloseAll, "/api/close_all", nil)
}

func (d *Dispatcher) post(ctx context.Context, name, path string, body any) (err error) {
	defer func() { d.observer.CommandDone(name, err) }()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("command: %s: marshal body: %w", name, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("command: %s: create request: %w", name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	logger := d.logger.With(slog.String("command", name), slog.String("request_id", reqID))

	resp, err := d.client.Do(req)
	if err != nil {
		logger.Warn("command transport failed", slog.String("error", err.Error()))
		return fmt.Errorf("command: %s: %w: %w", name, domain.ErrCommandTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("command rejected", slog.Int("status", resp.StatusCode))
		return fmt.Errorf("command: %s: %w: HTTP %d", name, domain.ErrCommandRejected, resp.StatusCode)
	}

	logger.Info("command sent")
	return nil
}
