package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyconsole/internal/command"
	"github.com/alanyoungcy/polyconsole/internal/config"
	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/alanyoungcy/polyconsole/internal/feed"
	"github.com/alanyoungcy/polyconsole/internal/metrics"
	"github.com/alanyoungcy/polyconsole/internal/notify"
	"github.com/alanyoungcy/polyconsole/internal/presenter"
	"github.com/alanyoungcy/polyconsole/internal/server"
	"github.com/alanyoungcy/polyconsole/internal/server/handler"
	"github.com/alanyoungcy/polyconsole/internal/server/ws"
	"github.com/alanyoungcy/polyconsole/internal/simulator"
	"github.com/alanyoungcy/polyconsole/internal/tui"
)

const shutdownTimeout = 5 * time.Second

// commandHooks reports every dispatched command to metrics and, on failure,
// to the alert channel.
type commandHooks struct {
	metrics *metrics.Metrics
	alerts  *notify.Alerts
}

func (h commandHooks) CommandDone(name string, err error) {
	h.metrics.CommandDone(name, err)
	if err != nil {
		h.alerts.CommandFailed(name, err)
	}
}

// NewDispatcher builds the control command client for the configured
// backend. One-shot CLI commands use it too.
func NewDispatcher(cfg *config.Config, deps *Dependencies, alerts *notify.Alerts, logger *slog.Logger) *command.Dispatcher {
	return command.NewDispatcher(command.Options{
		BaseURL:  cfg.Console.BaseURL,
		Timeout:  cfg.Console.RequestTimeout.Duration,
		Observer: commandHooks{metrics: deps.Metrics, alerts: alerts},
		Logger:   logger,
	})
}

// DashboardMode runs the interactive terminal console. Quitting the
// dashboard stops the feed and returns.
func (a *App) DashboardMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting dashboard mode")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	alerts := notify.NewAlerts(deps.Notifier)
	prog := tui.NewProgram(ctx, NewDispatcher(a.cfg, deps, alerts, a.logger))

	if err := a.startConsole(ctx, g, deps, alerts, prog.View()); err != nil {
		return fmt.Errorf("dashboard mode: %w", err)
	}
	a.startMetricsServer(ctx, g, deps)

	g.Go(func() error {
		defer cancel()
		return prog.Run()
	})

	return g.Wait()
}

// HeadlessMode runs the console without a terminal UI: the presenter draws
// into structured logs.
func (a *App) HeadlessMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting headless mode")

	g, ctx := errgroup.WithContext(ctx)

	alerts := notify.NewAlerts(deps.Notifier)
	if err := a.startConsole(ctx, g, deps, alerts, presenter.NewLogView(a.logger)); err != nil {
		return fmt.Errorf("headless mode: %w", err)
	}
	a.startMetricsServer(ctx, g, deps)

	return g.Wait()
}

// startConsole adds the snapshot feed to g. Every decoded snapshot is
// presented into view and then fed to metrics and alerts, all on the feed
// goroutine.
func (a *App) startConsole(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	alerts *notify.Alerts,
	view presenter.View,
) error {
	wsURL, err := a.cfg.Console.WSURL()
	if err != nil {
		return err
	}

	pres := presenter.New(view, presenter.Options{
		QuoteCapacity:  a.cfg.Console.QuoteCapacity,
		EquityCapacity: a.cfg.Console.EquityCapacity,
	})

	mgr := feed.New(func(snap domain.Snapshot) {
		res := pres.Present(snap)
		deps.Metrics.Snapshot(snap, res.TradeClosed)
		alerts.Snapshot(snap, res)
	}, feed.Options{
		URL:            wsURL,
		ReconnectDelay: a.cfg.Console.ReconnectDelay.Duration,
		Observer:       deps.Metrics,
		Logger:         a.logger,
	})
	mgr.OnStateChange(deps.Metrics.ConnectionState)
	mgr.OnStateChange(alerts.ConnectionState)

	a.logger.InfoContext(ctx, "console feed starting", slog.String("url", wsURL))
	g.Go(func() error {
		return mgr.Run(ctx)
	})
	return nil
}

// startMetricsServer serves /metrics on its own listener when enabled.
func (a *App) startMetricsServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", deps.Metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		a.logger.InfoContext(ctx, "metrics server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// BackendMode runs the paper-trading backend: the simulator publishes one
// snapshot per tick onto the bus, the hub relays it to every console, and
// the control endpoints drive the simulator.
func (a *App) BackendMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backend mode")

	g, ctx := errgroup.WithContext(ctx)

	rt := simulator.New(simulator.Options{
		TickInterval: a.cfg.Backend.TickInterval.Duration,
		StartCash:    a.cfg.Backend.StartCashUSD,
		Seed:         a.cfg.Backend.Seed,
		Bus:          deps.Bus,
		Latest:       deps.Latest,
		Observer:     deps.Metrics,
		Logger:       a.logger,
	})
	hub := ws.NewHub(deps.Bus, deps.Latest, deps.Metrics, a.logger)

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(rt, hub, a.logger),
		Control: handler.NewControlHandler(rt, a.logger),
	}
	if a.cfg.Metrics.Enabled {
		handlers.Metrics = deps.Metrics.Handler()
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Backend.Port,
		CORSOrigins: a.cfg.Backend.CORSOrigins,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return rt.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}
