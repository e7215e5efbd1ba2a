package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alanyoungcy/polyconsole/internal/command"
	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/alanyoungcy/polyconsole/internal/metrics"
	"github.com/alanyoungcy/polyconsole/internal/notify"
)

// ErrUsage marks a malformed one-shot command line.
var ErrUsage = errors.New("usage: polyconsole [flags] [start | stop | close <asset_id> | close-all]")

// RunCommand sends one control command and reports the outcome on out.
// Commands are fire-and-forget: success means the backend accepted the
// request, not that the effect is visible yet.
func (a *App) RunCommand(ctx context.Context, args []string, confirm command.Confirmer, out io.Writer) error {
	deps := &Dependencies{
		Metrics:  metrics.New(),
		Notifier: notify.NewNotifier(nil, nil, a.logger),
	}
	d := NewDispatcher(a.cfg, deps, notify.NewAlerts(deps.Notifier), a.logger)

	var (
		name string
		err  error
	)
	switch {
	case len(args) == 1 && args[0] == command.Start:
		name, err = command.Start, d.Start(ctx)
	case len(args) == 1 && args[0] == command.Stop:
		name, err = command.Stop, d.Stop(ctx)
	case len(args) == 2 && args[0] == command.Close:
		name, err = command.Close, d.ClosePosition(ctx, args[1])
	case len(args) == 1 && (args[0] == "close-all" || args[0] == command.CloseAll):
		if !a.cfg.Console.ConfirmCloseAll {
			confirm = command.AlwaysConfirm
		}
		name, err = command.CloseAll, d.CloseAll(ctx, confirm)
		if errors.Is(err, domain.ErrNotConfirmed) {
			fmt.Fprintln(out, "close_all cancelled")
			return nil
		}
	default:
		return ErrUsage
	}

	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Fprintf(out, "%s sent\n", name)
	return nil
}
