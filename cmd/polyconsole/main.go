// Command polyconsole is the operator console for the BTC 15-minute
// up/down bot. It loads configuration, validates it, sets up signal
// handling, and either runs the configured mode or sends one control
// command and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/polyconsole/internal/app"
	"github.com/alanyoungcy/polyconsole/internal/command"
	"github.com/alanyoungcy/polyconsole/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults and env only when empty)")
	mode := flag.String("mode", "", "override the configured mode: dashboard, headless or backend")
	yes := flag.Bool("yes", false, "skip the close-all confirmation")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), app.ErrUsage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	oneShot := flag.NArg() > 0
	logOut, closeLog, err := logOutput(cfg.Mode, cfg.LogLevel, dashboardLogFile, oneShot)
	if err != nil {
		logger.Error("failed to open log file",
			slog.String("path", dashboardLogFile),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer closeLog()
	logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Debug("configuration loaded", slog.Any("config", config.RedactedConfig(cfg)))

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)

	if oneShot {
		var confirm command.Confirmer = command.HuhConfirmer{}
		if *yes {
			confirm = command.AlwaysConfirm
		}
		err := application.RunCommand(ctx, flag.Args(), confirm, os.Stdout)
		application.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "polyconsole: %v\n", err)
			if errors.Is(err, app.ErrUsage) {
				os.Exit(2)
			}
			os.Exit(1)
		}
		return
	}

	logger.Info("polyconsole starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	// Run the application.
	err = application.Run(ctx)
	application.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("polyconsole stopped")
}

// dashboardLogFile receives dashboard logs at debug level.
const dashboardLogFile = "polyconsole.log"

// logOutput picks where logs go. The dashboard owns the terminal, so its
// logs are discarded unless the level is debug, in which case they are
// appended to logFile. One-shot commands print their result on stdout and
// log to stderr.
func logOutput(mode, level, logFile string, oneShot bool) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch {
	case oneShot:
		return os.Stderr, noop, nil
	case strings.EqualFold(mode, "dashboard"):
		if parseLevel(level) != slog.LevelDebug {
			return io.Discard, noop, nil
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, f.Close, nil
	default:
		return os.Stdout, noop, nil
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
