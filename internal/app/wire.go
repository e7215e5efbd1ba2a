package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/polyconsole/internal/bus"
	"github.com/alanyoungcy/polyconsole/internal/cache/redis"
	"github.com/alanyoungcy/polyconsole/internal/config"
	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/alanyoungcy/polyconsole/internal/metrics"
	"github.com/alanyoungcy/polyconsole/internal/notify"
)

// Dependencies bundles what the operating modes share. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Snapshot transport, backend mode only.
	Bus    domain.SignalBus
	Latest domain.LatestStore

	Metrics  *metrics.Metrics
	Notifier *notify.Notifier
}

// needsBus returns true for modes that publish snapshots.
func needsBus(mode string) bool {
	return strings.ToLower(mode) == "backend"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Metrics: metrics.New()}

	// --- Snapshot bus: Redis when configured, in-process otherwise ---
	if needsBus(cfg.Mode) {
		if cfg.Redis.Addr != "" {
			redisClient, err := redis.New(ctx, redis.ClientConfig{
				Addr:       cfg.Redis.Addr,
				Password:   cfg.Redis.Password,
				DB:         cfg.Redis.DB,
				PoolSize:   cfg.Redis.PoolSize,
				MaxRetries: cfg.Redis.MaxRetries,
				TLSEnabled: cfg.Redis.TLSEnabled,
				KeyPrefix:  cfg.Redis.KeyPrefix,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: redis: %w", err)
			}
			closers = append(closers, func() { _ = redisClient.Close() })

			sb := redis.NewSignalBus(redisClient)
			deps.Bus, deps.Latest = sb, sb
			logger.Info("snapshot bus: redis", slog.String("addr", cfg.Redis.Addr))
		} else {
			mem := bus.NewMemory(logger)
			deps.Bus, deps.Latest = mem, mem
			logger.Info("snapshot bus: in-process")
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	closers = append(closers, func() { _ = deps.Notifier.Close() })

	return deps, cleanup, nil
}
