// Package config defines the top-level configuration for polyconsole and
// provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYCONSOLE_* environment variables.
type Config struct {
	Console  ConsoleConfig `toml:"console"`
	Backend  BackendConfig `toml:"backend"`
	Redis    RedisConfig   `toml:"redis"`
	Metrics  MetricsConfig `toml:"metrics"`
	Notify   NotifyConfig  `toml:"notify"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// ConsoleConfig controls how the console reaches the bot backend and how
// much history its charts keep.
type ConsoleConfig struct {
	BaseURL         string   `toml:"base_url"`
	WSPath          string   `toml:"ws_path"`
	ReconnectDelay  duration `toml:"reconnect_delay"`
	RequestTimeout  duration `toml:"request_timeout"`
	QuoteCapacity   int      `toml:"quote_capacity"`
	EquityCapacity  int      `toml:"equity_capacity"`
	ConfirmCloseAll bool     `toml:"confirm_close_all"`
}

// WSURL derives the snapshot stream URL from BaseURL: http becomes ws and
// https becomes wss.
func (c ConsoleConfig) WSURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("config: console.base_url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("config: console.base_url: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(c.WSPath, "/")
	return u.String(), nil
}

// BackendConfig holds the paper backend's server and simulation parameters.
type BackendConfig struct {
	Port         int      `toml:"port"`
	TickInterval duration `toml:"tick_interval"`
	StartCashUSD float64  `toml:"start_cash_usd"`
	Seed         uint64   `toml:"seed"`
	CORSOrigins  []string `toml:"cors_origins"`
}

// RedisConfig holds Redis connection parameters. An empty Addr keeps the
// backend on the in-process bus.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// MetricsConfig controls the Prometheus endpoint. In backend mode the
// endpoint is also mounted on the backend server.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "1s", "200ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Console: ConsoleConfig{
			BaseURL:         "http://127.0.0.1:8000",
			WSPath:          "/ws",
			ReconnectDelay:  duration{time.Second},
			RequestTimeout:  duration{5 * time.Second},
			QuoteCapacity:   100,
			EquityCapacity:  50,
			ConfirmCloseAll: true,
		},
		Backend: BackendConfig{
			Port:         8000,
			TickInterval: duration{200 * time.Millisecond},
			StartCashUSD: 500,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "polyconsole",
		},
		Metrics: MetricsConfig{
			Addr: ":9102",
		},
		Mode:     "dashboard",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"dashboard": true,
	"headless":  true,
	"backend":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validEvents enumerates the notification events a deployment may subscribe to.
var validEvents = map[string]bool{
	"connection_lost":     true,
	"connection_restored": true,
	"trade_closed":        true,
	"command_failed":      true,
	"backend_error":       true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: dashboard, headless, backend)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Console
	if c.Mode != "backend" {
		if _, err := c.Console.WSURL(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Console.ReconnectDelay.Duration <= 0 {
		errs = append(errs, "console: reconnect_delay must be positive")
	}
	if c.Console.RequestTimeout.Duration <= 0 {
		errs = append(errs, "console: request_timeout must be positive")
	}
	if c.Console.QuoteCapacity < 1 {
		errs = append(errs, "console: quote_capacity must be >= 1")
	}
	if c.Console.EquityCapacity < 1 {
		errs = append(errs, "console: equity_capacity must be >= 1")
	}

	// Backend
	if c.Mode == "backend" {
		if c.Backend.Port <= 0 || c.Backend.Port > 65535 {
			errs = append(errs, fmt.Sprintf("backend: port must be 1-65535, got %d", c.Backend.Port))
		}
		if c.Backend.TickInterval.Duration <= 0 {
			errs = append(errs, "backend: tick_interval must be positive")
		}
		if c.Backend.StartCashUSD <= 0 {
			errs = append(errs, "backend: start_cash_usd must be positive")
		}
	}

	// Redis
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Addr == "" && c.Mode != "backend" {
		errs = append(errs, "metrics: addr must be set when metrics are enabled")
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	for _, e := range c.Notify.Events {
		if !validEvents[e] {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q", e))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
