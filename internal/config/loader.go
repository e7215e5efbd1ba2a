package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYCONSOLE_* environment variable overrides, and
// returns the final Config. A missing file is not an error when path is
// empty. The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYCONSOLE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject webhook tokens and the Redis password
// at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Console ──
	setStr(&cfg.Console.BaseURL, "POLYCONSOLE_CONSOLE_BASE_URL")
	setStr(&cfg.Console.WSPath, "POLYCONSOLE_CONSOLE_WS_PATH")
	setDuration(&cfg.Console.ReconnectDelay, "POLYCONSOLE_CONSOLE_RECONNECT_DELAY")
	setDuration(&cfg.Console.RequestTimeout, "POLYCONSOLE_CONSOLE_REQUEST_TIMEOUT")
	setInt(&cfg.Console.QuoteCapacity, "POLYCONSOLE_CONSOLE_QUOTE_CAPACITY")
	setInt(&cfg.Console.EquityCapacity, "POLYCONSOLE_CONSOLE_EQUITY_CAPACITY")
	setBool(&cfg.Console.ConfirmCloseAll, "POLYCONSOLE_CONSOLE_CONFIRM_CLOSE_ALL")

	// ── Backend ──
	setInt(&cfg.Backend.Port, "POLYCONSOLE_BACKEND_PORT")
	setDuration(&cfg.Backend.TickInterval, "POLYCONSOLE_BACKEND_TICK_INTERVAL")
	setFloat64(&cfg.Backend.StartCashUSD, "POLYCONSOLE_BACKEND_START_CASH_USD")
	setUint64(&cfg.Backend.Seed, "POLYCONSOLE_BACKEND_SEED")
	setStringSlice(&cfg.Backend.CORSOrigins, "POLYCONSOLE_BACKEND_CORS_ORIGINS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POLYCONSOLE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYCONSOLE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYCONSOLE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYCONSOLE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYCONSOLE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYCONSOLE_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "POLYCONSOLE_REDIS_KEY_PREFIX")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "POLYCONSOLE_METRICS_ENABLED")
	setStr(&cfg.Metrics.Addr, "POLYCONSOLE_METRICS_ADDR")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYCONSOLE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYCONSOLE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYCONSOLE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYCONSOLE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYCONSOLE_MODE")
	setStr(&cfg.LogLevel, "POLYCONSOLE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
