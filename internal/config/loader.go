package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DASHD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DASHD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "DASHD_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "DASHD_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "DASHD_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "DASHD_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "DASHD_CHAIN_ID")
	setStr(&cfg.Chain.MarketAddress, "DASHD_CHAIN_MARKET_ADDRESS")
	setStr(&cfg.Chain.ExchangeAddress, "DASHD_CHAIN_EXCHANGE_ADDRESS")
	setStr(&cfg.Chain.TokenManagerAddress, "DASHD_CHAIN_TOKEN_MANAGER_ADDRESS")
	setStr(&cfg.Chain.FacadeAddress, "DASHD_CHAIN_FACADE_ADDRESS")

	// ── Discovery ──
	setUint64(&cfg.Discovery.StartID, "DASHD_DISCOVERY_START_ID")
	setUint64(&cfg.Discovery.MaxMarkets, "DASHD_DISCOVERY_MAX_MARKETS")
	setInt(&cfg.Discovery.MaxConsecutiveFailures, "DASHD_DISCOVERY_MAX_CONSECUTIVE_FAILURES")

	// ── Poll ──
	setDuration(&cfg.Poll.BestPricesInterval, "DASHD_POLL_BEST_PRICES_INTERVAL")
	setInt(&cfg.Poll.RediscoverEvery, "DASHD_POLL_REDISCOVER_EVERY")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "DASHD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DASHD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DASHD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DASHD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DASHD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DASHD_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.TTLMinutes, "DASHD_REDIS_TTL_MINUTES")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "DASHD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "DASHD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "DASHD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "DASHD_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "DASHD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "DASHD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DASHD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "DASHD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "DASHD_MODE")
	setStr(&cfg.LogLevel, "DASHD_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
