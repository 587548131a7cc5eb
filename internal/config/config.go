// Package config defines the top-level configuration for the dashboard
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by DASHD_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Chain     ChainConfig     `toml:"chain"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Poll      PollConfig      `toml:"poll"`
	Redis     RedisConfig     `toml:"redis"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the signing identity. Either a raw hex private key or an
// encrypted key file plus password must be set for the full (writing) mode;
// readonly mode needs neither.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds the JSON-RPC endpoint and the fixed addresses of the four
// external contract collaborators. ExchangeAddress may be left empty, in
// which case it is derived at startup through the facade's lookup accessor.
type ChainConfig struct {
	RPCURL              string `toml:"rpc_url"`
	ChainID             int64  `toml:"chain_id"`
	MarketAddress       string `toml:"market_address"`
	ExchangeAddress     string `toml:"exchange_address"`
	TokenManagerAddress string `toml:"token_manager_address"`
	FacadeAddress       string `toml:"facade_address"`
}

// DiscoveryConfig bounds the market id probe. The registry exposes no "list
// all markets" read, so discovery scans ids sequentially from StartID and
// stops after MaxConsecutiveFailures misses in a row or once MaxMarkets
// markets have been found, whichever comes first. A sparse id space can
// therefore probe more than MaxMarkets ids, and the scan can under-enumerate
// if gaps are wider than the failure threshold.
type DiscoveryConfig struct {
	StartID                uint64 `toml:"start_id"`
	MaxMarkets             uint64 `toml:"max_markets"`
	MaxConsecutiveFailures int    `toml:"max_consecutive_failures"`
}

// PollConfig holds the background refresh cadence.
type PollConfig struct {
	BestPricesInterval duration `toml:"best_prices_interval"`
	RediscoverEvery    int      `toml:"rediscover_every"` // rediscover markets every N price ticks
}

// RedisConfig holds Redis connection parameters for the view snapshot caches
// and the WebSocket signal bus.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	TTLMinutes int    `toml:"ttl_minutes"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "30s".
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
		Chain: ChainConfig{
			RPCURL:  "http://localhost:8545",
			ChainID: 11155111, // Sepolia
		},
		Discovery: DiscoveryConfig{
			StartID:                1,
			MaxMarkets:             20,
			MaxConsecutiveFailures: 5,
		},
		Poll: PollConfig{
			BestPricesInterval: duration{30 * time.Second},
			RediscoverEvery:    10,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			TTLMinutes: 5,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"action_succeeded", "action_failed", "market_resolved"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":     true,
	"readonly": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, readonly)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet -- a key source is required in full mode; readonly runs without.
	if strings.ToLower(c.Mode) == "full" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode full")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, fmt.Sprintf("chain: chain_id must be positive, got %d", c.Chain.ChainID))
	}
	if c.Chain.MarketAddress == "" {
		errs = append(errs, "chain: market_address must not be empty")
	}
	if c.Chain.TokenManagerAddress == "" {
		errs = append(errs, "chain: token_manager_address must not be empty")
	}
	if c.Chain.ExchangeAddress == "" && c.Chain.FacadeAddress == "" {
		errs = append(errs, "chain: exchange_address or facade_address must be set (the exchange can be derived through the facade)")
	}

	// Discovery
	if c.Discovery.StartID < 1 {
		errs = append(errs, "discovery: start_id must be >= 1")
	}
	if c.Discovery.MaxMarkets < 1 {
		errs = append(errs, "discovery: max_markets must be >= 1")
	}
	if c.Discovery.MaxConsecutiveFailures < 1 {
		errs = append(errs, "discovery: max_consecutive_failures must be >= 1")
	}

	// Poll
	if c.Poll.BestPricesInterval.Duration < time.Second {
		errs = append(errs, "poll: best_prices_interval must be >= 1s")
	}
	if c.Poll.RediscoverEvery < 1 {
		errs = append(errs, "poll: rediscover_every must be >= 1")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
