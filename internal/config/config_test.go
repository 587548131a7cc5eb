package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config that passes Validate.
func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0x" + "11" // content is not validated here, only presence
	cfg.Chain.MarketAddress = "0xbac1cf5bd6d6f3451500f061f05486b7de80b926"
	cfg.Chain.TokenManagerAddress = "0x239beae2d840048625da527b224fbce60d4d6d66"
	cfg.Chain.FacadeAddress = "0xed3d8dacfc869be57e1de12c9726cde762fe735d"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_ReadonlyNeedsNoKey(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "readonly"
	cfg.Wallet.PrivateKey = ""
	require.NoError(t, cfg.Validate())
}

func TestValidate_FullModeRequiresKey(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.PrivateKey = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")
}

func TestValidate_ExchangeDerivableThroughFacade(t *testing.T) {
	cfg := validConfig()
	cfg.Chain.ExchangeAddress = ""
	require.NoError(t, cfg.Validate())

	cfg.Chain.FacadeAddress = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange_address or facade_address")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Discovery.MaxMarkets = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "max_markets")
}

func TestDefaults_DiscoveryBounds(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, uint64(1), cfg.Discovery.StartID)
	assert.Equal(t, uint64(20), cfg.Discovery.MaxMarkets)
	assert.Equal(t, 5, cfg.Discovery.MaxConsecutiveFailures)
	assert.Equal(t, 30*time.Second, cfg.Poll.BestPricesInterval.Duration)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DASHD_MODE", "readonly")
	t.Setenv("DASHD_DISCOVERY_MAX_MARKETS", "50")
	t.Setenv("DASHD_POLL_BEST_PRICES_INTERVAL", "10s")
	t.Setenv("DASHD_SERVER_CORS_ORIGINS", "http://a.example, http://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "readonly", cfg.Mode)
	assert.Equal(t, uint64(50), cfg.Discovery.MaxMarkets)
	assert.Equal(t, 10*time.Second, cfg.Poll.BestPricesInterval.Duration)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
}
