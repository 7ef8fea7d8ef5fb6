package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"
log_level = "debug"

[polymarket]
gamma_host = "http://localhost:8080"

[feed]
enabled = true
assets = ["1001", "1002"]
reconnect_delay = "10s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "http://localhost:8080", cfg.Polymarket.GammaHost)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://clob.polymarket.com", cfg.Polymarket.ClobHost)
	assert.Equal(t, int64(137), cfg.Chain.ChainID)
	assert.Equal(t, []string{"1001", "1002"}, cfg.Feed.Assets)
	assert.Equal(t, "10s", cfg.Feed.ReconnectDelay.String())
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `mode = "monitor"`)

	t.Setenv("CLOBTRADER_WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("CLOBTRADER_CHAIN_ID", "80001")
	t.Setenv("CLOBTRADER_REDIS_ENABLED", "true")
	t.Setenv("CLOBTRADER_NOTIFY_EVENTS", "order_matched, error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
	assert.Equal(t, int64(80001), cfg.Chain.ChainID)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"order_matched", "error"}, cfg.Notify.Events)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade" // no wallet key set
	cfg.LogLevel = "loud"
	cfg.Chain.RPCURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet:")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "rpc_url")
}

func TestValidateTradeModeNeedsKeySource(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	require.Error(t, cfg.Validate())

	cfg.Wallet.PrivateKey = "deadbeef"
	require.NoError(t, cfg.Validate())
}

func TestValidateAPICredsAllOrNothing(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.API.Key = "k"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set together")

	cfg.API.Secret = "s"
	cfg.API.Passphrase = "p"
	require.NoError(t, cfg.Validate())
}

func TestValidateFeedNeedsAssets(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "feed"
	cfg.Feed.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assets")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.Postgres.Password = "hunter2"
	cfg.S3.SecretKey = "secret"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	// Original untouched.
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)

	// Empty secrets stay empty rather than becoming placeholders.
	assert.Empty(t, red.Redis.Password)
}
