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
// built-in defaults, applies CLOBTRADER_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
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

// applyEnvOverrides reads well-known CLOBTRADER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Wallet.PrivateKey, "CLOBTRADER_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "CLOBTRADER_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "CLOBTRADER_WALLET_KEY_PASSWORD")

	setStr(&cfg.Polymarket.ClobHost, "CLOBTRADER_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "CLOBTRADER_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "CLOBTRADER_POLYMARKET_WS_HOST")

	setStr(&cfg.API.Key, "CLOBTRADER_API_KEY")
	setStr(&cfg.API.Secret, "CLOBTRADER_API_SECRET")
	setStr(&cfg.API.Passphrase, "CLOBTRADER_API_PASSPHRASE")

	setStr(&cfg.Chain.RPCURL, "CLOBTRADER_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "CLOBTRADER_CHAIN_ID")

	setBool(&cfg.Postgres.Enabled, "CLOBTRADER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CLOBTRADER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CLOBTRADER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CLOBTRADER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CLOBTRADER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CLOBTRADER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CLOBTRADER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CLOBTRADER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CLOBTRADER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CLOBTRADER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CLOBTRADER_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "CLOBTRADER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CLOBTRADER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CLOBTRADER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CLOBTRADER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CLOBTRADER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CLOBTRADER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CLOBTRADER_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "CLOBTRADER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CLOBTRADER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CLOBTRADER_S3_REGION")
	setStr(&cfg.S3.Bucket, "CLOBTRADER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CLOBTRADER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CLOBTRADER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CLOBTRADER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CLOBTRADER_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Feed.Enabled, "CLOBTRADER_FEED_ENABLED")
	setStringSlice(&cfg.Feed.Assets, "CLOBTRADER_FEED_ASSETS")
	setDuration(&cfg.Feed.ReconnectDelay, "CLOBTRADER_FEED_RECONNECT_DELAY")

	setStr(&cfg.Notify.TelegramToken, "CLOBTRADER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CLOBTRADER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CLOBTRADER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CLOBTRADER_NOTIFY_EVENTS")

	setStr(&cfg.Mode, "CLOBTRADER_MODE")
	setStr(&cfg.LogLevel, "CLOBTRADER_LOG_LEVEL")
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
