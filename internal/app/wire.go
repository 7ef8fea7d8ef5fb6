package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/ethanvb/clobtrader/internal/blob/s3"
	"github.com/ethanvb/clobtrader/internal/cache/redis"
	"github.com/ethanvb/clobtrader/internal/chain"
	"github.com/ethanvb/clobtrader/internal/config"
	"github.com/ethanvb/clobtrader/internal/crypto"
	"github.com/ethanvb/clobtrader/internal/notify"
	"github.com/ethanvb/clobtrader/internal/platform/polymarket"
	"github.com/ethanvb/clobtrader/internal/store/postgres"
	"github.com/ethanvb/clobtrader/internal/trading"
)

// Submit rate limit applied when Redis is enabled.
const (
	submitLimit  = 30
	submitWindow = time.Minute
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
// Optional fields (Orders, Prices, Limiter, Archiver) are nil when the
// corresponding backend is disabled in configuration.
type Dependencies struct {
	Signer     *crypto.Signer
	Allowances *chain.AllowanceManager
	Gamma      *polymarket.GammaClient
	Clob       *polymarket.ClobClient
	Trader     *trading.Client

	Orders   *postgres.OrderStore
	Prices   *redis.PriceCache
	Limiter  *redis.SubmitLimiter
	Archiver *s3blob.Archiver

	Notifier *notify.Notifier
}

// needsWallet returns true for modes that sign orders or transactions.
func needsWallet(mode string) bool {
	return mode == "trade"
}

// Wire constructs concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to be
// called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Gamma: polymarket.NewGammaClient(cfg.Polymarket.GammaHost),
	}

	contracts, err := chain.ContractsFor(cfg.Chain.ChainID)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}

	// --- Wallet, signer, and on-chain allowance manager ---
	if needsWallet(cfg.Mode) {
		keyHex, err := crypto.LoadKey(crypto.KeySource{
			RawHex:      cfg.Wallet.PrivateKey,
			KeyfilePath: cfg.Wallet.EncryptedKeyPath,
			Password:    cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
		}

		deps.Signer, err = crypto.NewSigner(keyHex, cfg.Chain.ChainID, contracts.Exchange)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}

		ecdsaKey, err := ethcrypto.HexToECDSA(keyHex)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: parse wallet key: %w", err)
		}

		ethClient, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: chain rpc: %w", err)
		}
		closers = append(closers, ethClient.Close)

		deps.Allowances = chain.NewAllowanceManager(ethClient, contracts, ecdsaKey, logger)
	}

	// --- CLOB client ---
	var creds *crypto.APICreds
	if cfg.API.Key != "" {
		creds = &crypto.APICreds{
			Key:        cfg.API.Key,
			Secret:     cfg.API.Secret,
			Passphrase: cfg.API.Passphrase,
		}
	}
	deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, deps.Signer, creds)
	if creds == nil && deps.Signer != nil {
		if err := deps.Clob.DeriveAPIKey(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: derive api credentials: %w", err)
		}
	}

	// --- PostgreSQL order history ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Orders = postgres.NewOrderStore(pgClient.Pool())
	}

	// --- Redis: price cache and submit rate limiter ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Prices = redis.NewPriceCache(redisClient)
		deps.Limiter = redis.NewSubmitLimiter(redisClient, submitLimit, submitWindow)
	}

	// --- S3 matched-order archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client)
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

	// --- Trading client ---
	tc := trading.ClientConfig{
		Logger: logger,
	}
	if deps.Signer != nil {
		tc.Signer = deps.Signer
	}
	if deps.Allowances != nil {
		tc.Allowances = deps.Allowances
	}
	if deps.Orders != nil {
		tc.Store = deps.Orders
	}
	if deps.Archiver != nil {
		tc.Archiver = deps.Archiver
	}
	if deps.Limiter != nil {
		tc.Limiter = deps.Limiter
	}
	deps.Trader = trading.NewClient(tc)
	deps.Trader.RegisterVenue(trading.NewPolymarketVenue(deps.Gamma, deps.Clob))

	return deps, cleanup, nil
}
