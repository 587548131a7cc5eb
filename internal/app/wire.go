package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polypredict/dashd/internal/cache/redis"
	"github.com/polypredict/dashd/internal/config"
	"github.com/polypredict/dashd/internal/contracts"
	"github.com/polypredict/dashd/internal/dispatch"
	"github.com/polypredict/dashd/internal/domain"
	"github.com/polypredict/dashd/internal/notify"
	"github.com/polypredict/dashd/internal/view"
	"github.com/polypredict/dashd/internal/wallet"
)

// Dependencies bundles every component the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Session  *wallet.Session
	Registry *contracts.Registry

	// Caches and bus
	PriceCache  domain.PriceCache
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// View and write sides
	Aggregator *view.Aggregator
	Poller     *view.Poller
	Dispatcher *dispatch.Dispatcher // nil in readonly mode

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	full := strings.ToLower(cfg.Mode) == "full"

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Wallet session ---
	walletCfg := wallet.Config{
		RPCURL:  cfg.Chain.RPCURL,
		ChainID: cfg.Chain.ChainID,
	}
	if full {
		walletCfg.PrivateKey = cfg.Wallet.PrivateKey
		walletCfg.EncryptedKeyPath = cfg.Wallet.EncryptedKeyPath
		walletCfg.KeyPassword = cfg.Wallet.KeyPassword
	}
	session, err := wallet.Connect(ctx, walletCfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}
	closers = append(closers, session.Close)
	deps.Session = session

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
		TTL:        time.Duration(cfg.Redis.TTLMinutes) * time.Minute,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.MarketCache = redis.NewMarketCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Contract registry ---
	registry, err := contracts.NewRegistry(contracts.Addresses{
		Market:       cfg.Chain.MarketAddress,
		Exchange:     cfg.Chain.ExchangeAddress,
		TokenManager: cfg.Chain.TokenManagerAddress,
		Facade:       cfg.Chain.FacadeAddress,
	}, session.Client(), session, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: contracts: %w", err)
	}
	deps.Registry = registry

	// --- View aggregation ---
	deps.Aggregator = view.NewAggregator(registry, deps.MarketCache, deps.PriceCache, deps.SignalBus, view.DiscoveryBounds{
		StartID:                cfg.Discovery.StartID,
		MaxMarkets:             cfg.Discovery.MaxMarkets,
		MaxConsecutiveFailures: cfg.Discovery.MaxConsecutiveFailures,
	}, logger)
	deps.Poller = view.NewPoller(
		deps.Aggregator,
		cfg.Poll.BestPricesInterval.Duration,
		cfg.Poll.RediscoverEvery,
		deps.LockManager,
		logger,
	)

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

	// --- Action dispatch (writes need a signing session) ---
	if full {
		var reporter dispatch.Notifier
		if len(senders) > 0 {
			reporter = notify.NewActionReporter(deps.Notifier)
		}
		deps.Dispatcher = dispatch.NewDispatcher(
			dispatch.NewRegistryWriter(registry),
			registry,
			deps.Aggregator,
			session,
			reporter,
			deps.SignalBus,
			logger,
		)
	}

	// Trader-scoped view fields are fetched per request, so an account switch
	// only needs to be visible; the version lets clients drop stale state.
	session.OnIdentityChange(func(version uint64) {
		logger.Info("wallet identity changed",
			slog.String("address", session.Address()),
			slog.Uint64("version", version),
		)
	})

	return deps, cleanup, nil
}
