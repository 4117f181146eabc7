package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/admin"
	"github.com/emperorhan/ownership-indexer/internal/chain/evm/rpc"
	"github.com/emperorhan/ownership-indexer/internal/chain/ratelimit"
	"github.com/emperorhan/ownership-indexer/internal/config"
	"github.com/emperorhan/ownership-indexer/internal/contentserver"
	"github.com/emperorhan/ownership-indexer/internal/contracttype"
	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
	"github.com/emperorhan/ownership-indexer/internal/onchain"
	"github.com/emperorhan/ownership-indexer/internal/ownership"
	"github.com/emperorhan/ownership-indexer/internal/ownershipindex"
	"github.com/emperorhan/ownership-indexer/internal/store/postgres"
	storeredis "github.com/emperorhan/ownership-indexer/internal/store/redis"
	"github.com/emperorhan/ownership-indexer/internal/subgraph"
	"github.com/emperorhan/ownership-indexer/internal/thirdparty"
	"github.com/emperorhan/ownership-indexer/internal/tracing"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName           = "ownershipd"
	dbPoolStatsInterval   = 15 * time.Second
	adminShutdownDeadline = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	logger.Info("starting ownershipd",
		"cache_backend", cfg.Cache.Backend,
		"fragment_size", cfg.Ownership.FragmentSize,
		"rpc_networks", cfg.RPC.Networks(),
		"resolvers", len(cfg.ThirdParty.Resolvers),
		"ownership_index", cfg.OwnershipIndex.URL != "",
		"persistence", cfg.DB.URL != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(ctx, serviceName, tracingEndpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	var persister contracttype.Persister
	var db *postgres.DB
	if cfg.DB.URL != "" {
		db, err = postgres.New(ctx, postgres.Config{
			URL:             cfg.DB.URL,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.RunMigrations(ctx, cfg.DB.MigrationsDir); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		persister = postgres.NewContractTypeRepo(db)
	}

	var redisClient *redis.Client
	if cfg.Cache.Backend == config.CacheBackendRedis {
		redisClient, err = storeredis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	callers := buildCallers(cfg.RPC, logger)
	registries := buildRegistries(callers, persister, logger)
	registries.Preload(ctx)

	svc, err := buildService(cfg, callers, registries, redisClient, logger)
	if err != nil {
		logger.Error("failed to build ownership service", "error", err)
		os.Exit(1)
	}

	adminServer := admin.NewServer(logger,
		admin.WithContractRegistry(registries),
		admin.WithVerifier(svc),
	)
	rateLimiter := admin.NewRateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	defer rateLimiter.Stop()
	handler := admin.AuditMiddleware(logger, rateLimiter.Wrap(adminServer.Handler()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runAdminServer(gCtx, cfg.Server.AdminPort, handler, logger)
	})
	if db != nil {
		startDBPoolStatsPump(gCtx, db.DB, dbPoolStatsInterval, logger)
	}
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("ownershipd exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("ownershipd shut down gracefully")
}

// buildCallers creates one rate-limited JSON-RPC client per configured network.
func buildCallers(cfg config.RPCConfig, logger *slog.Logger) map[model.Network]rpc.Caller {
	callers := make(map[model.Network]rpc.Caller, len(cfg.URLs))
	for name, url := range cfg.URLs {
		network, ok := model.ParseNetwork(name)
		if !ok {
			continue
		}
		callers[network] = rpc.NewClient(url, network.String(), logger,
			rpc.WithTimeout(cfg.Timeout),
			rpc.WithLimiter(ratelimit.NewLimiter(cfg.RPS, cfg.Burst, network.String())),
		)
	}
	return callers
}

func buildRegistries(callers map[model.Network]rpc.Caller, persister contracttype.Persister, logger *slog.Logger) *contracttype.Set {
	var opts []contracttype.Option
	if persister != nil {
		opts = append(opts, contracttype.WithPersister(persister))
	}
	registries := make([]*contracttype.Registry, 0, len(callers))
	for network, caller := range callers {
		registries = append(registries, contracttype.NewRegistry(network, caller, logger, opts...))
	}
	return contracttype.NewSet(registries...)
}

func buildResolvers(cfg config.ThirdPartyConfig, logger *slog.Logger) map[string]thirdparty.AssetLister {
	resolvers := make(map[string]thirdparty.AssetLister, len(cfg.Resolvers))
	for registryID, baseURL := range cfg.Resolvers {
		resolvers[registryID] = thirdparty.NewResolver(baseURL, cfg.Timeout, logger)
	}
	return resolvers
}

// newStore returns the verdict store of one category; a nil redis client
// means process-local caches.
func newStore(cfg config.CacheConfig, category model.Category, redisClient redis.UniversalClient) ownership.VerdictStore {
	cc := cfg.For(category)
	if redisClient != nil {
		return storeredis.NewVerdictStore(redisClient, category, cc.TTL)
	}
	return ownership.NewMemoryStore(cc.MaxSize, cc.TTL)
}

func buildService(
	cfg *config.Config,
	callers map[model.Network]rpc.Caller,
	registries *contracttype.Set,
	redisClient *redis.Client,
	logger *slog.Logger,
) (*ownership.Service, error) {
	var universal redis.UniversalClient
	if redisClient != nil {
		universal = redisClient
	}

	var comparator ownership.Comparator
	if cfg.OwnershipIndex.URL != "" {
		client := ownershipindex.NewClient(cfg.OwnershipIndex.URL, cfg.OwnershipIndex.Timeout, logger)
		comparator = ownershipindex.NewComparator(client, logger)
	}

	newSubgraph := func(url string) *subgraph.Client {
		return subgraph.NewClient(url, cfg.Subgraph.Timeout, cfg.Subgraph.MaxAttempts, logger)
	}

	content := contentserver.NewClient(cfg.ContentServer.URL, cfg.ContentServer.Timeout, logger)
	linked := onchain.NewLinkedVerifier(onchain.NewChecker(content, registries, callers, logger), logger)

	setups := []ownership.CategorySetup{
		{
			Checker: subgraph.NewWearablesChecker(
				newSubgraph(cfg.Subgraph.EthereumCollectionsURL),
				newSubgraph(cfg.Subgraph.MaticCollectionsURL),
				logger,
			),
			Store:      newStore(cfg.Cache, model.CategoryWearables, universal),
			Comparator: comparator,
		},
		{
			Checker:    subgraph.NewNamesChecker(newSubgraph(cfg.Subgraph.MarketplaceURL), logger),
			Store:      newStore(cfg.Cache, model.CategoryNames, universal),
			Comparator: comparator,
		},
		{
			Checker: thirdparty.NewChecker(buildResolvers(cfg.ThirdParty, logger), linked, logger),
			Store:   newStore(cfg.Cache, model.CategoryThirdParty, universal),
		},
	}
	return ownership.NewService(cfg.Ownership.FragmentSize, setups, logger)
}

type dbStatsProvider interface {
	Stats() sql.DBStats
}

func collectDBPoolStats(db dbStatsProvider) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("db pool stats collection panicked: %v", r)
		}
	}()
	if db == nil {
		return fmt.Errorf("db stats provider is nil")
	}

	stats := db.Stats()
	metrics.DBPoolOpen.Set(float64(stats.OpenConnections))
	metrics.DBPoolInUse.Set(float64(stats.InUse))
	metrics.DBPoolWaitCount.Set(float64(stats.WaitCount))
	return nil
}

func startDBPoolStatsPump(ctx context.Context, db dbStatsProvider, interval time.Duration, logger *slog.Logger) {
	if db == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		if err := collectDBPoolStats(db); err != nil {
			logger.Warn("failed to collect initial db pool stats", "error", err)
		}

		for {
			select {
			case <-ctx.Done():
				logger.Info("db pool stats sampler stopped", "cause", "context_done")
				return
			case <-ticker.C:
				if err := collectDBPoolStats(db); err != nil {
					logger.Warn("failed to collect db pool stats", "error", err)
				}
			}
		}
	}()
}

func runAdminServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), adminShutdownDeadline)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("admin server shutdown error", "error", err)
		}
	}()

	logger.Info("admin server started", "port", port)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}
