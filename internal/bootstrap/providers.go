package bootstrap

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/config"
	"ratehub/internal/domain"
	infraconfig "ratehub/internal/infrastructure/config"
	"ratehub/internal/infrastructure/filestore"
	httpserver "ratehub/internal/infrastructure/http"
	"ratehub/internal/infrastructure/httpx"
	"ratehub/internal/infrastructure/kafka"
	"ratehub/internal/infrastructure/logx"
	"ratehub/internal/infrastructure/metrics"
	"ratehub/internal/infrastructure/pg"
	"ratehub/internal/infrastructure/provider"
	redisstore "ratehub/internal/infrastructure/redis"
	"ratehub/internal/infrastructure/worker"
)

func ProvideConfig() (config.Config, error) { return config.Load() }

func ProvideLogger(cfg config.Config) *zap.Logger {
	logx.SetLevel(cfg.LogLevel)
	return logx.L().With(zap.String("env", cfg.Env))
}

// ProvideRegistry registers every configured code on top of the defaults.
func ProvideRegistry(cfg config.Config) (*domain.Registry, error) {
	reg := domain.DefaultRegistry()
	if err := reg.EnsureCode(cfg.BaseCurrency, domain.KindFiat); err != nil {
		return nil, err
	}
	for _, c := range cfg.FiatCurrencies {
		if err := reg.EnsureCode(c, domain.KindFiat); err != nil {
			return nil, err
		}
	}
	for _, c := range cfg.CryptoCurrencies {
		if err := reg.EnsureCode(c, domain.KindCrypto); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func ProvideFileStore(cfg config.Config, log *zap.Logger) (*filestore.Store, error) {
	return filestore.New(cfg.DataDir, cfg.RatesFile, cfg.HistoryFile, log.Named("filestore"))
}

// ProvideRedisClient returns nil when no component is configured for redis.
func ProvideRedisClient(cfg config.Config, log *zap.Logger) (*redis.Client, func(), error) {
	if cfg.CacheBackend != "redis" && cfg.IdempotencyBackend != "redis" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cleanup := func() {
		log.Info("closing redis")
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateStore wraps the file store with the redis snapshot cache when
// CACHE_BACKEND=redis.
func ProvideRateStore(cfg config.Config, fs *filestore.Store, rdb *redis.Client, log *zap.Logger) application.RateStore {
	if cfg.CacheBackend != "redis" || rdb == nil {
		return fs
	}
	return redisstore.NewSnapshotCache(fs, rdb, cfg.RatesTTL, log.Named("snapshot_cache"))
}

func ProvideRefreshGuard(cfg config.Config, rdb *redis.Client) application.RefreshGuard {
	if cfg.IdempotencyBackend != "redis" || rdb == nil {
		return application.NoopGuard{}
	}
	return redisstore.NewRefreshGuard(rdb, cfg.IdempotencyTTL)
}

// ProvideDB opens the history mirror database; nil unless HISTORY_MIRROR=pg.
func ProvideDB(ctx context.Context, cfg config.Config, log *zap.Logger) (*pg.DB, func(), error) {
	if cfg.HistoryMirror != "pg" {
		return nil, func() {}, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

func ProvideSources(cfg config.Config, log *zap.Logger) []application.RateSource {
	if cfg.Sources == "static" {
		return []application.RateSource{provider.NewStatic("static", provider.DefaultStaticRates)}
	}
	client := httpx.New(cfg.RequestTimeout, log.Named("httpx"))
	return []application.RateSource{
		&provider.CoinGecko{
			BaseURL:    cfg.CoinGeckoURL,
			Base:       cfg.BaseCurrency,
			Currencies: cfg.CryptoCurrencies,
			IDs:        cfg.CryptoIDs,
			Client:     client,
			Log:        log.Named("coingecko"),
		},
		&provider.ExchangeRateAPI{
			BaseURL:    cfg.ExchangeRateAPIURL,
			APIKey:     cfg.ExchangeRateAPIKey,
			Base:       cfg.BaseCurrency,
			Currencies: cfg.FiatCurrencies,
			Client:     client,
			Log:        log.Named("exchangerate"),
		},
	}
}

func ProvideMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func ProvideUpdaterMetrics(reg *prometheus.Registry) *metrics.UpdaterMetrics {
	return metrics.NewUpdaterMetrics(reg)
}

// ProvidePublisher returns nil when KAFKA_BROKERS is empty.
func ProvidePublisher(cfg config.Config, log *zap.Logger) (*kafka.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, func() {}
	}
	p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log.Named("kafka"))
	return p, func() {
		if err := p.Close(); err != nil {
			log.Warn("closing kafka writer", zap.Error(err))
		}
	}
}

func ProvideUpdater(
	cfg config.Config,
	store application.RateStore,
	sources []application.RateSource,
	db *pg.DB,
	pub *kafka.Publisher,
	m *metrics.UpdaterMetrics,
	log *zap.Logger,
) *application.Updater {
	opts := []application.UpdaterOption{
		application.WithUpdaterLogger(log.Named("updater")),
		application.WithObserver(m),
	}
	if cfg.Sources == "live" {
		opts = append(opts, application.WithAttribution(
			application.MembershipAttribution(cfg.CryptoCurrencies, provider.CoinGeckoName, provider.ExchangeRateName),
		))
	}
	if db != nil {
		opts = append(opts,
			application.WithHistoryMirror(pg.NewHistoryRepo(db)),
			application.WithUnitOfWork(&pg.UnitOfWork{Pool: db.Pool}),
		)
	}
	if pub != nil {
		opts = append(opts, application.WithNotifier(pub))
	}
	return application.NewUpdater(store, sources, opts...)
}

// ProvideHistoryReader prefers the pg mirror when it is configured.
func ProvideHistoryReader(fs *filestore.Store, db *pg.DB) application.HistoryReader {
	if db != nil {
		return pg.NewHistoryRepo(db)
	}
	return fs
}

func ProvideRatesService(
	cfg config.Config,
	u *application.Updater,
	store application.RateStore,
	history application.HistoryReader,
	reg *domain.Registry,
	log *zap.Logger,
) *application.RatesService {
	return application.NewRatesService(u, store, application.NewResolver(cfg.BaseCurrency),
		application.WithTTL(cfg.RatesTTL),
		application.WithHistoryReader(history),
		application.WithRegistry(reg),
		application.WithLogger(log.Named("rates")),
	)
}

func ProvideHandler(
	cfg config.Config,
	svc *application.RatesService,
	store application.RateStore,
	guard application.RefreshGuard,
	reg *prometheus.Registry,
	db *pg.DB,
) http.Handler {
	srv := httpserver.NewServer(svc,
		httpserver.WithRefreshGuard(guard),
		httpserver.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		httpserver.WithCORSOrigins(cfg.CORSOrigins),
	)
	var pings []func(ctx context.Context) error
	if db != nil {
		pings = append(pings, db.Ping)
	}
	srv.SetReadyCheck(readyCheck(store, pings...))
	return httpserver.NewRouter(srv)
}

func ProvideScheduler(cfg config.Config, u *application.Updater, log *zap.Logger) *worker.Scheduler {
	return &worker.Scheduler{
		Updater:     u,
		Interval:    cfg.UpdateInterval,
		StopTimeout: infraconfig.DefaultSchedulerStop,
		Log:         log.Named("scheduler"),
	}
}
