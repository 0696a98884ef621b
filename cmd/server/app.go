package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"personfinder/internal/importer"
	jwttoken "personfinder/internal/jwt_token"
	"personfinder/internal/lifecycle"
	"personfinder/internal/notify"
	personhandler "personfinder/internal/person/handler"
	personmetrics "personfinder/internal/person/metrics"
	personservice "personfinder/internal/person/service"
	personstore "personfinder/internal/person/store"
	"personfinder/internal/platform/config"
	"personfinder/internal/platform/kafka"
	"personfinder/internal/platform/metrics"
	"personfinder/internal/platform/postgres"
	redisclient "personfinder/internal/platform/redis"
	"personfinder/internal/search/federated"
	searchhandler "personfinder/internal/search/handler"
	"personfinder/internal/search/index"
	searchmetrics "personfinder/internal/search/metrics"
	searchservice "personfinder/internal/search/service"
	"personfinder/internal/settings"
	httptransport "personfinder/internal/transport/http"
	"personfinder/pkg/platform/cache"
	"personfinder/pkg/platform/outbox"
	outboxmemory "personfinder/pkg/platform/outbox/store/memory"
	outboxpostgres "personfinder/pkg/platform/outbox/store/postgres"
)

// app holds every wired component. Optional backends stay nil when their
// configuration is empty and the in-process fallback is used instead.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	db    *sql.DB
	redis *redisclient.Client
	kafka *kafka.Client

	personStore personstore.Store
	persons     *personservice.Service
	importer    *importer.Importer
	lifecycle   *lifecycle.Manager
	relay       *notify.Relay
	settings    *settings.Service
	search      *searchservice.Service
	elastic     *index.Elastic
	peerCache   *federated.MemoryCache
	jwt         *jwttoken.JWTService
	httpMetrics *metrics.Metrics
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.openBackends(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var (
		tx     personstore.TxRunner
		events outbox.Store
		store  settings.Store
	)
	if a.db != nil {
		pg := personstore.NewPostgres(a.db)
		a.personStore = pg
		tx = personstore.NewPostgresTx(a.db)
		events = outboxpostgres.New(a.db)
		store = settings.NewPostgresStore(a.db)
	} else {
		mem := personstore.NewInMemoryStore()
		a.personStore = mem
		tx = personstore.NewShardedTx(mem)
		events = outboxmemory.NewInMemoryStore()
		store = settings.NewInMemoryStore()
		logger.Warn("no database configured, records are kept in memory")
	}

	settingsCache, err := cache.New[string, settings.Settings](cfg.Settings.CacheSize, cfg.Settings.CacheTTL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create settings cache: %w", err)
	}
	a.settings = settings.NewService(store, settingsCache, logger)

	a.persons = personservice.New(a.personStore, tx, events,
		personservice.WithLogger(logger),
		personservice.WithMetrics(personmetrics.New()),
		personservice.WithSettings(a.settings),
	)
	a.importer = importer.New(a.persons, events,
		importer.WithLogger(logger),
		importer.WithMetrics(importer.NewMetrics()),
	)
	a.lifecycle = lifecycle.New(a.personStore, tx, events,
		lifecycle.WithGracePeriod(cfg.Lifecycle.GracePeriod),
		lifecycle.WithBatchSize(cfg.Lifecycle.BatchSize),
		lifecycle.WithLogger(logger),
		lifecycle.WithMetrics(lifecycle.NewMetrics()),
	)

	var publisher notify.Publisher = notify.NewLogPublisher(logger)
	if a.kafka != nil {
		publisher = notify.NewKafkaPublisher(a.kafka, a.kafka.Topic)
	}
	a.relay = notify.NewRelay(events, publisher,
		notify.WithPollInterval(cfg.Outbox.PollInterval),
		notify.WithBatchSize(cfg.Outbox.BatchSize),
		notify.WithLogger(logger),
		notify.WithMetrics(notify.NewMetrics()),
	)

	if err := a.wireSearch(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.jwt = jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	return a, nil
}

func (a *app) openBackends(ctx context.Context) error {
	db, err := postgres.Open(ctx, a.cfg.Postgres)
	if err != nil {
		return err
	}
	a.db = db
	if a.db != nil {
		if err := postgres.Migrate(ctx, a.db); err != nil {
			return err
		}
	}

	if a.redis, err = redisclient.New(ctx, a.cfg.Redis); err != nil {
		return err
	}
	if a.kafka, err = kafka.New(ctx, a.cfg.Kafka); err != nil {
		return err
	}
	return nil
}

func (a *app) wireSearch(ctx context.Context) error {
	sm := searchmetrics.New()

	var localIndex index.Index = index.NewStoreIndex(a.personStore)
	if a.cfg.Elasticsearch.URL != "" {
		elastic, err := index.NewElastic(ctx, index.ElasticConfig{
			URL:        a.cfg.Elasticsearch.URL,
			Index:      a.cfg.Elasticsearch.Index,
			MaxRetries: a.cfg.Elasticsearch.MaxRetries,
		}, a.personStore, a.logger)
		if err != nil {
			return err
		}
		a.elastic = elastic
		localIndex = elastic
	}

	var peerCache federated.PeerCache
	if a.redis != nil {
		peerCache = federated.NewRedisCache(a.redis.Client, a.cfg.Search.PeerCacheTTL, a.logger)
	} else {
		entries, err := cache.New[string, federated.Payload](a.cfg.Search.PeerCacheSize, a.cfg.Search.PeerCacheTTL)
		if err != nil {
			return fmt.Errorf("create peer cache: %w", err)
		}
		a.peerCache = federated.NewMemoryCache(entries)
		peerCache = a.peerCache
	}

	fetcher := federated.NewHTTPFetcher(&http.Client{Timeout: a.cfg.Search.TotalTimeout})
	balancer := federated.NewBalancer(fetcher,
		federated.WithTimeouts(a.cfg.Search.FetchTimeout, a.cfg.Search.TotalTimeout),
		federated.WithBalancerLogger(a.logger),
		federated.WithBalancerMetrics(sm),
		federated.WithPeerBreakers(a.cfg.Search.PeerBreakerThreshold, a.cfg.Search.PeerBreakerCooldown),
	)
	searcher := federated.NewSearcher(balancer, a.personStore,
		federated.WithCache(peerCache),
		federated.WithLogger(a.logger),
		federated.WithMetrics(sm),
	)
	a.search = searchservice.New(localIndex, searcher, a.settings,
		searchservice.WithLimits(a.cfg.Search.MaxResults, a.cfg.Search.HardMaxResults),
		searchservice.WithLogger(a.logger),
		searchservice.WithMetrics(sm),
	)
	return nil
}

// router builds the HTTP surface. Call once per process: metrics register
// on the default registry.
func (a *app) router() http.Handler {
	a.httpMetrics = metrics.New()

	var peerStats httptransport.StatsSource
	if a.peerCache != nil {
		peerStats = a.peerCache
	}
	return httptransport.NewRouter(httptransport.RouterConfig{
		Logger:     a.logger,
		Metrics:    a.httpMetrics,
		Validator:  jwttoken.NewJWTServiceAdapter(a.jwt),
		AdminToken: a.cfg.Server.AdminToken,
		Domain: []httptransport.Registrar{
			personhandler.New(a.persons, a.logger),
			searchhandler.New(a.search, a.logger),
			httptransport.NewInterchangeHandler(a.importer, a.persons, a.logger),
		},
		Admin:  httptransport.NewAdminHandler(a.settings, peerStats, a.lifecycle, a.logger),
		Health: a.healthChecks(),
	})
}

func (a *app) healthChecks() map[string]httptransport.HealthCheck {
	checks := make(map[string]httptransport.HealthCheck)
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Health
	}
	if a.kafka != nil {
		checks["kafka"] = a.kafka.Health
	}
	return checks
}

// reindex rebuilds the Elasticsearch documents of every served domain.
func (a *app) reindex(ctx context.Context) error {
	if a.elastic == nil {
		return nil
	}
	var errs []error
	for _, d := range a.cfg.Server.Domains {
		if _, err := a.elastic.Reindex(ctx, a.personStore, d); err != nil {
			a.logger.ErrorContext(ctx, "search reindex failed", "domain", d, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases backends in reverse order of opening.
func (a *app) Close() {
	if a.kafka != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.kafka.Flush(flushCtx)
		cancel()
		a.kafka.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
