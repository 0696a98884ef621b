package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"personfinder/pkg/domain"
	pfstrings "personfinder/pkg/platform/strings"
)

// Config is the full process configuration.
type Config struct {
	Server        Server
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Outbox        OutboxConfig
	Elasticsearch ElasticsearchConfig
	Search        SearchConfig
	Lifecycle     LifecycleConfig
	Settings      SettingsConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	// AdminToken guards /admin endpoints. Empty disables them.
	AdminToken      string
	LogLevel        string
	ShutdownTimeout time.Duration
	// Domains are the repositories served by this process.
	Domains []string
}

// PostgresConfig configures the shared pool. An empty URL selects in-memory stores.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the peer response cache. An empty URL keeps the cache in process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures event delivery. No brokers means events are logged.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// ElasticsearchConfig enables the Elasticsearch local index when URL is set.
type ElasticsearchConfig struct {
	URL        string
	Index      string
	MaxRetries int
	// ReindexSchedule is the cron spec for rebuilding the index from storage.
	ReindexSchedule string
}

// SearchConfig bounds federated search.
type SearchConfig struct {
	FetchTimeout   time.Duration
	TotalTimeout   time.Duration
	MaxResults     int
	HardMaxResults int
	PeerCacheTTL   time.Duration
	PeerCacheSize  int
	// PeerBreakerThreshold consecutive failures open a peer's circuit; 0 disables.
	PeerBreakerThreshold int
	PeerBreakerCooldown  time.Duration
}

// LifecycleConfig drives the expiry sweep.
type LifecycleConfig struct {
	SweepSchedule string
	// GracePeriod is how long a past-due person keeps its content before
	// the sweep tombstones it.
	GracePeriod time.Duration
	BatchSize   int
	// Domains swept; defaults to Server.Domains.
	Domains []string
}

type SettingsConfig struct {
	CacheTTL  time.Duration
	CacheSize int
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() (Config, error) {
	e := &envReader{}
	cfg := Config{
		Server: Server{
			Addr:            e.str("PF_ADDR", ":8080"),
			JWTSigningKey:   e.str("PF_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       e.str("PF_JWT_ISSUER", "personfinder"),
			AdminToken:      e.str("PF_ADMIN_TOKEN", ""),
			LogLevel:        e.str("PF_LOG_LEVEL", "info"),
			ShutdownTimeout: e.duration("PF_SHUTDOWN_TIMEOUT", 10*time.Second),
			Domains:         pfstrings.SplitList(e.str("PF_DOMAINS", "")),
		},
		Postgres: PostgresConfig{
			URL:             e.str("PF_DATABASE_URL", ""),
			MaxOpenConns:    e.integer("PF_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    e.integer("PF_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("PF_DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          e.str("PF_REDIS_URL", ""),
			PoolSize:     e.integer("PF_REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("PF_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("PF_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("PF_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("PF_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:  pfstrings.SplitList(e.str("PF_KAFKA_BROKERS", "")),
			Topic:    e.str("PF_KAFKA_TOPIC", "personfinder.events"),
			ClientID: e.str("PF_KAFKA_CLIENT_ID", "personfinder"),
		},
		Outbox: OutboxConfig{
			PollInterval: e.duration("PF_OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    e.integer("PF_OUTBOX_BATCH", 100),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:             e.str("PF_ELASTICSEARCH_URL", ""),
			Index:           e.str("PF_ELASTICSEARCH_INDEX", "persons"),
			MaxRetries:      e.integer("PF_ELASTICSEARCH_MAX_RETRIES", 3),
			ReindexSchedule: e.str("PF_ELASTICSEARCH_REINDEX_SCHEDULE", "@every 5m"),
		},
		Search: SearchConfig{
			FetchTimeout:   e.duration("PF_SEARCH_FETCH_TIMEOUT", 900*time.Millisecond),
			TotalTimeout:   e.duration("PF_SEARCH_TOTAL_TIMEOUT", 5*time.Second),
			MaxResults:     e.integer("PF_SEARCH_MAX_RESULTS", 100),
			HardMaxResults: e.integer("PF_SEARCH_HARD_MAX_RESULTS", 200),
			PeerCacheTTL:   e.duration("PF_PEER_CACHE_TTL", 30*time.Second),
			PeerCacheSize:  e.integer("PF_PEER_CACHE_SIZE", 1000),

			PeerBreakerThreshold: e.integer("PF_PEER_BREAKER_THRESHOLD", 5),
			PeerBreakerCooldown:  e.duration("PF_PEER_BREAKER_COOLDOWN", 30*time.Second),
		},
		Lifecycle: LifecycleConfig{
			SweepSchedule: e.str("PF_SWEEP_SCHEDULE", "@every 1h"),
			GracePeriod:   e.duration("PF_EXPIRY_GRACE_PERIOD", 0),
			BatchSize:     e.integer("PF_SWEEP_BATCH", 500),
			Domains:       pfstrings.SplitList(e.str("PF_SWEEP_DOMAINS", "")),
		},
		Settings: SettingsConfig{
			CacheTTL:  e.duration("PF_SETTINGS_CACHE_TTL", 10*time.Minute),
			CacheSize: e.integer("PF_SETTINGS_CACHE_SIZE", 256),
		},
	}
	if e.err != nil {
		return Config{}, e.err
	}
	if len(cfg.Lifecycle.Domains) == 0 {
		cfg.Lifecycle.Domains = cfg.Server.Domains
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	for _, d := range c.Server.Domains {
		if err := domain.ValidateDomain(d); err != nil {
			return fmt.Errorf("PF_DOMAINS: %w", err)
		}
	}
	for _, d := range c.Lifecycle.Domains {
		if err := domain.ValidateDomain(d); err != nil {
			return fmt.Errorf("PF_SWEEP_DOMAINS: %w", err)
		}
	}
	if c.Search.FetchTimeout <= 0 || c.Search.TotalTimeout <= 0 {
		return fmt.Errorf("search timeouts must be positive")
	}
	if c.Search.MaxResults <= 0 || c.Search.HardMaxResults < c.Search.MaxResults {
		return fmt.Errorf("PF_SEARCH_MAX_RESULTS must be positive and not exceed PF_SEARCH_HARD_MAX_RESULTS")
	}
	if c.Lifecycle.GracePeriod < 0 {
		return fmt.Errorf("PF_EXPIRY_GRACE_PERIOD must not be negative")
	}
	return nil
}

// envReader records the first parse failure.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
