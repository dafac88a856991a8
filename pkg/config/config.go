package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	HTTP         HTTPConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Square       SquareConfig
	Settlement   SettlementConfig
	Cron         CronConfig
}

// Load reads the ESCROW_* environment, derives what can be derived and reports every
// invalid setting at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ESCROW_APP_ENV" required:"true"`
	Port         string `envconfig:"ESCROW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ESCROW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ESCROW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool  { return strings.EqualFold(a.Env, AppEnvDev) }
func (a AppConfig) IsProd() bool { return strings.EqualFold(a.Env, AppEnvProd) }

type ServiceConfig struct {
	Kind string `envconfig:"ESCROW_SERVICE_KIND" default:"api"`
}

// DBConfig accepts either a full DSN or the discrete host/user/name parts.
type DBConfig struct {
	DSN    string `envconfig:"ESCROW_DB_DSN"`
	Driver string `envconfig:"ESCROW_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ESCROW_DB_HOST"`
	Port     int    `envconfig:"ESCROW_DB_PORT" default:"5432"`
	User     string `envconfig:"ESCROW_DB_USER"`
	Password string `envconfig:"ESCROW_DB_PASSWORD"`
	Name     string `envconfig:"ESCROW_DB_NAME"`
	SSLMode  string `envconfig:"ESCROW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ESCROW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ESCROW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ESCROW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ESCROW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ESCROW_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
	// TxMaxAttempts bounds how often a unit of work is replayed after a deadlock or
	// serialization failure.
	TxMaxAttempts int `envconfig:"ESCROW_DB_TX_MAX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ESCROW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ESCROW_REDIS_ADDR"`
	Password     string        `envconfig:"ESCROW_REDIS_PASSWORD"`
	DB           int           `envconfig:"ESCROW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ESCROW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ESCROW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ESCROW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ESCROW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ESCROW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ESCROW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ESCROW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ESCROW_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration is the access token lifetime; zero when unset.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ESCROW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ESCROW_AUTO_MIGRATE" default:"false"`
	// RefundsEnabled gates the card refund rail on buyer refunds.
	RefundsEnabled bool `envconfig:"ESCROW_FEATURE_REFUNDS" default:"true"`
}

// HTTPConfig tunes the API edge: replay protection, CORS and per-caller throttling.
type HTTPConfig struct {
	IdempotencyTTL   time.Duration `envconfig:"ESCROW_HTTP_IDEMPOTENCY_TTL" default:"24h"`
	CORSOrigins      []string      `envconfig:"ESCROW_HTTP_CORS_ORIGINS" default:"http://localhost:3000"`
	RateLimitWindow  time.Duration `envconfig:"ESCROW_HTTP_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerUser int           `envconfig:"ESCROW_HTTP_RATE_LIMIT_PER_USER" default:"60"`
	RateLimitPerIP   int           `envconfig:"ESCROW_HTTP_RATE_LIMIT_PER_IP" default:"300"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ESCROW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ESCROW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ESCROW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic string `envconfig:"ESCROW_PUBSUB_SETTLEMENT_TOPIC" default:"escrow-settlement-events"`
	PayoutTopic     string `envconfig:"ESCROW_PUBSUB_PAYOUT_TOPIC" default:"escrow-payout-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ESCROW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ESCROW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ESCROW_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"ESCROW_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"ESCROW_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"ESCROW_SQUARE_LOCATION_ID"`
	Currency    string `envconfig:"ESCROW_SQUARE_CURRENCY" default:"USD"`
}

// Environment lowercases Env and falls back to sandbox.
func (s SquareConfig) Environment() string {
	if env := strings.ToLower(strings.TrimSpace(s.Env)); env != "" {
		return env
	}
	return SquareEnvSandbox
}

// Enabled reports whether the refund rail has credentials.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type SettlementConfig struct {
	DefaultFeeBPS       int           `envconfig:"ESCROW_DEFAULT_FEE_BPS" default:"1000"`
	DisputeReleaseBasis string        `envconfig:"ESCROW_DISPUTE_RELEASE_BASIS" default:"gross"`
	AutoCompleteAfter   time.Duration `envconfig:"ESCROW_AUTO_COMPLETE_AFTER" default:"72h"`
	WalletCacheTTL      time.Duration `envconfig:"ESCROW_WALLET_CACHE_TTL" default:"30s"`
	// SystemActorID identifies the scheduler when it acts on transactions.
	SystemActorID string `envconfig:"ESCROW_SYSTEM_ACTOR_ID" default:"00000000-0000-0000-0000-000000000001"`
}

// SystemActor returns the parsed scheduler identity. Load guarantees it parses.
func (s SettlementConfig) SystemActor() uuid.UUID {
	return uuid.MustParse(strings.TrimSpace(s.SystemActorID))
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"ESCROW_CRON_INTERVAL" default:"1h"`
	JobTimeout          time.Duration `envconfig:"ESCROW_CRON_JOB_TIMEOUT" default:"10m"`
	ReconcileBatchSize  int           `envconfig:"ESCROW_CRON_RECONCILE_BATCH_SIZE" default:"500"`
	OutboxRetentionDays int           `envconfig:"ESCROW_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}
