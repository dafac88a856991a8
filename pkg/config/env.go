package config

const EnvPrefix = "ESCROW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	ReleaseBasisGross = "gross"
	ReleaseBasisNet   = "net"
)

const (
	SquareEnvSandbox    = "sandbox"
	SquareEnvProduction = "production"
)

const (
	EnvAppEnv    = "ESCROW_APP_ENV"
	EnvPort      = "ESCROW_APP_PORT"
	EnvLogLevel  = "ESCROW_LOG_LEVEL"
	EnvDBDSN     = "ESCROW_DB_DSN"
	EnvDBHost    = "ESCROW_DB_HOST"
	EnvDBUser    = "ESCROW_DB_USER"
	EnvDBName    = "ESCROW_DB_NAME"
	EnvRedisURL  = "ESCROW_REDIS_URL"
	EnvJWTSecret = "ESCROW_JWT_SECRET"
	EnvJWTIssuer = "ESCROW_JWT_ISSUER"
	EnvUseSQLite = "ESCROW_USE_SQLITE"

	EnvDefaultFeeBPS       = "ESCROW_DEFAULT_FEE_BPS"
	EnvDisputeReleaseBasis = "ESCROW_DISPUTE_RELEASE_BASIS"
	EnvAutoCompleteAfter   = "ESCROW_AUTO_COMPLETE_AFTER"
	EnvSquareAccessToken   = "ESCROW_SQUARE_ACCESS_TOKEN"
	EnvSquareEnv           = "ESCROW_SQUARE_ENV"
	EnvSquareCurrency      = "ESCROW_SQUARE_CURRENCY"
	EnvOutboxMaxAttempts   = "ESCROW_OUTBOX_MAX_ATTEMPTS"
	EnvCronInterval        = "ESCROW_CRON_INTERVAL"
	EnvSystemActorID       = "ESCROW_SYSTEM_ACTOR_ID"
)
