package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Uploads       UploadsConfig
	Pricing       PricingConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRINTDOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"PRINTDOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRINTDOCK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PRINTDOCK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PRINTDOCK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"PRINTDOCK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"PRINTDOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"PRINTDOCK_DB_DSN"`

	LegacyHost     string `envconfig:"PRINTDOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"PRINTDOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRINTDOCK_DB_USER"`
	LegacyPassword string `envconfig:"PRINTDOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRINTDOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRINTDOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRINTDOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRINTDOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRINTDOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRINTDOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery logs statements slower than this at warn. Zero disables it.
	SlowQuery time.Duration `envconfig:"PRINTDOCK_DB_SLOW_QUERY" default:"500ms"`
	// TxAttempts bounds retries of a transaction that hit a serialization
	// failure or deadlock.
	TxAttempts uint64 `envconfig:"PRINTDOCK_DB_TX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRINTDOCK_REDIS_URL"`
	Address      string        `envconfig:"PRINTDOCK_REDIS_ADDR"`
	Password     string        `envconfig:"PRINTDOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRINTDOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRINTDOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRINTDOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRINTDOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRINTDOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRINTDOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PRINTDOCK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PRINTDOCK_JWT_ISSUER" default:"printdock"`
	ExpirationMinutes      int    `envconfig:"PRINTDOCK_JWT_EXPIRATION_MINUTES" default:"1440"`
	RefreshTokenTTLMinutes int    `envconfig:"PRINTDOCK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int           `envconfig:"PRINTDOCK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int           `envconfig:"PRINTDOCK_ARGON_TIME" default:"3"`
	ArgonParallelism int           `envconfig:"PRINTDOCK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int           `envconfig:"PRINTDOCK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"PRINTDOCK_ARGON_KEY_LEN" default:"32"`
	ResetTokenTTL    time.Duration `envconfig:"PRINTDOCK_PASSWORD_RESET_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PRINTDOCK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PRINTDOCK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PRINTDOCK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PRINTDOCK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PRINTDOCK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PRINTDOCK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRINTDOCK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRINTDOCK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PRINTDOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRINTDOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"PRINTDOCK_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"PRINTDOCK_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

// UploadsConfig bounds decoded file sizes per upload surface.
type UploadsConfig struct {
	GeneralMaxBytes int64 `envconfig:"PRINTDOCK_UPLOAD_GENERAL_MAX_BYTES" default:"5242880"`
	ProfileMaxBytes int64 `envconfig:"PRINTDOCK_UPLOAD_PROFILE_MAX_BYTES" default:"2097152"`
	CSVMaxBytes     int64 `envconfig:"PRINTDOCK_UPLOAD_CSV_MAX_BYTES" default:"5242880"`
}

// PricingConfig carries the flat, order-level shipping rates.
type PricingConfig struct {
	StandardShipping decimal.Decimal `envconfig:"PRINTDOCK_SHIPPING_STANDARD" default:"5.00"`
	ExpressShipping  decimal.Decimal `envconfig:"PRINTDOCK_SHIPPING_EXPRESS" default:"15.00"`
}

func (p PricingConfig) validate() error {
	if p.StandardShipping.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvShippingStandard)
	}
	if p.ExpressShipping.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvShippingExpress)
	}
	return nil
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"PRINTDOCK_PUBSUB_ORDERS_TOPIC" default:"pd-order-events"`
	TransactionsTopic string `envconfig:"PRINTDOCK_PUBSUB_TRANSACTIONS_TOPIC" default:"pd-transaction-events"`
	UsersTopic        string `envconfig:"PRINTDOCK_PUBSUB_USERS_TOPIC" default:"pd-user-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PRINTDOCK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PRINTDOCK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PRINTDOCK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PRINTDOCK_OUTBOX_RETENTION_DAYS" default:"30"`

	// DedupTTL bounds how long a published event id is remembered in redis.
	DedupTTL time.Duration `envconfig:"PRINTDOCK_OUTBOX_DEDUP_TTL" default:"24h"`
	// ClaimTTL bounds how long a crashed publisher can hold an event.
	ClaimTTL time.Duration `envconfig:"PRINTDOCK_OUTBOX_CLAIM_TTL" default:"1m"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"PRINTDOCK_CRON_INTERVAL" default:"1h"`
	LockTTL          time.Duration `envconfig:"PRINTDOCK_CRON_LOCK_TTL" default:"2h"`
	JobTimeout       time.Duration `envconfig:"PRINTDOCK_CRON_JOB_TIMEOUT" default:"10m"`
	BatchImportStale time.Duration `envconfig:"PRINTDOCK_CRON_BATCH_IMPORT_STALE" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
