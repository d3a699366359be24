package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Identity     IdentityConfig
	Reservations ReservationsConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"INNKEEP_APP_ENV" required:"true"`
	Port         string `envconfig:"INNKEEP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"INNKEEP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INNKEEP_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"INNKEEP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"INNKEEP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"INNKEEP_DB_DSN"`
	Driver string `envconfig:"INNKEEP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"INNKEEP_DB_HOST"`
	LegacyPort     int    `envconfig:"INNKEEP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"INNKEEP_DB_USER"`
	LegacyPassword string `envconfig:"INNKEEP_DB_PASSWORD"`
	LegacyName     string `envconfig:"INNKEEP_DB_NAME"`
	LegacySSLMode  string `envconfig:"INNKEEP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"INNKEEP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INNKEEP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INNKEEP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INNKEEP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"INNKEEP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"INNKEEP_REDIS_ADDR"`
	Password     string        `envconfig:"INNKEEP_REDIS_PASSWORD"`
	DB           int           `envconfig:"INNKEEP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INNKEEP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INNKEEP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INNKEEP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INNKEEP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INNKEEP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IdentityConfig describes the trusted JWT issued by the identity collaborator.
// The engine never mints tokens; it only verifies and extracts the holder id.
type IdentityConfig struct {
	JWTSecret string `envconfig:"INNKEEP_IDENTITY_JWT_SECRET"`
	JWTIssuer string `envconfig:"INNKEEP_IDENTITY_JWT_ISSUER"`
}

type ReservationsConfig struct {
	DefaultHoldTTL  time.Duration `envconfig:"INNKEEP_RESERVATION_DEFAULT_HOLD_TTL" default:"15m"`
	MaxHoldTTL      time.Duration `envconfig:"INNKEEP_RESERVATION_MAX_HOLD_TTL" default:"1h"`
	LockWait        time.Duration `envconfig:"INNKEEP_RESERVATION_LOCK_WAIT" default:"3s"`
	LockRetries     int           `envconfig:"INNKEEP_RESERVATION_LOCK_RETRIES" default:"3"`
	CacheTTL        time.Duration `envconfig:"INNKEEP_AVAILABILITY_CACHE_TTL" default:"30s"`
	MaxStayNights   int           `envconfig:"INNKEEP_RESERVATION_MAX_STAY_NIGHTS" default:"90"`
	SweepInterval   time.Duration `envconfig:"INNKEEP_RESERVATION_SWEEP_INTERVAL" default:"30s"`
	CompactionKeep  time.Duration `envconfig:"INNKEEP_STOCK_COMPACTION_KEEP" default:"720h"`
	CompactionBatch int           `envconfig:"INNKEEP_STOCK_COMPACTION_BATCH" default:"1000"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"INNKEEP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"INNKEEP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"INNKEEP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"INNKEEP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"INNKEEP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"INNKEEP_PUBSUB_NOTIFICATION_TOPIC" default:"innkeep-reservation-events"`
	NotificationSubscription string `envconfig:"INNKEEP_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"INNKEEP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"INNKEEP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"INNKEEP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"INNKEEP_CRON_INTERVAL" default:"30s"`
	LockTTL  time.Duration `envconfig:"INNKEEP_CRON_LOCK_TTL" default:"5m"`
	LockKey  string        `envconfig:"INNKEEP_CRON_LOCK_KEY" default:"innkeep:cron:leader"`
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
