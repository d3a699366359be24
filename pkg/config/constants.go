package config

// EnvPrefix is the envconfig prefix shared by every Innkeep process.
const EnvPrefix = "innkeep"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags (tests, error text).
const (
	EnvAppEnv   = "INNKEEP_APP_ENV"
	EnvPort     = "INNKEEP_APP_PORT"
	EnvDBDSN    = "INNKEEP_DB_DSN"
	EnvDBHost   = "INNKEEP_DB_HOST"
	EnvDBUser   = "INNKEEP_DB_USER"
	EnvDBName   = "INNKEEP_DB_NAME"
	EnvRedisURL = "INNKEEP_REDIS_URL"

	EnvGCPProjectID          = "INNKEEP_GCP_PROJECT_ID"
	EnvPubSubNotifyTopic     = "INNKEEP_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotifySub       = "INNKEEP_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvIdentityJWTSecret     = "INNKEEP_IDENTITY_JWT_SECRET"
	EnvIdentityJWTIssuer     = "INNKEEP_IDENTITY_JWT_ISSUER"
	EnvReservationDefaultTTL = "INNKEEP_RESERVATION_DEFAULT_HOLD_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
