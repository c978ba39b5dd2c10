package config

// EnvPrefix is handed to envconfig; every field also carries its full name.
const EnvPrefix = "ASSETTRACK"

const (
	AppEnvDev        = "dev"
	AppEnvProd       = "prod"
	AppEnvProduction = "production"
)

const (
	EnvAppEnv   = "ASSETTRACK_APP_ENV"
	EnvPort     = "ASSETTRACK_APP_PORT"
	EnvLogLevel = "ASSETTRACK_LOG_LEVEL"

	EnvDBDSN  = "ASSETTRACK_DB_DSN"
	EnvDBHost = "ASSETTRACK_DB_HOST"
	EnvDBPort = "ASSETTRACK_DB_PORT"
	EnvDBUser = "ASSETTRACK_DB_USER"
	EnvDBPass = "ASSETTRACK_DB_PASSWORD"
	EnvDBName = "ASSETTRACK_DB_NAME"

	EnvRedisURL  = "ASSETTRACK_REDIS_URL"
	EnvRedisAddr = "ASSETTRACK_REDIS_ADDR"

	EnvJWTSecret              = "ASSETTRACK_JWT_SECRET"
	EnvJWTIssuer              = "ASSETTRACK_JWT_ISSUER"
	EnvJWTExpMins             = "ASSETTRACK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "ASSETTRACK_REFRESH_TOKEN_TTL_MINUTES"

	EnvCORSAllowedOrigins = "ASSETTRACK_CORS_ALLOWED_ORIGINS"

	EnvGCPProjectID           = "ASSETTRACK_GCP_PROJECT_ID"
	EnvPubSubAssetEventsTopic = "ASSETTRACK_PUBSUB_ASSET_EVENTS_TOPIC"
	EnvPubSubAssetEventsSub   = "ASSETTRACK_PUBSUB_ASSET_EVENTS_SUBSCRIPTION"
	EnvOutboxBatchSize        = "ASSETTRACK_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvDiscountEarlyPercent   = "ASSETTRACK_DISCOUNT_EARLY_PERCENT"
	EnvDiscountMidPercent     = "ASSETTRACK_DISCOUNT_MID_PERCENT"
	EnvDiscountLatePercent    = "ASSETTRACK_DISCOUNT_LATE_PERCENT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
