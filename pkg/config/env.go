package config

const EnvPrefix = "PRINTDOCK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "PRINTDOCK_APP_ENV"
	EnvPort      = "PRINTDOCK_APP_PORT"
	EnvLogLevel  = "PRINTDOCK_LOG_LEVEL"
	EnvDBDSN     = "PRINTDOCK_DB_DSN"
	EnvDBHost    = "PRINTDOCK_DB_HOST"
	EnvDBUser    = "PRINTDOCK_DB_USER"
	EnvDBName    = "PRINTDOCK_DB_NAME"
	EnvRedisURL  = "PRINTDOCK_REDIS_URL"
	EnvJWTSecret = "PRINTDOCK_JWT_SECRET"
	EnvJWTIssuer = "PRINTDOCK_JWT_ISSUER"
	EnvJWTExp    = "PRINTDOCK_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "PRINTDOCK_GCP_PROJECT_ID"
	EnvGCSBucket    = "PRINTDOCK_GCS_BUCKET_NAME"

	EnvShippingStandard = "PRINTDOCK_SHIPPING_STANDARD"
	EnvShippingExpress  = "PRINTDOCK_SHIPPING_EXPRESS"

	EnvUploadGeneralMax = "PRINTDOCK_UPLOAD_GENERAL_MAX_BYTES"
	EnvUploadProfileMax = "PRINTDOCK_UPLOAD_PROFILE_MAX_BYTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
