package config

// EnvPrefix namespaces every CraftLink environment variable.
const EnvPrefix = "CRAFTLINK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "CRAFTLINK_APP_ENV"
	EnvPort                   = "CRAFTLINK_APP_PORT"
	EnvDBDSN                  = "CRAFTLINK_DB_DSN"
	EnvDBHost                 = "CRAFTLINK_DB_HOST"
	EnvDBUser                 = "CRAFTLINK_DB_USER"
	EnvDBName                 = "CRAFTLINK_DB_NAME"
	EnvRedisURL               = "CRAFTLINK_REDIS_URL"
	EnvJWTSecret              = "CRAFTLINK_JWT_SECRET"
	EnvJWTIssuer              = "CRAFTLINK_JWT_ISSUER"
	EnvJWTExpMins             = "CRAFTLINK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CRAFTLINK_REFRESH_TOKEN_TTL_MINUTES"
	EnvMollieAPIKey           = "CRAFTLINK_MOLLIE_API_KEY"
	EnvMollieWebhookURL       = "CRAFTLINK_MOLLIE_WEBHOOK_URL"
	EnvMollieRedirectURL      = "CRAFTLINK_MOLLIE_REDIRECT_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
