package config

// Environment variable names shared by Load, tests, and tooling.
const (
	EnvPrefix = "RAFAL"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "RAFAL_APP_ENV"
	EnvPort     = "RAFAL_APP_PORT"
	EnvLogLevel = "RAFAL_LOG_LEVEL"

	EnvDBDSN    = "RAFAL_DB_DSN"
	EnvDBDriver = "RAFAL_DB_DRIVER"
	EnvDBHost   = "RAFAL_DB_HOST"
	EnvDBUser   = "RAFAL_DB_USER"
	EnvDBName   = "RAFAL_DB_NAME"

	EnvRedisURL = "RAFAL_REDIS_URL"

	EnvJWTSecret              = "RAFAL_JWT_SECRET"
	EnvJWTIssuer              = "RAFAL_JWT_ISSUER"
	EnvJWTExpMins             = "RAFAL_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "RAFAL_REFRESH_TOKEN_TTL_MINUTES"

	EnvCheckoutDeliveryFee   = "RAFAL_CHECKOUT_DELIVERY_FEE"
	EnvCheckoutFreeThreshold = "RAFAL_CHECKOUT_FREE_DELIVERY_THRESHOLD"
	EnvPaymobAPIKey          = "RAFAL_PAYMOB_API_KEY"
	EnvPaymobIntegrationID   = "RAFAL_PAYMOB_INTEGRATION_ID"
	EnvFawryMerchantCode     = "RAFAL_FAWRY_MERCHANT_CODE"
	EnvFawrySecretKey        = "RAFAL_FAWRY_SECRET_KEY"
	EnvAmanMerchantID        = "RAFAL_AMAN_MERCHANT_ID"
	EnvAmanSecretKey         = "RAFAL_AMAN_SECRET_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
