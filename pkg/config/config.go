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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Checkout      CheckoutConfig
	Paymob        PaymobConfig
	Fawry         FawryConfig
	Aman          AmanConfig
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
	Env          string `envconfig:"RAFAL_APP_ENV" required:"true"`
	Port         string `envconfig:"RAFAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RAFAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RAFAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RAFAL_DB_DSN"`
	Driver string `envconfig:"RAFAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RAFAL_DB_HOST"`
	LegacyPort     int    `envconfig:"RAFAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RAFAL_DB_USER"`
	LegacyPassword string `envconfig:"RAFAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"RAFAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"RAFAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RAFAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RAFAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RAFAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RAFAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RAFAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RAFAL_REDIS_ADDR"`
	Password     string        `envconfig:"RAFAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"RAFAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RAFAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RAFAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RAFAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RAFAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RAFAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RAFAL_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RAFAL_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RAFAL_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"RAFAL_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RAFAL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RAFAL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RAFAL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RAFAL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RAFAL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RAFAL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit    int           `envconfig:"RAFAL_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RAFAL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RAFAL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterPhoneLimit int           `envconfig:"RAFAL_AUTH_RATE_LIMIT_REGISTER_PHONE_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RAFAL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RAFAL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RAFAL_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig carries the flat delivery-fee policy. Cart previews and
// order creation read the same values so the two always agree.
type CheckoutConfig struct {
	DeliveryFee           string `envconfig:"RAFAL_CHECKOUT_DELIVERY_FEE" default:"50"`
	FreeDeliveryThreshold string `envconfig:"RAFAL_CHECKOUT_FREE_DELIVERY_THRESHOLD" default:"500"`
	Currency              string `envconfig:"RAFAL_CHECKOUT_CURRENCY" default:"EGP"`
}

// DeliveryFeeAmount parses the configured flat delivery fee.
func (c CheckoutConfig) DeliveryFeeAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(c.DeliveryFee)
}

// FreeDeliveryThresholdAmount parses the configured waiver threshold.
func (c CheckoutConfig) FreeDeliveryThresholdAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(c.FreeDeliveryThreshold)
}

type PaymobConfig struct {
	APIKey        string        `envconfig:"RAFAL_PAYMOB_API_KEY"`
	IntegrationID string        `envconfig:"RAFAL_PAYMOB_INTEGRATION_ID"`
	IframeID      string        `envconfig:"RAFAL_PAYMOB_IFRAME_ID"`
	HMACSecret    string        `envconfig:"RAFAL_PAYMOB_HMAC_SECRET"`
	BaseURL       string        `envconfig:"RAFAL_PAYMOB_BASE_URL" default:"https://accept.paymob.com"`
	Timeout       time.Duration `envconfig:"RAFAL_PAYMOB_TIMEOUT" default:"15s"`
	IntentExpiry  time.Duration `envconfig:"RAFAL_PAYMOB_INTENT_EXPIRY" default:"1h"`
}

type FawryConfig struct {
	MerchantCode string        `envconfig:"RAFAL_FAWRY_MERCHANT_CODE"`
	SecretKey    string        `envconfig:"RAFAL_FAWRY_SECRET_KEY"`
	BaseURL      string        `envconfig:"RAFAL_FAWRY_BASE_URL" default:"https://atfawry.com"`
	Timeout      time.Duration `envconfig:"RAFAL_FAWRY_TIMEOUT" default:"15s"`
	IntentExpiry time.Duration `envconfig:"RAFAL_FAWRY_INTENT_EXPIRY" default:"72h"`
}

type AmanConfig struct {
	MerchantID   string        `envconfig:"RAFAL_AMAN_MERCHANT_ID"`
	SecretKey    string        `envconfig:"RAFAL_AMAN_SECRET_KEY"`
	BaseURL      string        `envconfig:"RAFAL_AMAN_BASE_URL" default:"https://api.aman.eg"`
	Timeout      time.Duration `envconfig:"RAFAL_AMAN_TIMEOUT" default:"15s"`
	IntentExpiry time.Duration `envconfig:"RAFAL_AMAN_INTENT_EXPIRY" default:"72h"`
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
