package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "banners"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BANNERS_DB_DSN"
	EnvDBHost = "BANNERS_DB_HOST"
	EnvDBUser = "BANNERS_DB_USER"
	EnvDBName = "BANNERS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Recovery     RecoveryConfig
	Promo        PromoConfig
	Email        EmailConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"BANNERS_APP_ENV" required:"true"`
	Port         string `envconfig:"BANNERS_APP_PORT" required:"true"`
	MetricsPort  string `envconfig:"BANNERS_APP_METRICS_PORT" default:"9100"`
	LogLevel     string `envconfig:"BANNERS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BANNERS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BANNERS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BANNERS_DB_DSN"`
	Driver string `envconfig:"BANNERS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BANNERS_DB_HOST"`
	LegacyPort     int    `envconfig:"BANNERS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BANNERS_DB_USER"`
	LegacyPassword string `envconfig:"BANNERS_DB_PASSWORD"`
	LegacyName     string `envconfig:"BANNERS_DB_NAME"`
	LegacySSLMode  string `envconfig:"BANNERS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BANNERS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BANNERS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BANNERS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BANNERS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BANNERS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BANNERS_REDIS_ADDR"`
	Password     string        `envconfig:"BANNERS_REDIS_PASSWORD"`
	DB           int           `envconfig:"BANNERS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BANNERS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BANNERS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BANNERS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BANNERS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BANNERS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BANNERS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BANNERS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BANNERS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CheckoutConfig tunes order-level gates. TestMode flips the minimum
// order validator into its bypass path for non-prod smoke testing.
type CheckoutConfig struct {
	TaxRatePct           float64 `envconfig:"BANNERS_CHECKOUT_TAX_RATE_PCT" default:"6"`
	FreeShipping         bool    `envconfig:"BANNERS_CHECKOUT_FREE_SHIPPING" default:"true"`
	DefaultShippingCents int     `envconfig:"BANNERS_CHECKOUT_DEFAULT_SHIPPING_CENTS" default:"0"`
	TestMode             bool    `envconfig:"BANNERS_CHECKOUT_TEST_MODE" default:"false"`
}

// RecoveryConfig drives the abandoned-cart state machine and email cadence.
type RecoveryConfig struct {
	AbandonAfter      time.Duration `envconfig:"BANNERS_RECOVERY_ABANDON_AFTER" default:"1h"`
	DetectionHorizon  time.Duration `envconfig:"BANNERS_RECOVERY_DETECTION_HORIZON" default:"72h"`
	SecondEmailAfter  time.Duration `envconfig:"BANNERS_RECOVERY_SECOND_EMAIL_AFTER" default:"24h"`
	ThirdEmailAfter   time.Duration `envconfig:"BANNERS_RECOVERY_THIRD_EMAIL_AFTER" default:"72h"`
	ExpireAfter       time.Duration `envconfig:"BANNERS_RECOVERY_EXPIRE_AFTER" default:"96h"`
	DeleteAfter       time.Duration `envconfig:"BANNERS_RECOVERY_DELETE_AFTER" default:"720h"`
	DiscountExpiryHrs int           `envconfig:"BANNERS_RECOVERY_DISCOUNT_EXPIRY_HOURS" default:"48"`
	CronInterval      time.Duration `envconfig:"BANNERS_RECOVERY_CRON_INTERVAL" default:"1h"`
}

// PromoConfig describes the standing weekly promo code.
type PromoConfig struct {
	WeeklyCode       string `envconfig:"BANNERS_PROMO_WEEKLY_CODE" default:"WEEK20"`
	WeeklyPercentage int    `envconfig:"BANNERS_PROMO_WEEKLY_PERCENTAGE" default:"20"`
}

// EmailConfig points at the transactional email provider (Resend-style API).
type EmailConfig struct {
	APIKey      string `envconfig:"BANNERS_EMAIL_API_KEY"`
	BaseURL     string `envconfig:"BANNERS_EMAIL_BASE_URL" default:"https://api.resend.com"`
	FromAddress string `envconfig:"BANNERS_EMAIL_FROM" default:"orders@bannersonthefly.com"`
	SiteURL     string `envconfig:"BANNERS_EMAIL_SITE_URL" default:"https://bannersonthefly.com"`
}

// RateLimitConfig throttles discount validation, which is the only surface
// where codes can be brute-forced.
type RateLimitConfig struct {
	ValidateWindow     time.Duration `envconfig:"BANNERS_RATE_LIMIT_VALIDATE_WINDOW" default:"1m"`
	ValidateIPLimit    int           `envconfig:"BANNERS_RATE_LIMIT_VALIDATE_IP_LIMIT" default:"20"`
	ValidateEmailLimit int           `envconfig:"BANNERS_RATE_LIMIT_VALIDATE_EMAIL_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BANNERS_AUTO_MIGRATE" default:"false"`
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
