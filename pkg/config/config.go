package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "pkasla"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "PKASLA_APP_ENV"
	EnvPort     = "PKASLA_APP_PORT"
	EnvDBDSN    = "PKASLA_DB_DSN"
	EnvDBHost   = "PKASLA_DB_HOST"
	EnvDBUser   = "PKASLA_DB_USER"
	EnvDBName   = "PKASLA_DB_NAME"
	EnvRedisURL = "PKASLA_REDIS_URL"

	EnvJWTSecret  = "PKASLA_JWT_SECRET"
	EnvJWTIssuer  = "PKASLA_JWT_ISSUER"
	EnvJWTExpMins = "PKASLA_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Bakong       BakongConfig
	Webhooks     WebhookConfig
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
	Env          string `envconfig:"PKASLA_APP_ENV" required:"true"`
	Port         string `envconfig:"PKASLA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PKASLA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PKASLA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PKASLA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PKASLA_DB_DSN"`
	Driver string `envconfig:"PKASLA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PKASLA_DB_HOST"`
	LegacyPort     int    `envconfig:"PKASLA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PKASLA_DB_USER"`
	LegacyPassword string `envconfig:"PKASLA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PKASLA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PKASLA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PKASLA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PKASLA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PKASLA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PKASLA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PKASLA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PKASLA_REDIS_ADDR"`
	Password     string        `envconfig:"PKASLA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PKASLA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PKASLA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PKASLA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PKASLA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PKASLA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PKASLA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PKASLA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PKASLA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PKASLA_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token lifetime configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PKASLA_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"PKASLA_STRIPE_API_KEY"`
	Secret string `envconfig:"PKASLA_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"PKASLA_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// BakongConfig carries the merchant identity and API credentials for the
// Bakong instant-payment network. Credentials are optional at startup;
// adapters fail at call time when they are missing so deployments may run
// with KHQR payments disabled.
type BakongConfig struct {
	APIURL            string        `envconfig:"PKASLA_BAKONG_API_URL" default:"https://api-bakong.nbc.gov.kh"`
	AccessToken       string        `envconfig:"PKASLA_BAKONG_ACCESS_TOKEN"`
	WebhookSecret     string        `envconfig:"PKASLA_BAKONG_WEBHOOK_SECRET"`
	MerchantAccountID string        `envconfig:"PKASLA_BAKONG_MERCHANT_ACCOUNT_ID"`
	MerchantName      string        `envconfig:"PKASLA_BAKONG_MERCHANT_NAME" default:"Pkasla"`
	MerchantCity      string        `envconfig:"PKASLA_BAKONG_MERCHANT_CITY" default:"Phnom Penh"`
	MerchantCategory  string        `envconfig:"PKASLA_BAKONG_MERCHANT_CATEGORY_CODE" default:"5947"`
	RequestTimeout    time.Duration `envconfig:"PKASLA_BAKONG_REQUEST_TIMEOUT" default:"30s"`
	QRExpiry          time.Duration `envconfig:"PKASLA_BAKONG_QR_EXPIRY" default:"15m"`
	// KHRPerUSD converts USD catalog prices into riel for QR charges.
	// Updated out of band; the default tracks the NBC peg loosely.
	KHRPerUSD float64 `envconfig:"PKASLA_BAKONG_KHR_PER_USD" default:"4100"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PKASLA_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PKASLA_CRON_INTERVAL" default:"5m"`
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
