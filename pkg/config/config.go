package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "aquatrade"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "AQUATRADE_APP_ENV"
	EnvDBDSN  = "AQUATRADE_DB_DSN"
	EnvDBHost = "AQUATRADE_DB_HOST"
	EnvDBUser = "AQUATRADE_DB_USER"
	EnvDBName = "AQUATRADE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Payment PaymentConfig
	Jobs    JobsConfig
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
	Env          string `envconfig:"AQUATRADE_APP_ENV" required:"true"`
	Port         string `envconfig:"AQUATRADE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AQUATRADE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AQUATRADE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"AQUATRADE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AQUATRADE_DB_DSN"`
	Driver string `envconfig:"AQUATRADE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AQUATRADE_DB_HOST"`
	LegacyPort     int    `envconfig:"AQUATRADE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AQUATRADE_DB_USER"`
	LegacyPassword string `envconfig:"AQUATRADE_DB_PASSWORD"`
	LegacyName     string `envconfig:"AQUATRADE_DB_NAME"`
	LegacySSLMode  string `envconfig:"AQUATRADE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AQUATRADE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AQUATRADE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AQUATRADE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AQUATRADE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AQUATRADE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AQUATRADE_REDIS_ADDR"`
	Password     string        `envconfig:"AQUATRADE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AQUATRADE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AQUATRADE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AQUATRADE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AQUATRADE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AQUATRADE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AQUATRADE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AQUATRADE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AQUATRADE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AQUATRADE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PaymentConfig carries the marketplace pricing constants. Monetary values are
// whole currency units; the insurance rate is expressed in basis points.
type PaymentConfig struct {
	PlatformFee       int64   `envconfig:"AQUATRADE_PAYMENT_PLATFORM_FEE" default:"2500"`
	LogisticsRate     int64   `envconfig:"AQUATRADE_PAYMENT_LOGISTICS_RATE" default:"10000"`
	LogisticsStepKm   float64 `envconfig:"AQUATRADE_PAYMENT_LOGISTICS_STEP_KM" default:"5"`
	InsuranceRateBps  int64   `envconfig:"AQUATRADE_PAYMENT_INSURANCE_RATE_BPS" default:"100"`
	DefaultDistanceKm float64 `envconfig:"AQUATRADE_PAYMENT_DEFAULT_DISTANCE_KM" default:"10"`
	WebhookIdemTTL    time.Duration `envconfig:"AQUATRADE_PAYMENT_WEBHOOK_IDEM_TTL" default:"24h"`
}

type JobsConfig struct {
	PendingOrderTTL time.Duration `envconfig:"AQUATRADE_JOBS_PENDING_ORDER_TTL" default:"24h"`
	Interval        time.Duration `envconfig:"AQUATRADE_JOBS_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"AQUATRADE_JOBS_LOCK_TTL" default:"55m"`
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
