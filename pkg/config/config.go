package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const (
	EnvPrefix = "ORDERDRAFT"

	EnvAppEnv          = "ORDERDRAFT_APP_ENV"
	EnvPort            = "ORDERDRAFT_APP_PORT"
	EnvLogLevel        = "ORDERDRAFT_LOG_LEVEL"
	EnvRedisURL        = "ORDERDRAFT_REDIS_URL"
	EnvJWTSecret       = "ORDERDRAFT_JWT_SECRET"
	EnvJWTIssuer       = "ORDERDRAFT_JWT_ISSUER"
	EnvBackendBaseURL  = "ORDERDRAFT_BACKEND_BASE_URL"
	EnvBackendToken    = "ORDERDRAFT_BACKEND_SERVICE_TOKEN"
	EnvBackendTimeout  = "ORDERDRAFT_BACKEND_TIMEOUT"
	EnvDraftLockTTL    = "ORDERDRAFT_DRAFTS_SUBMIT_LOCK_TTL"
	EnvDraftStore      = "ORDERDRAFT_DRAFTS_STORE"
	EnvDraftTaxRate    = "ORDERDRAFT_DRAFTS_TAX_RATE"
	EnvDraftShipping   = "ORDERDRAFT_DRAFTS_SHIPPING_FLAT"
	EnvDraftDiscount   = "ORDERDRAFT_DRAFTS_DISCOUNT"
	EnvDraftCheckUsers = "ORDERDRAFT_DRAFTS_CHECK_ELIGIBLE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DraftStoreMemory = "memory"
	DraftStoreRedis  = "redis"
)

type Config struct {
	App     AppConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Backend BackendConfig
	Drafts  DraftsConfig
	Metrics MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ORDERDRAFT_APP_ENV" required:"true"`
	Port         string   `envconfig:"ORDERDRAFT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"ORDERDRAFT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ORDERDRAFT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ORDERDRAFT_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDRAFT_REDIS_URL"`
	Address      string        `envconfig:"ORDERDRAFT_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDRAFT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDRAFT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDRAFT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDRAFT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDRAFT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDRAFT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDRAFT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret    string `envconfig:"ORDERDRAFT_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"ORDERDRAFT_JWT_ISSUER" required:"true"`
	AdminRole string `envconfig:"ORDERDRAFT_JWT_ADMIN_ROLE" default:"admin"`
}

type BackendConfig struct {
	BaseURL      string        `envconfig:"ORDERDRAFT_BACKEND_BASE_URL" required:"true"`
	ServiceToken string        `envconfig:"ORDERDRAFT_BACKEND_SERVICE_TOKEN"`
	Timeout      time.Duration `envconfig:"ORDERDRAFT_BACKEND_TIMEOUT" default:"15s"`

	BreakerMaxRequests      uint32        `envconfig:"ORDERDRAFT_BACKEND_BREAKER_MAX_REQUESTS" default:"1"`
	BreakerInterval         time.Duration `envconfig:"ORDERDRAFT_BACKEND_BREAKER_INTERVAL" default:"1m"`
	BreakerOpenTimeout      time.Duration `envconfig:"ORDERDRAFT_BACKEND_BREAKER_OPEN_TIMEOUT" default:"30s"`
	BreakerFailureThreshold uint32        `envconfig:"ORDERDRAFT_BACKEND_BREAKER_FAILURES" default:"5"`
}

type DraftsConfig struct {
	Store         string          `envconfig:"ORDERDRAFT_DRAFTS_STORE" default:"memory"`
	TTL           time.Duration   `envconfig:"ORDERDRAFT_DRAFTS_TTL" default:"12h"`
	SubmitLockTTL time.Duration   `envconfig:"ORDERDRAFT_DRAFTS_SUBMIT_LOCK_TTL" default:"2m"`
	TaxRate       decimal.Decimal `envconfig:"ORDERDRAFT_DRAFTS_TAX_RATE" default:"0.08"`
	ShippingFlat  decimal.Decimal `envconfig:"ORDERDRAFT_DRAFTS_SHIPPING_FLAT" default:"5.00"`
	Discount      decimal.Decimal `envconfig:"ORDERDRAFT_DRAFTS_DISCOUNT" default:"0"`
	CheckEligible bool            `envconfig:"ORDERDRAFT_DRAFTS_CHECK_ELIGIBLE" default:"true"`
}

// UsesRedis reports whether drafts and submit locks live in redis.
func (d DraftsConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(d.Store), DraftStoreRedis)
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"ORDERDRAFT_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"ORDERDRAFT_METRICS_PATH" default:"/metrics"`
}

func (c *Config) validate() error {
	var err error

	if _, parseErr := url.ParseRequestURI(strings.TrimSpace(c.Backend.BaseURL)); parseErr != nil {
		err = multierr.Append(err, fmt.Errorf("%s must be an absolute url: %w", EnvBackendBaseURL, parseErr))
	}

	switch strings.ToLower(strings.TrimSpace(c.Drafts.Store)) {
	case DraftStoreMemory:
	case DraftStoreRedis:
		if !c.Redis.Enabled() {
			err = multierr.Append(err, fmt.Errorf("%s=redis requires %s", EnvDraftStore, EnvRedisURL))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("%s must be %q or %q", EnvDraftStore, DraftStoreMemory, DraftStoreRedis))
	}

	if c.Drafts.TaxRate.IsNegative() {
		err = multierr.Append(err, fmt.Errorf("%s must be non-negative", EnvDraftTaxRate))
	}
	if c.Drafts.ShippingFlat.IsNegative() {
		err = multierr.Append(err, fmt.Errorf("%s must be non-negative", EnvDraftShipping))
	}
	if c.Drafts.Discount.IsNegative() {
		err = multierr.Append(err, fmt.Errorf("%s must be non-negative", EnvDraftDiscount))
	}
	if c.Drafts.TTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("drafts ttl must be positive"))
	}
	// the submit lock must outlive the backend call it guards
	if c.Drafts.SubmitLockTTL <= c.Backend.Timeout {
		err = multierr.Append(err, fmt.Errorf("%s (%s) must exceed %s (%s)",
			EnvDraftLockTTL, c.Drafts.SubmitLockTTL, EnvBackendTimeout, c.Backend.Timeout))
	}

	return err
}
