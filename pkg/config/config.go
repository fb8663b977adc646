package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig prefix shared by every Tipflow binary.
const EnvPrefix = "TIPFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Invites      InvitesConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	Mailer       MailerConfig
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
	Env          string `envconfig:"TIPFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"TIPFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TIPFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIPFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIPFLOW_DB_DSN"`
	Driver string `envconfig:"TIPFLOW_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TIPFLOW_DB_HOST"`
	Port     int    `envconfig:"TIPFLOW_DB_PORT" default:"5432"`
	User     string `envconfig:"TIPFLOW_DB_USER"`
	Password string `envconfig:"TIPFLOW_DB_PASSWORD"`
	Name     string `envconfig:"TIPFLOW_DB_NAME"`
	SSLMode  string `envconfig:"TIPFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIPFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIPFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIPFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIPFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIPFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIPFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"TIPFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIPFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIPFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIPFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIPFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIPFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIPFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how to validate tokens minted by the external identity service.
type JWTConfig struct {
	Secret string `envconfig:"TIPFLOW_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"TIPFLOW_JWT_ISSUER" required:"true"`
}

// StripeConfig carries Stripe credentials. WebhookSecrets is ordered: the platform
// endpoint secret first, then the Connect endpoint secret. Verification tries each
// in turn, so a single webhook route serves both endpoint registrations.
type StripeConfig struct {
	APIKey         string   `envconfig:"TIPFLOW_STRIPE_API_KEY"`
	WebhookSecrets []string `envconfig:"TIPFLOW_STRIPE_WEBHOOK_SECRETS"`
	Env            string   `envconfig:"TIPFLOW_STRIPE_ENV" default:"test"`
	SuccessURL     string   `envconfig:"TIPFLOW_STRIPE_SUCCESS_URL"`
	CancelURL      string   `envconfig:"TIPFLOW_STRIPE_CANCEL_URL"`
	PortalReturn   string   `envconfig:"TIPFLOW_STRIPE_PORTAL_RETURN_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	MaxAmountMinor  int64         `envconfig:"TIPFLOW_CHECKOUT_MAX_AMOUNT_MINOR" default:"1000000"`
	DefaultCurrency string        `envconfig:"TIPFLOW_CHECKOUT_DEFAULT_CURRENCY" default:"usd"`
	ProviderTimeout time.Duration `envconfig:"TIPFLOW_CHECKOUT_PROVIDER_TIMEOUT" default:"15s"`
}

type InvitesConfig struct {
	TTL time.Duration `envconfig:"TIPFLOW_INVITE_TTL" default:"168h"`
}

// RateLimitConfig throttles the public surfaces. Zero values disable the limiter.
type RateLimitConfig struct {
	PublicWindow  time.Duration `envconfig:"TIPFLOW_RATE_LIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicIPLimit int           `envconfig:"TIPFLOW_RATE_LIMIT_PUBLIC_IP_LIMIT" default:"30"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TIPFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TIPFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TIPFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PaymentsTopic        string `envconfig:"TIPFLOW_PUBSUB_PAYMENTS_TOPIC" default:"tf-payment-events"`
	PaymentsSubscription string `envconfig:"TIPFLOW_PUBSUB_PAYMENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TIPFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TIPFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TIPFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"TIPFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type MailerConfig struct {
	FromEmail string `envconfig:"TIPFLOW_MAILER_FROM_EMAIL"`
	FromName  string `envconfig:"TIPFLOW_MAILER_FROM_NAME" default:"Tipflow"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TIPFLOW_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"TIPFLOW_DB_HOST": db.Host,
		"TIPFLOW_DB_USER": db.User,
		"TIPFLOW_DB_NAME": db.Name,
	}
	for _, env := range []string{"TIPFLOW_DB_HOST", "TIPFLOW_DB_USER", "TIPFLOW_DB_NAME"} {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either TIPFLOW_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
