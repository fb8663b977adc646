package stripe

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/tipflow-backend/pkg/config"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client carries Stripe credentials and defers SDK initialization until the
// first call that needs it. Construction never touches the network and never
// fails on missing credentials, so binaries that only consume webhooks can
// boot without an API key.
type Client struct {
	cfg config.StripeConfig

	once    sync.Once
	initErr error
	env     string
}

// NewClient captures the Stripe configuration without validating it yet.
func NewClient(cfg config.StripeConfig) *Client {
	return &Client{cfg: cfg}
}

// Config returns the captured Stripe configuration.
func (c *Client) Config() config.StripeConfig {
	return c.cfg
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	return c.cfg.Environment()
}

// WebhookSecrets returns the ordered signing secrets for webhook verification.
func (c *Client) WebhookSecrets() ([]string, error) {
	secrets := make([]string, 0, len(c.cfg.WebhookSecrets))
	for _, s := range c.cfg.WebhookSecrets {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			secrets = append(secrets, trimmed)
		}
	}
	if len(secrets) == 0 {
		return nil, errSecretRequired
	}
	return secrets, nil
}

// Init validates the credentials and assigns the package-level API key. It is
// safe for concurrent use; only the first call does work.
func (c *Client) Init() error {
	c.once.Do(func() {
		env, err := normalizeEnv(c.cfg.Environment())
		if err != nil {
			c.initErr = err
			return
		}

		apiKey := strings.TrimSpace(c.cfg.APIKey)
		if apiKey == "" {
			c.initErr = errAPIKeyRequired
			return
		}
		if err := validateAPIKey(env, apiKey); err != nil {
			c.initErr = err
			return
		}

		stripe.Key = apiKey
		c.env = env
	})
	return c.initErr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
