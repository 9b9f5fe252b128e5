package identity

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig loads identity options from the environment.
type EnvConfig struct {
	SigningKey string        `env:"IDENTITY_SIGNING_KEY,notEmpty"`
	SessionTTL time.Duration `env:"IDENTITY_SESSION_TTL" envDefault:"24h"`
	Issuer     string        `env:"IDENTITY_ISSUER" envDefault:"go-identity"`
	BaseURL    string        `env:"IDENTITY_BASE_URL" envDefault:"http://localhost:4000"`
}

// NewEnvConfig parses configuration from process environment variables.
func NewEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse identity config from environment")
	}
	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }

func (c *EnvConfig) GetSessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return SessionTTL
	}
	return c.SessionTTL
}

func (c *EnvConfig) GetIssuer() string { return c.Issuer }

func (c *EnvConfig) GetBaseURL() string { return c.BaseURL }

var _ Config = (*EnvConfig)(nil)

// StaticConfig is an in-memory Config, mostly used by tests and examples.
type StaticConfig struct {
	SigningKey string
	SessionTTL time.Duration
	Issuer     string
	BaseURL    string
}

func (c StaticConfig) GetSigningKey() string { return c.SigningKey }

func (c StaticConfig) GetSessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return SessionTTL
	}
	return c.SessionTTL
}

func (c StaticConfig) GetIssuer() string { return c.Issuer }

func (c StaticConfig) GetBaseURL() string { return c.BaseURL }

var _ Config = StaticConfig{}
