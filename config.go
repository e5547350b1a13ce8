package gatekeeper

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig is the process-environment backed Config implementation. The
// signing key and TTL are loaded once here and handed to constructors; no
// component reads the environment ad hoc.
type EnvConfig struct {
	SigningKey    string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	TokenTTLHours int    `env:"JWT_EXPIRY_HOURS" envDefault:"168"`
	Issuer        string `env:"JWT_ISSUER" envDefault:"gatekeeper"`
	ContextKey    string `env:"AUTH_CONTEXT_KEY" envDefault:"claims"`
	AuthScheme    string `env:"AUTH_SCHEME" envDefault:"Bearer"`
	ServerPort    string `env:"PORT" envDefault:"3000"`
	DatabaseDSN   string `env:"DATABASE_DSN" envDefault:"file:gatekeeper.db?_pragma=foreign_keys(1)"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig parses the process environment into an EnvConfig
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to parse environment configuration")
	}
	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }

func (c *EnvConfig) GetTokenTTL() time.Duration {
	if c.TokenTTLHours <= 0 {
		return DefaultTokenTTL
	}
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func (c *EnvConfig) GetIssuer() string     { return c.Issuer }
func (c *EnvConfig) GetContextKey() string { return c.ContextKey }
func (c *EnvConfig) GetAuthScheme() string { return c.AuthScheme }
