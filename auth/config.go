package auth

import (
	"fmt"

	"github.com/kbukum/codecompass/auth/jwt"
	"github.com/kbukum/codecompass/auth/password"
	"github.com/kbukum/codecompass/auth/revocation"
)

// Config holds all authentication configuration.
type Config struct {
	// JWT configures the token codec.
	JWT jwt.Config `mapstructure:"jwt"`

	// Password configures credential hashing.
	Password password.Config `mapstructure:"password"`

	// Revocation selects the refresh-token denylist backend.
	Revocation revocation.Config `mapstructure:"revocation"`
}

// ApplyDefaults sets sensible defaults for all sub-configurations.
func (c *Config) ApplyDefaults() {
	c.JWT.ApplyDefaults()
	c.Password.ApplyDefaults()
	c.Revocation.ApplyDefaults()
}

// Validate checks all sub-configurations.
func (c *Config) Validate() error {
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	if err := c.Password.Validate(); err != nil {
		return fmt.Errorf("auth.password: %w", err)
	}
	if err := c.Revocation.Validate(); err != nil {
		return fmt.Errorf("auth.revocation: %w", err)
	}
	return nil
}

// Describe returns a one-liner for the startup summary.
// Example: "JWT(HS256) access=24h refresh=7d password=bcrypt revocation=redis"
func (c *Config) Describe() string {
	return fmt.Sprintf("JWT(%s) access=%s refresh=%s password=%s revocation=%s",
		c.JWT.Method, c.JWT.AccessTTL, c.JWT.RefreshTTL, c.Password.Algorithm, c.Revocation.Backend)
}
