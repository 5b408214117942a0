package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/codecompass/util"
)

// MinSecretLength is the minimum accepted length of a domain signing secret.
const MinSecretLength = 32

// SigningMethod defines supported HMAC signing algorithms.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// Config configures the token codec. Each domain has its own secret and
// lifetime; TTLs accept Go durations plus a day suffix ("7d").
type Config struct {
	// AccessSecret signs access-domain tokens.
	AccessSecret string `mapstructure:"access_secret"`

	// RefreshSecret signs refresh-domain tokens. Must differ from AccessSecret.
	RefreshSecret string `mapstructure:"refresh_secret"`

	// AccessTTL is the lifetime of access tokens (default: "24h").
	AccessTTL string `mapstructure:"access_ttl"`

	// RefreshTTL is the lifetime of refresh tokens (default: "7d").
	RefreshTTL string `mapstructure:"refresh_ttl"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `mapstructure:"method"`

	// Issuer is the "iss" claim (optional). When set, it is also required on verify.
	Issuer string `mapstructure:"issuer"`

	// Audience is the "aud" claim (optional). When set, it is also required on verify.
	Audience string `mapstructure:"audience"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.AccessTTL == "" {
		c.AccessTTL = "24h"
	}
	if c.RefreshTTL == "" {
		c.RefreshTTL = "7d"
	}
}

// Validate checks secrets and lifetimes. A service must not start when this fails.
func (c *Config) Validate() error {
	var errs []error
	if len(c.AccessSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("jwt: access_secret must be at least %d characters", MinSecretLength))
	}
	if len(c.RefreshSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("jwt: refresh_secret must be at least %d characters", MinSecretLength))
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("jwt: access_secret and refresh_secret must differ"))
	}
	if _, err := c.accessTTL(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.refreshTTL(); err != nil {
		errs = append(errs, err)
	}
	switch c.Method {
	case HS256, HS384, HS512:
	default:
		errs = append(errs, fmt.Errorf("jwt: unsupported signing method: %s", c.Method))
	}
	return errors.Join(errs...)
}

func (c *Config) accessTTL() (time.Duration, error) {
	return parseTTL("access_ttl", c.AccessTTL)
}

func (c *Config) refreshTTL() (time.Duration, error) {
	return parseTTL("refresh_ttl", c.RefreshTTL)
}

func parseTTL(name, value string) (time.Duration, error) {
	d, err := util.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("jwt: invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("jwt: %s must be positive (got %q)", name, value)
	}
	return d, nil
}

// signingMethod returns the golang-jwt SigningMethod instance.
func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}
