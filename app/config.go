package app

import (
	"fmt"
	"strings"

	"github.com/kbukum/codecompass/auth"
	"github.com/kbukum/codecompass/auth/revocation"
	"github.com/kbukum/codecompass/config"
	"github.com/kbukum/codecompass/database"
	"github.com/kbukum/codecompass/events"
	"github.com/kbukum/codecompass/observability"
	"github.com/kbukum/codecompass/redis"
	"github.com/kbukum/codecompass/server"
	"github.com/kbukum/codecompass/server/middleware"
	"github.com/kbukum/codecompass/user"
	"github.com/kbukum/codecompass/util"
)

// ServiceName names the process in logs, telemetry and config file lookup.
const ServiceName = "codecompass"

// Config is the complete service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config              `yaml:"server" mapstructure:"server"`
	Database  database.Config            `yaml:"database" mapstructure:"database"`
	Redis     redis.Config               `yaml:"redis" mapstructure:"redis"`
	Auth      auth.Config                `yaml:"auth" mapstructure:"auth"`
	RateLimit middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Events    events.Config              `yaml:"events" mapstructure:"events"`
	Telemetry observability.Config       `yaml:"telemetry" mapstructure:"telemetry"`
	Admin     user.AdminConfig           `yaml:"admin" mapstructure:"admin"`

	// GracefulTimeout bounds shutdown of all components (default: "15s").
	GracefulTimeout string `yaml:"graceful_timeout" mapstructure:"graceful_timeout"`

	// PurgeInterval is how often expired revocations are dropped (default: "1h").
	PurgeInterval string `yaml:"purge_interval" mapstructure:"purge_interval"`
}

// EnvAliases maps the conventional deployment variables onto config keys.
var EnvAliases = map[string]string{
	"JWT_SECRET":             "auth.jwt.access_secret",
	"JWT_REFRESH_SECRET":     "auth.jwt.refresh_secret",
	"JWT_EXPIRES_IN":         "auth.jwt.access_ttl",
	"JWT_REFRESH_EXPIRES_IN": "auth.jwt.refresh_ttl",
	"DATABASE_URL":           "database.dsn",
	"REDIS_URL":              "redis.url",
	"PORT":                   "server.port",
	"ADMIN_EMAIL":            "admin.email",
	"ADMIN_PASSWORD":         "admin.password",
}

// Defaults registers every key that must be settable from the environment
// even when the config file omits it.
func Defaults() map[string]any {
	return map[string]any{
		"name":                    ServiceName,
		"environment":             "development",
		"logging.level":           "info",
		"logging.format":          "json",
		"server.port":             3000,
		"database.enabled":        true,
		"database.driver":         database.DriverPostgres,
		"database.dsn":            "",
		"database.auto_migrate":   true,
		"redis.enabled":           false,
		"redis.url":               "",
		"auth.jwt.access_secret":  "",
		"auth.jwt.refresh_secret": "",
		"auth.jwt.access_ttl":     "24h",
		"auth.jwt.refresh_ttl":    "7d",
		"auth.password.algorithm": "bcrypt",
		"auth.revocation.backend": string(revocation.BackendMemory),
		"rate_limit.enabled":      true,
		"rate_limit.backend":      middleware.RateLimitMemory,
		"events.enabled":          false,
		"telemetry.enabled":       false,
		"admin.email":             "",
		"admin.password":          "",
		"graceful_timeout":        "15s",
		"purge_interval":          "1h",
	}
}

// Load reads config.yml, .env and the environment into a validated Config.
func Load(opts ...config.LoaderOption) (*Config, error) {
	base := []config.LoaderOption{
		config.WithDefaults(Defaults()),
		config.WithEnvAliases(EnvAliases),
	}
	var cfg Config
	if err := config.LoadConfig(ServiceName, &cfg, append(base, opts...)...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	if c.Redis.URL != "" {
		c.Redis.Enabled = true
	}
	c.Redis.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
	c.Events.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	c.Admin.ApplyDefaults()
	if c.GracefulTimeout == "" {
		c.GracefulTimeout = "15s"
	}
	if c.PurgeInterval == "" {
		c.PurgeInterval = "1h"
	}
}

// Validate checks every section and the dependencies between them.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"rate_limit", c.RateLimit.Validate},
		{"events", c.Events.Validate},
		{"telemetry", c.Telemetry.Validate},
		{"admin", c.Admin.Validate},
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("%s: %w", chk.name, err)
		}
	}

	if !c.Database.Enabled {
		return fmt.Errorf("database: must be enabled, accounts are stored there")
	}
	if c.IsProduction() && !c.RateLimit.Enabled {
		return fmt.Errorf("rate_limit: must be enabled in production")
	}
	if c.Auth.Revocation.Backend == revocation.BackendRedis && !c.Redis.Enabled {
		return fmt.Errorf("auth.revocation: backend redis requires redis.enabled")
	}
	if c.RateLimit.Enabled && c.RateLimit.Backend == middleware.RateLimitRedis && !c.Redis.Enabled {
		return fmt.Errorf("rate_limit: backend redis requires redis.enabled")
	}
	for _, d := range []struct{ name, val string }{
		{"graceful_timeout", c.GracefulTimeout},
		{"purge_interval", c.PurgeInterval},
	} {
		if v, err := util.ParseDuration(d.val); err != nil || v <= 0 {
			return fmt.Errorf("%s %q is not a positive duration", d.name, d.val)
		}
	}
	return nil
}

// Describe returns the startup summary lines with credentials masked.
func (c *Config) Describe() []string {
	lines := []string{
		fmt.Sprintf("service  %s (%s)", c.Name, c.Environment),
		fmt.Sprintf("server   %s", c.Server.Addr()),
		fmt.Sprintf("database %s %s", c.Database.Driver, maskDSN(c.Database.DSN)),
		fmt.Sprintf("auth     %s", c.Auth.Describe()),
		fmt.Sprintf("secrets  access=%s refresh=%s",
			util.MaskSecret(c.Auth.JWT.AccessSecret, 4), util.MaskSecret(c.Auth.JWT.RefreshSecret, 4)),
	}
	if c.Redis.Enabled {
		addr := c.Redis.Addr
		if c.Redis.URL != "" {
			addr = maskDSN(c.Redis.URL)
		}
		lines = append(lines, fmt.Sprintf("redis    %s", addr))
	}
	if c.RateLimit.Enabled {
		lines = append(lines, fmt.Sprintf("ratelimit %s global=%d/%s auth=%d/%s register=%d/%s",
			c.RateLimit.Backend,
			c.RateLimit.Global.Limit, c.RateLimit.Global.Window,
			c.RateLimit.Auth.Limit, c.RateLimit.Auth.Window,
			c.RateLimit.Register.Limit, c.RateLimit.Register.Window))
	}
	if c.Events.Enabled {
		lines = append(lines, fmt.Sprintf("events   %s topic=%s", strings.Join(c.Events.Brokers, ","), c.Events.Topic))
	}
	if c.Telemetry.Enabled {
		lines = append(lines, fmt.Sprintf("telemetry %s", c.Telemetry.Endpoint))
	}
	return lines
}

// maskDSN hides the password in a URL-style connection string.
func maskDSN(dsn string) string {
	scheme := strings.Index(dsn, "://")
	at := strings.LastIndex(dsn, "@")
	if scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		creds = creds[:i+1] + "****"
	}
	return dsn[:scheme+3] + creds + dsn[at:]
}
