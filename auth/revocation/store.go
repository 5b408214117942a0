// Package revocation records revoked refresh-token IDs (jti) until the
// token would have expired anyway. Three backends share one contract:
// Redis for multi-instance deployments, the database when Redis is not
// available and an in-process map for development and tests.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/codecompass/redis"
)

// Store tracks revoked token IDs.
type Store interface {
	// Revoke records jti as revoked until the given time. claimed is true
	// only for the call that revoked it first; revoking an already-revoked
	// jti is not an error.
	Revoke(ctx context.Context, jti string, until time.Time) (claimed bool, err error)

	// IsRevoked reports whether jti is currently revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Backend selects a Store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendDatabase Backend = "database"
)

// Config selects and tunes the revocation store.
type Config struct {
	// Backend is memory, redis or database (default: memory).
	Backend Backend `mapstructure:"backend"`

	// KeyPrefix prefixes Redis keys (default: "revoked:").
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "revoked:"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendDatabase:
		return nil
	default:
		return fmt.Errorf("revocation: unsupported backend %q (use memory, redis or database)", c.Backend)
	}
}

// ErrBackendUnavailable is returned by New when the selected backend has no client.
var ErrBackendUnavailable = errors.New("revocation: backend not available")

// New builds the Store selected by cfg. rdb or db may be nil when the
// corresponding backend is not selected.
func New(cfg Config, rdb *redis.Client, db *gorm.DB) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%w: redis", ErrBackendUnavailable)
		}
		return NewRedisStore(rdb, cfg.KeyPrefix), nil
	case BackendDatabase:
		if db == nil {
			return nil, fmt.Errorf("%w: database", ErrBackendUnavailable)
		}
		return NewGormStore(db), nil
	default:
		return NewMemoryStore(), nil
	}
}
