package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/codecompass/errors"
	"github.com/kbukum/codecompass/logger"
	"github.com/kbukum/codecompass/redis"
	"github.com/kbukum/codecompass/util"
)

// Rate limit backends.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// RateLimitStore counts hits in fixed windows.
type RateLimitStore interface {
	// Incr counts a hit on key and returns the count in the current window
	// and the time until the window resets. The first hit opens the window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Decr takes back one hit.
	Decr(ctx context.Context, key string) error
}

// Rule is a limit of Limit hits per Window.
type Rule struct {
	Limit  int    `yaml:"limit" mapstructure:"limit"`
	Window string `yaml:"window" mapstructure:"window"`
}

func (r Rule) window() time.Duration {
	d, _ := util.ParseDuration(r.Window)
	return d
}

func (r Rule) validate(name string) error {
	if r.Limit <= 0 {
		return fmt.Errorf("rate_limit.%s.limit must be positive (got: %d)", name, r.Limit)
	}
	d, err := util.ParseDuration(r.Window)
	if err != nil || d <= 0 {
		return fmt.Errorf("rate_limit.%s.window %q is not a positive duration", name, r.Window)
	}
	return nil
}

// RateLimitConfig configures the global and auth endpoint limits.
type RateLimitConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Backend  string `yaml:"backend" mapstructure:"backend"`
	Global   Rule   `yaml:"global" mapstructure:"global"`
	Auth     Rule   `yaml:"auth" mapstructure:"auth"`
	Register Rule   `yaml:"register" mapstructure:"register"`
}

// ApplyDefaults sets 100/15m global, 5/15m for login and 3/1h for register.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = RateLimitMemory
	}
	defaults := []struct {
		rule   *Rule
		limit  int
		window string
	}{
		{&c.Global, 100, "15m"},
		{&c.Auth, 5, "15m"},
		{&c.Register, 3, "1h"},
	}
	for _, d := range defaults {
		if d.rule.Limit == 0 {
			d.rule.Limit = d.limit
		}
		if d.rule.Window == "" {
			d.rule.Window = d.window
		}
	}
}

// Validate checks the backend and every rule.
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Backend != RateLimitMemory && c.Backend != RateLimitRedis {
		return fmt.Errorf("rate_limit.backend must be memory or redis (got: %q)", c.Backend)
	}
	for name, r := range map[string]Rule{"global": c.Global, "auth": c.Auth, "register": c.Register} {
		if err := r.validate(name); err != nil {
			return err
		}
	}
	return nil
}

// LimitOptions configures one RateLimit handler.
type LimitOptions struct {
	// Name scopes the counters so separate limits never share keys.
	Name string
	Rule Rule
	// SkipSuccessful refunds hits whose response status is below 400.
	SkipSuccessful bool
	// Message overrides the default 429 message.
	Message string
	// KeyFunc extracts the client key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimit enforces a fixed-window limit per client key. Store failures are
// logged and the request is let through.
func RateLimit(store RateLimitStore, opts LimitOptions, log *logger.Logger) gin.HandlerFunc {
	if opts.KeyFunc == nil {
		opts.KeyFunc = IPBasedKey
	}
	if log == nil {
		log = logger.Nop()
	}
	window := opts.Rule.window()
	limit := int64(opts.Rule.Limit)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "ratelimit:" + opts.Name + ":" + opts.KeyFunc(c)

		count, resetIn, err := store.Incr(ctx, key, window)
		if err != nil {
			log.WithContext(ctx).Warn("Rate limit store unavailable", logger.ErrorFields("rate_limit", err))
			c.Next()
			return
		}

		resetSecs := int64(math.Ceil(resetIn.Seconds()))
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("RateLimit-Reset", strconv.FormatInt(resetSecs, 10))

		if count > limit {
			log.WithContext(ctx).Warn("Rate limit exceeded", map[string]interface{}{
				"limit":     opts.Name,
				"client_ip": c.ClientIP(),
				"path":      c.Request.URL.Path,
			})
			c.Header("Retry-After", strconv.FormatInt(resetSecs, 10))
			appErr := apperrors.RateLimited().WithDetail("retry_after", resetSecs)
			if opts.Message != "" {
				appErr.Message = opts.Message
			}
			abort(c, appErr)
			return
		}

		c.Next()

		if opts.SkipSuccessful && c.Writer.Status() < 400 {
			if err := store.Decr(ctx, key); err != nil {
				log.WithContext(ctx).Warn("Rate limit refund failed", logger.ErrorFields("rate_limit", err))
			}
		}
	}
}

// IPBasedKey keys limits by client IP.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// UserBasedKey keys limits by authenticated user, falling back to client IP.
func UserBasedKey(c *gin.Context) string {
	if uid := c.GetString(logger.FieldUserID); uid != "" {
		return "user:" + uid
	}
	return c.ClientIP()
}

// MemoryRateLimitStore keeps windows in process memory.
type MemoryRateLimitStore struct {
	mu        sync.Mutex
	windows   map[string]*fixedWindow
	now       func() time.Time
	lastSweep time.Time
}

type fixedWindow struct {
	count   int64
	resetAt time.Time
}

const sweepInterval = time.Minute

// NewMemoryRateLimitStore creates an empty in-memory store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{windows: make(map[string]*fixedWindow), now: time.Now}
}

func (s *MemoryRateLimitStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &fixedWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

func (s *MemoryRateLimitStore) Decr(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[key]; ok && w.count > 0 {
		w.count--
	}
	return nil
}

// sweep drops expired windows at most once per sweepInterval. Caller holds mu.
func (s *MemoryRateLimitStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for k, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, k)
		}
	}
}

// RedisRateLimitStore shares windows across instances with INCR + EXPIRE.
type RedisRateLimitStore struct {
	client *redis.Client
}

// NewRedisRateLimitStore creates a store on client.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

func (s *RedisRateLimitStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return s.client.IncrWindow(ctx, key, window)
}

func (s *RedisRateLimitStore) Decr(ctx context.Context, key string) error {
	return s.client.Decr(ctx, key)
}
