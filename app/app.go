package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/codecompass/api"
	"github.com/kbukum/codecompass/auth"
	"github.com/kbukum/codecompass/auth/jwt"
	"github.com/kbukum/codecompass/auth/password"
	"github.com/kbukum/codecompass/auth/permission"
	"github.com/kbukum/codecompass/auth/revocation"
	"github.com/kbukum/codecompass/component"
	"github.com/kbukum/codecompass/database"
	"github.com/kbukum/codecompass/events"
	"github.com/kbukum/codecompass/logger"
	"github.com/kbukum/codecompass/observability"
	"github.com/kbukum/codecompass/redis"
	"github.com/kbukum/codecompass/server"
	"github.com/kbukum/codecompass/server/middleware"
	"github.com/kbukum/codecompass/user"
	"github.com/kbukum/codecompass/util"
	"github.com/kbukum/codecompass/version"
)

// App owns the components of one service process.
type App struct {
	Cfg        *Config
	Logger     *logger.Logger
	Components *component.Registry

	db        *database.Component
	redis     *redis.Component
	events    *events.Component
	telemetry *observability.Component
	server    *server.Server

	users   *user.Repository
	hasher  password.Hasher
	revoker revocation.Store

	gracefulTimeout time.Duration
	purgeInterval   time.Duration
}

// Option configures an App.
type Option func(*App)

// WithLogger replaces the logger built from the logging config.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// New validates cfg and registers the infrastructure components. Nothing is
// started until Run or RunTask.
func New(cfg *Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	a := &App{Cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = logger.Init(cfg.Logging, cfg.Name)
	} else {
		logger.SetGlobalLogger(a.Logger)
	}
	a.gracefulTimeout, _ = util.ParseDuration(cfg.GracefulTimeout)
	a.purgeInterval, _ = util.ParseDuration(cfg.PurgeInterval)
	a.Components = component.NewRegistry(a.Logger)

	a.db = database.NewComponent(cfg.Database, a.Logger).WithMigrations(user.Migrations()...)
	infra := []component.Component{a.db}
	if cfg.Redis.Enabled {
		a.redis = redis.NewComponent(cfg.Redis, a.Logger)
		infra = append(infra, a.redis)
	}
	if cfg.Events.Enabled {
		a.events = events.NewComponent(cfg.Events, a.Logger)
		infra = append(infra, a.events)
	}
	if cfg.Telemetry.Enabled {
		a.telemetry = observability.NewComponent(cfg.Telemetry, observability.Service{
			Name:        cfg.Name,
			Version:     version.Get().Version,
			Environment: cfg.Environment,
		}, a.Logger)
		infra = append(infra, a.telemetry)
	}
	for _, c := range infra {
		if err := a.Components.Register(c); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Run starts everything, serves until SIGINT, SIGTERM or ctx is canceled,
// then shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.startup(ctx); err != nil {
		_ = a.shutdown()
		return err
	}
	if err := a.serve(ctx); err != nil {
		_ = a.shutdown()
		return err
	}
	a.Logger.Info("Application ready, waiting for shutdown signal")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.purgeLoop(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("Shutdown signal received, graceful shutdown starting")
		return nil
	})
	_ = g.Wait()

	return a.shutdown()
}

// RunTask starts the infrastructure only, runs task and shuts down. The
// HTTP server is not started.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.initialize(ctx); err != nil {
		_ = a.shutdown()
		return err
	}
	taskErr := task(ctx)
	if err := a.shutdown(); err != nil && taskErr == nil {
		return err
	}
	return taskErr
}

// startup runs phases 1 and 2.
func (a *App) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", logger.Fields(
		"name", a.Cfg.Name,
		"version", version.Get().String(),
	))
	for _, line := range a.Cfg.Describe() {
		a.Logger.Debug(line)
	}

	if err := a.initialize(ctx); err != nil {
		return err
	}
	if err := a.configure(ctx); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}
	a.Logger.Info("Startup complete", logger.DurationFields("startup", time.Since(start)))
	return nil
}

// initialize starts the infrastructure components (phase 1) and the
// credential primitives that depend on them.
func (a *App) initialize(ctx context.Context) error {
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	a.users = user.NewRepository(a.db.DB().GormDB)
	a.hasher = password.NewHasher(a.Cfg.Auth.Password)

	var rdb *redis.Client
	if a.redis != nil {
		rdb = a.redis.Client()
	}
	revoker, err := revocation.New(a.Cfg.Auth.Revocation, rdb, a.db.DB().GormDB)
	if err != nil {
		return err
	}
	a.revoker = revoker
	return nil
}

// configure builds the auth service and mounts the API (phase 2).
func (a *App) configure(ctx context.Context) error {
	codec, err := jwt.NewCodec(a.Cfg.Auth.JWT)
	if err != nil {
		return err
	}

	opts := []auth.Option{
		auth.WithLogger(a.Logger),
		auth.WithTracer(observability.Tracer("codecompass/auth")),
		auth.WithMinPasswordLength(a.Cfg.Auth.Password.MinLength),
	}
	if a.events != nil {
		opts = append(opts, auth.WithEvents(a.events.Publisher()))
	}
	metrics, err := observability.NewAuthMetrics(observability.Meter("codecompass/auth"))
	if err != nil {
		return err
	}
	opts = append(opts, auth.WithMetrics(metrics))
	svc := auth.NewService(a.users, a.hasher, codec, a.revoker, opts...)

	if _, err := a.EnsureAdmin(ctx, a.Cfg.Admin); err != nil {
		return err
	}

	a.server = server.New(a.Cfg.Server, a.Logger)
	a.server.ApplyMiddleware()
	a.server.RegisterProbes(a.Cfg.Name, a.Components.HealthAll)

	api.Register(a.server.GinEngine().Group("/api/v1"), api.Deps{
		Auth:        api.NewAuthHandler(svc, a.users),
		Admin:       api.NewAdminHandler(a.users, a.Components.HealthAll),
		Verifier:    codec,
		Roles:       a.users,
		Permissions: permission.NewMapChecker(permission.DefaultPermissions),
		Limits:      api.NewLimits(a.Cfg.RateLimit, a.rateLimitStore(), a.Logger),
		Log:         a.Logger,
	})
	return a.Components.Register(server.NewComponent(a.server))
}

// serve starts the HTTP server (phase 3).
func (a *App) serve(ctx context.Context) error {
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("server start failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	return nil
}

func (a *App) rateLimitStore() middleware.RateLimitStore {
	if a.Cfg.RateLimit.Backend == middleware.RateLimitRedis && a.redis != nil {
		return middleware.NewRedisRateLimitStore(a.redis.Client())
	}
	return middleware.NewMemoryRateLimitStore()
}

// ReadyCheck verifies that every registered component is healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			unhealthy = append(unhealthy, h.String())
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Server returns the HTTP server once configured.
func (a *App) Server() *server.Server {
	return a.server
}

// Migrate applies pending migrations. Use it from RunTask.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	return database.NewMigrationRunner(a.db.DB().GormDB, a.Logger).Add(user.Migrations()...).Run(ctx)
}

// EnsureAdmin creates or promotes the administrator described by cfg. Use it
// from RunTask or after startup.
func (a *App) EnsureAdmin(ctx context.Context, cfg user.AdminConfig) (user.AdminOutcome, error) {
	if !cfg.Enabled() {
		return user.AdminUnchanged, nil
	}
	minLen := a.Cfg.Auth.Password.MinLength
	if len([]rune(cfg.Password)) < minLen {
		return user.AdminUnchanged, fmt.Errorf("admin: password must be at least %d characters", minLen)
	}
	return user.EnsureAdmin(ctx, a.users, a.hasher, cfg, a.Logger)
}

// shutdown stops every started component in reverse order.
func (a *App) shutdown() error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	a.Logger.Info("Application shutdown complete")
	return nil
}
