package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apperrors "github.com/kbukum/codecompass/errors"
	"github.com/kbukum/codecompass/logger"
	"github.com/kbukum/codecompass/server/endpoint"
	"github.com/kbukum/codecompass/server/middleware"
)

// Server is the HTTP server backed by gin.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	chain      middleware.Middleware
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server. Middleware is not applied until ApplyMiddleware.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.ContextWithFallback = true
	_ = engine.SetTrustedProxies(cfg.TrustedProxies)
	engine.NoRoute(func(c *gin.Context) {
		RespondWithError(c, apperrors.RouteNotFound(c.Request.Method, c.Request.URL.Path))
	})

	s := &Server{
		engine: engine,
		config: cfg,
		log:    log.WithComponent("server"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		ReadTimeout:       cfg.duration(cfg.ReadTimeout),
		ReadHeaderTimeout: cfg.duration(cfg.ReadTimeout),
		WriteTimeout:      cfg.duration(cfg.WriteTimeout),
		IdleTimeout:       cfg.duration(cfg.IdleTimeout),
	}
	s.rebuildHandler()
	return s
}

// GinEngine returns the gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the full handler: middleware chain, gin and h2c.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) rebuildHandler() {
	var handler http.Handler = s.engine
	if s.chain != nil {
		handler = s.chain(handler)
	}
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          s.config.duration(s.config.IdleTimeout),
	}
	s.httpServer.Handler = h2c.NewHandler(handler, h2s)
}

// ApplyMiddleware installs recovery, request ID, CORS, the body size limit
// and request logging around the engine, outermost first.
func (s *Server) ApplyMiddleware(extra ...middleware.Middleware) {
	stack := []middleware.Middleware{
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(&s.config.CORS),
		middleware.BodySizeLimit(s.config.MaxBodySize),
		middleware.RequestLogger(s.log),
	}
	s.chain = middleware.Chain(append(stack, extra...)...)
	s.rebuildHandler()
}

// RegisterProbes registers /health, /readyz, /livez and /info.
func (s *Server) RegisterProbes(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/readyz", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/livez", endpoint.Liveness(serviceName))
	s.engine.GET("/info", endpoint.Info(serviceName))
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr":   listener.Addr().String(),
		"routes": len(s.engine.Routes()),
	})
	return nil
}

// Stop gracefully shuts down the server, waiting at most ShutdownTimeout for
// in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	timeout := s.config.duration(s.config.ShutdownTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.ErrorFields("shutdown", err))
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Running reports whether Start has bound a listener.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}
