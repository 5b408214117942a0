package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/codecompass/auth/permission"
	"github.com/kbukum/codecompass/logger"
	"github.com/kbukum/codecompass/server/middleware"
)

// PermProfileRead guards reading one's own profile.
const PermProfileRead = "profile:read"

// Limits are the rate limit handlers applied per route group. Nil entries
// disable that limit.
type Limits struct {
	Global   gin.HandlerFunc
	Auth     gin.HandlerFunc
	Register gin.HandlerFunc
}

// NewLimits builds the handlers for cfg on store. A disabled cfg yields no limits.
func NewLimits(cfg middleware.RateLimitConfig, store middleware.RateLimitStore, log *logger.Logger) Limits {
	if !cfg.Enabled {
		return Limits{}
	}
	return Limits{
		Global: middleware.RateLimit(store, middleware.LimitOptions{Name: "global", Rule: cfg.Global}, log),
		Auth: middleware.RateLimit(store, middleware.LimitOptions{
			Name:           "auth",
			Rule:           cfg.Auth,
			SkipSuccessful: true,
			Message:        "Too many login attempts. Try again in a few minutes.",
		}, log),
		Register: middleware.RateLimit(store, middleware.LimitOptions{
			Name:    "register",
			Rule:    cfg.Register,
			Message: "Too many registration attempts. Try again later.",
		}, log),
	}
}

// Deps wires the route table.
type Deps struct {
	Auth        *AuthHandler
	Admin       *AdminHandler
	Verifier    middleware.TokenVerifier
	Roles       permission.RoleResolver
	// Permissions, when set, additionally gates /auth/me on profile:read.
	Permissions permission.Checker
	Limits      Limits
	Log         *logger.Logger
}

// Register mounts every route on group, normally /api/v1.
func Register(group *gin.RouterGroup, d Deps) {
	if d.Limits.Global != nil {
		group.Use(d.Limits.Global)
	}

	a := group.Group("/auth")
	a.POST("/register", handlers(d.Limits.Register, d.Auth.Register)...)
	a.POST("/login", handlers(d.Limits.Auth, d.Auth.Login)...)
	a.POST("/refresh", handlers(d.Limits.Auth, d.Auth.Refresh)...)
	a.POST("/logout", d.Auth.Logout)
	me := []gin.HandlerFunc{middleware.RequireAuth(d.Verifier)}
	if d.Permissions != nil {
		me = append(me, middleware.RequirePermission(d.Roles, d.Permissions, PermProfileRead, d.Log))
	}
	a.GET("/me", append(me, d.Auth.Me)...)
	a.GET("/session", middleware.OptionalAuth(d.Verifier), d.Auth.Session)

	admin := group.Group("/admin", middleware.RequireAdmin(d.Verifier, d.Roles, d.Log))
	admin.GET("/overview", d.Admin.Overview)
}

func handlers(hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := hs[:0:0]
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
