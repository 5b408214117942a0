package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/codecompass/auth"
	"github.com/kbukum/codecompass/auth/jwt"
	"github.com/kbukum/codecompass/component"
	"github.com/kbukum/codecompass/validation"
)

// Authenticator runs the auth use cases. *auth.Service implements it.
type Authenticator interface {
	Register(ctx context.Context, name, email, secret string) (*auth.Result, error)
	Login(ctx context.Context, email, secret string) (*auth.Result, error)
	Refresh(ctx context.Context, refreshToken string) (jwt.Pair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Profiles loads stored accounts by ID.
type Profiles interface {
	FindByID(ctx context.Context, id string) (*auth.Account, error)
}

// UserStats counts users, optionally per role.
type UserStats interface {
	Count(ctx context.Context, role string) (int64, error)
}

// HealthSource reports component health for the admin overview.
type HealthSource func(ctx context.Context) []component.Health

// bind decodes the JSON body into dst and validates its tags.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return validation.FromError(err)
	}
	return validation.Validate(dst)
}
