package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/codecompass/auth"
	"github.com/kbukum/codecompass/auth/authctx"
	"github.com/kbukum/codecompass/auth/jwt"
	"github.com/kbukum/codecompass/auth/permission"
	apperrors "github.com/kbukum/codecompass/errors"
	"github.com/kbukum/codecompass/logger"
)

const bearerPrefix = "Bearer "

// AdminOnlyMessage is returned when an authenticated caller is not an admin.
const AdminOnlyMessage = "Access restricted to administrators"

// TokenVerifier verifies a token for a trust domain. *jwt.Codec implements it.
type TokenVerifier interface {
	Verify(token string, d jwt.Domain) (*jwt.Claims, error)
}

// BearerToken extracts the token from an Authorization header of the exact
// form "Bearer <token>".
func BearerToken(header string) (string, *apperrors.AppError) {
	if header == "" {
		return "", apperrors.Unauthorized("Authorization token not provided")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", apperrors.Unauthorized("Invalid token format. Use: Bearer <token>")
	}
	token := header[len(bearerPrefix):]
	if token == "" || strings.TrimSpace(token) != token {
		return "", apperrors.Unauthorized("Token not provided")
	}
	return token, nil
}

// Authenticate verifies the bearer token in header as an access token.
func Authenticate(v TokenVerifier, header string) (*jwt.Claims, *apperrors.AppError) {
	token, appErr := BearerToken(header)
	if appErr != nil {
		return nil, appErr
	}
	claims, err := v.Verify(token, jwt.Access)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.InvalidToken()
	}
	return claims, nil
}

func attach(c *gin.Context, claims *jwt.Claims) {
	ctx := authctx.WithClaims(c.Request.Context(), claims)
	ctx = logger.ContextWithUserID(ctx, claims.Subject)
	c.Request = c.Request.WithContext(ctx)
	c.Set(logger.FieldUserID, claims.Subject)
}

// RequireAuth rejects the request unless it carries a valid access token, and
// attaches the verified claims to the request context otherwise.
func RequireAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, appErr := Authenticate(v, c.GetHeader("Authorization"))
		if appErr != nil {
			abort(c, appErr)
			return
		}
		attach(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid access token is present and
// otherwise continues anonymously. Verification errors are never surfaced.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, appErr := Authenticate(v, c.GetHeader("Authorization")); appErr == nil {
			attach(c, claims)
		}
		c.Next()
	}
}

// RequireAdmin authenticates the request, then looks up the caller's role
// from roles. Only RoleAdmin passes.
func RequireAdmin(v TokenVerifier, roles permission.RoleResolver, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		claims, appErr := Authenticate(v, c.GetHeader("Authorization"))
		if appErr != nil {
			abort(c, appErr)
			return
		}
		role, err := roles.RoleOf(c.Request.Context(), claims.Subject)
		if err != nil && !errors.Is(err, auth.ErrIdentityNotFound) {
			log.WithContext(c.Request.Context()).Error("Role lookup failed", logger.ErrorFields("require_admin", err))
			abort(c, apperrors.Internal(err))
			return
		}
		if role != permission.RoleAdmin {
			abort(c, apperrors.Unauthorized(AdminOnlyMessage))
			return
		}
		attach(c, claims)
		c.Next()
	}
}

// RequirePermission must run after RequireAuth. It resolves the caller's role
// and fails with 403 unless checker grants perm to it.
func RequirePermission(roles permission.RoleResolver, checker permission.Checker, perm string, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		id, ok := authctx.Identity(c.Request.Context())
		if !ok {
			abort(c, apperrors.Unauthorized(""))
			return
		}
		role, err := roles.RoleOf(c.Request.Context(), id.Subject)
		if err != nil && !errors.Is(err, auth.ErrIdentityNotFound) {
			log.WithContext(c.Request.Context()).Error("Role lookup failed", logger.ErrorFields("require_permission", err))
			abort(c, apperrors.Internal(err))
			return
		}
		if role == "" || !checker.HasPermission(role, perm) {
			abort(c, apperrors.Forbidden("").WithDetail("permission", perm))
			return
		}
		c.Next()
	}
}
