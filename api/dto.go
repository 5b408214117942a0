package api

import (
	"time"

	"github.com/kbukum/codecompass/auth"
	"github.com/kbukum/codecompass/auth/jwt"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest is the body of POST /auth/logout. The token is optional.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse carries a freshly minted pair.
type TokenResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

func newTokenResponse(p jwt.Pair) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        int64(p.AccessTTL.Seconds()),
		RefreshExpiresIn: int64(p.RefreshTTL.Seconds()),
	}
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func newUserResponse(a *auth.Account) UserResponse {
	return UserResponse{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt,
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

// ClaimResponse is the verified token identity.
type ClaimResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newClaimResponse(c *jwt.Claims) ClaimResponse {
	return ClaimResponse{ID: c.Subject, Email: c.Email, ExpiresAt: c.Expiry()}
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	Claim ClaimResponse `json:"claim"`
	User  UserResponse  `json:"user"`
}

// SessionResponse is returned by GET /auth/session.
type SessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *ClaimResponse `json:"user,omitempty"`
}

// OverviewResponse is returned by GET /admin/overview.
type OverviewResponse struct {
	Users    int64            `json:"users"`
	ByRole   map[string]int64 `json:"byRole"`
	Services []ServiceStatus  `json:"services,omitempty"`
}

// ServiceStatus is one component line in the admin overview.
type ServiceStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}
