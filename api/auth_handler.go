package api

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/codecompass/auth"
	"github.com/kbukum/codecompass/auth/authctx"
	"github.com/kbukum/codecompass/errors"
	"github.com/kbukum/codecompass/server"
)

// AuthHandler serves /auth routes.
type AuthHandler struct {
	svc      Authenticator
	profiles Profiles
}

// NewAuthHandler creates the handler.
func NewAuthHandler(svc Authenticator, profiles Profiles) *AuthHandler {
	return &AuthHandler{svc: svc, profiles: profiles}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, "User registered successfully", AuthResponse{
		User:   newUserResponse(res.Account),
		Tokens: newTokenResponse(res.Tokens),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, "Login successful", AuthResponse{
		User:   newUserResponse(res.Account),
		Tokens: newTokenResponse(res.Tokens),
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, "Tokens refreshed successfully", newTokenResponse(pair))
}

// Logout handles POST /auth/logout. A missing body is accepted.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			server.RespondWithError(c, err)
			return
		}
	}
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, "Logout successful", nil)
}

// Me handles GET /auth/me. It requires RequireAuth upstream.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := authctx.Claims(c.Request.Context())
	if !ok {
		server.RespondWithError(c, errors.Unauthorized(""))
		return
	}
	acct, err := h.profiles.FindByID(c.Request.Context(), claims.Subject)
	if err != nil {
		if stderrors.Is(err, auth.ErrIdentityNotFound) {
			server.RespondWithError(c, errors.NotFound("user", ""))
			return
		}
		server.RespondWithError(c, errors.DatabaseError(err))
		return
	}
	server.RespondOK(c, "Authenticated user", MeResponse{
		Claim: newClaimResponse(claims),
		User:  newUserResponse(acct),
	})
}

// Session handles GET /auth/session. It runs behind OptionalAuth and never fails.
func (h *AuthHandler) Session(c *gin.Context) {
	claims, ok := authctx.Claims(c.Request.Context())
	if !ok {
		server.RespondOK(c, "No active session", SessionResponse{})
		return
	}
	claim := newClaimResponse(claims)
	server.RespondOK(c, "Active session", SessionResponse{Authenticated: true, User: &claim})
}
