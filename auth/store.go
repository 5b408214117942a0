package auth

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/codecompass/auth/jwt"
)

var (
	// ErrIdentityNotFound is returned by an IdentityStore when no account matches.
	ErrIdentityNotFound = errors.New("auth: identity not found")
	// ErrDuplicateIdentity is returned by an IdentityStore when the email is taken.
	ErrDuplicateIdentity = errors.New("auth: identity already exists")
)

// Account is the persisted identity as seen by the auth service.
type Account struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Role          string     `json:"role"`
	Active        bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Identity returns the claim minted into tokens for this account.
func (a *Account) Identity() jwt.Identity {
	return jwt.Identity{Subject: a.ID, Email: a.Email}
}

// IdentityStore persists accounts. Emails are passed already normalized.
type IdentityStore interface {
	// FindByEmail returns ErrIdentityNotFound when no account has email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Create inserts acct. The storage unique index is authoritative and a
	// violation is reported as ErrDuplicateIdentity.
	Create(ctx context.Context, acct *Account) error

	// UpdateLastLogin records a successful login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// CredentialUpdater is optionally implemented by an IdentityStore that can
// replace a stored hash. Login uses it to upgrade outdated encodings.
type CredentialUpdater interface {
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
