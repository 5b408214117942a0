package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/codecompass/auth"
	"github.com/kbukum/codecompass/auth/password"
	"github.com/kbukum/codecompass/auth/permission"
	"github.com/kbukum/codecompass/logger"
	"github.com/kbukum/codecompass/util"
)

// AdminConfig names the bootstrap administrator. Both fields empty disables it.
type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// ApplyDefaults sets the display name.
func (c *AdminConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "Administrator"
	}
}

// Enabled reports whether an administrator should be ensured.
func (c *AdminConfig) Enabled() bool {
	return c.Email != "" || c.Password != ""
}

// Validate requires both credentials once either is set.
func (c *AdminConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("admin: email and password must both be set")
	}
	return nil
}

// AdminOutcome reports what EnsureAdmin did.
type AdminOutcome int

const (
	// AdminUnchanged means the account already existed as an admin, or
	// bootstrapping is disabled.
	AdminUnchanged AdminOutcome = iota
	AdminCreated
	AdminPromoted
)

func (o AdminOutcome) String() string {
	switch o {
	case AdminCreated:
		return "created"
	case AdminPromoted:
		return "promoted"
	default:
		return "unchanged"
	}
}

// EnsureAdmin creates the administrator account if the email is unknown and
// promotes an existing account to admin otherwise. The stored password of an
// existing account is left untouched.
func EnsureAdmin(ctx context.Context, repo *Repository, hasher password.Hasher, cfg AdminConfig, log *logger.Logger) (AdminOutcome, error) {
	if !cfg.Enabled() {
		return AdminUnchanged, nil
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return AdminUnchanged, err
	}
	if log == nil {
		log = logger.Nop()
	}
	email := util.NormalizeEmail(cfg.Email)

	existing, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == permission.RoleAdmin {
			return AdminUnchanged, nil
		}
		if err := repo.SetRole(ctx, existing.ID, permission.RoleAdmin); err != nil {
			return AdminUnchanged, fmt.Errorf("promote admin: %w", err)
		}
		log.Info("Promoted existing account to admin", logger.Fields(logger.FieldUserID, existing.ID))
		return AdminPromoted, nil
	case !errors.Is(err, auth.ErrIdentityNotFound):
		return AdminUnchanged, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := hasher.Hash(cfg.Password)
	if err != nil {
		return AdminUnchanged, fmt.Errorf("hash admin password: %w", err)
	}
	acct := &auth.Account{
		Name:          cfg.Name,
		Email:         email,
		PasswordHash:  hash,
		Role:          permission.RoleAdmin,
		Active:        true,
		EmailVerified: true,
	}
	if err := repo.Create(ctx, acct); err != nil {
		if errors.Is(err, auth.ErrDuplicateIdentity) {
			return AdminUnchanged, nil
		}
		return AdminUnchanged, fmt.Errorf("create admin: %w", err)
	}
	log.Info("Admin account created", logger.Fields(logger.FieldUserID, acct.ID))
	return AdminCreated, nil
}
