package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/codecompass/auth"
	"github.com/kbukum/codecompass/auth/permission"
	"github.com/kbukum/codecompass/database"
)

// ErrRoleNotFound is returned when a role name is not seeded.
var ErrRoleNotFound = errors.New("user: role not found")

// Repository is the GORM-backed account store.
type Repository struct {
	db *gorm.DB
}

var (
	_ auth.IdentityStore      = (*Repository)(nil)
	_ auth.CredentialUpdater  = (*Repository)(nil)
	_ permission.RoleResolver = (*Repository)(nil)
)

// NewRepository creates a repository on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByEmail implements auth.IdentityStore.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return r.findOne(ctx, "users.email = ?", email)
}

// FindByID returns the account with id, or auth.ErrIdentityNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	return r.findOne(ctx, "users.id = ?", id)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*auth.Account, error) {
	var u User
	err := r.db.WithContext(ctx).Preload("Role").Where(query, arg).First(&u).Error
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, auth.ErrIdentityNotFound
		}
		return nil, err
	}
	return u.Account(), nil
}

// Create implements auth.IdentityStore. acct.Role names the role; an empty
// role defaults to student. acct.ID is assigned when empty.
func (r *Repository) Create(ctx context.Context, acct *auth.Account) error {
	roleName := acct.Role
	if roleName == "" {
		roleName = permission.RoleStudent
	}
	role, err := r.roleByName(ctx, roleName)
	if err != nil {
		return err
	}
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}

	u := User{
		ID:            acct.ID,
		Name:          acct.Name,
		Email:         acct.Email,
		PasswordHash:  acct.PasswordHash,
		RoleID:        role.ID,
		IsActive:      acct.Active,
		EmailVerified: acct.EmailVerified,
	}
	// Omit the association so GORM does not try to upsert the role row.
	if err := r.db.WithContext(ctx).Omit("Role").Create(&u).Error; err != nil {
		if database.IsDuplicateError(err) {
			return auth.ErrDuplicateIdentity
		}
		return err
	}
	acct.Role = role.Name
	acct.CreatedAt = u.CreatedAt
	return nil
}

// UpdateLastLogin implements auth.IdentityStore.
func (r *Repository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateColumn(ctx, id, "last_login_at", at)
}

// UpdatePasswordHash implements auth.CredentialUpdater.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.updateColumn(ctx, id, "password_hash", hash)
}

// SetRole moves the user to the named role.
func (r *Repository) SetRole(ctx context.Context, id, roleName string) error {
	role, err := r.roleByName(ctx, roleName)
	if err != nil {
		return err
	}
	return r.updateColumn(ctx, id, "role_id", role.ID)
}

func (r *Repository) updateColumn(ctx context.Context, id, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auth.ErrIdentityNotFound
	}
	return nil
}

// RoleOf implements permission.RoleResolver. Inactive or deleted users have
// no role.
func (r *Repository) RoleOf(ctx context.Context, subject string) (string, error) {
	acct, err := r.FindByID(ctx, subject)
	if err != nil {
		return "", err
	}
	if !acct.Active {
		return "", nil
	}
	return acct.Role, nil
}

// Count returns the number of users, optionally restricted to one role.
func (r *Repository) Count(ctx context.Context, roleName string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&User{})
	if roleName != "" {
		q = q.Joins("JOIN roles ON roles.id = users.role_id").Where("roles.name = ?", roleName)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repository) roleByName(ctx context.Context, name string) (*Role, error) {
	var role Role
	err := r.db.WithContext(ctx).Where("name = ? AND is_active = ?", name, true).First(&role).Error
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
		}
		return nil, err
	}
	return &role, nil
}
