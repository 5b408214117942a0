package user

import (
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/codecompass/auth"
)

// Role is a named set of permissions. Users reference it by ID.
type Role struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Name        string         `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description string         `gorm:"size:100" json:"description,omitempty"`
	IsActive    bool           `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Role) TableName() string { return "roles" }

// User is the persisted account.
type User struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Name          string         `gorm:"size:100;not null" json:"name"`
	Email         string         `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash  string         `gorm:"size:255;not null" json:"-"`
	RoleID        string         `gorm:"size:36;not null;index" json:"role_id"`
	Role          Role           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"role"`
	IsActive      bool           `gorm:"not null;index" json:"is_active"`
	EmailVerified bool           `gorm:"not null;default:false;index" json:"email_verified"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// Account converts u to the auth view. Role must be preloaded.
func (u *User) Account() *auth.Account {
	return &auth.Account{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role.Name,
		Active:        u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}
