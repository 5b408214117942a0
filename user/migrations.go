package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/codecompass/auth/permission"
	"github.com/kbukum/codecompass/auth/revocation"
	"github.com/kbukum/codecompass/database"
)

// DefaultRoles are seeded by the roles migration.
var DefaultRoles = []Role{
	{Name: permission.RoleAdmin, Description: "Administrator with full access to all features", IsActive: true},
	{Name: permission.RoleStudent, Description: "Student with limited access to learning features", IsActive: true},
}

// Migrations returns the schema migrations in apply order.
func Migrations() []database.Migration {
	return []database.Migration{
		{
			ID:          "0001_create_roles",
			Description: "create roles table",
			Up:          func(tx *gorm.DB) error { return tx.AutoMigrate(&Role{}) },
		},
		{
			ID:          "0002_seed_roles",
			Description: "seed admin and student roles",
			Up:          seedRoles,
		},
		{
			ID:          "0003_create_users",
			Description: "create users table",
			Up:          func(tx *gorm.DB) error { return tx.AutoMigrate(&User{}) },
		},
		{
			ID:          "0004_create_revoked_tokens",
			Description: "create revoked_tokens table",
			Up:          func(tx *gorm.DB) error { return tx.AutoMigrate(&revocation.RevokedToken{}) },
		},
	}
}

func seedRoles(tx *gorm.DB) error {
	roles := make([]Role, len(DefaultRoles))
	for i, r := range DefaultRoles {
		r.ID = uuid.NewString()
		roles[i] = r
	}
	return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&roles).Error
}
