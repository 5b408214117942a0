package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/codecompass/logger"
)

// Migration describes a single schema change. IDs sort lexically in the
// order they must run, e.g. "0001_create_roles".
type Migration struct {
	ID          string
	Description string
	Up          func(tx *gorm.DB) error
}

// SchemaMigration is a row in schema_migrations.
type SchemaMigration struct {
	ID        string    `gorm:"primaryKey;size:255"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName overrides the GORM default.
func (SchemaMigration) TableName() string { return "schema_migrations" }

// MigrationRunner applies migrations once each, tracked in schema_migrations.
// Every migration runs in its own transaction together with its tracking row.
type MigrationRunner struct {
	db         *gorm.DB
	log        *logger.Logger
	migrations []Migration
}

// NewMigrationRunner creates a runner bound to the given database and logger.
func NewMigrationRunner(db *gorm.DB, log *logger.Logger) *MigrationRunner {
	if log == nil {
		log = logger.Nop()
	}
	return &MigrationRunner{db: db, log: log.WithComponent("migrations")}
}

// Add registers migrations to be applied in the given order.
func (mr *MigrationRunner) Add(migrations ...Migration) *MigrationRunner {
	mr.migrations = append(mr.migrations, migrations...)
	return mr
}

// Run applies all pending migrations and returns the IDs it applied.
func (mr *MigrationRunner) Run(ctx context.Context) ([]string, error) {
	db := mr.db.WithContext(ctx)
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(applied))
	for _, id := range applied {
		done[id] = true
	}

	var ran []string
	for _, m := range mr.migrations {
		if done[m.ID] {
			continue
		}
		mr.log.Info("Applying migration", map[string]interface{}{
			"id":          m.ID,
			"description": m.Description,
		})

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{ID: m.ID, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		ran = append(ran, m.ID)
	}

	if len(ran) > 0 {
		mr.log.Info("Migrations applied", map[string]interface{}{"count": len(ran)})
	}
	return ran, nil
}

// Applied returns the IDs already recorded, in ID order.
func (mr *MigrationRunner) Applied(ctx context.Context) ([]string, error) {
	var ids []string
	err := mr.db.WithContext(ctx).Model(&SchemaMigration{}).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	return ids, nil
}
