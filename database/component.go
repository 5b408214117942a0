package database

import (
	"context"
	"fmt"

	"github.com/kbukum/codecompass/component"
	"github.com/kbukum/codecompass/logger"
)

// Component wraps DB and implements component.Component for lifecycle management.
type Component struct {
	db         *DB
	cfg        Config
	log        *logger.Logger
	migrations []Migration
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a database component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithMigrations registers migrations to run on Start when AutoMigrate is on.
func (c *Component) WithMigrations(migrations ...Migration) *Component {
	c.migrations = append(c.migrations, migrations...)
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

func (c *Component) Name() string { return "database" }

// Start connects to the database and optionally applies pending migrations.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if c.cfg.AutoMigrate && len(c.migrations) > 0 {
		if _, err := NewMigrationRunner(db.GormDB, c.log).Add(c.migrations...).Run(ctx); err != nil {
			_ = db.Close()
			c.db = nil
			return fmt.Errorf("database migrate: %w", err)
		}
	}
	return nil
}

// Stop gracefully closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "database not initialized"}
	}
	status := c.db.CheckHealth(ctx)
	if !status.Connected {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "ping failed: " + status.Error}
	}
	if status.InUseConns >= c.cfg.MaxOpenConns {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: "connection pool exhausted"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	return component.Description{Type: "database", Details: details}
}
