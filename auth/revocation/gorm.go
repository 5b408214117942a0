package revocation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevokedToken is a row in revoked_tokens.
type RevokedToken struct {
	JTI       string    `gorm:"column:jti;primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName overrides the GORM default.
func (RevokedToken) TableName() string { return "revoked_tokens" }

// GormStore keeps revoked IDs in the relational database.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a database-backed store. The revoked_tokens table
// is created by the migration runner.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// Revoke inserts the row; the primary key decides which concurrent caller
// claims it.
func (s *GormStore) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	row := RevokedToken{JTI: jti, ExpiresAt: until.UTC()}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("revocation: insert: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, s.now().UTC()).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("revocation: lookup: %w", err)
	}
	return n > 0, nil
}

// Purge deletes rows whose tokens have expired.
func (s *GormStore) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("revocation: purge: %w", res.Error)
	}
	return res.RowsAffected, nil
}
