package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"main/internal/schema"
	"main/pkg/exception"
)

// Store is the durable collaborator behind persistent tables. It owns the
// gorm session and the schema version gate.
type Store struct {
	db *gorm.DB
}

// New migrates the durable tables and returns a store.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, exception.ErrNilInstance
	}
	if err := db.AutoMigrate(&SchemaVersionRecord{}, &OrderRecord{}, &TradeRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate durable tables")
	}
	return &Store{db: db}, nil
}

// EnsureVersion compares the newest persisted schema version against the
// compiled one. A fresh database is stamped with the compiled version; any
// mismatch is fatal.
func (s *Store) EnsureVersion(ctx context.Context) error {
	var rec SchemaVersionRecord
	err := s.db.WithContext(ctx).Order("id desc").First(&rec).Error
	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		rec = SchemaVersionRecord{Version: schema.SchemaVersion, CreatedAt: time.Now()}
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return errors.Wrap(err, "stamp schema version")
		}
		return nil
	case err != nil:
		return errors.Wrap(err, "read schema version")
	}
	if rec.Version != schema.SchemaVersion {
		return errors.Wrap(exception.ErrSchemaMismatch, "schema version gate").
			With("stored", rec.Version).
			With("compiled", schema.SchemaVersion)
	}
	return nil
}

// SaveOrder upserts one order record.
func (s *Store) SaveOrder(ctx context.Context, rec OrderRecord) error {
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return errors.Wrap(err, "save order record")
	}
	return nil
}

// DeleteOrder removes one order record. Missing rows are not an error.
func (s *Store) DeleteOrder(ctx context.Context, id uint64) error {
	if err := s.db.WithContext(ctx).Delete(&OrderRecord{}, id).Error; err != nil {
		return errors.Wrap(err, "delete order record")
	}
	return nil
}

// SaveTrade inserts one trade record.
func (s *Store) SaveTrade(ctx context.Context, rec TradeRecord) error {
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return errors.Wrap(err, "save trade record")
	}
	return nil
}
