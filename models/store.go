package models

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 200

// Store reads records of one table by a scope column.
type Store[T any] struct {
	db          *gorm.DB
	scopeColumn string
}

func NewStore[T any](db *gorm.DB, scopeColumn string) *Store[T] {
	return &Store[T]{db: db, scopeColumn: scopeColumn}
}

// FindByScope returns live (not soft-deleted) rows whose scope column equals scope.
func (s *Store[T]) FindByScope(ctx context.Context, scope string) ([]T, error) {
	var results []T
	err := s.db.WithContext(ctx).Where(s.scopeColumn+" = ?", scope).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// BulkInsert inserts in batches and silently skips rows whose unique key
// already exists.
func BulkInsert[T any](ctx context.Context, tx *gorm.DB, records []T) error {
	if len(records) == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(records, insertBatchSize).Error
}

// Upsert creates record, or applies updates to the existing row matching
// keyColumn. Only the columns in updates are touched on conflict.
func Upsert[T any](ctx context.Context, tx *gorm.DB, keyColumn string, record *T, updates map[string]interface{}) error {
	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: keyColumn}}}
	if len(updates) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.Assignments(updates)
	}
	return tx.WithContext(ctx).Clauses(onConflict).Create(record).Error
}
