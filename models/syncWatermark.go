package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultWatermark is returned for a code that has never completed a pass.
var DefaultWatermark = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// SyncWatermark stores the wall-clock time of the last successful sync pass
// for one scope, keyed by Code (e.g. "bp-master-c", "contact-C0001").
type SyncWatermark struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Code        string    `gorm:"size:150;uniqueIndex;not null" json:"code"`
	LastSyncAt  time.Time `gorm:"not null" json:"last_sync_at"`
	Description string    `gorm:"size:255" json:"description"`
	UpdatedBy   string    `gorm:"size:100" json:"updated_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetWatermark never fails for a missing row; it returns DefaultWatermark.
func GetWatermark(ctx context.Context, db *gorm.DB, code string) (SyncWatermark, error) {
	var wm SyncWatermark
	err := db.WithContext(ctx).Where("code = ?", code).Take(&wm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SyncWatermark{Code: code, LastSyncAt: DefaultWatermark}, nil
	}
	if err != nil {
		return SyncWatermark{}, err
	}
	return wm, nil
}

// AdvanceWatermark upserts the watermark row. Run it inside the same
// transaction as the data writes it covers.
func AdvanceWatermark(ctx context.Context, tx *gorm.DB, code string, actor string, description string, at time.Time) error {
	wm := SyncWatermark{
		Code:        code,
		LastSyncAt:  at.UTC(),
		Description: description,
		UpdatedBy:   actor,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_sync_at", "description", "updated_by", "updated_at"}),
	}).Create(&wm).Error
}
