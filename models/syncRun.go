package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/portal_backend/utils"
	"gorm.io/gorm"
)

const (
	SyncTriggeredManual    = "manual"
	SyncTriggeredScheduled = "scheduled"
)

// SyncRun is an audit row written after every sync pass, successful or not.
type SyncRun struct {
	ID          uint       `gorm:"primary_key" json:"id"`
	Entity      string     `gorm:"index;size:50;not null" json:"entity"`
	Scope       string     `gorm:"index;size:100;not null" json:"scope"`
	Branch      string     `gorm:"size:20" json:"branch"`
	Status      string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy string     `gorm:"size:20" json:"triggered_by"`
	Actor       string     `gorm:"size:100" json:"actor"`
	Fetched     int        `json:"fetched"`
	Inserted    int        `json:"inserted"`
	Upserted    int        `json:"upserted"`
	Skipped     int        `json:"skipped"`
	ErrorCount  int        `json:"error_count"`
	Message     string     `gorm:"type:text" json:"message"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	DurationMs  int64      `json:"duration_ms"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func CreateSyncRun(ctx context.Context, db *gorm.DB, run *SyncRun) error {
	return db.WithContext(ctx).Create(run).Error
}

// ListSyncRuns returns the newest runs first, optionally filtered by entity.
func ListSyncRuns(ctx context.Context, db *gorm.DB, entity string, limit int) ([]SyncRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := db.WithContext(ctx).Order("id DESC").Limit(limit)
	if entity != "" {
		q = q.Where("entity = ?", entity)
	}
	var runs []SyncRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func GetSyncRun(ctx context.Context, db *gorm.DB, id uint) (*SyncRun, error) {
	var run SyncRun
	if err := db.WithContext(ctx).First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &run, nil
}
