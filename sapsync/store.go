package sapsync

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/portal_backend/models"
	"gorm.io/gorm"
)

// gormLocalStore maps plans onto one gorm transaction.
type gormLocalStore[X ExternalRecord, L LocalRecord] struct {
	store     *models.Store[L]
	keyColumn string
	toEntity  func(x X, actor string) L
	toUpdates func(x X, actor string, at time.Time) map[string]interface{}
}

func (s *gormLocalStore[X, L]) FindByScope(ctx context.Context, scope string) ([]L, error) {
	return s.store.FindByScope(ctx, scope)
}

func (s *gormLocalStore[X, L]) Apply(ctx context.Context, plan Plan[X]) error {
	wm := plan.Watermark
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if len(plan.Inserts) > 0 {
			rows := make([]L, 0, len(plan.Inserts))
			for _, x := range plan.Inserts {
				rows = append(rows, s.toEntity(x, wm.Actor))
			}
			if err := models.BulkInsert(ctx, tx, rows); err != nil {
				return fmt.Errorf("bulk insert: %w", err)
			}
		}
		for _, x := range plan.Upserts {
			row := s.toEntity(x, wm.Actor)
			if err := models.Upsert(ctx, tx, s.keyColumn, &row, s.toUpdates(x, wm.Actor, wm.At)); err != nil {
				return fmt.Errorf("upsert %s: %w", x.NaturalKey(), err)
			}
		}
		return models.AdvanceWatermark(ctx, tx, wm.Code, wm.Actor, wm.Description, wm.At)
	})
}

type gormWatermarks struct {
	db *gorm.DB
}

func (w gormWatermarks) GetWatermark(ctx context.Context, code string) (time.Time, error) {
	wm, err := models.GetWatermark(ctx, w.db, code)
	if err != nil {
		return models.DefaultWatermark, err
	}
	return wm.LastSyncAt.UTC(), nil
}

type gormRuns struct {
	db *gorm.DB
}

func (r gormRuns) RecordRun(ctx context.Context, run *models.SyncRun) error {
	return models.CreateSyncRun(ctx, r.db, run)
}
