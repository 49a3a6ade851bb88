// Package importer validates and stores customer excess lists and supplier
// offers that clients upload in batches.
package importer

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type BatchRequest struct {
	Rows        []BatchImportRow `json:"data"`
	Total       int              `json:"total"`
	Stats       ImportStats      `json:"stats"`
	IsLastBatch bool             `json:"isLastBatch"`
}

type Importer struct {
	db       *gorm.DB
	kind     Kind
	validate *validator.Validate
	logger   *logrus.Logger
}

func New(db *gorm.DB, kind Kind, logger *logrus.Logger) *Importer {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Importer{db: db, kind: kind, validate: newValidator(kind), logger: logger}
}

// ImportBatch validates one batch, inserts the accepted rows and returns the
// next stats. Row problems are reported inside the stats; the error is only
// set when the batch could not be checked or written, in which case the
// returned stats still carry every row of the batch as failed.
func (im *Importer) ImportBatch(ctx context.Context, req BatchRequest, actor string) (ImportStats, error) {
	total := req.Total
	if total <= 0 {
		total = req.Stats.Total
	}

	lk, err := im.lookup(ctx, req.Rows)
	if err != nil {
		config.LogError(im.logger, "importer", "ImportBatch", "bulk lookup", logrus.Fields{"kind": im.kind, "rows": len(req.Rows)}, err)
		return failedStats(req.Stats, req.Rows, nil, msgUnexpectedLookup, total), err
	}

	accepted, rejected := im.validateRows(req.Rows, lk)

	if len(accepted) > 0 {
		err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return im.insert(ctx, tx, accepted, actor)
		})
		if err != nil {
			config.LogError(im.logger, "importer", "ImportBatch", "batch insert", logrus.Fields{
				"kind":         im.kind,
				"rows":         len(accepted),
				"duplicateKey": utils.IsDuplicateKeyError(err),
			}, err)
			return failedStats(req.Stats, req.Rows, rejected, msgUnexpectedWrite, total), fmt.Errorf("insert %s batch: %w", im.kind, err)
		}
	}

	next := nextStats(req.Stats, rejected, len(accepted), total, req.IsLastBatch)
	im.logger.WithFields(logrus.Fields{
		"kind":      im.kind,
		"accepted":  len(accepted),
		"rejected":  len(rejected),
		"completed": next.Completed,
		"total":     next.Total,
		"status":    next.Status,
	}).Info("import batch processed")
	return next, nil
}
