package sapsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/models"
	"github.com/mmdatafocus/portal_backend/settle"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("sapsync")

// ExternalRecord is a decoded SAP row.
type ExternalRecord interface {
	NaturalKey() string
	InScope(scope string) bool
	CreatedOn() time.Time
	UpdatedOn() time.Time
}

// LocalRecord is a portal row mirrored from SAP.
type LocalRecord interface {
	NaturalKey() string
	Origin() models.RecordSource
}

type Source[X ExternalRecord] interface {
	Fetch(ctx context.Context, scope string) ([]X, error)
}

// LocalStore applies a whole Plan atomically: the data writes and the
// watermark advance either all commit or none do.
type LocalStore[X ExternalRecord, L LocalRecord] interface {
	FindByScope(ctx context.Context, scope string) ([]L, error)
	Apply(ctx context.Context, plan Plan[X]) error
}

type WatermarkReader interface {
	GetWatermark(ctx context.Context, code string) (time.Time, error)
}

type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.SyncRun) error
}

type WatermarkAdvance struct {
	Code        string
	Actor       string
	Description string
	At          time.Time
}

// Plan is the set of local writes computed by one pass.
type Plan[X ExternalRecord] struct {
	Scope     string
	Branch    string
	Inserts   []X
	Upserts   []X
	Watermark WatermarkAdvance
}

type Result struct {
	Entity      string
	Scope       string
	Branch      string
	Fetched     int
	InScope     int
	Inserted    int
	Upserted    int
	Skipped     int
	WatermarkAt time.Time
	// Degraded holds the failures of fetches that fell back to a default.
	Degraded []error
}

type Engine[X ExternalRecord, L LocalRecord] struct {
	Entity        string
	Source        Source[X]
	Local         LocalStore[X, L]
	Watermarks    WatermarkReader
	WatermarkCode func(scope string) string
	Policy        ConflictPolicy
	Locker        Locker
	Runs          RunRecorder
	Logger        *logrus.Logger
	Now           func() time.Time
}

func (e *Engine[X, L]) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine[X, L]) logger() *logrus.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return config.GetLogger()
}

// Reconcile runs one sync pass for scope. Either every write of the pass and
// the watermark advance commit, or the pass fails with nothing retained.
func (e *Engine[X, L]) Reconcile(ctx context.Context, scope string, actor string) (Result, error) {
	code := e.WatermarkCode(scope)
	ctx, span := tracer.Start(ctx, "sapsync.Reconcile", trace.WithAttributes(
		attribute.String("sync.entity", e.Entity),
		attribute.String("sync.scope", scope),
	))
	defer span.End()

	started := e.now()
	if e.Locker != nil {
		release, err := e.Locker.Obtain(ctx, lockKey(code))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Result{Entity: e.Entity, Scope: scope}, err
		}
		defer release()
	}

	res, err := e.reconcile(ctx, scope, code, actor)
	span.SetAttributes(
		attribute.String("sync.branch", res.Branch),
		attribute.Int("sync.fetched", res.Fetched),
		attribute.Int("sync.inserted", res.Inserted),
		attribute.Int("sync.upserted", res.Upserted),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	e.recordRun(ctx, res, actor, started, err)
	return res, err
}

func (e *Engine[X, L]) reconcile(ctx context.Context, scope string, code string, actor string) (Result, error) {
	logger := e.logger()
	res := Result{Entity: e.Entity, Scope: scope}

	var g settle.Group
	externalSlot := settle.Go(&g, ctx, []X(nil), func(ctx context.Context) ([]X, error) {
		return e.Source.Fetch(ctx, scope)
	})
	localSlot := settle.Go(&g, ctx, []L(nil), func(ctx context.Context) ([]L, error) {
		return e.Local.FindByScope(ctx, scope)
	})
	watermarkSlot := settle.Go(&g, ctx, models.DefaultWatermark, func(ctx context.Context) (time.Time, error) {
		return e.Watermarks.GetWatermark(ctx, code)
	})
	g.Wait()

	for _, slot := range []struct {
		name string
		err  error
	}{
		{"fetch external records", externalSlot.Err()},
		{"fetch local records", localSlot.Err()},
		{"read watermark", watermarkSlot.Err()},
	} {
		if slot.err == nil {
			continue
		}
		config.LogError(logger, "sapsync", "Reconcile", slot.name, logrus.Fields{"entity": e.Entity, "scope": scope}, slot.err)
		res.Degraded = append(res.Degraded, fmt.Errorf("%s: %w", slot.name, slot.err))
	}

	external := externalSlot.Value()
	locals := localSlot.Value()
	lastSyncAt := watermarkSlot.Value()
	res.Fetched = len(external)

	inScope := make([]X, 0, len(external))
	for _, x := range external {
		if x.InScope(scope) {
			inScope = append(inScope, x)
		}
	}
	res.InScope = len(inScope)

	now := e.now()
	at := now
	if at.Before(lastSyncAt) {
		at = lastSyncAt
	}
	plan := Plan[X]{
		Scope: scope,
		Watermark: WatermarkAdvance{
			Code:        code,
			Actor:       actor,
			Description: fmt.Sprintf("%s sync for %s", e.Entity, scope),
			At:          at,
		},
	}

	if len(locals) == 0 {
		plan.Branch = models.SyncBranchBootstrap
		plan.Inserts = inScope
	} else {
		plan.Branch = models.SyncBranchIncremental
		byKey := make(map[string]L, len(locals))
		for _, l := range locals {
			byKey[l.NaturalKey()] = l
		}
		policy := e.Policy
		if policy == nil {
			policy = SAPWins
		}
		for _, x := range inScope {
			if !x.CreatedOn().After(lastSyncAt) && !x.UpdatedOn().After(lastSyncAt) {
				continue
			}
			var existing LocalRecord
			if l, ok := byKey[x.NaturalKey()]; ok {
				existing = l
			}
			if d := policy(x, existing); d == Keep {
				logger.WithFields(logrus.Fields{"entity": e.Entity, "key": x.NaturalKey(), "decision": d.String()}).Debug("conflict policy kept local record")
				res.Skipped++
				continue
			}
			plan.Upserts = append(plan.Upserts, x)
		}
	}
	res.Branch = plan.Branch

	if err := e.Local.Apply(ctx, plan); err != nil {
		return res, fmt.Errorf("commit %s sync for %s: %w", e.Entity, scope, err)
	}
	res.Inserted = len(plan.Inserts)
	res.Upserted = len(plan.Upserts)
	res.WatermarkAt = at

	logger.WithFields(logrus.Fields{
		"entity":    e.Entity,
		"scope":     scope,
		"branch":    res.Branch,
		"fetched":   res.Fetched,
		"inserted":  res.Inserted,
		"upserted":  res.Upserted,
		"skipped":   res.Skipped,
		"watermark": at.Format(time.RFC3339),
	}).Info("sap sync committed")
	return res, nil
}

func (e *Engine[X, L]) recordRun(ctx context.Context, res Result, actor string, started time.Time, runErr error) {
	if e.Runs == nil {
		return
	}
	finished := e.now()
	run := &models.SyncRun{
		Entity:      e.Entity,
		Scope:       res.Scope,
		Branch:      res.Branch,
		Status:      models.SyncRunStatusSuccess,
		TriggeredBy: models.SyncTriggeredManual,
		Actor:       actor,
		Fetched:     res.Fetched,
		Inserted:    res.Inserted,
		Upserted:    res.Upserted,
		Skipped:     res.Skipped,
		ErrorCount:  len(res.Degraded),
		StartedAt:   &started,
		FinishedAt:  &finished,
		DurationMs:  finished.Sub(started).Milliseconds(),
	}
	if actor == ScheduledActor {
		run.TriggeredBy = models.SyncTriggeredScheduled
	}
	if runErr != nil {
		run.Status = models.SyncRunStatusFailed
		run.Message = runErr.Error()
		run.ErrorCount++
	} else if len(res.Degraded) > 0 {
		run.Message = errors.Join(res.Degraded...).Error()
	}
	if err := e.Runs.RecordRun(ctx, run); err != nil {
		config.LogError(e.logger(), "sapsync", "recordRun", "write sync run", run.Scope, err)
	}
}
