package sapsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/models"
)

type extRec struct {
	key     string
	scope   string
	created time.Time
	updated time.Time
}

func (r extRec) NaturalKey() string        { return r.key }
func (r extRec) InScope(scope string) bool { return r.scope == scope }
func (r extRec) CreatedOn() time.Time      { return r.created }
func (r extRec) UpdatedOn() time.Time      { return r.updated }

// locRec.version counts how many times the engine wrote the row.
type locRec struct {
	key     string
	scope   string
	source  models.RecordSource
	version int
}

func (r locRec) NaturalKey() string          { return r.key }
func (r locRec) Origin() models.RecordSource { return r.source }

type fakeSource struct {
	records []extRec
	err     error
	calls   int
}

func (s *fakeSource) Fetch(ctx context.Context, scope string) ([]extRec, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

// memStore is an in-memory LocalStore and WatermarkReader.
type memStore struct {
	mu           sync.Mutex
	rows         map[string]locRec
	watermarks   map[string]time.Time
	findErr      error
	watermarkErr error
	applyErr     error
	plans        []Plan[extRec]
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]locRec{}, watermarks: map[string]time.Time{}}
}

func (m *memStore) FindByScope(ctx context.Context, scope string) ([]locRec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []locRec
	for _, r := range m.rows {
		if r.scope == scope {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Apply(ctx context.Context, plan Plan[extRec]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, plan)
	if m.applyErr != nil {
		return m.applyErr
	}
	for _, x := range plan.Inserts {
		if _, ok := m.rows[x.key]; ok {
			continue
		}
		m.rows[x.key] = locRec{key: x.key, scope: x.scope, source: models.RecordSourceSAP, version: 1}
	}
	for _, x := range plan.Upserts {
		prev := m.rows[x.key]
		m.rows[x.key] = locRec{key: x.key, scope: x.scope, source: models.RecordSourceSAP, version: prev.version + 1}
	}
	m.watermarks[plan.Watermark.Code] = plan.Watermark.At
	return nil
}

func (m *memStore) GetWatermark(ctx context.Context, code string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watermarkErr != nil {
		return time.Time{}, m.watermarkErr
	}
	if t, ok := m.watermarks[code]; ok {
		return t, nil
	}
	return models.DefaultWatermark, nil
}

type fakeLocker struct {
	held map[string]bool
}

func (l *fakeLocker) Obtain(ctx context.Context, key string) (func(), error) {
	if l.held[key] {
		return nil, ErrSyncInProgress
	}
	l.held[key] = true
	return func() { delete(l.held, key) }, nil
}

type fakeRuns struct {
	runs []models.SyncRun
}

func (r *fakeRuns) RecordRun(ctx context.Context, run *models.SyncRun) error {
	r.runs = append(r.runs, *run)
	return nil
}

// fakeQuerier returns canned raw rows for a query id.
type fakeQuerier struct {
	rows    map[string][]map[string]any
	err     error
	filters []string
}

func (q *fakeQuerier) Query(ctx context.Context, queryID string, filter string) ([]json.RawMessage, error) {
	q.filters = append(q.filters, filter)
	if q.err != nil {
		return nil, q.err
	}
	var out []json.RawMessage
	for _, row := range q.rows[queryID] {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time { return c.t }

var errUpstream = errors.New("sap unreachable")

func day(s string) time.Time {
	return parseSAPDate(s)
}

func configForTest() config.SAPConfig {
	return config.SAPConfig{
		BaseURL:                "http://sap.invalid/b1s/v1",
		BusinessPartnerQueryID: "BPMaster",
		ContactQueryID:         "ContactMaster",
		PhoneRegion:            "US",
	}
}
