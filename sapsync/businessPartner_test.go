package sapsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/portal_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSyncBusinessPartnersAgainstDatabase(t *testing.T) {
	db := openTestDB(t)
	q := &fakeQuerier{rows: map[string][]map[string]any{
		"BPMaster": {
			{"CardCode": "C001", "CardName": "Acme", "CardType": "C", "CreateDate": "20240101", "UpdateDate": "20240101"},
			{"CardCode": "C002", "CardName": "Globex", "CardType": "C", "CreateDate": "20240102", "UpdateDate": "20240102"},
			{"CardCode": "S001", "CardName": "Initech", "CardType": "S", "CreateDate": "20240102", "UpdateDate": "20240102"},
		},
	}}
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	d := Deps{
		DB:     db,
		Client: q,
		SAP:    configForTest(),
		Logger: quietLogger(),
		Now:    clk.Now,
	}
	ctx := context.Background()

	res, err := SyncBusinessPartners(ctx, d, "c", "alice")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if res.Branch != models.SyncBranchBootstrap || res.Inserted != 2 {
		t.Fatalf("unexpected bootstrap result %+v", res)
	}
	if q.filters[0] != "CardType='C'" {
		t.Fatalf("unexpected filter %q", q.filters[0])
	}

	// A portal user edits C001; SAP later changes it too.
	if err := db.Model(&models.BusinessPartner{}).Where("card_code = ?", "C001").
		Updates(map[string]interface{}{"card_name": "Acme (portal)", "source": models.RecordSourcePortal, "sync_status": models.SyncStatusPending}).Error; err != nil {
		t.Fatalf("portal edit: %v", err)
	}
	q.rows["BPMaster"][0]["CardName"] = "Acme Corp"
	q.rows["BPMaster"][0]["UpdateDate"] = "20240502"
	q.rows["BPMaster"] = append(q.rows["BPMaster"], map[string]any{"CardCode": "C003", "CardName": "Hooli", "CardType": "C", "CreateDate": "20240503"})
	clk.t = time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

	res, err = SyncBusinessPartners(ctx, d, "C", "bob")
	if err != nil {
		t.Fatalf("incremental: %v", err)
	}
	if res.Branch != models.SyncBranchIncremental || res.Upserted != 2 {
		t.Fatalf("unexpected incremental result %+v", res)
	}

	var acme models.BusinessPartner
	if err := db.Where("card_code = ?", "C001").Take(&acme).Error; err != nil {
		t.Fatalf("load C001: %v", err)
	}
	if acme.CardName != "Acme Corp" || acme.Source != models.RecordSourceSAP || acme.SyncStatus != models.SyncStatusSynced {
		t.Fatalf("SAP data should win, got %+v", acme)
	}
	if acme.CreatedBy != "alice" || acme.UpdatedBy != "bob" {
		t.Fatalf("audit fields: created_by=%q updated_by=%q", acme.CreatedBy, acme.UpdatedBy)
	}

	var count int64
	db.Model(&models.BusinessPartner{}).Where("card_type = ?", "C").Count(&count)
	if count != 3 {
		t.Fatalf("expected 3 customers, got %d", count)
	}

	wm, err := models.GetWatermark(ctx, db, BusinessPartnerWatermarkCode("C"))
	if err != nil {
		t.Fatalf("watermark: %v", err)
	}
	if !wm.LastSyncAt.Equal(clk.t) || wm.UpdatedBy != "bob" {
		t.Fatalf("unexpected watermark %+v", wm)
	}

	runs, err := models.ListSyncRuns(ctx, db, EntityBusinessPartner, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].Branch != models.SyncBranchIncremental {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestSyncBusinessPartnersRejectsUnknownType(t *testing.T) {
	_, err := SyncBusinessPartners(context.Background(), Deps{}, "X", "alice")
	if !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestSyncContactsAgainstDatabase(t *testing.T) {
	db := openTestDB(t)
	q := &fakeQuerier{rows: map[string][]map[string]any{
		"ContactMaster": {
			{"CntctCode": 1, "CardCode": "C001", "Name": "Jane", "Tel1": "650-253-0000", "CreateDate": "20240101"},
			{"CntctCode": 2, "CardCode": "C001", "Name": "John"},
			{"CntctCode": 3, "CardCode": "C999", "Name": "Stray"},
		},
	}}
	d := Deps{DB: db, Client: q, SAP: configForTest(), Logger: quietLogger(), Now: (&clock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}).Now}

	res, err := SyncContacts(context.Background(), d, " C001 ", "alice")
	if err != nil {
		t.Fatalf("sync contacts: %v", err)
	}
	if res.Inserted != 2 {
		t.Fatalf("expected 2 inserted, got %+v", res)
	}
	var jane models.Contact
	if err := db.Where("contact_code = ?", "1").Take(&jane).Error; err != nil {
		t.Fatalf("load contact: %v", err)
	}
	if jane.Phone != "+16502530000" || jane.Source != models.RecordSourceSAP {
		t.Fatalf("unexpected contact %+v", jane)
	}
	if _, err := models.GetWatermark(context.Background(), db, "contact-C001"); err != nil {
		t.Fatalf("watermark: %v", err)
	}
}

func TestSyncContactsNormalizesCardCode(t *testing.T) {
	db := openTestDB(t)
	q := &fakeQuerier{rows: map[string][]map[string]any{
		"ContactMaster": {{"CntctCode": 7, "CardCode": "C001", "Name": "Jane"}},
	}}
	d := Deps{DB: db, Client: q, SAP: configForTest(), Logger: quietLogger(), Now: (&clock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}).Now}

	res, err := SyncContacts(context.Background(), d, "c001", "alice")
	if err != nil {
		t.Fatalf("sync contacts: %v", err)
	}
	if res.Scope != "C001" || res.InScope != 1 || res.Inserted != 1 {
		t.Fatalf("lowercase card code must match, got %+v", res)
	}
	if wm, err := models.GetWatermark(context.Background(), db, "contact-C001"); err != nil || wm.ID == 0 {
		t.Fatalf("expected a stored watermark, got %+v err=%v", wm, err)
	}
	if wm, _ := models.GetWatermark(context.Background(), db, "contact-c001"); wm.ID != 0 {
		t.Fatalf("expected no watermark under the lowercase code, got %+v", wm)
	}
}
