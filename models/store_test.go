package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/portal_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
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
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGetWatermarkDefaultsWhenMissing(t *testing.T) {
	db := openTestDB(t)
	wm, err := GetWatermark(context.Background(), db, "bp-master-c")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if !wm.LastSyncAt.Equal(DefaultWatermark) || wm.Code != "bp-master-c" {
		t.Fatalf("unexpected default %+v", wm)
	}
}

func TestAdvanceWatermarkKeepsOneRowPerCode(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	first := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	if err := AdvanceWatermark(ctx, db, "contact-C001", "alice", "first", first); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if err := AdvanceWatermark(ctx, db, "contact-C001", "bob", "second", second); err != nil {
		t.Fatalf("second advance: %v", err)
	}

	var count int64
	db.Model(&SyncWatermark{}).Where("code = ?", "contact-C001").Count(&count)
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
	wm, err := GetWatermark(ctx, db, "contact-C001")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if !wm.LastSyncAt.Equal(second) || wm.UpdatedBy != "bob" || wm.Description != "second" {
		t.Fatalf("unexpected watermark %+v", wm)
	}
}

func TestAdvanceWatermarkRollsBackWithTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := AdvanceWatermark(ctx, tx, "bp-master-s", "alice", "", time.Now()); err != nil {
			return err
		}
		return fmt.Errorf("write failed")
	})
	if err == nil {
		t.Fatalf("expected transaction error")
	}
	wm, _ := GetWatermark(ctx, db, "bp-master-s")
	if !wm.LastSyncAt.Equal(DefaultWatermark) {
		t.Fatalf("watermark should not advance, got %s", wm.LastSyncAt)
	}
}

func TestBulkInsertSkipsDuplicates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rows := []BusinessPartner{
		{CardCode: "C001", CardName: "Acme", CardType: CardTypeCustomer, Source: RecordSourceSAP, SyncStatus: SyncStatusSynced},
		{CardCode: "C002", CardName: "Globex", CardType: CardTypeCustomer, Source: RecordSourceSAP, SyncStatus: SyncStatusSynced},
	}
	if err := BulkInsert(ctx, db, rows); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	again := []BusinessPartner{
		{CardCode: "C002", CardName: "Globex again", CardType: CardTypeCustomer, Source: RecordSourceSAP, SyncStatus: SyncStatusSynced},
		{CardCode: "C003", CardName: "Hooli", CardType: CardTypeCustomer, Source: RecordSourceSAP, SyncStatus: SyncStatusSynced},
	}
	if err := BulkInsert(ctx, db, again); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	found, err := NewStore[BusinessPartner](db, "card_type").FindByScope(ctx, string(CardTypeCustomer))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(found))
	}
	for _, bp := range found {
		if bp.CardCode == "C002" && bp.CardName != "Globex" {
			t.Fatalf("duplicate overwrote existing row: %+v", bp)
		}
	}
}

func TestUpsertAppliesUpdatesOnConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	orig := Contact{ContactCode: "7", CardCode: "C001", Name: "Jane", Source: RecordSourcePortal, SyncStatus: SyncStatusPending, CreatedBy: "alice"}
	if err := db.Create(&orig).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	incoming := Contact{ContactCode: "7", CardCode: "C001", Name: "Jane Doe", Source: RecordSourceSAP, SyncStatus: SyncStatusSynced, CreatedBy: "bob"}
	updates := map[string]interface{}{"name": "Jane Doe", "source": RecordSourceSAP, "sync_status": SyncStatusSynced, "updated_by": "bob"}
	if err := Upsert(ctx, db, "contact_code", &incoming, updates); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var got Contact
	if err := db.Where("contact_code = ?", "7").Take(&got).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "Jane Doe" || got.Source != RecordSourceSAP || got.CreatedBy != "alice" || got.UpdatedBy != "bob" {
		t.Fatalf("unexpected row %+v", got)
	}
}

func TestFindByScopeExcludesSoftDeleted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for _, code := range []string{"1", "2"} {
		c := Contact{ContactCode: code, CardCode: "C001", Source: RecordSourcePortal, SyncStatus: SyncStatusPending}
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := db.Model(&Contact{}).Where("contact_code = ?", "2").Update("deleted_by", "alice").Error; err != nil {
		t.Fatalf("mark deleted_by: %v", err)
	}
	if err := db.Where("contact_code = ?", "2").Delete(&Contact{}).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	found, err := NewStore[Contact](db, "card_code").FindByScope(ctx, "C001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].ContactCode != "1" {
		t.Fatalf("expected only live contact, got %+v", found)
	}
	var total int64
	db.Unscoped().Model(&Contact{}).Count(&total)
	if total != 2 {
		t.Fatalf("soft-deleted row must remain, got %d rows", total)
	}
}

func TestLineItemsStoredAsJSON(t *testing.T) {
	db := openTestDB(t)
	qty := decimal.RequireFromString("12.5")
	offer := SupplierOffer{
		FileName:     "offer-001.xlsx",
		SupplierCode: "S001",
		OfferDate:    time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
		LineItems:    datatypes.JSONSlice[LineItem]{{PartNumber: "LM317", QtyOnHand: &qty}, {PartNumber: "NE555"}},
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got SupplierOffer
	if err := db.Take(&got, offer.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.LineItems) != 2 || got.LineItems[0].QtyOnHand == nil || !got.LineItems[0].QtyOnHand.Equal(qty) {
		t.Fatalf("unexpected line items %+v", got.LineItems)
	}
	if got.LineItems[1].UnitPrice != nil {
		t.Fatalf("absent price should stay nil")
	}
}

func TestListSyncRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for _, scope := range []string{"C", "S", "L"} {
		if err := CreateSyncRun(ctx, db, &SyncRun{Entity: "business-partner", Scope: scope, Status: SyncRunStatusSuccess}); err != nil {
			t.Fatalf("create run: %v", err)
		}
	}
	if err := CreateSyncRun(ctx, db, &SyncRun{Entity: "contact", Scope: "C001", Status: SyncRunStatusFailed}); err != nil {
		t.Fatalf("create run: %v", err)
	}
	runs, err := ListSyncRuns(ctx, db, "business-partner", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].Scope != "L" || runs[1].Scope != "S" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestGetSyncRunNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	run := SyncRun{Entity: "contact", Scope: "C001", Status: SyncRunStatusSuccess}
	if err := CreateSyncRun(ctx, db, &run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	got, err := GetSyncRun(ctx, db, run.ID)
	if err != nil || got.Scope != "C001" {
		t.Fatalf("unexpected run %+v err=%v", got, err)
	}
	if _, err := GetSyncRun(ctx, db, run.ID+100); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
