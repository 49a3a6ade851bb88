package importer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/portal_backend/models"
	"github.com/mmdatafocus/portal_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// rowHeader holds the list-level columns checked for presence.
type rowHeader struct {
	FileName  string `validate:"required" col:"File Name"`
	PartyCode string `validate:"required"`
	Date      string `validate:"required"`
}

// parsedRow is a row that passed every check.
type parsedRow struct {
	row       BatchImportRow
	header    rowHeader
	date      time.Time
	notes     string
	lineItems []models.LineItem
}

func newValidator(kind Kind) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		switch f.Name {
		case "PartyCode":
			return kind.PartyColumn()
		case "Date":
			return kind.DateColumn()
		default:
			return f.Tag.Get("col")
		}
	})
	return v
}

// batchLookups are the bulk existence checks shared by every row of a batch.
type batchLookups struct {
	partners  map[string]bool
	fileNames map[string]bool
}

func (im *Importer) lookup(ctx context.Context, rows []BatchImportRow) (batchLookups, error) {
	codes := make([]string, 0, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.String(im.kind.PartyColumn()))
		names = append(names, r.String(ColumnFileName))
	}

	partners, err := utils.ExistingValues[models.BusinessPartner](ctx, im.db, "card_code", codes)
	if err != nil {
		return batchLookups{}, fmt.Errorf("lookup partners: %w", err)
	}

	// soft-deleted lists still own their file name
	var fileNames map[string]bool
	switch im.kind {
	case KindSupplierOffer:
		fileNames, err = utils.ExistingValues[models.SupplierOffer](ctx, im.db.Unscoped(), "file_name", names)
	default:
		fileNames, err = utils.ExistingValues[models.CustomerExcess](ctx, im.db.Unscoped(), "file_name", names)
	}
	if err != nil {
		return batchLookups{}, fmt.Errorf("lookup file names: %w", err)
	}
	return batchLookups{partners: partners, fileNames: fileNames}, nil
}

// validateRows splits a batch into accepted and rejected rows. A file name
// repeated within the batch is accepted once; later copies are rejected.
func (im *Importer) validateRows(rows []BatchImportRow, lk batchLookups) ([]parsedRow, []RowError) {
	var accepted []parsedRow
	var rejected []RowError
	seen := make(map[string]int)

	for _, row := range rows {
		parsed, entries := im.validateRow(row, lk)
		if name := parsed.header.FileName; name != "" {
			if first, dup := seen[name]; dup {
				entries = append(entries, fmt.Sprintf("%s %q is repeated in this batch (first at row %d)", ColumnFileName, name, first))
			}
		}
		if len(entries) > 0 {
			rejected = append(rejected, RowError{RowNumber: row.RowNumber, Entries: entries, Row: row})
			continue
		}
		seen[parsed.header.FileName] = row.RowNumber
		accepted = append(accepted, parsed)
	}
	return accepted, rejected
}

func (im *Importer) validateRow(row BatchImportRow, lk batchLookups) (parsedRow, []string) {
	var entries []string
	parsed := parsedRow{
		row: row,
		header: rowHeader{
			FileName:  row.String(ColumnFileName),
			PartyCode: row.String(im.kind.PartyColumn()),
			Date:      row.String(im.kind.DateColumn()),
		},
		notes:     row.String(ColumnNotes),
		lineItems: []models.LineItem{},
	}

	if err := im.validate.Struct(parsed.header); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				entries = append(entries, fmt.Sprintf("%s is required", fe.Field()))
			}
		} else {
			entries = append(entries, err.Error())
		}
	}

	if !lk.partners[parsed.header.PartyCode] {
		entries = append(entries, fmt.Sprintf("%s %q does not exist", im.kind.PartyColumn(), parsed.header.PartyCode))
	}

	if name := parsed.header.FileName; name != "" && lk.fileNames[name] {
		entries = append(entries, fmt.Sprintf("%s %q already exists", ColumnFileName, name))
	}

	if parsed.header.Date != "" {
		d, err := time.ParseInLocation(DateLayout, parsed.header.Date, time.UTC)
		if err != nil {
			entries = append(entries, fmt.Sprintf("%s %q is not a valid date (MM-DD-YYYY)", im.kind.DateColumn(), parsed.header.Date))
		} else {
			parsed.date = d
		}
	}

	items, ok := row.lineItems()
	if !ok {
		entries = append(entries, fmt.Sprintf("%s must be a list", ColumnLineItems))
	}
	for i, raw := range items {
		item, itemEntries := parseLineItem(i+1, raw)
		entries = append(entries, itemEntries...)
		parsed.lineItems = append(parsed.lineItems, item)
	}

	return parsed, entries
}

func parseLineItem(n int, raw any) (models.LineItem, []string) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return models.LineItem{}, []string{fmt.Sprintf("Line item %d is not an object", n)}
	}
	item := models.LineItem{
		PartNumber:   fieldString(fields[ColumnPartNumber]),
		Manufacturer: fieldString(fields[ColumnManufacturer]),
		Description:  fieldString(fields[ColumnDescription]),
		DateCode:     fieldString(fields[ColumnDateCode]),
	}

	var entries []string
	numbers := make(map[string]*decimal.Decimal, len(numericLineItemColumns))
	for _, col := range numericLineItemColumns {
		text := fieldString(fields[col])
		if text == "" {
			continue
		}
		d, err := utils.ParseDecimal(text)
		if err != nil {
			entries = append(entries, fmt.Sprintf("Line item %d: %s %q is not a valid number", n, col, text))
			continue
		}
		numbers[col] = &d
	}
	item.QtyOnHand = numbers[ColumnQtyOnHand]
	item.QtyOrdered = numbers[ColumnQtyOrdered]
	item.UnitPrice = numbers[ColumnUnitPrice]
	return item, entries
}

// insert reshapes accepted rows into list models and inserts them,
// skipping file names that already exist.
func (im *Importer) insert(ctx context.Context, tx *gorm.DB, rows []parsedRow, actor string) error {
	switch im.kind {
	case KindSupplierOffer:
		offers := make([]models.SupplierOffer, 0, len(rows))
		for _, r := range rows {
			offers = append(offers, models.SupplierOffer{
				FileName:     r.header.FileName,
				SupplierCode: r.header.PartyCode,
				OfferDate:    r.date,
				Notes:        r.notes,
				LineItems:    r.lineItems,
				CreatedBy:    actor,
				UpdatedBy:    actor,
			})
		}
		return models.BulkInsert(ctx, tx, offers)
	default:
		lists := make([]models.CustomerExcess, 0, len(rows))
		for _, r := range rows {
			lists = append(lists, models.CustomerExcess{
				FileName:     r.header.FileName,
				CustomerCode: r.header.PartyCode,
				ListDate:     r.date,
				Notes:        r.notes,
				LineItems:    r.lineItems,
				CreatedBy:    actor,
				UpdatedBy:    actor,
			})
		}
		return models.BulkInsert(ctx, tx, lists)
	}
}
