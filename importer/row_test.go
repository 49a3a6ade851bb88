package importer

import (
	"encoding/json"
	"testing"
)

func TestBatchImportRowFlatJSON(t *testing.T) {
	var row BatchImportRow
	if err := json.Unmarshal([]byte(`{"rowNumber":12,"File Name":" spaced.xlsx ","Qty":10.50,"Line Items":[{"Part Number":"A"}]}`), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row.RowNumber != 12 {
		t.Fatalf("expected row 12, got %d", row.RowNumber)
	}
	if _, ok := row.Fields[rowNumberKey]; ok {
		t.Fatalf("rowNumber must not remain a field")
	}
	if row.String(ColumnFileName) != "spaced.xlsx" || row.String("Qty") != "10.50" {
		t.Fatalf("unexpected fields %v", row.Fields)
	}
	if items, ok := row.lineItems(); !ok || len(items) != 1 {
		t.Fatalf("unexpected line items %v", items)
	}

	out, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(out, &flat); err != nil {
		t.Fatalf("decode flat: %v", err)
	}
	if flat["rowNumber"] != float64(12) || flat[ColumnFileName] != " spaced.xlsx " {
		t.Fatalf("unexpected wire form %v", flat)
	}
}

func TestLineItemsMustBeAList(t *testing.T) {
	row := BatchImportRow{RowNumber: 1, Fields: map[string]any{ColumnLineItems: "LM317"}}
	if _, ok := row.lineItems(); ok {
		t.Fatalf("a scalar is not a list")
	}
}

func TestNextStats(t *testing.T) {
	s := nextStats(ImportStats{}, nil, 0, 0, false)
	if s.Progress != 100 || s.Status != StatusCompleted {
		t.Fatalf("empty import should be complete, got %+v", s)
	}
	s = nextStats(ImportStats{Completed: 9}, nil, 3, 10, false)
	if s.Progress != 100 || s.Completed != 12 {
		t.Fatalf("progress should clamp at 100, got %+v", s)
	}
	if s.Error == nil {
		t.Fatalf("error list should be empty, not nil")
	}
}
