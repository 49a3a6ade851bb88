package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const errorSheet = "Errors"

// ReadWorkbook reads the first sheet of an uploaded workbook. Each sheet row
// carries one line item; rows sharing a File Name form one list, whose
// header columns come from its first row. RowNumber is that first sheet row.
func ReadWorkbook(r io.Reader, kind Kind) ([]BatchImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("sheet is empty")
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	if _, ok := index[ColumnFileName]; !ok {
		return nil, fmt.Errorf("missing %q column", ColumnFileName)
	}
	cell := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []BatchImportRow
	byFile := make(map[string]int)
	for n, row := range rows[1:] {
		sheetRow := n + 2
		if isBlankRow(row) {
			continue
		}

		item := map[string]any{}
		for _, col := range lineItemColumns {
			if v := cell(row, col); v != "" {
				item[col] = v
			}
		}

		fileName := cell(row, ColumnFileName)
		if at, ok := byFile[fileName]; ok && fileName != "" {
			if len(item) > 0 {
				out[at].Fields[ColumnLineItems] = append(out[at].Fields[ColumnLineItems].([]any), item)
			}
			continue
		}

		fields := map[string]any{ColumnLineItems: []any{}}
		for _, col := range kind.headerColumns() {
			if v := cell(row, col); v != "" {
				fields[col] = v
			}
		}
		if len(item) > 0 {
			fields[ColumnLineItems] = []any{item}
		}
		out = append(out, BatchImportRow{RowNumber: sheetRow, Fields: fields})
		if fileName != "" {
			byFile[fileName] = len(out) - 1
		}
	}
	return out, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteErrorReport renders the rejected rows of stats as a workbook.
func WriteErrorReport(w io.Writer, kind Kind, stats ImportStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", errorSheet); err != nil {
		return err
	}

	headings := append([]string{"Row", "Errors"}, kind.headerColumns()...)
	headings = append(headings, "Line Items")
	if err := setRow(f, 1, toAny(headings)); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headings), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(errorSheet, "A1", last, style); err != nil {
		return err
	}

	for i, re := range stats.Error {
		values := []any{re.RowNumber, strings.Join(re.Entries, "; ")}
		for _, col := range kind.headerColumns() {
			values = append(values, re.Row.String(col))
		}
		items, _ := re.Row.lineItems()
		values = append(values, len(items))
		if err := setRow(f, i+2, values); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func setRow(f *excelize.File, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(errorSheet, cell, &values)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
