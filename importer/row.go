package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const rowNumberKey = "rowNumber"

// BatchImportRow is one list keyed by human readable column names. On the
// wire the fields and rowNumber share one flat JSON object.
type BatchImportRow struct {
	RowNumber int
	Fields    map[string]any
}

func (r BatchImportRow) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[rowNumberKey] = r.RowNumber
	return json.Marshal(flat)
}

func (r *BatchImportRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return err
	}
	r.Fields = flat
	r.RowNumber = 0
	if v, ok := flat[rowNumberKey]; ok {
		n, err := strconv.Atoi(fieldString(v))
		if err != nil {
			return fmt.Errorf("rowNumber: %w", err)
		}
		r.RowNumber = n
		delete(flat, rowNumberKey)
	}
	return nil
}

// String returns the trimmed text of column, or "" when it is absent.
func (r BatchImportRow) String(column string) string {
	return fieldString(r.Fields[column])
}

// fieldString renders a decoded JSON scalar as text.
func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// lineItems returns the raw line items of the row. ok is false when the
// column holds something other than a list.
func (r BatchImportRow) lineItems() (items []any, ok bool) {
	v, present := r.Fields[ColumnLineItems]
	if !present || v == nil {
		return nil, true
	}
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		items = make([]any, 0, len(t))
		for _, item := range t {
			items = append(items, item)
		}
		return items, true
	default:
		return nil, false
	}
}
