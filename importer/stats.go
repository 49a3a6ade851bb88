package importer

import "slices"

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

const (
	msgUnexpectedWrite  = "unexpected batch write error"
	msgUnexpectedLookup = "unexpected batch lookup error"
)

type RowError struct {
	RowNumber int            `json:"rowNumber"`
	Entries   []string       `json:"entries"`
	Row       BatchImportRow `json:"row"`
}

// ImportStats is threaded by the caller through successive batch calls.
// Functions in this package never modify a stats value they are given.
type ImportStats struct {
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Progress  float64    `json:"progress"`
	Status    string     `json:"status"`
	Error     []RowError `json:"error"`
}

func (s ImportStats) clone() ImportStats {
	out := s
	out.Error = slices.Clone(s.Error)
	if out.Error == nil {
		out.Error = []RowError{}
	}
	return out
}

func progressOf(completed, total int) float64 {
	if total <= 0 {
		return 100
	}
	p := float64(completed) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}

// nextStats records rejected rows and written rows of one successful batch.
func nextStats(prev ImportStats, rejected []RowError, written int, total int, isLast bool) ImportStats {
	out := prev.clone()
	out.Error = append(out.Error, rejected...)
	out.Total = total
	out.Completed = prev.Completed + written
	out.Progress = progressOf(out.Completed, total)
	out.Status = StatusProcessing
	if out.Progress >= 100 || isLast {
		out.Status = StatusCompleted
	}
	return out
}

// failedStats marks every row of the batch with message. completed is not
// advanced so the caller can resume from it.
func failedStats(prev ImportStats, rows []BatchImportRow, rejected []RowError, message string, total int) ImportStats {
	out := prev.clone()
	byRow := make(map[int][]string, len(rejected))
	for _, r := range rejected {
		byRow[r.RowNumber] = r.Entries
	}
	for _, row := range rows {
		entries := append(slices.Clone(byRow[row.RowNumber]), message)
		out.Error = append(out.Error, RowError{RowNumber: row.RowNumber, Entries: entries, Row: row})
	}
	out.Total = total
	out.Progress = progressOf(out.Completed, total)
	out.Status = StatusProcessing
	return out
}
