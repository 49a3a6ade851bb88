package utils

import (
	"context"

	"gorm.io/gorm"
)

// ExistingValues returns the subset of values already stored in column of
// model T, in a single "column IN ?" query. Blank values are ignored.
func ExistingValues[T any](ctx context.Context, db *gorm.DB, column string, values []string) (map[string]bool, error) {
	found := make(map[string]bool)

	unq := make([]string, 0, len(values))
	for _, v := range UniqueSlice(values) {
		if v != "" {
			unq = append(unq, v)
		}
	}
	if len(unq) <= 0 {
		return found, nil
	}

	var model T
	var existing []string
	if err := db.WithContext(ctx).Model(&model).
		Where(column+" IN ?", unq).
		Pluck(column, &existing).Error; err != nil {
		return nil, err
	}
	for _, v := range existing {
		found[v] = true
	}
	return found, nil
}
