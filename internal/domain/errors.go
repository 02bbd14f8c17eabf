// Package domain defines the activity types and error taxonomy shared by the dashboard.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset is returned when an aggregation is invoked on zero rows.
	ErrEmptyDataset = errors.New("dataset contains no activities")
	// ErrMissingColumn is matched by every MissingColumnError.
	ErrMissingColumn = errors.New("missing column")
	// ErrDuplicateActivity indicates two records share an activity_id.
	ErrDuplicateActivity = errors.New("duplicate activity id")
	// ErrSourceUnavailable means the activity store is failing and loads are being shed.
	ErrSourceUnavailable = errors.New("activity source unavailable")
)

// MissingColumnError names the column or grouping key absent from the input.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

// Is lets errors.Is(err, ErrMissingColumn) match.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}
