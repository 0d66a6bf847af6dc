// Package dataset loads Aadhaar enrolment CSV extracts into a single
// in-memory table, caches it for the process lifetime, and narrows it
// to a selected geographic scope.
package dataset

import (
	"errors"
	"time"
)

// Canonical age-bucket column names. Only columns with these exact names
// enter aggregation totals; historically named variants (bio_age_5_17,
// demo_age_17_, ...) are display artifacts and never summed.
var CanonicalAgeColumns = []string{"age_0_5", "age_5_17", "age_18_greater"}

// Dataset errors
var (
	ErrNoDataFound        = errors.New("no enrolment data found")
	ErrSelectionRequired  = errors.New("selection required for this analysis level")
	ErrNoOptionsAvailable = errors.New("no options available for this selection")
	ErrEmptySelection     = errors.New("no data for the selected filters")
)

// Record is one row of the unified enrolment table.
type Record struct {
	Date     time.Time
	Month    string // year-month of Date, "2006-01" layout
	State    string
	District string
	Pincode  string
	Ages     map[string]int64 // keyed by canonical age column, absent means zero
}

// Age returns the count for the given age column, zero when absent.
func (r Record) Age(column string) int64 {
	return r.Ages[column]
}

// Table is the unified dataset: all source files concatenated, invalid
// dates dropped. Tables are treated as immutable once built; Select
// derives new tables instead of mutating.
type Table struct {
	Rows []Record

	// AgeColumns is the intersection of CanonicalAgeColumns with the
	// columns seen in the source files, in canonical order.
	AgeColumns []string

	// HasPincode reports whether any source file carried a pincode column.
	HasPincode bool
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// derive creates a new table sharing column metadata with t.
func (t *Table) derive(rows []Record) *Table {
	return &Table{
		Rows:       rows,
		AgeColumns: t.AgeColumns,
		HasPincode: t.HasPincode,
	}
}
