package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Level is the geographic analysis level.
type Level string

const (
	LevelNational Level = "national"
	LevelState    Level = "state"
	LevelDistrict Level = "district"
)

// ParseLevel parses a level value case-insensitively.
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "national":
		return LevelNational, nil
	case "state":
		return LevelState, nil
	case "district":
		return LevelDistrict, nil
	default:
		return "", fmt.Errorf("invalid analysis level: %q", value)
	}
}

// Select narrows the table to the requested geographic scope. National
// returns the table unchanged. The table is never mutated; State and
// District selections derive a new table. All levels report an empty
// result as ErrEmptySelection.
func Select(t *Table, level Level, state, district string) (*Table, error) {
	switch level {
	case LevelNational:
		if len(t.Rows) == 0 {
			return nil, fmt.Errorf("%w: no rows in dataset", ErrEmptySelection)
		}
		return t, nil

	case LevelState:
		if state == "" {
			return nil, fmt.Errorf("%w: state", ErrSelectionRequired)
		}
		rows := filterRows(t.Rows, func(r Record) bool {
			return r.State == state
		})
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: state=%s", ErrEmptySelection, state)
		}
		return t.derive(rows), nil

	case LevelDistrict:
		if state == "" {
			return nil, fmt.Errorf("%w: state", ErrSelectionRequired)
		}
		if district == "" {
			return nil, fmt.Errorf("%w: district", ErrSelectionRequired)
		}
		rows := filterRows(t.Rows, func(r Record) bool {
			return r.State == state && r.District == district
		})
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: state=%s district=%s", ErrEmptySelection, state, district)
		}
		return t.derive(rows), nil

	default:
		return nil, fmt.Errorf("invalid analysis level: %q", level)
	}
}

// States returns the sorted distinct non-empty state values.
func States(t *Table) ([]string, error) {
	values := distinct(t.Rows, func(r Record) string { return r.State })
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no state values in dataset", ErrNoOptionsAvailable)
	}
	return values, nil
}

// Districts returns the sorted distinct non-empty district values for a state.
func Districts(t *Table, state string) ([]string, error) {
	values := distinct(t.Rows, func(r Record) string {
		if r.State != state {
			return ""
		}
		return r.District
	})
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no districts for state %s", ErrNoOptionsAvailable, state)
	}
	return values, nil
}

func filterRows(rows []Record, keep func(Record) bool) []Record {
	var out []Record
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func distinct(rows []Record, key func(Record) string) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		if v := key(r); v != "" {
			seen[v] = true
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
