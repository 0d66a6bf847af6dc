package analytics

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"enrolcli/internal/dataset"
	"enrolcli/internal/format"
)

// Aggregator computes the reporting views over a filtered table.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator with the given logger.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		logger: logger.With(slog.String("component", "analytics.aggregator")),
	}
}

// ensureColumns guards every view: without at least one canonical age
// column nothing can be summed.
func ensureColumns(t *dataset.Table) error {
	if t == nil || len(t.AgeColumns) == 0 {
		return ErrMissingColumns
	}
	return nil
}

// rowTotal sums the available age columns of one record.
func rowTotal(r dataset.Record, columns []string) int64 {
	var total int64
	for _, col := range columns {
		total += r.Age(col)
	}
	return total
}

// MonthlyTotal groups registrations by month, ascending. Month strings
// sort lexicographically in chronological order.
func (a *Aggregator) MonthlyTotal(t *dataset.Table) ([]MonthlyTotalRow, error) {
	if err := ensureColumns(t); err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for _, r := range t.Rows {
		totals[r.Month] += rowTotal(r, t.AgeColumns)
	}

	rows := make([]MonthlyTotalRow, 0, len(totals))
	for month, total := range totals {
		rows = append(rows, MonthlyTotalRow{Month: month, Registrations: total})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })

	return rows, nil
}

// MonthlyByAge groups registrations by month and age group, month
// ascending with age groups in canonical column order.
func (a *Aggregator) MonthlyByAge(t *dataset.Table) ([]MonthlyAgeRow, error) {
	if err := ensureColumns(t); err != nil {
		return nil, err
	}

	totals := make(map[string]map[string]int64)
	for _, r := range t.Rows {
		byAge := totals[r.Month]
		if byAge == nil {
			byAge = make(map[string]int64, len(t.AgeColumns))
			totals[r.Month] = byAge
		}
		for _, col := range t.AgeColumns {
			byAge[col] += r.Age(col)
		}
	}

	months := sortedKeys(totals)
	rows := make([]MonthlyAgeRow, 0, len(months)*len(t.AgeColumns))
	for _, month := range months {
		for _, col := range t.AgeColumns {
			rows = append(rows, MonthlyAgeRow{
				Month:         month,
				AgeGroup:      format.AgeLabel(col),
				Registrations: totals[month][col],
			})
		}
	}

	return rows, nil
}

// subKey picks the grouping field one level below the analysis level.
func subKey(level dataset.Level) (func(dataset.Record) string, error) {
	switch level {
	case dataset.LevelNational:
		return func(r dataset.Record) string { return r.State }, nil
	case dataset.LevelState:
		return func(r dataset.Record) string { return r.District }, nil
	default:
		return nil, fmt.Errorf("no sub-territory view for level %q", level)
	}
}

// SubTerritoryTotal ranks sub-territories by total registrations,
// descending. The sub-territory is the state under National and the
// district under State; District level uses PincodeTable instead.
func (a *Aggregator) SubTerritoryTotal(t *dataset.Table, level dataset.Level) ([]TerritoryRow, error) {
	if err := ensureColumns(t); err != nil {
		return nil, err
	}
	key, err := subKey(level)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for _, r := range t.Rows {
		totals[key(r)] += rowTotal(r, t.AgeColumns)
	}

	rows := make([]TerritoryRow, 0, len(totals))
	for territory, total := range totals {
		rows = append(rows, TerritoryRow{Territory: territory, Registrations: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Registrations != rows[j].Registrations {
			return rows[i].Registrations > rows[j].Registrations
		}
		return rows[i].Territory < rows[j].Territory
	})

	return rows, nil
}

// SubTerritoryByAge breaks the sub-territory ranking down by age group.
// Territories keep the ordering of SubTerritoryTotal.
func (a *Aggregator) SubTerritoryByAge(t *dataset.Table, level dataset.Level) ([]TerritoryAgeRow, error) {
	ranking, err := a.SubTerritoryTotal(t, level)
	if err != nil {
		return nil, err
	}
	key, err := subKey(level)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]map[string]int64)
	for _, r := range t.Rows {
		territory := key(r)
		byAge := totals[territory]
		if byAge == nil {
			byAge = make(map[string]int64, len(t.AgeColumns))
			totals[territory] = byAge
		}
		for _, col := range t.AgeColumns {
			byAge[col] += r.Age(col)
		}
	}

	rows := make([]TerritoryAgeRow, 0, len(ranking)*len(t.AgeColumns))
	for _, rank := range ranking {
		for _, col := range t.AgeColumns {
			rows = append(rows, TerritoryAgeRow{
				Territory:     rank.Territory,
				AgeGroup:      format.AgeLabel(col),
				Registrations: totals[rank.Territory][col],
			})
		}
	}

	return rows, nil
}

// CumulativeDaily sums registrations per exact date, sorts ascending and
// accumulates. Sorting before the running sum is what keeps the series
// monotonic.
func (a *Aggregator) CumulativeDaily(t *dataset.Table) ([]CumulativeRow, error) {
	if err := ensureColumns(t); err != nil {
		return nil, err
	}

	daily := make(map[time.Time]int64)
	for _, r := range t.Rows {
		daily[r.Date] += rowTotal(r, t.AgeColumns)
	}

	dates := make([]time.Time, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([]CumulativeRow, 0, len(dates))
	var running int64
	for _, d := range dates {
		running += daily[d]
		rows = append(rows, CumulativeRow{
			Date:       d,
			Cumulative: running,
		})
	}

	return rows, nil
}

// MonthlyShare computes each age group's percentage of its month's
// total, month ascending. A zero-total month yields zero shares rather
// than dividing by zero.
func (a *Aggregator) MonthlyShare(t *dataset.Table) ([]ShareRow, error) {
	if err := ensureColumns(t); err != nil {
		return nil, err
	}

	totals := make(map[string]map[string]int64)
	for _, r := range t.Rows {
		byAge := totals[r.Month]
		if byAge == nil {
			byAge = make(map[string]int64, len(t.AgeColumns))
			totals[r.Month] = byAge
		}
		for _, col := range t.AgeColumns {
			byAge[col] += r.Age(col)
		}
	}

	months := sortedKeys(totals)
	rows := make([]ShareRow, 0, len(months)*len(t.AgeColumns))
	for _, month := range months {
		var monthTotal int64
		for _, col := range t.AgeColumns {
			monthTotal += totals[month][col]
		}

		for _, col := range t.AgeColumns {
			var pct float64
			if monthTotal > 0 {
				pct = float64(totals[month][col]) / float64(monthTotal) * 100
			}
			rows = append(rows, ShareRow{
				Month:      month,
				AgeGroup:   format.AgeLabel(col),
				Percentage: pct,
			})
		}
	}

	return rows, nil
}

// GrandTotal is the headline figure: the sum over all rows halved, since
// each physical enrolment appears in both the biometric and demographic
// feeds. The correction applies to this figure only, never to the views.
func (a *Aggregator) GrandTotal(t *dataset.Table) (int64, error) {
	if err := ensureColumns(t); err != nil {
		return 0, err
	}

	var total int64
	for _, r := range t.Rows {
		total += rowTotal(r, t.AgeColumns)
	}

	return total / 2, nil
}

// PincodeTable ranks pincodes by total registrations, descending, with
// totals pre-rendered through digit grouping. Older extracts have no
// pincode column; that case returns an empty table, not an error.
func (a *Aggregator) PincodeTable(t *dataset.Table) ([]PincodeRow, error) {
	if err := ensureColumns(t); err != nil {
		return nil, err
	}
	if !t.HasPincode {
		a.logger.Warn("pincode column not available in dataset, skipping pincode table")
		return nil, nil
	}

	totals := make(map[string]int64)
	for _, r := range t.Rows {
		totals[r.Pincode] += rowTotal(r, t.AgeColumns)
	}

	rows := make([]PincodeRow, 0, len(totals))
	for pincode, total := range totals {
		rows = append(rows, PincodeRow{
			Pincode:            pincode,
			TotalRegistrations: total,
			Formatted:          format.GroupDigits(total),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalRegistrations != rows[j].TotalRegistrations {
			return rows[i].TotalRegistrations > rows[j].TotalRegistrations
		}
		return rows[i].Pincode < rows[j].Pincode
	})

	return rows, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
