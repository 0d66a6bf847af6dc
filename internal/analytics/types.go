// Package analytics computes the dashboard's aggregate views from a
// filtered enrolment table. Results are plain ordered row sets ready to
// hand to a chart or table renderer.
package analytics

import (
	"errors"
	"time"
)

// ErrMissingColumns is returned when the table carries none of the
// canonical age columns. No view can be computed without them.
var ErrMissingColumns = errors.New("required age columns not found in dataset")

// MonthlyTotalRow is one bar of the monthly registrations chart.
type MonthlyTotalRow struct {
	Month         string `json:"month"`
	Registrations int64  `json:"registrations"`
}

// MonthlyAgeRow is one month/age-group pair of the monthly breakdown chart.
type MonthlyAgeRow struct {
	Month         string `json:"month"`
	AgeGroup      string `json:"age_group"`
	Registrations int64  `json:"registrations"`
}

// TerritoryRow is one bar of the sub-territory ranking chart.
type TerritoryRow struct {
	Territory     string `json:"territory"`
	Registrations int64  `json:"registrations"`
}

// TerritoryAgeRow is one territory/age-group pair of the ranking breakdown.
type TerritoryAgeRow struct {
	Territory     string `json:"territory"`
	AgeGroup      string `json:"age_group"`
	Registrations int64  `json:"registrations"`
}

// CumulativeRow is one point of the cumulative growth line.
type CumulativeRow struct {
	Date       time.Time `json:"date"`
	Cumulative int64     `json:"cumulative_registrations"`
}

// ShareRow is one point of the percentage-share trend, 0-100.
type ShareRow struct {
	Month      string  `json:"month"`
	AgeGroup   string  `json:"age_group"`
	Percentage float64 `json:"percentage"`
}

// PincodeRow is one row of the district-level pincode table. Total is
// pre-rendered with digit grouping for direct display.
type PincodeRow struct {
	Pincode            string `json:"pincode"`
	TotalRegistrations int64  `json:"total_registrations"`
	Formatted          string `json:"formatted"`
}
