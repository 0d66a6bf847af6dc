package analytics

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolcli/internal/dataset"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(d string) time.Time {
	t, _ := time.Parse("2006-01-02", d)
	return t
}

func row(date, state, district, pincode string, a05, a517, a18 int64) dataset.Record {
	return dataset.Record{
		Date:     day(date),
		Month:    date[:7],
		State:    state,
		District: district,
		Pincode:  pincode,
		Ages: map[string]int64{
			"age_0_5":        a05,
			"age_5_17":       a517,
			"age_18_greater": a18,
		},
	}
}

func fullTable() *dataset.Table {
	return &dataset.Table{
		Rows: []dataset.Record{
			row("2023-01-05", "Kerala", "Ernakulam", "682001", 10, 20, 30),
			row("2023-01-20", "Kerala", "Kozhikode", "673001", 5, 5, 10),
			row("2023-02-03", "Bihar", "Patna", "800001", 7, 8, 9),
			row("2023-02-10", "Kerala", "Ernakulam", "682002", 1, 2, 3),
		},
		AgeColumns: []string{"age_0_5", "age_5_17", "age_18_greater"},
		HasPincode: true,
	}
}

func TestMonthlyTotal(t *testing.T) {
	rows, err := NewAggregator(testLogger()).MonthlyTotal(fullTable())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, MonthlyTotalRow{Month: "2023-01", Registrations: 80}, rows[0])
	assert.Equal(t, MonthlyTotalRow{Month: "2023-02", Registrations: 30}, rows[1])
}

func TestMonthlyByAge_ConsistentWithMonthlyTotal(t *testing.T) {
	agg := NewAggregator(testLogger())
	table := fullTable()

	totals, err := agg.MonthlyTotal(table)
	require.NoError(t, err)

	byAge, err := agg.MonthlyByAge(table)
	require.NoError(t, err)

	// Summing the breakdown per month must reproduce the totals view.
	sums := make(map[string]int64)
	for _, r := range byAge {
		sums[r.Month] += r.Registrations
	}
	for _, total := range totals {
		assert.Equal(t, total.Registrations, sums[total.Month], "month %s", total.Month)
	}
}

func TestMonthlyByAge_LabelsAndOrder(t *testing.T) {
	rows, err := NewAggregator(testLogger()).MonthlyByAge(fullTable())
	require.NoError(t, err)

	require.Len(t, rows, 6)
	assert.Equal(t, "2023-01", rows[0].Month)
	assert.Equal(t, "Age 0-5", rows[0].AgeGroup)
	assert.Equal(t, int64(15), rows[0].Registrations)
	assert.Equal(t, "Age 18+", rows[2].AgeGroup)
	assert.Equal(t, int64(40), rows[2].Registrations)
}

func TestSubTerritoryTotal_National(t *testing.T) {
	rows, err := NewAggregator(testLogger()).SubTerritoryTotal(fullTable(), dataset.LevelNational)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, TerritoryRow{Territory: "Kerala", Registrations: 86}, rows[0])
	assert.Equal(t, TerritoryRow{Territory: "Bihar", Registrations: 24}, rows[1])
}

func TestSubTerritoryTotal_StateGroupsByDistrict(t *testing.T) {
	table := fullTable()
	filtered, err := dataset.Select(table, dataset.LevelState, "Kerala", "")
	require.NoError(t, err)

	rows, err := NewAggregator(testLogger()).SubTerritoryTotal(filtered, dataset.LevelState)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "Ernakulam", rows[0].Territory)
	assert.Equal(t, int64(66), rows[0].Registrations)
	assert.Equal(t, "Kozhikode", rows[1].Territory)
}

func TestSubTerritoryTotal_DistrictLevelRejected(t *testing.T) {
	_, err := NewAggregator(testLogger()).SubTerritoryTotal(fullTable(), dataset.LevelDistrict)
	assert.Error(t, err)
}

func TestSubTerritoryByAge_KeepsRankingOrder(t *testing.T) {
	rows, err := NewAggregator(testLogger()).SubTerritoryByAge(fullTable(), dataset.LevelNational)
	require.NoError(t, err)

	require.Len(t, rows, 6)
	// Kerala outranks Bihar, so its age groups come first.
	assert.Equal(t, "Kerala", rows[0].Territory)
	assert.Equal(t, "Kerala", rows[2].Territory)
	assert.Equal(t, "Bihar", rows[3].Territory)

	var keralaSum int64
	for _, r := range rows[:3] {
		keralaSum += r.Registrations
	}
	assert.Equal(t, int64(86), keralaSum)
}

func TestCumulativeDaily(t *testing.T) {
	rows, err := NewAggregator(testLogger()).CumulativeDaily(fullTable())
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, day("2023-01-05"), rows[0].Date)
	assert.Equal(t, int64(60), rows[0].Cumulative)
	assert.Equal(t, int64(80), rows[1].Cumulative)
	assert.Equal(t, int64(104), rows[2].Cumulative)
	assert.Equal(t, int64(110), rows[3].Cumulative)

	// Non-negative counts imply a monotonically non-decreasing series.
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i].Date.After(rows[i-1].Date))
		assert.GreaterOrEqual(t, rows[i].Cumulative, rows[i-1].Cumulative)
	}
}

func TestMonthlyShare_SumsToHundred(t *testing.T) {
	rows, err := NewAggregator(testLogger()).MonthlyShare(fullTable())
	require.NoError(t, err)

	sums := make(map[string]float64)
	for _, r := range rows {
		sums[r.Month] += r.Percentage
	}
	for month, sum := range sums {
		assert.InDelta(t, 100.0, sum, 0.01, "month %s", month)
	}
}

func TestMonthlyShare_ZeroTotalMonth(t *testing.T) {
	table := &dataset.Table{
		Rows: []dataset.Record{
			row("2023-03-01", "A", "X", "1", 0, 0, 0),
		},
		AgeColumns: []string{"age_0_5", "age_5_17", "age_18_greater"},
	}

	rows, err := NewAggregator(testLogger()).MonthlyShare(table)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, 0.0, r.Percentage)
		assert.False(t, math.IsNaN(r.Percentage))
	}
}

func TestGrandTotal_Halved(t *testing.T) {
	total, err := NewAggregator(testLogger()).GrandTotal(fullTable())
	require.NoError(t, err)
	// 110 summed across both feeds, halved for the headline.
	assert.Equal(t, int64(55), total)
}

func TestGrandTotal_TruncatesOddSum(t *testing.T) {
	table := &dataset.Table{
		Rows: []dataset.Record{
			row("2023-01-01", "A", "X", "1", 1, 1, 1),
		},
		AgeColumns: []string{"age_0_5", "age_5_17", "age_18_greater"},
	}

	total, err := NewAggregator(testLogger()).GrandTotal(table)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPincodeTable(t *testing.T) {
	table := fullTable()
	filtered, err := dataset.Select(table, dataset.LevelDistrict, "Kerala", "Ernakulam")
	require.NoError(t, err)

	rows, err := NewAggregator(testLogger()).PincodeTable(filtered)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "682001", rows[0].Pincode)
	assert.Equal(t, int64(60), rows[0].TotalRegistrations)
	assert.Equal(t, "60", rows[0].Formatted)
	assert.Equal(t, "682002", rows[1].Pincode)
}

func TestPincodeTable_AbsentColumn(t *testing.T) {
	table := fullTable()
	table.HasPincode = false

	rows, err := NewAggregator(testLogger()).PincodeTable(table)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestViews_MissingColumns(t *testing.T) {
	agg := NewAggregator(testLogger())
	table := &dataset.Table{Rows: fullTable().Rows}

	_, err := agg.MonthlyTotal(table)
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = agg.MonthlyByAge(table)
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = agg.SubTerritoryTotal(table, dataset.LevelNational)
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = agg.CumulativeDaily(table)
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = agg.MonthlyShare(table)
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = agg.GrandTotal(table)
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestPartialColumns_OnlySummedColumnsCount(t *testing.T) {
	table := &dataset.Table{
		Rows: []dataset.Record{
			{
				Date:  day("2023-01-05"),
				Month: "2023-01",
				State: "A",
				Ages:  map[string]int64{"age_0_5": 4},
			},
		},
		AgeColumns: []string{"age_0_5"},
	}

	rows, err := NewAggregator(testLogger()).MonthlyTotal(table)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), rows[0].Registrations)
}
