// Package exporter renders dashboard views as downloadable CSV and
// Excel files. Both formats are built from the same sheet structure so
// the two exports always carry identical data.
package exporter

import (
	"strconv"

	"enrolcli/internal/services"
)

const dateLayout = "2006-01-02"

// Sheet is one tabular section of an export: a worksheet in the Excel
// workbook, or a titled block in the CSV file.
type Sheet struct {
	Name    string
	Headers []string
	Records [][]string
}

// BuildSheets flattens dashboard data into ordered sheets. Views absent
// from the selection level (territory ranking at district level, the
// pincode table elsewhere) are simply omitted.
func BuildSheets(data *services.DashboardData) []Sheet {
	sheets := []Sheet{summarySheet(data), monthlyTotalSheet(data), monthlyByAgeSheet(data)}

	if len(data.SubTerritoryTotal) > 0 {
		sheets = append(sheets, Sheet{
			Name:    "Territory Total",
			Headers: []string{"territory", "registrations"},
			Records: territoryRecords(data),
		})
	}
	if len(data.SubTerritoryByAge) > 0 {
		records := make([][]string, 0, len(data.SubTerritoryByAge))
		for _, r := range data.SubTerritoryByAge {
			records = append(records, []string{r.Territory, r.AgeGroup, formatInt(r.Registrations)})
		}
		sheets = append(sheets, Sheet{
			Name:    "Territory By Age",
			Headers: []string{"territory", "age_group", "registrations"},
			Records: records,
		})
	}

	sheets = append(sheets, cumulativeSheet(data), shareSheet(data))

	if len(data.PincodeTable) > 0 {
		records := make([][]string, 0, len(data.PincodeTable))
		for _, r := range data.PincodeTable {
			records = append(records, []string{r.Pincode, formatInt(r.TotalRegistrations), r.Formatted})
		}
		sheets = append(sheets, Sheet{
			Name:    "Pincode Table",
			Headers: []string{"pincode", "total_registrations", "formatted"},
			Records: records,
		})
	}

	return sheets
}

func summarySheet(data *services.DashboardData) Sheet {
	records := [][]string{
		{"level", string(data.Selection.Level)},
		{"grand_total", formatInt(data.GrandTotal)},
		{"grand_total_formatted", data.GrandTotalFormatted},
	}
	if data.Selection.State != "" {
		records = append(records, []string{"state", data.Selection.State})
	}
	if data.Selection.District != "" {
		records = append(records, []string{"district", data.Selection.District})
	}
	return Sheet{Name: "Summary", Headers: []string{"field", "value"}, Records: records}
}

func monthlyTotalSheet(data *services.DashboardData) Sheet {
	records := make([][]string, 0, len(data.MonthlyTotal))
	for _, r := range data.MonthlyTotal {
		records = append(records, []string{r.Month, formatInt(r.Registrations)})
	}
	return Sheet{Name: "Monthly Total", Headers: []string{"month", "registrations"}, Records: records}
}

func monthlyByAgeSheet(data *services.DashboardData) Sheet {
	records := make([][]string, 0, len(data.MonthlyByAge))
	for _, r := range data.MonthlyByAge {
		records = append(records, []string{r.Month, r.AgeGroup, formatInt(r.Registrations)})
	}
	return Sheet{Name: "Monthly By Age", Headers: []string{"month", "age_group", "registrations"}, Records: records}
}

func cumulativeSheet(data *services.DashboardData) Sheet {
	records := make([][]string, 0, len(data.CumulativeDaily))
	for _, r := range data.CumulativeDaily {
		records = append(records, []string{r.Date.Format(dateLayout), formatInt(r.Cumulative)})
	}
	return Sheet{Name: "Cumulative Daily", Headers: []string{"date", "cumulative_registrations"}, Records: records}
}

func shareSheet(data *services.DashboardData) Sheet {
	records := make([][]string, 0, len(data.MonthlyShare))
	for _, r := range data.MonthlyShare {
		records = append(records, []string{r.Month, r.AgeGroup, strconv.FormatFloat(r.Percentage, 'f', 2, 64)})
	}
	return Sheet{Name: "Monthly Share", Headers: []string{"month", "age_group", "percentage"}, Records: records}
}

func territoryRecords(data *services.DashboardData) [][]string {
	records := make([][]string, 0, len(data.SubTerritoryTotal))
	for _, r := range data.SubTerritoryTotal {
		records = append(records, []string{r.Territory, formatInt(r.Registrations)})
	}
	return records
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
