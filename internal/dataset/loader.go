package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// monthLayout is the derived grouping key format; lexicographic order
// matches chronological order.
const monthLayout = "2006-01"

// dateLayouts are tried in order when parsing the date column. Extract
// vintages differ in how they serialize dates.
var dateLayouts = []string{"2006-01-02", "02-01-2006", "2006/01/02"}

// LoadWarning records a source file that could not be parsed. The load
// continues without it.
type LoadWarning struct {
	File string
	Err  error
}

func (w LoadWarning) String() string {
	return fmt.Sprintf("%s: %v", w.File, w.Err)
}

// Loader discovers and merges enrolment CSV extracts into one Table.
type Loader struct {
	discovery *Discovery
	dataDir   string
	logger    *slog.Logger
}

// NewLoader creates a loader reading from the given data directory.
func NewLoader(dataDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		discovery: NewDiscovery(dataDir),
		dataDir:   dataDir,
		logger:    logger.With(slog.String("component", "dataset.loader")),
	}
}

// Load reads every matching extract, concatenates the parsed rows and
// returns the unified table together with per-file warnings. A file that
// fails to parse is skipped; Load fails with ErrNoDataFound only when no
// file matches or every file fails.
func (l *Loader) Load(ctx context.Context) (*Table, []LoadWarning, error) {
	files, err := l.discovery.FindEnrolmentFiles(l.dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan data directory: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoDataFound, l.dataDir)
	}

	table := &Table{}
	ageSeen := make(map[string]bool)
	var warnings []LoadWarning
	parsedFiles := 0

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}

		rows, columns, hasPincode, err := l.parseFile(file.Path)
		if err != nil {
			warnings = append(warnings, LoadWarning{File: file.Name, Err: err})
			l.logger.WarnContext(ctx, "skipping unreadable source file",
				slog.String("file", file.Name),
				slog.String("error", err.Error()))
			continue
		}

		parsedFiles++
		table.Rows = append(table.Rows, rows...)
		for _, col := range columns {
			ageSeen[col] = true
		}
		if hasPincode {
			table.HasPincode = true
		}

		l.logger.InfoContext(ctx, "loaded source file",
			slog.String("file", file.Name),
			slog.Int("rows", len(rows)))
	}

	if parsedFiles == 0 {
		return nil, warnings, fmt.Errorf("%w: every source file failed to parse", ErrNoDataFound)
	}

	for _, col := range CanonicalAgeColumns {
		if ageSeen[col] {
			table.AgeColumns = append(table.AgeColumns, col)
		}
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.Int("files", parsedFiles),
		slog.Int("skipped", len(warnings)),
		slog.Int("rows", len(table.Rows)),
		slog.Any("age_columns", table.AgeColumns))

	return table, warnings, nil
}

// parseFile reads one CSV extract. Rows whose date fails to parse are
// dropped; any structural failure aborts the file.
func (l *Loader) parseFile(path string) ([]Record, []string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to read header row: %w", err)
	}

	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}

	dateIdx, ok := columnIndex["date"]
	if !ok {
		return nil, nil, false, fmt.Errorf("date column not found in header")
	}
	stateIdx, hasState := columnIndex["state"]
	districtIdx, hasDistrict := columnIndex["district"]
	if !hasState || !hasDistrict {
		return nil, nil, false, fmt.Errorf("state/district columns not found in header")
	}
	pincodeIdx, hasPincode := columnIndex["pincode"]

	var ageColumns []string
	ageIndex := make(map[string]int)
	for _, col := range CanonicalAgeColumns {
		if idx, ok := columnIndex[col]; ok {
			ageColumns = append(ageColumns, col)
			ageIndex[col] = idx
		}
	}

	cell := func(row []string, idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, false, fmt.Errorf("failed to read row: %w", err)
		}

		date, ok := parseDate(cell(row, dateIdx))
		if !ok {
			continue
		}

		record := Record{
			Date:     date,
			Month:    date.Format(monthLayout),
			State:    cell(row, stateIdx),
			District: cell(row, districtIdx),
			Ages:     make(map[string]int64, len(ageColumns)),
		}
		if hasPincode {
			record.Pincode = cell(row, pincodeIdx)
		}

		for col, idx := range ageIndex {
			record.Ages[col] = parseCount(cell(row, idx))
		}

		records = append(records, record)
	}

	return records, ageColumns, hasPincode, nil
}

// parseDate tries the known extract date layouts in order.
func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

// parseCount parses a numeric cell, tolerating thousands separators.
// Unparseable values count as zero.
func parseCount(value string) int64 {
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(value, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
