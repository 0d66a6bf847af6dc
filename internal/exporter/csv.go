package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	exportsDir string
}

// NewCSVWriter creates a new CSV writer rooted at the exports directory
func NewCSVWriter(exportsDir string) *CSVWriter {
	return &CSVWriter{exportsDir: exportsDir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return writer.Error()
}

// WriteDashboard writes the dashboard sheets to w as a single CSV
// stream. Each sheet starts with a title row followed by its header,
// with a blank line between sheets. A UTF-8 BOM is prepended so Excel
// opens the file correctly.
func (w *CSVWriter) WriteDashboard(out io.Writer, sheets []Sheet) error {
	if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(out)
	for i, sheet := range sheets {
		if i > 0 {
			writer.Flush()
			if _, err := out.Write([]byte("\n")); err != nil {
				return fmt.Errorf("failed to write sheet separator: %w", err)
			}
		}
		if err := writer.Write([]string{"# " + sheet.Name}); err != nil {
			return fmt.Errorf("failed to write sheet title: %w", err)
		}
		if err := writer.Write(sheet.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
		for j, record := range sheet.Records {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record %d of %s: %w", j, sheet.Name, err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveDashboard writes the dashboard sheets to a CSV file under the
// exports directory.
func (w *CSVWriter) SaveDashboard(filePath string, sheets []Sheet) error {
	fullPath := w.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return w.WriteDashboard(file, sheets)
}

// resolvePath resolves a path against the exports directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(w.exportsDir, filePath)
}
