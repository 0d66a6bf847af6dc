package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter renders dashboard sheets as an xlsx workbook.
type ExcelWriter struct {
	exportsDir string
}

// NewExcelWriter creates a new Excel writer rooted at the exports directory
func NewExcelWriter(exportsDir string) *ExcelWriter {
	return &ExcelWriter{exportsDir: exportsDir}
}

// WriteDashboard streams the workbook to w, one worksheet per sheet.
func (w *ExcelWriter) WriteDashboard(out io.Writer, sheets []Sheet) error {
	f, err := w.buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveDashboard writes the workbook to a file under the exports directory.
func (w *ExcelWriter) SaveDashboard(filePath string, sheets []Sheet) error {
	fullPath := filePath
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(w.exportsDir, fullPath)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := w.buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (w *ExcelWriter) buildWorkbook(sheets []Sheet) (*excelize.File, error) {
	f := excelize.NewFile()

	for i, sheet := range sheets {
		name := sheet.Name
		if i == 0 {
			// Rename the default sheet instead of adding a new one.
			if err := f.SetSheetName("Sheet1", name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
			}
		}

		if err := writeSheet(f, name, sheet); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet) error {
	header := make([]interface{}, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write headers of %s: %w", name, err)
	}

	for i, record := range sheet.Records {
		row := make([]interface{}, len(record))
		for j, v := range record {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d of %s: %w", i+2, name, err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, name, err)
		}
	}

	return nil
}
