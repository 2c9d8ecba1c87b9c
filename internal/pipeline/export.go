package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"go-query-cache/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet that holds an XLSX export.
const SheetName = "results"

// ParseFormat parses an export format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (supported: csv, json, xlsx)", s)
	}
}

// FormatForPath picks the format from a file extension, defaulting to CSV.
func FormatForPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatCSV
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// ExportInfo describes where an exported result came from.
type ExportInfo struct {
	QueryName  string    `json:"query_name,omitempty"`
	CachePath  string    `json:"cache_path,omitempty"`
	RowCount   int       `json:"row_count"`
	ExportedAt time.Time `json:"exported_at"`
}

// Export writes res to w in the given format.
func Export(w io.Writer, res *model.Result, format Format, info ExportInfo) error {
	switch format {
	case FormatCSV:
		return exportCSV(w, res)
	case FormatJSON:
		return exportJSON(w, res, info)
	case FormatXLSX:
		return exportXLSX(w, res)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// ExportFile writes res to path, creating parent directories.
func ExportFile(path string, res *model.Result, format Format, info ExportInfo) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Export(file, res, format, info); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// exportCSV writes a plain CSV: bare column names, nulls as empty cells.
func exportCSV(w io.Writer, res *model.Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(res.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, v := range row {
			record[i] = model.FormatValue(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func exportJSON(w io.Writer, res *model.Result, info ExportInfo) error {
	if info.ExportedAt.IsZero() {
		info.ExportedAt = time.Now().UTC()
	}
	info.RowCount = res.Len()

	records := make([]map[string]any, len(res.Rows))
	for i, rec := range res.Records() {
		for k, v := range rec {
			if t, ok := v.(time.Time); ok {
				rec[k] = t.Format(model.DateLayout)
			}
		}
		records[i] = rec
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	exportData := map[string]any{
		"export_info": info,
		"columns":     res.Columns,
		"data":        records,
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func exportXLSX(w io.Writer, res *model.Result) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(res.Columns))
	for i, name := range res.ColumnNames() {
		header[i] = name
	}
	if err := file.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range res.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			switch val := v.(type) {
			case time.Time:
				values[j] = val.Format(model.DateLayout)
			case nil:
				values[j] = ""
			default:
				values[j] = val
			}
		}
		if err := file.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
