package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	apperrors "gfrcli/internal/errors"
)

const defaultSheet = "Sheet1"

// SaveOptions configures how a table file is written
type SaveOptions struct {
	// Delimiter overrides the separator implied by the extension
	Delimiter rune
	// Sheet names the workbook sheet. Empty means Sheet1.
	Sheet string
	// BOMPrefix writes a UTF-8 BOM before delimited text
	BOMPrefix bool
}

// Save writes t to path in the format implied by its extension. The data is
// written to a temporary file in the same directory and renamed over path
// only after a complete write, so on failure path is left as it was. An
// existing file keeps its permission bits; a new one is created 0644.
func Save(path string, t *Table, opts SaveOptions) error {
	format := FormatFromPath(path)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError("create temporary output", err).WithContext("path", path)
	}
	tmpName := tmp.Name()

	if err := writeTo(tmp, t, format, opts); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewStorageError("write output table", err).WithContext("path", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewStorageError("sync output table", err).WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStorageError("close output table", err).WithContext("path", path)
	}
	// New files get 0644, a replaced file keeps its permissions
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStorageError("set output permissions", err).WithContext("path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStorageError("replace output table", err).WithContext("path", path)
	}
	return nil
}

func writeTo(w io.Writer, t *Table, format Format, opts SaveOptions) error {
	if format == FormatXLSX {
		return WriteWorkbook(w, t, opts.Sheet)
	}
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	return WriteDelimited(w, t, format.delimiter(opts.Delimiter))
}

// WriteDelimited writes the header and rows as delimited text
func WriteDelimited(w io.Writer, t *Table, delimiter rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delimiter

	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteWorkbook writes t as a single-sheet workbook. Cells holding a
// canonical finite number are stored as numbers, everything else as text.
func WriteWorkbook(w io.Writer, t *Table, sheet string) error {
	if sheet == "" {
		sheet = defaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	write := func(r int, cells []string) error {
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = workbookValue(c)
		}
		axis, err := excelize.CoordinatesToCellName(1, r)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, axis, &values)
	}

	if err := write(1, t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := write(i+2, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	_, err := f.WriteTo(w)
	return err
}

// workbookValue keeps text that would not survive a number round trip as text
func workbookValue(cell string) interface{} {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return cell
	}
	if strconv.FormatFloat(v, 'f', -1, 64) != cell {
		return cell
	}
	return v
}
