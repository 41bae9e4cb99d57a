package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	apperrors "gfrcli/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadOptions configures how a table file is read
type LoadOptions struct {
	// Delimiter overrides the separator implied by the extension
	Delimiter rune
	// Sheet selects a workbook sheet. Empty means the first sheet.
	Sheet string
}

// Load reads the table at path. Failures are IO errors, or NOT_FOUND when a
// requested sheet does not exist.
func Load(path string, opts LoadOptions) (*Table, error) {
	format := FormatFromPath(path)
	if format == FormatXLSX {
		return loadWorkbook(path, opts.Sheet)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewIOError("open input table", err).WithContext("path", path)
	}
	defer file.Close()

	t, err := ReadDelimited(file, format.delimiter(opts.Delimiter))
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return nil, err
	}
	return t, nil
}

// ReadDelimited parses delimited text with a header row. A leading UTF-8 BOM
// is dropped. Rows shorter than the header are padded with empty cells; rows
// longer than the header are rejected.
func ReadDelimited(r io.Reader, delimiter rune) (*Table, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewIOError("table has no header row", nil)
	}
	if err != nil {
		return nil, apperrors.NewIOError("parse header row", err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewIOError("parse table", err)
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, apperrors.NewIOError(
				fmt.Sprintf("line %d has %d fields, header has %d", line, len(record), len(header)), nil)
		}
		rows = append(rows, record)
	}

	return New(header, rows), nil
}

func loadWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("open input workbook", err).WithContext("path", path)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewIOError("workbook has no sheets", nil).WithContext("path", path)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("sheet %q", sheet)).WithContext("path", path)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewIOError("read workbook rows", err).WithContext("path", path)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewIOError("table has no header row", nil).WithContext("path", path)
	}

	header := rows[0]
	data := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if len(row) > len(header) {
			return nil, apperrors.NewIOError(
				fmt.Sprintf("row %d has %d cells, header has %d", i+2, len(row), len(header)), nil).
				WithContext("path", path)
		}
		data = append(data, row)
	}
	return New(header, data), nil
}
