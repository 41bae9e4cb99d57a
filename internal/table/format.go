package table

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Format is the on-disk layout of a table
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatTSV:
		return "tsv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "csv"
	}
}

// FormatFromPath picks the format from the file extension. Unknown
// extensions are treated as comma-separated text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return FormatTSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// delimiter returns the field separator for delimited formats
func (f Format) delimiter(override rune) rune {
	if override != 0 {
		return override
	}
	if f == FormatTSV {
		return '\t'
	}
	return ','
}

// FormatFloat renders a value in shortest round-trip decimal form.
// NaN becomes an empty cell and infinities become inf and -inf.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat reads a numeric cell, ignoring surrounding whitespace
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
