package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// InputHeader is the column layout of a typical estimator input file
var InputHeader = []string{"ID", "Age", "Female", "African American", "sCR Pre", "sCR Post"}

// CSV joins rows into comma-separated text with a trailing newline.
// Cells are written as-is, so callers must not pass values needing quotes.
func CSV(rows ...[]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteFile writes content to name inside a fresh temp dir and returns the path
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// SampleInput returns a two-subject input table in CSV form
func SampleInput() string {
	return CSV(
		InputHeader,
		[]string{"1", "50", "0", "0", "1.0", "1.0"},
		[]string{"2", "50", "1", "1", "1.0", "2.0"},
	)
}
