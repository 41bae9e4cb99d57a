package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_PadsShortRows(t *testing.T) {
	tbl := New([]string{"Age", "Female", "sCR Pre"}, [][]string{{"50"}, {"60", "1", "1.2"}})

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"50", "", ""}, tbl.Rows[0])
	assert.Equal(t, "", tbl.Cell(0, 2))
	assert.Equal(t, "1.2", tbl.Cell(1, 2))
}

func TestIndexAndMissing(t *testing.T) {
	tbl := New([]string{"ID", "Age", "sCR Pre", "Age"}, nil)

	assert.Equal(t, 1, tbl.Index("Age"), "first match wins")
	assert.Equal(t, -1, tbl.Index("age"), "names are case-sensitive")
	assert.Equal(t, -1, tbl.Index("sCR  Pre"), "names are spacing-sensitive")
	assert.Equal(t, []string{"Female", "sCR Post"}, tbl.Missing("Age", "Female", "sCR Pre", "sCR Post"))
	assert.Nil(t, tbl.Missing("ID"))
}

func TestEnsureColumn(t *testing.T) {
	tbl := New([]string{"Age", "GMR Post"}, [][]string{{"50", "old"}, {"60", "old"}})

	pre := tbl.EnsureColumn("GMR Pre")
	post := tbl.EnsureColumn("GMR Post")

	assert.Equal(t, 2, pre)
	assert.Equal(t, 1, post, "existing column is reused in place")
	assert.Equal(t, []string{"Age", "GMR Post", "GMR Pre"}, tbl.Header)
	for _, row := range tbl.Rows {
		assert.Len(t, row, 3)
	}

	tbl.SetCell(1, pre, "42")
	assert.Equal(t, "42", tbl.Cell(1, pre))
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{79.09465531827084, "79.09465531827084"},
		{1, "1"},
		{0.1, "0.1"},
		{-2.5, "-2.5"},
		{math.NaN(), ""},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.in))
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"50", 50, false},
		{" 1.2 ", 1.2, false},
		{"1e2", 100, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1,2", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFloat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"GFR.csv", FormatCSV},
		{"data/GFR.TSV", FormatTSV},
		{"GFR.xlsx", FormatXLSX},
		{"GFR.txt", FormatCSV},
		{"GFR", FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromPath(tt.path))
		})
	}
	assert.Equal(t, "xlsx", FormatXLSX.String())
	assert.Equal(t, ';', FormatCSV.delimiter(';'))
	assert.Equal(t, '\t', FormatTSV.delimiter(0))
}
