package table

// Table is a header row plus data rows. Every row has exactly len(Header)
// cells once it has been through Load or New.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates a table, padding short rows to the header width
func New(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows}
	t.normalize()
	return t
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the first column named name, or -1
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Missing returns the names from columns that are not in the header, in the
// order given
func (t *Table) Missing(columns ...string) []string {
	var missing []string
	for _, c := range columns {
		if t.Index(c) < 0 {
			missing = append(missing, c)
		}
	}
	return missing
}

// EnsureColumn returns the index of column name, appending an empty column
// at the end when it does not exist yet
func (t *Table) EnsureColumn(name string) int {
	// Overwrite in place when the column is already there
	if i := t.Index(name); i >= 0 {
		return i
	}
	// Grow every row by one cell so SetCell stays in range
	t.Header = append(t.Header, name)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], "")
	}
	return len(t.Header) - 1
}

// Cell returns the text at row r, column c
func (t *Table) Cell(r, c int) string {
	row := t.Rows[r]
	if c >= len(row) {
		return ""
	}
	return row[c]
}

// SetCell replaces the text at row r, column c
func (t *Table) SetCell(r, c int, v string) {
	t.Rows[r][c] = v
}

// normalize pads short rows so every row spans the header
func (t *Table) normalize() {
	width := len(t.Header)
	for i, row := range t.Rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			t.Rows[i] = padded
		}
	}
}
