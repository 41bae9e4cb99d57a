// Package table loads and saves the rectangular, header-keyed tables the
// estimator works on.
//
// A Table keeps every cell as the text it was read as, so columns the
// estimator does not touch are written back unchanged. Delimited text
// (.csv, .tsv) goes through encoding/csv; workbooks (.xlsx) go through
// excelize. Save writes to a temporary sibling and renames it into place, so
// an existing output file is never left half-written.
package table
