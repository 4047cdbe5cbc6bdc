package writer

import (
	"fmt"
	"sort"
)

// Table is the in-memory copy of the input document, extended with one
// column per enrichment field. Rows are addressed by their input index.
type Table struct {
	header    []string
	columns   map[string]int
	rows      [][]string
	urlColumn int
}

// NewTable copies header and rows, urlColumn is the column holding the
// record url of a row.
func NewTable(header []string, urlColumn int, rows [][]string) (*Table, error) {
	if urlColumn < 0 || urlColumn >= len(header) {
		return nil, fmt.Errorf("url column %d out of range (%d columns)", urlColumn, len(header))
	}

	t := &Table{
		header:    append([]string(nil), header...),
		columns:   make(map[string]int, len(header)),
		rows:      make([][]string, len(rows)),
		urlColumn: urlColumn,
	}
	for i, name := range t.header {
		if _, ok := t.columns[name]; !ok {
			t.columns[name] = i
		}
	}
	for i, row := range rows {
		t.rows[i] = t.pad(append([]string(nil), row...))
	}
	return t, nil
}

func (t *Table) pad(row []string) []string {
	for len(row) < len(t.header) {
		row = append(row, "")
	}
	return row
}

// AddColumns appends the given columns in sorted order, names that are
// already present are left where they are.
func (t *Table) AddColumns(names []string) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		if _, ok := t.columns[name]; ok {
			continue
		}
		t.columns[name] = len(t.header)
		t.header = append(t.header, name)
	}
	for i, row := range t.rows {
		t.rows[i] = t.pad(row)
	}
}

// Set overwrites a single cell, unknown fields get a new column. A nil
// value clears the cell.
func (t *Table) Set(index int, field string, value *string) error {
	if index < 0 || index >= len(t.rows) {
		return fmt.Errorf("row %d out of range (%d rows)", index, len(t.rows))
	}
	col, ok := t.columns[field]
	if !ok {
		t.AddColumns([]string{field})
		col = t.columns[field]
	}

	cell := ""
	if value != nil {
		cell = *value
	}
	t.rows[index][col] = cell
	return nil
}

func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the row at index.
func (t *Table) Row(index int) []string {
	return append([]string(nil), t.rows[index]...)
}

// Get returns the value of a cell, ok is false for unknown fields.
func (t *Table) Get(index int, field string) (string, bool) {
	col, ok := t.columns[field]
	if !ok || index < 0 || index >= len(t.rows) {
		return "", false
	}
	return t.rows[index][col], true
}

// RecordRows returns copies of every row of the record, in table order.
func (t *Table) RecordRows(recordURL string) [][]string {
	var out [][]string
	for _, row := range t.rows {
		if row[t.urlColumn] == recordURL {
			out = append(out, append([]string(nil), row...))
		}
	}
	return out
}
