// Package sheet reads the input document into rows grouped by record url.
package sheet

import (
	"context"
	"strings"

	"site-file-enricher/internal/model"
	"site-file-enricher/internal/writer"
)

const (
	report_sheet_row = "sheet.row"
)

// Groups are the input rows keyed by record url, URLs keeps the order in
// which the urls first appear in the document.
type Groups struct {
	URLs []string
	Rows map[string][]model.InputRow
}

func (g *Groups) add(row model.InputRow) {
	if g.Rows == nil {
		g.Rows = map[string][]model.InputRow{}
	}
	if _, ok := g.Rows[row.RecordURL]; !ok {
		g.URLs = append(g.URLs, row.RecordURL)
	}
	g.Rows[row.RecordURL] = append(g.Rows[row.RecordURL], row)
}

// Len is the total amount of rows in every group.
func (g Groups) Len() int {
	total := 0
	for _, rows := range g.Rows {
		total += len(rows)
	}
	return total
}

type Reader interface {
	Read(ctx context.Context) (Groups, error)
	// RowCount is the amount of data rows in the document, including the
	// ones without a price. Only valid after Read.
	RowCount() int
	// Table is the document the output is made of. Only valid after Read.
	Table() *writer.Table
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
