// Package tabular extracts facts from the html print form of a contract,
// a single table that comes in one of two known layouts.
package tabular

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/extract"
	"site-file-enricher/internal/model"
	"site-file-enricher/pkg/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_extractor_parse = "extractor.parse"
	report_extractor_item  = "extractor.item"
)

const TABLE_SELECTOR = "table.printFormTbl.table-centred-data"

const (
	SHAPE_A_COLUMNS = 10
	SHAPE_B_COLUMNS = 9
)

// Cell locates a value relative to the anchor row of an item.
type Cell struct {
	Name      string `json:"name"`
	Column    int    `json:"column"`
	RowOffset int    `json:"row_offset,omitempty"`
}

func (c Cell) resolve(table [][]string, anchor int) *string {
	row := anchor + c.RowOffset
	if row < 0 || row >= len(table) {
		return nil
	}
	if c.Column < 0 || c.Column >= len(table[row]) {
		return nil
	}
	value := textutil.CollapseWhitespace(table[row][c.Column])
	return &value
}

// Layout describes one known table shape.
type Layout struct {
	ProductName Cell   `json:"product_name"`
	Price       Cell   `json:"price"`
	Fields      []Cell `json:"fields"`
	// RowStep is the amount of table rows a single item spans.
	RowStep int `json:"row_step"`
}

func (l *Layout) step() int {
	if l.RowStep <= 0 {
		return 1
	}
	return l.RowStep
}

type Schema struct {
	ShapeA *Layout `json:"shape_a"`
	ShapeB *Layout `json:"shape_b"`
}

type Extractor struct {
	schema Schema
	tel    telemetry.API
}

var _ extract.Extractor = Extractor{}

func NewExtractor(schema Schema, tel telemetry.API) Extractor {
	assert.NotNil(tel)
	return Extractor{
		schema: schema,
		tel:    telemetry.NewScopedAPI("tabular", tel),
	}
}

func (e Extractor) FieldNames() []string {
	var names []string
	for _, layout := range []*Layout{e.schema.ShapeA, e.schema.ShapeB} {
		if layout == nil {
			continue
		}
		for _, c := range layout.Fields {
			names = append(names, c.Name)
		}
	}
	return names
}

// layoutFor picks the layout from the column count of the header row.
func (e Extractor) layoutFor(table [][]string) *Layout {
	if len(table) == 0 {
		return nil
	}
	switch len(table[0]) {
	case SHAPE_A_COLUMNS:
		return e.schema.ShapeA
	case SHAPE_B_COLUMNS:
		return e.schema.ShapeB
	}
	return nil
}

func readTable(document []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	tables := doc.Find(TABLE_SELECTOR)
	if tables.Length() == 0 {
		return nil, fmt.Errorf("no print form table")
	}

	var table [][]string
	tables.First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		row := []string{}
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		table = append(table, row)
	})
	return table, nil
}

func (e Extractor) Extract(ctx context.Context, document []byte, recordURL string) []model.Fact {
	table, err := readTable(document)
	if err != nil {
		e.tel.ReportWarning(report_extractor_parse, err, recordURL)
		return nil
	}

	layout := e.layoutFor(table)
	if layout == nil {
		e.tel.ReportWarning(
			report_extractor_parse,
			fmt.Errorf("unknown table layout"),
			recordURL,
			len(table),
		)
		return nil
	}

	// an extra title row precedes the data when the table does not start
	// with the column numbering row
	start := 2
	if len(table[0]) > 0 && textutil.IsNumeric(table[0][0]) {
		start = 1
	}

	var facts []model.Fact
	for anchor := start; anchor < len(table); anchor += layout.step() {
		facts = append(facts, e.extractItem(table, anchor, layout, recordURL)...)
	}

	e.tel.ReportDebug("extracted facts", recordURL, len(facts))
	return facts
}

func (e Extractor) extractItem(table [][]string, anchor int, layout *Layout, recordURL string) (facts []model.Fact) {
	defer func() {
		if r := recover(); r != nil {
			e.tel.ReportWarning(report_extractor_item, fmt.Errorf("panic: %v", r), recordURL, anchor)
			facts = nil
		}
	}()

	productName := layout.ProductName.resolve(table, anchor)
	rawPrice := layout.Price.resolve(table, anchor)
	if productName == nil || rawPrice == nil {
		return nil
	}
	price, err := textutil.ParseLocalizedMinorUnits(*rawPrice)
	if err != nil {
		e.tel.ReportWarning(report_extractor_item, err, recordURL, anchor)
		return nil
	}

	for _, c := range layout.Fields {
		value := c.resolve(table, anchor)
		if value == nil {
			continue
		}
		facts = append(facts, model.Fact{
			RecordURL:   recordURL,
			ProductName: *productName,
			UnitPrice:   price,
			Field:       model.FieldUpdate{Name: c.Name, Value: value},
			Order:       anchor,
			Source:      model.SOURCE_TABULAR,
		})
	}
	return facts
}
