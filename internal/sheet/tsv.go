package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/model"
	"site-file-enricher/internal/writer"
	"site-file-enricher/pkg/textutil"
)

// TSVColumns are the fixed positions of the logical columns of a tab
// separated export.
type TSVColumns struct {
	URL         int `json:"url"`
	UnitPrice   int `json:"unit_price"`
	Code        int `json:"code"`
	ProductName int `json:"product_name"`
}

func DefaultTSVColumns() TSVColumns {
	return TSVColumns{
		URL:         4,
		UnitPrice:   31,
		Code:        46,
		ProductName: 51,
	}
}

// TSVReader reads tab separated exports, the first line is the header.
type TSVReader struct {
	path    string
	columns TSVColumns
	fields  []string
	tel     telemetry.API

	table    *writer.Table
	rowCount int
}

var _ Reader = (*TSVReader)(nil)

func NewTSVReader(path string, columns TSVColumns, fields []string, tel telemetry.API) *TSVReader {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)
	return &TSVReader{
		path:    path,
		columns: columns,
		fields:  fields,
		tel:     telemetry.NewScopedAPI("tsv", tel),
	}
}

func (r *TSVReader) RowCount() int {
	return r.rowCount
}

func (r *TSVReader) Table() *writer.Table {
	return r.table
}

func readTSV(in io.Reader) ([][]string, error) {
	reader := csv.NewReader(in)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func (r *TSVReader) Read(ctx context.Context) (Groups, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return Groups{}, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	lines, err := readTSV(f)
	if err != nil {
		return Groups{}, fmt.Errorf("read %s: %w", r.path, err)
	}
	if len(lines) == 0 {
		return Groups{}, fmt.Errorf("read %s: no header line", r.path)
	}

	header := lines[0]
	// short headers still need a url column for the table
	for len(header) <= r.columns.URL {
		header = append(header, "")
	}
	data := lines[1:]
	for _, line := range data {
		if len(line) > r.columns.URL {
			line[r.columns.URL] = cell(line, r.columns.URL)
		}
	}
	table, err := writer.NewTable(header, r.columns.URL, data)
	if err != nil {
		return Groups{}, err
	}
	table.AddColumns(r.fields)
	r.table = table
	r.rowCount = len(data)

	var groups Groups
	for i, line := range data {
		url := cell(line, r.columns.URL)
		if url == "" {
			continue
		}
		price, err := textutil.ParseLocalizedMinorUnits(cell(line, r.columns.UnitPrice))
		if err != nil {
			r.tel.ReportWarning(report_sheet_row, err, i)
			continue
		}
		groups.add(model.InputRow{
			Index:              i,
			RecordURL:          url,
			ProductName:        cell(line, r.columns.ProductName),
			UnitPrice:          price,
			ClassificationCode: optional(cell(line, r.columns.Code)),
		})
	}

	r.tel.ReportDebug("read rows", r.path, r.rowCount, groups.Len())
	return groups, nil
}
