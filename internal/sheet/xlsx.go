package sheet

import (
	"context"
	"fmt"
	"strings"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/model"
	"site-file-enricher/internal/writer"
	"site-file-enricher/pkg/textutil"

	"github.com/xuri/excelize/v2"
)

// Columns lists the accepted header spellings of every logical column, the
// first spelling present in the document is used.
type Columns struct {
	URL         []string `json:"url"`
	ProductName []string `json:"product_name"`
	UnitPrice   []string `json:"unit_price"`
	Code        []string `json:"code"`
}

func DefaultColumns() Columns {
	return Columns{
		URL:         []string{"Ссылка на источник"},
		ProductName: []string{"Название продукта", "Наименование продукта"},
		UnitPrice:   []string{"Цена за единицу продукции"},
		Code:        []string{"Код товара, работы или услуги (ОКПД2)", "Код ОКПД2/КТРУ продукта"},
	}
}

func lookup(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, name := range header {
			if name == alias {
				return i
			}
		}
	}
	return -1
}

// XLSXReader reads the first sheet of a workbook, the first row is the header.
type XLSXReader struct {
	path    string
	columns Columns
	fields  []string
	tel     telemetry.API

	table    *writer.Table
	rowCount int
}

var _ Reader = (*XLSXReader)(nil)

// NewXLSXReader creates a reader for path, fields are the enrichment
// columns added to the table.
func NewXLSXReader(path string, columns Columns, fields []string, tel telemetry.API) *XLSXReader {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)
	return &XLSXReader{
		path:    path,
		columns: columns,
		fields:  fields,
		tel:     telemetry.NewScopedAPI("xlsx", tel),
	}
}

func (r *XLSXReader) RowCount() int {
	return r.rowCount
}

func (r *XLSXReader) Table() *writer.Table {
	return r.table
}

// dropUnnamed removes the columns whose header contains "unnamed", which
// are left over index columns of earlier exports.
func dropUnnamed(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	var keep []int
	for i, name := range rows[0] {
		if !strings.Contains(strings.ToLower(name), "unnamed") {
			keep = append(keep, i)
		}
	}

	out := make([][]string, len(rows))
	for i, row := range rows {
		kept := make([]string, 0, len(keep))
		for _, col := range keep {
			kept = append(kept, cell(row, col))
		}
		out[i] = kept
	}
	return out
}

func (r *XLSXReader) Read(ctx context.Context) (Groups, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return Groups{}, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return Groups{}, fmt.Errorf("read %s: %w", r.path, err)
	}
	rows = dropUnnamed(rows)
	if len(rows) == 0 {
		return Groups{}, fmt.Errorf("read %s: no header row", r.path)
	}

	header := rows[0]
	urlCol := lookup(header, r.columns.URL)
	if urlCol < 0 {
		return Groups{}, fmt.Errorf("read %s: no url column (%s)", r.path, strings.Join(r.columns.URL, ", "))
	}
	nameCol := lookup(header, r.columns.ProductName)
	priceCol := lookup(header, r.columns.UnitPrice)
	codeCol := lookup(header, r.columns.Code)

	data := rows[1:]
	table, err := writer.NewTable(header, urlCol, data)
	if err != nil {
		return Groups{}, err
	}
	table.AddColumns(r.fields)
	r.table = table
	r.rowCount = len(data)

	var groups Groups
	for i, row := range data {
		rawPrice := cell(row, priceCol)
		if rawPrice == "" {
			continue
		}
		price, err := textutil.ParseMinorUnits(rawPrice)
		if err != nil {
			r.tel.ReportWarning(report_sheet_row, err, i)
			continue
		}
		groups.add(model.InputRow{
			Index:              i,
			RecordURL:          cell(row, urlCol),
			ProductName:        cell(row, nameCol),
			UnitPrice:          price,
			ClassificationCode: optional(cell(row, codeCol)),
		})
	}

	r.tel.ReportDebug("read rows", r.path, r.rowCount, groups.Len())
	return groups, nil
}
