package tabular

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"site-file-enricher/internal/components/telemetry/telemetrytest"
	"site-file-enricher/internal/model"

	"github.com/stretchr/testify/require"
)

func renderTable(rows [][]string) string {
	var out strings.Builder
	out.WriteString(`<html><body><table class="header"><tr><td>ignored</td></tr></table>`)
	out.WriteString(`<table class="printFormTbl table-centred-data">`)
	for _, row := range rows {
		out.WriteString("<tr>")
		for _, cell := range row {
			out.WriteString(fmt.Sprintf("<td>%s</td>", cell))
		}
		out.WriteString("</tr>")
	}
	out.WriteString("</table></body></html>")
	return out.String()
}

func numbered(n int) []string {
	row := make([]string, n)
	for i := range row {
		row[i] = fmt.Sprint(i + 1)
	}
	return row
}

func testSchema() Schema {
	return Schema{
		ShapeA: &Layout{
			ProductName: Cell{Name: "html_product_name", Column: 1},
			Price:       Cell{Name: "html_price", Column: 6},
			Fields: []Cell{
				{Name: "html_product_name", Column: 1},
				{Name: "html_ktru", Column: 3},
				{Name: "html_characteristics", Column: 5},
			},
		},
		ShapeB: &Layout{
			ProductName: Cell{Name: "html_product_name", Column: 1},
			Price:       Cell{Name: "html_price", Column: 5},
			Fields: []Cell{
				{Name: "html_product_name", Column: 1},
				{Name: "html_ktru", Column: 3},
				{Name: "html_characteristics", Column: 0, RowOffset: 2},
			},
			RowStep: 3,
		},
	}
}

func TestExtractShapeA(t *testing.T) {
	header := []string{"№", "Наименование", "Страна", "Код", "Ед.", "Характеристики", "Цена", "Кол-во", "Сумма", "НДС"}
	doc := renderTable([][]string{
		header,
		numbered(10),
		{"1", "Контейнер для сбора образца кала\n  NS-PRIME", "", "Изделия медицинские (32.50.50.190)", "шт", "Назначение :\n\n   Для сбора кала;", "131 274,00", "1", "131 274,00", "-"},
		{"2", "Неполная строка"},
	})

	extractor := NewExtractor(testSchema(), &telemetrytest.Recorder{})
	facts := extractor.Extract(context.Background(), []byte(doc), "test")

	require.Len(t, facts, 3)
	for _, f := range facts {
		require.Equal(t, "test", f.RecordURL)
		require.Equal(t, "Контейнер для сбора образца кала NS-PRIME", f.ProductName)
		require.Equal(t, int64(13127400), f.UnitPrice)
		require.Equal(t, 2, f.Order)
		require.Equal(t, model.SOURCE_TABULAR, f.Source)
		require.False(t, f.HasCodes())
	}
	require.Equal(t, "html_product_name", facts[0].Field.Name)
	require.Equal(t, "Контейнер для сбора образца кала NS-PRIME", *facts[0].Field.Value)
	require.Equal(t, "html_ktru", facts[1].Field.Name)
	require.Equal(t, "Изделия медицинские (32.50.50.190)", *facts[1].Field.Value)
	require.Equal(t, "html_characteristics", facts[2].Field.Name)
	require.Equal(t, "Назначение : Для сбора кала;", *facts[2].Field.Value)
}

func TestExtractShapeB(t *testing.T) {
	item := func(no int, name, price, characteristics string) [][]string {
		return [][]string{
			{fmt.Sprint(no), name, "", "Препараты диагностические (21.20.23.111)", "шт", price, "1", "-", price},
			{"Товарный знак", "-"},
			{characteristics},
		}
	}
	rows := [][]string{numbered(9)}
	rows = append(rows, item(1, "Калибратор FIT Hemoglobin", "10 500,50", "Состав упаковки: 4 флакона")...)
	rows = append(rows, item(2, "Калибратор FIT Transferrin", "7 000,00", "Специализированный калибратор")...)
	rows = append(rows, item(3, "Контроль FIT NS-PRIME", "abc", "Контроль для наборов")...)

	extractor := NewExtractor(testSchema(), &telemetrytest.Recorder{})
	facts := extractor.Extract(context.Background(), []byte(renderTable(rows)), "test")

	require.Len(t, facts, 6)

	expected := []struct {
		name  string
		value string
		price int64
		order int
	}{
		{"html_product_name", "Калибратор FIT Hemoglobin", 1050050, 1},
		{"html_ktru", "Препараты диагностические (21.20.23.111)", 1050050, 1},
		{"html_characteristics", "Состав упаковки: 4 флакона", 1050050, 1},
		{"html_product_name", "Калибратор FIT Transferrin", 700000, 4},
		{"html_ktru", "Препараты диагностические (21.20.23.111)", 700000, 4},
		{"html_characteristics", "Специализированный калибратор", 700000, 4},
	}
	for i, e := range expected {
		require.Equal(t, e.name, facts[i].Field.Name)
		require.Equal(t, e.value, *facts[i].Field.Value)
		require.Equal(t, e.price, facts[i].UnitPrice)
		require.Equal(t, e.order, facts[i].Order)
	}
}

func TestExtractLayoutSelection(t *testing.T) {
	extractor := NewExtractor(testSchema(), &telemetrytest.Recorder{})

	for _, columns := range []int{8, 11, 1} {
		doc := renderTable([][]string{
			numbered(columns),
			{"1", "Товар", "", "", "", "100,00", "100,00", "", "", "", ""},
		})
		require.Empty(t, extractor.Extract(context.Background(), []byte(doc), "test"), columns)
	}

	onlyA := NewExtractor(Schema{ShapeA: testSchema().ShapeA}, &telemetrytest.Recorder{})
	doc := renderTable([][]string{numbered(9), {"1", "Товар", "", "", "", "100,00"}})
	require.Empty(t, onlyA.Extract(context.Background(), []byte(doc), "test"))
	require.NotEmpty(t, extractor.Extract(context.Background(), []byte(doc), "test"))
}

func TestExtractWithoutTable(t *testing.T) {
	rec := &telemetrytest.Recorder{}
	extractor := NewExtractor(testSchema(), rec)

	require.Empty(t, extractor.Extract(context.Background(), []byte("<html><p>nothing</p></html>"), "test"))
	require.Len(t, rec.Find("warning", report_extractor_parse), 1)
}

func TestFieldNames(t *testing.T) {
	extractor := NewExtractor(testSchema(), &telemetrytest.Recorder{})
	require.Equal(t, []string{
		"html_product_name", "html_ktru", "html_characteristics",
		"html_product_name", "html_ktru", "html_characteristics",
	}, extractor.FieldNames())
}
