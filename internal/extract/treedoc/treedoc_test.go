package treedoc

import (
	"context"
	"testing"

	"site-file-enricher/internal/components/telemetry/telemetrytest"
	"site-file-enricher/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const contractXml = `<?xml version="1.0" encoding="UTF-8"?>
<ns2:contract xmlns:ns2="http://zakupki.gov.ru/oos/export/1" xmlns="http://zakupki.gov.ru/oos/types/1">
  <customerInfo>
    <regNum>03181000001</regNum>
    <singularName>ГБУЗ Городская больница</singularName>
  </customerInfo>
  <productsInfo>
    <productInfo>
      <indexNum>1</indexNum>
      <name>Контейнер для сбора образца кала NS-PRIME</name>
      <price>131274.00</price>
      <OKPDCode>32.50.50.190</OKPDCode>
      <trademark>ABBOTT</trademark>
      <OKEIInfo>
        <code>796</code>
        <name>Штука</name>
      </OKEIInfo>
    </productInfo>
    <productInfo>
      <indexNum>2</indexNum>
      <price>999.99</price>
      <trademark>NAMELESS</trademark>
    </productInfo>
    <productInfo>
      <name>Калибратор FIT Hemoglobin</name>
      <price>10.999</price>
      <KTRUInfo>
        <code>21.20.23.111-00000001</code>
        <name>Препараты диагностические</name>
      </KTRUInfo>
    </productInfo>
    <productInfo>
      <name>Без цены</name>
      <trademark>PRICELESS</trademark>
    </productInfo>
  </productsInfo>
</ns2:contract>`

func testSchema() Schema {
	return Schema{
		Item: ItemSchema{
			Tag:         "productInfo",
			ProductName: Locator{Name: "product_name", Tag: "name"},
			Price:       Locator{Name: "price", Tag: "price"},
			OKPD:        Locator{Name: "OKPDCode", Tag: "OKPDCode"},
			KTRU:        Locator{Name: "KTRUInfo_code", Tag: "code", Parent: "KTRUInfo"},
			OrderTag:    "indexNum",
			Fields: []Locator{
				{Name: "trademark", Tag: "trademark"},
				{Name: "OKEIInfo_name", Tag: "name", Parent: "OKEIInfo"},
				{Name: "KTRUInfo_name", Tag: "name", Parent: "KTRUInfo"},
			},
		},
		Record: []Locator{
			{Name: "regNum", Tag: "regNum", Parent: "customerInfo"},
			{Name: "contractSubject", Tag: "contractSubject", Parent: "contractSubjectInfo"},
		},
	}
}

func TestExtract(t *testing.T) {
	rec := &telemetrytest.Recorder{}
	extractor := NewExtractor(testSchema(), rec)

	facts := extractor.Extract(context.Background(), []byte(contractXml), "https://example.com/r/1")

	expected := []model.Fact{
		{
			RecordURL:   "https://example.com/r/1",
			ProductName: "Контейнер для сбора образца кала NS-PRIME",
			UnitPrice:   13127400,
			OKPD:        model.Ptr("32.50.50.190"),
			Field:       model.FieldUpdate{Name: "trademark", Value: model.Ptr("ABBOTT")},
			Order:       1,
		},
		{
			RecordURL:   "https://example.com/r/1",
			ProductName: "Контейнер для сбора образца кала NS-PRIME",
			UnitPrice:   13127400,
			OKPD:        model.Ptr("32.50.50.190"),
			Field:       model.FieldUpdate{Name: "OKEIInfo_name", Value: model.Ptr("Штука")},
			Order:       1,
		},
		{
			RecordURL:   "https://example.com/r/1",
			ProductName: "Калибратор FIT Hemoglobin",
			UnitPrice:   1099,
			KTRU:        model.Ptr("21.20.23.111-00000001"),
			Field:       model.FieldUpdate{Name: "KTRUInfo_name", Value: model.Ptr("Препараты диагностические")},
			Order:       model.NO_ORDER,
		},
		{
			RecordURL: "https://example.com/r/1",
			UnitPrice: model.NO_PRICE,
			Field:     model.FieldUpdate{Name: "regNum", Value: model.Ptr("03181000001")},
			Order:     model.NO_ORDER,
		},
	}

	diff := cmp.Diff(expected, facts)
	if diff != "" {
		t.Fatal(diff)
	}
	require.True(t, facts[3].RecordScoped())
}

func TestExtractSkipsNamelessItem(t *testing.T) {
	extractor := NewExtractor(testSchema(), &telemetrytest.Recorder{})
	facts := extractor.Extract(context.Background(), []byte(contractXml), "u")

	for _, f := range facts {
		require.NotEqual(t, "NAMELESS", model.Deref(f.Field.Value))
		require.NotEqual(t, "PRICELESS", model.Deref(f.Field.Value))
	}
}

func TestExtractBadPrice(t *testing.T) {
	rec := &telemetrytest.Recorder{}
	extractor := NewExtractor(testSchema(), rec)

	facts := extractor.Extract(context.Background(), []byte(`
		<contract>
			<productInfo><name>A</name><price>n/a</price><trademark>X</trademark></productInfo>
			<productInfo><name>B</name><price>5</price><trademark>Y</trademark></productInfo>
		</contract>`), "u")

	require.Len(t, facts, 1)
	require.Equal(t, "B", facts[0].ProductName)
	require.Equal(t, int64(500), facts[0].UnitPrice)
	require.Len(t, rec.Find("warning", report_extractor_item), 1)
}

func TestExtractMalformedDocument(t *testing.T) {
	rec := &telemetrytest.Recorder{}
	extractor := NewExtractor(testSchema(), rec)

	require.Empty(t, extractor.Extract(context.Background(), []byte("not xml at all"), "u"))
	require.Len(t, rec.Find("broken", report_extractor_parse), 1)
}

func TestFieldNames(t *testing.T) {
	extractor := NewExtractor(testSchema(), &telemetrytest.Recorder{})
	require.Equal(t, []string{
		"trademark", "OKEIInfo_name", "KTRUInfo_name", "regNum", "contractSubject",
	}, extractor.FieldNames())
}
