// Package treedoc extracts facts from machine-readable (xml) contract
// documents using a declarative schema of element locators.
package treedoc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/extract"
	"site-file-enricher/internal/model"
	"site-file-enricher/pkg/textutil"
)

const (
	report_extractor_parse = "extractor.parse"
	report_extractor_item  = "extractor.item"
)

// Locator points at a value: the first element named Tag, searched inside
// the first element named Parent when Parent is set.
type Locator struct {
	Name   string `json:"name"`
	Tag    string `json:"tag"`
	Parent string `json:"parent,omitempty"`
}

func (l Locator) resolve(scope *element) *string {
	if scope == nil || l.Tag == "" {
		return nil
	}
	if l.Parent != "" {
		scope = scope.Find(l.Parent)
		if scope == nil {
			return nil
		}
	}
	found := scope.Find(l.Tag)
	if found == nil {
		return nil
	}
	value := strings.TrimSpace(found.Text())
	return &value
}

// ItemSchema describes the repeated product element of a document.
type ItemSchema struct {
	Tag         string  `json:"tag"`
	ProductName Locator `json:"product_name"`
	Price       Locator `json:"price"`
	OKPD        Locator `json:"okpd"`
	KTRU        Locator `json:"ktru"`
	// OrderTag names the child holding the item's sequence number.
	OrderTag string    `json:"order_tag"`
	Fields   []Locator `json:"fields"`
}

type Schema struct {
	Item ItemSchema `json:"item"`
	// Record locators are evaluated once against the whole document.
	Record []Locator `json:"record"`
}

type Extractor struct {
	schema Schema
	tel    telemetry.API
}

var _ extract.Extractor = Extractor{}

func NewExtractor(schema Schema, tel telemetry.API) Extractor {
	assert.NotNil(tel)
	assert.NotEmptyStr(schema.Item.Tag)

	return Extractor{
		schema: schema,
		tel:    telemetry.NewScopedAPI("treedoc", tel),
	}
}

func (e Extractor) FieldNames() []string {
	var names []string
	for _, l := range e.schema.Item.Fields {
		names = append(names, l.Name)
	}
	for _, l := range e.schema.Record {
		names = append(names, l.Name)
	}
	return names
}

func (e Extractor) Extract(ctx context.Context, document []byte, recordURL string) []model.Fact {
	root, err := parse(document)
	if err != nil {
		e.tel.ReportBroken(report_extractor_parse, err, recordURL)
		return nil
	}

	var facts []model.Fact
	for _, item := range root.FindAll(e.schema.Item.Tag) {
		facts = append(facts, e.extractItem(item, recordURL)...)
	}

	for _, l := range e.schema.Record {
		value := l.resolve(root)
		if value == nil {
			continue
		}
		facts = append(facts, model.Fact{
			RecordURL:   recordURL,
			ProductName: "",
			UnitPrice:   model.NO_PRICE,
			Field:       model.FieldUpdate{Name: l.Name, Value: value},
			Order:       model.NO_ORDER,
			Source:      model.SOURCE_TREE,
		})
	}

	e.tel.ReportDebug("extracted facts", recordURL, len(facts))
	return facts
}

func (e Extractor) extractItem(item *element, recordURL string) []model.Fact {
	schema := e.schema.Item

	productName := schema.ProductName.resolve(item)
	rawPrice := schema.Price.resolve(item)
	if productName == nil || rawPrice == nil {
		return nil
	}
	price, err := textutil.ParseMinorUnits(*rawPrice)
	if err != nil {
		e.tel.ReportWarning(report_extractor_item, fmt.Errorf("price: %w", err), recordURL, *productName)
		return nil
	}

	order := model.NO_ORDER
	if schema.OrderTag != "" {
		if raw := item.Find(schema.OrderTag); raw != nil {
			n, err := strconv.Atoi(strings.TrimSpace(raw.Text()))
			if err == nil {
				order = n
			}
		}
	}

	okpd := schema.OKPD.resolve(item)
	ktru := schema.KTRU.resolve(item)

	var facts []model.Fact
	for _, l := range schema.Fields {
		value := l.resolve(item)
		if value == nil {
			continue
		}
		facts = append(facts, model.Fact{
			RecordURL:   recordURL,
			ProductName: *productName,
			UnitPrice:   price,
			OKPD:        okpd,
			KTRU:        ktru,
			Field:       model.FieldUpdate{Name: l.Name, Value: value},
			Order:       order,
			Source:      model.SOURCE_TREE,
		})
	}
	return facts
}
