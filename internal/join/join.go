// Package join matches the facts extracted for a record back onto the
// input rows of that record.
package join

import (
	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/model"
)

// Threshold is the score a candidate has to exceed (strictly) to match.
const Threshold = 70

const (
	report_join_rows    = "join.rows"
	report_join_matched = "join.matched"
)

type bucket struct {
	// names keeps the order of first appearance.
	names []string
	facts map[string][]model.Fact
}

type index map[int64]*bucket

func newIndex(facts []model.Fact) index {
	idx := index{}
	for _, f := range facts {
		if f.RecordScoped() {
			continue
		}
		b, ok := idx[f.UnitPrice]
		if !ok {
			b = &bucket{facts: map[string][]model.Fact{}}
			idx[f.UnitPrice] = b
		}
		if _, seen := b.facts[f.ProductName]; !seen {
			b.names = append(b.names, f.ProductName)
		}
		b.facts[f.ProductName] = append(b.facts[f.ProductName], f)
	}
	return idx
}

// passesCodes reports whether a fact may be applied to a row with the
// given classification code.
func passesCodes(f model.Fact, code *string) bool {
	if code == nil || !f.HasCodes() {
		return true
	}
	return (f.OKPD != nil && *f.OKPD == *code) ||
		(f.KTRU != nil && *f.KTRU == *code)
}

type Engine struct {
	scorer Scorer
	tel    telemetry.API
}

func NewEngine(scorer Scorer, tel telemetry.API) Engine {
	assert.NotNil(scorer)
	assert.NotNil(tel)
	return Engine{
		scorer: scorer,
		tel:    telemetry.NewScopedAPI("join", tel),
	}
}

// Join produces at most one OutputRow per input row. Record-scoped facts
// are ignored here, merging them is up to the caller.
func (e Engine) Join(rows []model.InputRow, facts []model.Fact) []model.OutputRow {
	idx := newIndex(facts)

	var out []model.OutputRow
	for _, row := range rows {
		b, ok := idx[row.UnitPrice]
		if !ok {
			continue
		}
		name, score := e.scorer.Best(row.ProductName, b.names)
		if score <= Threshold {
			e.tel.ReportDebug("below threshold", row.Index, row.ProductName, name, score)
			continue
		}

		output := model.OutputRow{
			Index:     row.Index,
			RecordURL: row.RecordURL,
			Updates:   []model.FieldUpdate{},
		}
		for _, f := range b.facts[name] {
			if passesCodes(f, row.ClassificationCode) {
				output.Set(f.Field)
			}
		}
		out = append(out, output)
	}

	e.tel.ReportCount(report_join_rows, int64(len(rows)))
	e.tel.ReportCount(report_join_matched, int64(len(out)))
	return out
}
