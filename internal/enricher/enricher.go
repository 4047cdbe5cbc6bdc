// Package enricher drives the enrichment of an input document: every record
// is navigated, joined against its rows and written before the next one is
// started.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/model"
	"site-file-enricher/internal/sheet"
	"site-file-enricher/internal/writer"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("site-file-enricher/enricher")

const (
	report_enricher_record  = "enricher.record"
	report_enricher_matched = "enricher.matched"
)

type Navigator interface {
	Resolve(ctx context.Context, recordURL string) []model.Fact
}

type Joiner interface {
	Join(rows []model.InputRow, facts []model.Fact) []model.OutputRow
}

// Event is emitted after every record.
type Event struct {
	Done    int
	Total   int
	URL     string
	Matched int
	Err     error
}

type Summary struct {
	Records     int
	Succeeded   int
	Failed      int
	RowsMatched int
	Files       int
}

type Options struct {
	// CapacityPerFile defaults to writer.DEFAULT_CAPACITY.
	CapacityPerFile int
	Progress        func(Event)
}

type Enricher struct {
	reader    sheet.Reader
	navigator Navigator
	joiner    Joiner
	pager     writer.Pager
	opts      Options
	tel       telemetry.API
}

func New(reader sheet.Reader, navigator Navigator, joiner Joiner, pager writer.Pager, opts Options, tel telemetry.API) *Enricher {
	assert.NotNil(reader)
	assert.NotNil(navigator)
	assert.NotNil(joiner)
	assert.NotNil(pager)
	assert.NotNil(tel)

	if opts.CapacityPerFile == 0 {
		opts.CapacityPerFile = writer.DEFAULT_CAPACITY
	}
	if opts.Progress == nil {
		opts.Progress = func(Event) {}
	}
	return &Enricher{
		reader:    reader,
		navigator: navigator,
		joiner:    joiner,
		pager:     pager,
		opts:      opts,
		tel:       telemetry.NewScopedAPI("enricher", tel),
	}
}

// Run enriches every record of the input in document order. A failing
// record is reported and skipped, only a failure to read the input or a
// cancelled context ends the run early.
func (e *Enricher) Run(ctx context.Context) (Summary, error) {
	groups, err := e.reader.Read(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read input: %w", err)
	}
	w, err := writer.NewWriter(e.reader.Table(), e.pager, e.opts.CapacityPerFile, e.tel)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for i, url := range groups.URLs {
		if ctx.Err() != nil {
			summary.Files = w.Files()
			return summary, ctx.Err()
		}

		matched, err := e.process(ctx, w, url, groups.Rows[url])
		if ctx.Err() != nil {
			summary.Files = w.Files()
			return summary, ctx.Err()
		}

		summary.Records++
		summary.RowsMatched += matched
		if err != nil {
			summary.Failed++
			e.tel.ReportBroken(report_enricher_record, err, url)
		} else {
			summary.Succeeded++
		}

		e.opts.Progress(Event{
			Done:    i + 1,
			Total:   len(groups.URLs),
			URL:     url,
			Matched: matched,
			Err:     err,
		})
	}

	summary.Files = w.Files()
	e.tel.ReportCount(report_enricher_matched, int64(summary.RowsMatched))
	return summary, nil
}

func recovered(r any) error {
	return fmt.Errorf("panic: %v\n%s", r, debug.Stack())
}

// process enriches and writes a single record. The rows produced before a
// failure are still written.
func (e *Enricher) process(ctx context.Context, w *writer.Writer, url string, rows []model.InputRow) (matched int, err error) {
	ctx, span := tracer.Start(ctx, "Record")
	span.SetAttributes(attribute.String("url", url))
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	output, enrichErr := e.enrich(ctx, url, rows)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	writeErr := w.Write(ctx, output, url)
	return len(output), errors.Join(enrichErr, writeErr)
}

// split separates the facts of a record by where they came from, facts
// that apply to the whole record go to scoped regardless of their source.
func split(facts []model.Fact) (tree, tabular, scoped []model.Fact) {
	for _, f := range facts {
		if f.RecordScoped() || f.Source == model.SOURCE_PAGE {
			scoped = append(scoped, f)
			continue
		}
		switch f.Source {
		case model.SOURCE_TREE:
			tree = append(tree, f)
		case model.SOURCE_TABULAR:
			tabular = append(tabular, f)
		}
	}
	return tree, tabular, scoped
}

func withScoped(rows []model.OutputRow, scoped []model.Fact) []model.OutputRow {
	for i := range rows {
		for _, f := range scoped {
			rows[i].Set(f.Field)
		}
	}
	return rows
}

func (e *Enricher) enrich(ctx context.Context, url string, rows []model.InputRow) (output []model.OutputRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	if url == "" {
		return nil, nil
	}

	facts := e.navigator.Resolve(ctx, url)
	tree, tabular, scoped := split(facts)
	e.tel.ReportDebug("resolved facts", url, len(tree), len(tabular), len(scoped))

	output = append(output, withScoped(e.joiner.Join(rows, tree), scoped)...)
	output = append(output, withScoped(e.joiner.Join(rows, tabular), scoped)...)

	if len(tree) == 0 && len(tabular) == 0 && len(scoped) > 0 {
		for _, row := range rows {
			out := model.OutputRow{
				Index:     row.Index,
				RecordURL: row.RecordURL,
			}
			for _, f := range scoped {
				out.Set(f.Field)
			}
			output = append(output, out)
		}
	}
	return output, nil
}
