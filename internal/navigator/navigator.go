// Package navigator walks the pages of a remote record until it finds
// something the extractors can turn into facts.
package navigator

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/model"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("site-file-enricher/internal/navigator")

const (
	report_navigator_detail = "navigator.detail"
	report_navigator_step   = "navigator.step"
)

// Visit is a fetched and parsed html page.
type Visit struct {
	URL *url.URL
	Doc *goquery.Document
}

// Resolve resolves href against the url of the page.
func (v Visit) Resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if v.URL == nil {
		return ref.String(), nil
	}
	return v.URL.ResolveReference(ref).String(), nil
}

func visit(ctx context.Context, fetcher Fetcher, link string) (Visit, error) {
	page, err := fetcher.Fetch(ctx, link)
	if err != nil {
		return Visit{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return Visit{}, fmt.Errorf("parse html %s: %w", link, err)
	}
	return Visit{URL: page.URL, Doc: doc}, nil
}

// Step is a single strategy for finding facts on a record's detail page.
type Step interface {
	Name() string
	// Attempt returns nil when the strategy found nothing.
	Attempt(ctx context.Context, recordURL string, detail Visit) []model.Fact
}

type Navigator struct {
	fetcher Fetcher
	steps   []Step
	tel     telemetry.API
}

func NewNavigator(fetcher Fetcher, steps []Step, tel telemetry.API) Navigator {
	assert.NotNil(fetcher)
	assert.NotNil(tel)
	return Navigator{
		fetcher: fetcher,
		steps:   steps,
		tel:     telemetry.NewScopedAPI("navigator", tel),
	}
}

// Resolve fetches the detail page of a record and runs the steps in order,
// the facts of the first step that finds any are returned. A record with
// nothing to extract yields nil, which is not an error.
func (n Navigator) Resolve(ctx context.Context, recordURL string) []model.Fact {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("record_url", recordURL))

	detail, err := visit(ctx, n.fetcher, recordURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch detail page")
		n.tel.ReportWarning(report_navigator_detail, err, recordURL)
		return nil
	}

	for _, step := range n.steps {
		if ctx.Err() != nil {
			return nil
		}
		facts := n.attempt(ctx, step, recordURL, detail)
		if len(facts) > 0 {
			span.SetAttributes(
				attribute.String("step", step.Name()),
				attribute.Int("facts", len(facts)),
			)
			n.tel.ReportDebug("resolved", recordURL, step.Name(), len(facts))
			return facts
		}
	}

	n.tel.ReportDebug("nothing found", recordURL)
	return nil
}

func (n Navigator) attempt(ctx context.Context, step Step, recordURL string, detail Visit) (facts []model.Fact) {
	defer func() {
		if r := recover(); r != nil {
			n.tel.ReportBroken(report_navigator_step, fmt.Errorf("panic: %v", r), step.Name(), recordURL)
			facts = nil
		}
	}()
	return step.Attempt(ctx, recordURL, detail)
}
