package navigator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/extract"
	"site-file-enricher/internal/model"
	"site-file-enricher/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

const (
	report_step_fetch   = "step.fetch"
	report_step_missing = "step.missing"
)

// DirectStatementOptions locates the subject statement printed directly on
// the detail page.
type DirectStatementOptions struct {
	TitleSelector string
	InfoSelector  string
	// SubjectTitle is the section title whose info is the statement.
	SubjectTitle string
	FieldName    string
}

// DirectStatementStep produces a single record-scoped fact out of the
// detail page itself, no further pages are fetched.
type DirectStatementStep struct {
	opts DirectStatementOptions
}

var _ Step = DirectStatementStep{}

func NewDirectStatementStep(opts DirectStatementOptions) DirectStatementStep {
	assert.NotEmptyStr(opts.TitleSelector)
	assert.NotEmptyStr(opts.InfoSelector)
	assert.NotEmptyStr(opts.FieldName)
	return DirectStatementStep{opts: opts}
}

func (s DirectStatementStep) Name() string {
	return "direct_statement"
}

func (s DirectStatementStep) Attempt(ctx context.Context, recordURL string, detail Visit) []model.Fact {
	titles := detail.Doc.Find(s.opts.TitleSelector).Nodes
	infos := detail.Doc.Find(s.opts.InfoSelector).Nodes

	for i := 0; i < len(titles) && i < len(infos); i++ {
		if htmlutil.CleanText(titles[i]) != s.opts.SubjectTitle {
			continue
		}
		value := htmlutil.CleanText(infos[i])
		return []model.Fact{{
			RecordURL:   recordURL,
			ProductName: "",
			UnitPrice:   model.NO_PRICE,
			Field:       model.FieldUpdate{Name: s.opts.FieldName, Value: &value},
			Order:       model.NO_ORDER,
			Source:      model.SOURCE_PAGE,
		}}
	}
	return nil
}

// firstTab returns the resolved href of the first tab link accepted by match.
func firstTab(ctx context.Context, detail Visit, selector string, match func(href string) bool) (string, bool) {
	for _, a := range htmlutil.GetAnchors(ctx, detail.URL, detail.Doc.Find(selector)) {
		if match(a.Href) {
			return a.Href, true
		}
	}
	return "", false
}

type DraftContractOptions struct {
	TabSelector string
	// DraftPattern is searched for in the hrefs of the tab links.
	DraftPattern string
	// DocumentPattern is searched for in the src (or the body) of the
	// scripts of the draft page.
	DocumentPattern string
}

// DraftContractStep follows the draft contract tab to the print form it
// embeds and runs the tabular extractor on it.
type DraftContractStep struct {
	fetcher     Fetcher
	extractor   extract.Extractor
	tabSelector string
	draft       *regexp.Regexp
	document    *regexp.Regexp
	inlineLink  *regexp.Regexp
	tel         telemetry.API
}

var _ Step = DraftContractStep{}

func NewDraftContractStep(fetcher Fetcher, extractor extract.Extractor, opts DraftContractOptions, tel telemetry.API) (DraftContractStep, error) {
	assert.NotNil(fetcher)
	assert.NotNil(extractor)
	assert.NotNil(tel)

	draft, err := regexp.Compile(opts.DraftPattern)
	if err != nil {
		return DraftContractStep{}, fmt.Errorf("compile draft pattern: %w", err)
	}
	document, err := regexp.Compile(opts.DocumentPattern)
	if err != nil {
		return DraftContractStep{}, fmt.Errorf("compile document pattern: %w", err)
	}
	inlineLink := regexp.MustCompile(`[^\s"'<>()]*(?:` + opts.DocumentPattern + `)[^\s"'<>()]*`)

	return DraftContractStep{
		fetcher:     fetcher,
		extractor:   extractor,
		tabSelector: opts.TabSelector,
		draft:       draft,
		document:    document,
		inlineLink:  inlineLink,
		tel:         telemetry.NewScopedAPI("draft_contract", tel),
	}, nil
}

func (s DraftContractStep) Name() string {
	return "draft_contract"
}

func (s DraftContractStep) documentLink(page Visit) (string, bool) {
	var link string
	page.Doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		if src, ok := script.Attr("src"); ok && s.document.MatchString(src) {
			link = strings.TrimSpace(src)
			return false
		}
		if found := s.inlineLink.FindString(script.Text()); found != "" {
			link = found
			return false
		}
		return true
	})
	if link == "" {
		return "", false
	}
	resolved, err := page.Resolve(link)
	if err != nil {
		return "", false
	}
	return resolved, true
}

func (s DraftContractStep) Attempt(ctx context.Context, recordURL string, detail Visit) []model.Fact {
	ctx, span := tracer.Start(ctx, "DraftContractStep")
	defer span.End()

	draftLink, ok := firstTab(ctx, detail, s.tabSelector, s.draft.MatchString)
	if !ok {
		return nil
	}
	span.SetAttributes(attribute.String("draft_url", draftLink))

	draft, err := visit(ctx, s.fetcher, draftLink)
	if err != nil {
		s.tel.ReportWarning(report_step_fetch, err, recordURL)
		return nil
	}

	documentLink, ok := s.documentLink(draft)
	if !ok {
		s.tel.ReportWarning(report_step_missing, fmt.Errorf("no document link on draft page"), recordURL, draftLink)
		return nil
	}

	page, err := s.fetcher.Fetch(ctx, documentLink)
	if err != nil {
		s.tel.ReportWarning(report_step_fetch, err, recordURL)
		return nil
	}
	return s.extractor.Extract(ctx, page.Body, recordURL)
}

type AttachmentsOptions struct {
	TabSelector string
	// TabMarker is the substring identifying the tab link whose query
	// string addresses the document info page.
	TabMarker string
	// DocumentInfoURL is the page listing the attachments, the query string
	// of the tab link is appended to it.
	DocumentInfoURL    string
	AttachmentSelector string
}

// AttachmentsStep downloads every attachment of the record the dispatch
// knows an extractor for.
type AttachmentsStep struct {
	fetcher  Fetcher
	dispatch *extract.Dispatch
	opts     AttachmentsOptions
	tel      telemetry.API
}

var _ Step = AttachmentsStep{}

func NewAttachmentsStep(fetcher Fetcher, dispatch *extract.Dispatch, opts AttachmentsOptions, tel telemetry.API) AttachmentsStep {
	assert.NotNil(fetcher)
	assert.NotNil(dispatch)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.TabMarker)
	assert.NotEmptyStr(opts.DocumentInfoURL)

	return AttachmentsStep{
		fetcher:  fetcher,
		dispatch: dispatch,
		opts:     opts,
		tel:      telemetry.NewScopedAPI("attachments", tel),
	}
}

func (s AttachmentsStep) Name() string {
	return "attachments"
}

func (s AttachmentsStep) documentInfoLink(ctx context.Context, detail Visit) (string, bool) {
	tab, ok := firstTab(ctx, detail, s.opts.TabSelector, func(href string) bool {
		return strings.Contains(href, s.opts.TabMarker)
	})
	if !ok {
		return "", false
	}
	_, query, ok := strings.Cut(tab, "?")
	if !ok || query == "" {
		return "", false
	}
	return s.opts.DocumentInfoURL + "?" + query, true
}

type attachment struct {
	href      string
	title     string
	extractor extract.Extractor
}

func (s AttachmentsStep) classify(ctx context.Context, page Visit) []attachment {
	var out []attachment
	seen := map[string]struct{}{}
	for _, a := range htmlutil.GetAnchors(ctx, page.URL, page.Doc.Find(s.opts.AttachmentSelector)) {
		extractor, ok := s.dispatch.Match(a.Title)
		if !ok {
			continue
		}
		if _, dup := seen[a.Href]; dup {
			continue
		}
		seen[a.Href] = struct{}{}
		out = append(out, attachment{href: a.Href, title: a.Title, extractor: extractor})
	}
	return out
}

func (s AttachmentsStep) Attempt(ctx context.Context, recordURL string, detail Visit) []model.Fact {
	ctx, span := tracer.Start(ctx, "AttachmentsStep")
	defer span.End()

	link, ok := s.documentInfoLink(ctx, detail)
	if !ok {
		return nil
	}
	span.SetAttributes(attribute.String("document_info_url", link))

	page, err := visit(ctx, s.fetcher, link)
	if err != nil {
		s.tel.ReportWarning(report_step_fetch, err, recordURL)
		return nil
	}

	attachments := s.classify(ctx, page)
	if len(attachments) == 0 {
		s.tel.ReportWarning(report_step_missing, fmt.Errorf("no known attachments"), recordURL)
		return nil
	}

	var facts []model.Fact
	for _, a := range attachments {
		if ctx.Err() != nil {
			break
		}
		document, err := s.fetcher.Fetch(ctx, a.href)
		if err != nil {
			s.tel.ReportWarning(report_step_fetch, err, recordURL, a.title)
			continue
		}
		facts = append(facts, a.extractor.Extract(ctx, document.Body, recordURL)...)
	}
	return facts
}
