package navigator

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"time"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/chrono"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/lib/restyutil"
	libtelemetry "site-file-enricher/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoDocument is returned by a Fetcher when a hop produced nothing usable,
// either the transport failed or the server answered with a non-2xx status.
var ErrNoDocument = errors.New("no document")

// Page is a fetched document together with the url it was finally served
// from (after redirects).
type Page struct {
	URL  *url.URL
	Body []byte
}

type Fetcher interface {
	Fetch(ctx context.Context, link string) (Page, error)
}

type FetcherOptions struct {
	Headers map[string]string
	Cookies map[string]string
	// TrustAnchor is the path to a PEM file with the root certificates
	// accepted for tls, the system pool is used when it is empty.
	TrustAnchor string
	MinDelay    time.Duration
	MaxDelay    time.Duration
	// Timeout of a single request, 0 means no timeout.
	Timeout time.Duration
	// Exchanges receives a text copy of every response when set.
	Exchanges restyutil.Output
}

// RestyFetcher issues a single GET per Fetch, after a random politeness
// delay. It does not retry.
type RestyFetcher struct {
	http     *resty.Client
	clock    chrono.API
	minDelay time.Duration
	maxDelay time.Duration
	tel      telemetry.API
}

func loadTrustAnchor(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust anchor: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("trust anchor %s: no certificates found", path)
	}
	return pool, nil
}

func NewRestyFetcher(opts FetcherOptions, clock chrono.API, tel telemetry.API) (*RestyFetcher, error) {
	assert.NotNil(clock)
	assert.NotNil(tel)
	if opts.MaxDelay < opts.MinDelay {
		return nil, fmt.Errorf("max delay %s is smaller than min delay %s", opts.MaxDelay, opts.MinDelay)
	}

	client := resty.New()
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetHeaders(opts.Headers)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	cookies := make([]*http.Cookie, 0, len(opts.Cookies))
	for name, value := range opts.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	client.SetCookies(cookies)

	if opts.TrustAnchor != "" {
		pool, err := loadTrustAnchor(opts.TrustAnchor)
		if err != nil {
			return nil, err
		}
		client.SetTLSClientConfig(&tls.Config{RootCAs: pool})
	}

	tel = telemetry.NewScopedAPI("fetch", tel)
	telemetry.InstrumentResty(client, tel)
	libtelemetry.InstrumentResty(client, "site-file-enricher/navigator/http")
	restyutil.Dump(client, opts.Exchanges)

	return &RestyFetcher{
		http:     client,
		clock:    clock,
		minDelay: opts.MinDelay,
		maxDelay: opts.MaxDelay,
		tel:      tel,
	}, nil
}

func (f *RestyFetcher) delay() time.Duration {
	spread := f.maxDelay - f.minDelay
	if spread <= 0 {
		return f.minDelay
	}
	return f.minDelay + time.Duration(rand.Int64N(int64(spread)))
}

func (f *RestyFetcher) Fetch(ctx context.Context, link string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", link))

	err := f.clock.Sleep(ctx, f.delay())
	if err != nil {
		return Page{}, err
	}

	res, err := f.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return Page{}, fmt.Errorf("%w: get %s: %w", ErrNoDocument, link, err)
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "unexpected status")
		return Page{}, fmt.Errorf("%w: get %s: status %s", ErrNoDocument, link, res.Status())
	}

	served, err := url.Parse(link)
	if err != nil {
		return Page{}, fmt.Errorf("%w: parse url %s: %w", ErrNoDocument, link, err)
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		served = res.RawResponse.Request.URL
	}

	return Page{URL: served, Body: res.Body()}, nil
}
