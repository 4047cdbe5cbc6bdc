// Package config holds the run configuration of the enricher and builds the
// pipeline components out of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"site-file-enricher/internal/components/chrono"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/extract"
	"site-file-enricher/internal/extract/tabular"
	"site-file-enricher/internal/extract/treedoc"
	"site-file-enricher/internal/navigator"
	"site-file-enricher/internal/sheet"
	"site-file-enricher/internal/writer"
	"site-file-enricher/lib/configutil"
	"site-file-enricher/lib/restyutil"
	libtelemetry "site-file-enricher/lib/telemetry"
)

var ErrInvalid = errors.New("invalid configuration")

type TLSConfig struct {
	// TrustAnchor is the path to the PEM file holding the root certificates
	// of the remote site.
	TrustAnchor string `json:"trust_anchor"`
}

type NavigationConfig struct {
	TabSelector        string `json:"tab_selector"`
	TitleSelector      string `json:"title_selector"`
	InfoSelector       string `json:"info_selector"`
	SubjectTitle       string `json:"subject_title"`
	SubjectField       string `json:"subject_field"`
	DraftPattern       string `json:"draft_pattern"`
	DocumentPattern    string `json:"document_pattern"`
	TabMarker          string `json:"tab_marker"`
	DocumentInfoURL    string `json:"document_info_url"`
	AttachmentSelector string `json:"attachment_selector"`
}

// PatternConfig maps attachment titles to the extractor handling them.
type PatternConfig struct {
	Tree    string `json:"tree"`
	Tabular string `json:"tabular"`
}

type Config struct {
	Input string `json:"input"`
	// Output is the directory the output files are written to.
	Output string `json:"output"`
	// BaseName of the output files, defaults to the input file name with an
	// .xlsx extension.
	BaseName        string `json:"base_name"`
	CapacityPerFile int    `json:"capacity_per_file"`

	MinDelaySeconds       float64 `json:"min_delay_seconds"`
	MaxDelaySeconds       float64 `json:"max_delay_seconds"`
	RequestTimeoutSeconds float64 `json:"request_timeout_seconds"`

	TLS     TLSConfig         `json:"tls"`
	Headers map[string]string `json:"headers"`
	Cookies map[string]string `json:"cookies"`

	Navigation    NavigationConfig `json:"navigation"`
	Patterns      PatternConfig    `json:"patterns"`
	TreeSchema    treedoc.Schema   `json:"tree_schema"`
	TabularSchema tabular.Schema   `json:"tabular_schema"`

	Columns    sheet.Columns    `json:"columns"`
	TSVColumns sheet.TSVColumns `json:"tsv_columns"`

	Otlp libtelemetry.Config `json:"otlp"`
	// HTTPDumpDir keeps a text copy of every http exchange when set.
	HTTPDumpDir string `json:"http_dump_dir"`
}

func field(name string) treedoc.Locator {
	return treedoc.Locator{Name: name, Tag: name}
}

func nested(name, tag, parent string) treedoc.Locator {
	return treedoc.Locator{Name: name, Tag: tag, Parent: parent}
}

func DefaultTreeSchema() treedoc.Schema {
	return treedoc.Schema{
		Item: treedoc.ItemSchema{
			Tag:         "productInfo",
			ProductName: field("name"),
			Price:       field("price"),
			OKPD:        field("OKPDCode"),
			KTRU:        nested("KTRUInfo_code", "code", "KTRUInfo"),
			OrderTag:    "indexNum",
			Fields: []treedoc.Locator{
				field("price"),
				field("indexNum"),
				field("isDuplicated"),
				field("OKPDCode"),
				field("OKPDName"),
				field("trademark"),
				field("isMedicalProductInfo"),
				field("medicalProductCode"),
				field("medicalProductName"),
				field("certificateNameMedicalProduct"),
				nested("nationalCode", "nationalCode", "OKEIInfo"),
				nested("OKEIInfo_name", "name", "OKEIInfo"),
				nested("OKEIInfo_code", "code", "OKEIInfo"),
				field("countryCode"),
				field("countryFullName"),
				field("VATCode"),
				field("VATName"),
				nested("KTRUInfo_name", "name", "KTRUInfo"),
				nested("KTRUInfo_code", "code", "KTRUInfo"),
			},
		},
		Record: []treedoc.Locator{
			field("quantityUndefined"),
			nested("regNum", "regNum", "customerInfo"),
			nested("consRegistryNum", "consRegistryNum", "customerInfo"),
			nested("singularName", "singularName", "customerInfo"),
			nested("contractorRegistryNum", "contractorRegistryNum", "participantInfo"),
			nested("contractSubject", "contractSubject", "contractSubjectInfo"),
			nested("contractSubjectInfo_sid", "sid", "contractSubjectInfo"),
		},
	}
}

func DefaultTabularSchema() tabular.Schema {
	return tabular.Schema{
		ShapeA: &tabular.Layout{
			ProductName: tabular.Cell{Name: "html_product_name", Column: 1},
			Price:       tabular.Cell{Name: "html_price", Column: 6},
			Fields: []tabular.Cell{
				{Name: "html_product_name", Column: 1},
				{Name: "html_ktru", Column: 3},
				{Name: "html_characteristics", Column: 5},
			},
			RowStep: 1,
		},
		ShapeB: &tabular.Layout{
			ProductName: tabular.Cell{Name: "html_product_name", Column: 1},
			Price:       tabular.Cell{Name: "html_price", Column: 5},
			Fields: []tabular.Cell{
				{Name: "html_product_name", Column: 1},
				{Name: "html_ktru", Column: 3},
				{Name: "html_characteristics", Column: 0, RowOffset: 2},
			},
			RowStep: 3,
		},
	}
}

func Default() Config {
	return Config{
		CapacityPerFile: writer.DEFAULT_CAPACITY,
		MinDelaySeconds: 1,
		MaxDelaySeconds: 2,
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36",
		},
		Cookies: map[string]string{
			"doNotAdviseToChangeLocationWhenIosReject": "true",
			"sslCertificateChecker.timeout":            "1740140953638",
		},
		Navigation: NavigationConfig{
			TabSelector:        ".cardWrapper .wrapper .cardHeaderBlock .tabsNav__item",
			TitleSelector:      ".blockInfo__section .section__title",
			InfoSelector:       ".blockInfo__section .section__info",
			SubjectTitle:       "Предмет договора",
			SubjectField:       "html_product_name",
			DraftPattern:       "contract-draft",
			DocumentPattern:    "printForm/view",
			TabMarker:          "contractInfoId",
			DocumentInfoURL:    "https://zakupki.gov.ru/epz/contract/contractCard/document-info.html",
			AttachmentSelector: `.attachment__value a[href^="http"]`,
		},
		Patterns: PatternConfig{
			Tree:    `.*контракт.*\.xml`,
			Tabular: `.*Печатная форма электронного контракта\.html.*`,
		},
		TreeSchema:    DefaultTreeSchema(),
		TabularSchema: DefaultTabularSchema(),
		Columns:       sheet.DefaultColumns(),
		TSVColumns:    sheet.DefaultTSVColumns(),
	}
}

// Load reads the configuration file at path (and its local override) on
// top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := configutil.ReadWithDefaults(path, Default())
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("%w: no input document given", ErrInvalid)
	}
	if c.TLS.TrustAnchor == "" {
		return fmt.Errorf("%w: no trust anchor given", ErrInvalid)
	}
	if c.CapacityPerFile <= 0 {
		return fmt.Errorf("%w: capacity_per_file must be positive, got %d", ErrInvalid, c.CapacityPerFile)
	}
	if c.MinDelaySeconds < 0 || c.MinDelaySeconds > c.MaxDelaySeconds {
		return fmt.Errorf(
			"%w: delay range [%v, %v] is empty",
			ErrInvalid, c.MinDelaySeconds, c.MaxDelaySeconds,
		)
	}
	return nil
}

// OutputBaseName is the configured base name, or the input file name with
// its extension replaced by .xlsx.
func (c Config) OutputBaseName() string {
	if c.BaseName != "" {
		return c.BaseName
	}
	base := filepath.Base(c.Input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
}

func (c Config) FetcherOptions() navigator.FetcherOptions {
	return navigator.FetcherOptions{
		Headers:     c.Headers,
		Cookies:     c.Cookies,
		TrustAnchor: c.TLS.TrustAnchor,
		MinDelay:    seconds(c.MinDelaySeconds),
		MaxDelay:    seconds(c.MaxDelaySeconds),
		Timeout:     seconds(c.RequestTimeoutSeconds),
	}
}

func (c Config) TreeExtractor(tel telemetry.API) treedoc.Extractor {
	return treedoc.NewExtractor(c.TreeSchema, tel)
}

func (c Config) TabularExtractor(tel telemetry.API) tabular.Extractor {
	return tabular.NewExtractor(c.TabularSchema, tel)
}

// Dispatch routes attachment titles to the configured extractors.
func (c Config) Dispatch(tel telemetry.API) (*extract.Dispatch, error) {
	dispatch := &extract.Dispatch{}
	if c.Patterns.Tree != "" {
		err := dispatch.Route(c.Patterns.Tree, c.TreeExtractor(tel))
		if err != nil {
			return nil, err
		}
	}
	if c.Patterns.Tabular != "" {
		err := dispatch.Route(c.Patterns.Tabular, c.TabularExtractor(tel))
		if err != nil {
			return nil, err
		}
	}
	return dispatch, nil
}

// Steps builds the navigation steps in the order they are attempted.
func (c Config) Steps(fetcher navigator.Fetcher, dispatch *extract.Dispatch, tel telemetry.API) ([]navigator.Step, error) {
	nav := c.Navigation

	draft, err := navigator.NewDraftContractStep(
		fetcher,
		c.TabularExtractor(tel),
		navigator.DraftContractOptions{
			TabSelector:     nav.TabSelector,
			DraftPattern:    nav.DraftPattern,
			DocumentPattern: nav.DocumentPattern,
		},
		tel,
	)
	if err != nil {
		return nil, err
	}

	return []navigator.Step{
		navigator.NewDirectStatementStep(navigator.DirectStatementOptions{
			TitleSelector: nav.TitleSelector,
			InfoSelector:  nav.InfoSelector,
			SubjectTitle:  nav.SubjectTitle,
			FieldName:     nav.SubjectField,
		}),
		draft,
		navigator.NewAttachmentsStep(fetcher, dispatch, navigator.AttachmentsOptions{
			TabSelector:        nav.TabSelector,
			TabMarker:          nav.TabMarker,
			DocumentInfoURL:    nav.DocumentInfoURL,
			AttachmentSelector: nav.AttachmentSelector,
		}, tel),
	}, nil
}

// Navigator builds the fetcher and the navigator for a run.
func (c Config) Navigator(clock chrono.API, tel telemetry.API) (navigator.Navigator, *extract.Dispatch, error) {
	opts := c.FetcherOptions()
	if c.HTTPDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(c.HTTPDumpDir)
		if err != nil {
			return navigator.Navigator{}, nil, fmt.Errorf("http dump: %w", err)
		}
		opts.Exchanges = output
	}
	fetcher, err := navigator.NewRestyFetcher(opts, clock, tel)
	if err != nil {
		return navigator.Navigator{}, nil, err
	}
	dispatch, err := c.Dispatch(tel)
	if err != nil {
		return navigator.Navigator{}, nil, err
	}
	steps, err := c.Steps(fetcher, dispatch, tel)
	if err != nil {
		return navigator.Navigator{}, nil, err
	}
	return navigator.NewNavigator(fetcher, steps, tel), dispatch, nil
}

// FieldNames lists every output column the configured extractors and the
// direct statement can produce.
func (c Config) FieldNames(dispatch *extract.Dispatch) []string {
	names := dispatch.FieldNames()
	for _, name := range names {
		if name == c.Navigation.SubjectField {
			return names
		}
	}
	return append(names, c.Navigation.SubjectField)
}
