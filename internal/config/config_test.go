package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/navigator"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enricher.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		input: "in.xlsx",
		capacity_per_file: 50,
		headers: {"Accept-Language": "ru"},
		tls: {trust_anchor: "ca.pem"},
	}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enricher.local.json5"), []byte(`{
		max_delay_seconds: 3,
	}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "in.xlsx", cfg.Input)
	require.Equal(t, 50, cfg.CapacityPerFile)
	require.Equal(t, "ru", cfg.Headers["Accept-Language"])
	require.Contains(t, cfg.Headers, "User-Agent")
	require.Equal(t, "ca.pem", cfg.TLS.TrustAnchor)

	opts := cfg.FetcherOptions()
	require.Equal(t, time.Second, opts.MinDelay)
	require.Equal(t, 3*time.Second, opts.MaxDelay)
	require.Equal(t, "ca.pem", opts.TrustAnchor)

	if diff := cmp.Diff(DefaultTreeSchema(), cfg.TreeSchema); diff != "" {
		t.Fatalf("tree schema changed (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json5"))
	require.NoError(t, err)
	require.Equal(t, 300, cfg.CapacityPerFile)

	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, "html_product_name", cfg.Navigation.SubjectField)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Input = "in.xlsx"
	valid.TLS.TrustAnchor = "ca.pem"
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"no input":        func(c *Config) { c.Input = "" },
		"no trust anchor": func(c *Config) { c.TLS.TrustAnchor = "" },
		"zero capacity":   func(c *Config) { c.CapacityPerFile = 0 },
		"inverted delays": func(c *Config) { c.MinDelaySeconds = 3 },
		"negative delays": func(c *Config) { c.MinDelaySeconds = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			c.Input = "in.xlsx"
			c.TLS.TrustAnchor = "ca.pem"
			mutate(&c)
			require.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestOutputBaseName(t *testing.T) {
	c := Default()
	c.Input = filepath.Join("data", "april.tsv")
	require.Equal(t, "april.xlsx", c.OutputBaseName())

	c.BaseName = "enriched.xlsx"
	require.Equal(t, "enriched.xlsx", c.OutputBaseName())
}

func TestDispatch(t *testing.T) {
	tel := telemetry.NopAPI{}
	dispatch, err := Default().Dispatch(tel)
	require.NoError(t, err)
	require.Equal(t, 2, dispatch.Len())

	_, ok := dispatch.Match("Электронный контракт №1.xml")
	require.True(t, ok)
	_, ok = dispatch.Match("Печатная форма электронного контракта.html")
	require.True(t, ok)
	_, ok = dispatch.Match("Акт приемки.pdf")
	require.False(t, ok)

	names := Default().FieldNames(dispatch)
	require.Contains(t, names, "KTRUInfo_code")
	require.Contains(t, names, "html_characteristics")
	require.Contains(t, names, "contractSubjectInfo_sid")
	count := 0
	for _, name := range names {
		if name == "html_product_name" {
			count++
		}
	}
	require.Equal(t, 1, count)

	c := Default()
	c.Patterns.Tree = "("
	_, err = c.Dispatch(tel)
	require.Error(t, err)
}

func TestSteps(t *testing.T) {
	tel := telemetry.NopAPI{}
	c := Default()
	dispatch, err := c.Dispatch(tel)
	require.NoError(t, err)

	steps, err := c.Steps(stubFetcher{}, dispatch, tel)
	require.NoError(t, err)

	var names []string
	for _, s := range steps {
		names = append(names, s.Name())
	}
	require.Equal(t, []string{"direct_statement", "draft_contract", "attachments"}, names)
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, link string) (navigator.Page, error) {
	return navigator.Page{}, navigator.ErrNoDocument
}
