package extract

import (
	"context"
	"testing"

	"site-file-enricher/internal/model"

	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	name   string
	fields []string
}

func (s stubExtractor) Extract(context.Context, []byte, string) []model.Fact {
	return nil
}

func (s stubExtractor) FieldNames() []string {
	return s.fields
}

func TestDispatchMatch(t *testing.T) {
	xml := stubExtractor{name: "xml", fields: []string{"trademark", "price"}}
	html := stubExtractor{name: "html", fields: []string{"html_ktru", "price"}}

	d := &Dispatch{}
	require.NoError(t, d.Route(`.*контракт.*\.xml`, xml))
	require.NoError(t, d.Route(`.*Печатная форма электронного контракта\.html.*`, html))
	require.NoError(t, d.Route(`.*\.xml`, html))

	matched, ok := d.Match("Электронный контракт 123.xml")
	require.True(t, ok)
	require.Equal(t, "xml", matched.(stubExtractor).name)

	matched, ok = d.Match("Печатная форма электронного контракта.html (12 Кб)")
	require.True(t, ok)
	require.Equal(t, "html", matched.(stubExtractor).name)

	_, ok = d.Match("Акт приемки.pdf")
	require.False(t, ok)

	require.Equal(t, []string{"html_ktru", "price", "trademark"}, d.FieldNames())
}

func TestDispatchRouteErrors(t *testing.T) {
	d := &Dispatch{}
	require.Error(t, d.Route(`(`, stubExtractor{}))
	require.NoError(t, d.Route(`.*`, nil))
	require.Equal(t, 0, d.Len())
}
