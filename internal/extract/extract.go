// Package extract holds the capability shared by every attachment parser and
// the table that decides which parser handles which attachment.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"site-file-enricher/internal/model"
)

// Extractor turns a downloaded document into facts. Implementations never
// fail as a whole, a malformed part of a document only drops that part.
type Extractor interface {
	Extract(ctx context.Context, document []byte, recordURL string) []model.Fact
	// FieldNames lists the output field names this extractor can produce.
	FieldNames() []string
}

type route struct {
	pattern   *regexp.Regexp
	extractor Extractor
}

// Dispatch maps attachment titles to extractors, the first matching route wins.
type Dispatch struct {
	routes []route
}

// Route registers an extractor for titles matching pattern. The pattern is
// anchored at the start of the title.
func (d *Dispatch) Route(pattern string, extractor Extractor) error {
	if extractor == nil {
		return nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return fmt.Errorf("compile attachment pattern %q: %w", pattern, err)
	}
	d.routes = append(d.routes, route{pattern: re, extractor: extractor})
	return nil
}

func (d *Dispatch) Match(title string) (Extractor, bool) {
	for _, r := range d.routes {
		if r.pattern.MatchString(title) {
			return r.extractor, true
		}
	}
	return nil, false
}

func (d *Dispatch) Len() int {
	return len(d.routes)
}

// FieldNames returns the sorted, deduplicated field names of every routed extractor.
func (d *Dispatch) FieldNames() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, r := range d.routes {
		for _, name := range r.extractor.FieldNames() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
