package model

// NO_PRICE marks a fact that applies to the whole record instead of a single product.
const NO_PRICE int64 = -1

// NO_ORDER is used when a fact has no item-local sequence number.
const NO_ORDER = -1

type Source int

const (
	SOURCE_TREE Source = iota
	SOURCE_TABULAR
	SOURCE_PAGE
)

func (s Source) String() string {
	switch s {
	case SOURCE_TREE:
		return "tree"
	case SOURCE_TABULAR:
		return "tabular"
	case SOURCE_PAGE:
		return "page"
	}
	return "unknown"
}

// InputRow is a single row of the input document.
type InputRow struct {
	// Index is unique per input document and stable for the whole run.
	Index       int
	RecordURL   string
	ProductName string
	// UnitPrice is in minor currency units.
	UnitPrice          int64
	ClassificationCode *string
}

type FieldUpdate struct {
	Name  string
	Value *string
}

// Fact is a single (product, price, field) tuple extracted from a remote document.
type Fact struct {
	RecordURL   string
	ProductName string
	UnitPrice   int64
	OKPD        *string
	KTRU        *string
	Field       FieldUpdate
	Order       int
	Source      Source
}

// RecordScoped reports whether the fact belongs to every row of its record.
func (f Fact) RecordScoped() bool {
	return f.ProductName == "" && f.UnitPrice == NO_PRICE
}

// HasCodes reports whether the fact carries any classification code.
func (f Fact) HasCodes() bool {
	return f.OKPD != nil || f.KTRU != nil
}

// OutputRow holds the field updates for one input row.
type OutputRow struct {
	Index     int
	RecordURL string
	Updates   []FieldUpdate
}

// Set adds or replaces the update for the given field, the position of the
// first occurrence of a field name is kept.
func (r *OutputRow) Set(update FieldUpdate) {
	for i, u := range r.Updates {
		if u.Name == update.Name {
			r.Updates[i] = update
			return
		}
	}
	r.Updates = append(r.Updates, update)
}

func Ptr[T any](v T) *T {
	return &v
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
