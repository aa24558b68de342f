package listquery

import "sort"

// Spec declares how one entity's list endpoint maps query parameters onto
// predicate clauses.
type Spec struct {
	Resource        string
	SearchColumns   []string
	Enums           map[string]string // param -> column, exact match
	IDs             map[string]string // param -> column, numeric exact match
	Related         map[string]string // param -> predicate with one numeric id, e.g. a sub-select
	DateColumn      string            // target of year, month, date_from, date_to
	Order           []Order
	DefaultPageSize int
}

// WithOrder returns a copy of s ordered by orders instead of the default.
func (s Spec) WithOrder(orders ...Order) Spec {
	s.Order = orders
	return s
}

// Build turns params into a builder. Invalid filter values come back as
// validation.FieldErrors.
func (s Spec) Build(p Params) (*Builder, error) {
	b := New(s.Resource).Search(p.Get("query"), s.SearchColumns...)

	for _, param := range sortedKeys(s.Enums) {
		b.Equals(s.Enums[param], p.Get(param))
	}
	for _, param := range sortedKeys(s.IDs) {
		b.EqualsID(param, s.IDs[param], p.Get(param))
	}
	for _, param := range sortedKeys(s.Related) {
		b.WhereID(param, s.Related[param], p.Get(param))
	}
	if s.DateColumn != "" {
		b.YearMonth(s.DateColumn, p.Get("year"), p.Get("month"))
		b.Dates(s.DateColumn, "date_from", p.Get("date_from"), "date_to", p.Get("date_to"))
	}
	for _, o := range s.Order {
		b.OrderBy(o.Column, o.Desc)
	}
	return b, b.Err()
}

// Normalize applies the spec's default page size to p.
func (s Spec) Normalize(p Params) Params {
	return p.Normalize(s.DefaultPageSize)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
