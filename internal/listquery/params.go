// Package listquery is the shared filtered, paginated list fetch used by every
// admin table and public grid: a builder of named predicate clauses, a count
// query and an ordered page query.
package listquery

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	MaxPageSize     = 100
	MaxExportRows   = 10000
	paramPage       = "page"
	paramPageSize   = "pageSize"
	paramPerPage    = "itemsPerPage"
	paramLimit      = "limit"
	paramQuery      = "query"
	paramSearch     = "search"
	fallbackPerPage = 10
)

// Params is the caller's view of a list: which page, how big, and which
// named filters are applied.
type Params struct {
	Page     int
	PageSize int
	Filters  map[string]string
}

// IsSentinel reports whether v means "no filter": empty, "all" or "any".
func IsSentinel(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all", "any":
		return true
	}
	return false
}

// Get returns the trimmed filter value, or "" when absent or a sentinel.
func (p Params) Get(name string) string {
	v, ok := p.Filters[name]
	if !ok || IsSentinel(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// Offset is the number of rows skipped before the current page. Callers check
// the page is in range first; a huge page number overflows.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Normalize applies defaults and bounds to page and page size.
func (p Params) Normalize(defaultPageSize int) Params {
	if defaultPageSize <= 0 {
		defaultPageSize = fallbackPerPage
	}
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.Filters == nil {
		p.Filters = map[string]string{}
	}
	return p
}

// ParseParams reads page, pageSize (or itemsPerPage / limit) and every other
// query parameter as a named filter. "search" is accepted as an alias of
// "query". Unparsable paging values fall back to defaults.
func ParseParams(values url.Values, defaultPageSize int) Params {
	p := Params{Filters: map[string]string{}}

	p.Page, _ = strconv.Atoi(values.Get(paramPage))
	for _, key := range []string{paramPageSize, paramPerPage, paramLimit} {
		if raw := values.Get(key); raw != "" {
			p.PageSize, _ = strconv.Atoi(raw)
			break
		}
	}

	for key, vals := range values {
		switch key {
		case paramPage, paramPageSize, paramPerPage, paramLimit:
			continue
		}
		if len(vals) == 0 {
			continue
		}
		name := key
		if key == paramSearch {
			name = paramQuery
			if _, dup := values[paramQuery]; dup {
				continue
			}
		}
		p.Filters[name] = vals[0]
	}

	return p.Normalize(defaultPageSize)
}

// Values encodes the params back to a query string (used by clients).
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set(paramPage, strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set(paramPageSize, strconv.Itoa(p.PageSize))
	}
	for k, val := range p.Filters {
		if !IsSentinel(val) {
			v.Set(k, val)
		}
	}
	return v
}
