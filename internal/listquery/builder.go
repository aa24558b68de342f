package listquery

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/database"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

const dateLayout = "2006-01-02"

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

func (o Order) String() string {
	if o.Desc {
		return o.Column + " DESC"
	}
	return o.Column + " ASC"
}

type clause struct {
	name  string
	apply func(db *gorm.DB) *gorm.DB
}

// Builder accumulates named predicate clauses. Every clause is ANDed; a
// clause whose input is absent or a sentinel is never added, so an empty
// builder selects the whole table.
type Builder struct {
	resource string
	clauses  []clause
	orders   []Order
	tiebreak string
	errs     validation.FieldErrors
}

// New starts an empty builder for resource (used in logs and metrics).
func New(resource string) *Builder {
	return &Builder{resource: resource, tiebreak: "id", errs: validation.FieldErrors{}}
}

// Resource returns the label the builder was created with.
func (b *Builder) Resource() string { return b.resource }

// Err returns the field errors collected while parsing filter values.
func (b *Builder) Err() error { return b.errs.OrNil() }

// Clauses lists the names of the predicates that will be applied.
func (b *Builder) Clauses() []string {
	names := make([]string, 0, len(b.clauses))
	for _, c := range b.clauses {
		names = append(names, c.name)
	}
	return names
}

func (b *Builder) add(name string, fn func(db *gorm.DB) *gorm.DB) *Builder {
	b.clauses = append(b.clauses, clause{name: name, apply: fn})
	return b
}

// Search adds a case-insensitive substring match ORed across columns.
func (b *Builder) Search(term string, columns ...string) *Builder {
	term = strings.TrimSpace(term)
	if IsSentinel(term) || len(columns) == 0 {
		return b
	}
	pattern := "%" + escapeLike(term) + "%"
	return b.add("search", func(db *gorm.DB) *gorm.DB {
		parts := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			parts[i], args[i] = searchTerm(db, col, pattern)
		}
		return db.Where("("+strings.Join(parts, " OR ")+")", args...)
	})
}

// Equals adds an exact match on column.
func (b *Builder) Equals(column, value string) *Builder {
	if IsSentinel(value) {
		return b
	}
	value = strings.TrimSpace(value)
	return b.add(column, func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", value)
	})
}

// EqualsID adds an exact match on a numeric id column. A non-numeric value is
// reported under param.
func (b *Builder) EqualsID(param, column, raw string) *Builder {
	if IsSentinel(raw) {
		return b
	}
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		b.errs.Add(param, "must be a positive integer")
		return b
	}
	return b.add(column, func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", uint(id))
	})
}

// Range adds from <= column < to. Zero bounds are open.
func (b *Builder) Range(column string, from, to time.Time) *Builder {
	if from.IsZero() && to.IsZero() {
		return b
	}
	return b.add(column+" range", func(db *gorm.DB) *gorm.DB {
		if !from.IsZero() {
			db = db.Where(column+" >= ?", from)
		}
		if !to.IsZero() {
			db = db.Where(column+" < ?", to)
		}
		return db
	})
}

// YearMonth narrows column to a calendar year, or to one month of it. A
// month without a year is ignored.
func (b *Builder) YearMonth(column, year, month string) *Builder {
	if IsSentinel(year) {
		return b
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1900 || y > 9999 {
		b.errs.Add("year", "must be a four digit year")
		return b
	}

	from := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	if !IsSentinel(month) {
		m, err := strconv.Atoi(strings.TrimSpace(month))
		if err != nil || m < 1 || m > 12 {
			b.errs.Add("month", "must be between 1 and 12")
			return b
		}
		from = time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
	}
	return b.Range(column, from, to)
}

// Dates narrows column to the inclusive calendar days [from, to] given as
// YYYY-MM-DD strings. Either side may be absent.
func (b *Builder) Dates(column, fromParam, from, toParam, to string) *Builder {
	var lo, hi time.Time
	if !IsSentinel(from) {
		t, err := time.Parse(dateLayout, strings.TrimSpace(from))
		if err != nil {
			b.errs.Add(fromParam, "must be a date in YYYY-MM-DD format")
			return b
		}
		lo = t
	}
	if !IsSentinel(to) {
		t, err := time.Parse(dateLayout, strings.TrimSpace(to))
		if err != nil {
			b.errs.Add(toParam, "must be a date in YYYY-MM-DD format")
			return b
		}
		hi = t.AddDate(0, 0, 1)
	}
	if !lo.IsZero() && !hi.IsZero() && !lo.Before(hi) {
		b.errs.Add(fromParam, "must not be after "+toParam)
		return b
	}
	return b.Range(column, lo, hi)
}

// Where adds a raw predicate, used for join filters such as sub-selects.
func (b *Builder) Where(name, query string, args ...interface{}) *Builder {
	return b.add(name, func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// WhereID is Where with a single numeric id argument taken from a filter
// value. A non-numeric value is reported under param.
func (b *Builder) WhereID(param, query, raw string) *Builder {
	if IsSentinel(raw) {
		return b
	}
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		b.errs.Add(param, "must be a positive integer")
		return b
	}
	return b.Where(param, query, uint(id))
}

// OrderBy appends an ORDER BY term. The id tiebreak is always applied last.
func (b *Builder) OrderBy(column string, desc bool) *Builder {
	b.orders = append(b.orders, Order{Column: column, Desc: desc})
	return b
}

// Tiebreak changes the unique column appended to ORDER BY (default "id").
func (b *Builder) Tiebreak(column string) *Builder {
	b.tiebreak = column
	return b
}

// Filter applies every predicate clause to db.
func (b *Builder) Filter(db *gorm.DB) *gorm.DB {
	for _, c := range b.clauses {
		db = c.apply(db)
	}
	return db
}

// Ordered applies the ORDER BY terms followed by the unique tiebreak so that
// pages never overlap or skip rows.
func (b *Builder) Ordered(db *gorm.DB) *gorm.DB {
	desc := false
	for _, o := range b.orders {
		db = db.Order(o.String())
		desc = o.Desc
	}
	if b.tiebreak != "" {
		db = db.Order(Order{Column: b.tiebreak, Desc: desc}.String())
	}
	return db
}

// searchTerm matches column against pattern ignoring case. SQLite folds
// both sides through database.UnicodeLower so non-ASCII letters match too.
func searchTerm(db *gorm.DB, column, pattern string) (string, string) {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return column + ` ILIKE ? ESCAPE '\'`, pattern
	}
	return database.UnicodeLower + "(" + column + `) LIKE ? ESCAPE '\'`, strings.ToLower(pattern)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
