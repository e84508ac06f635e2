package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/timex"
)

// Dialect holds everything that differs between the two backends.
// Repositories write queries with '?' placeholders and pass them through Rebind.
type Dialect interface {
	Name() string
	Rebind(query string) string
	// Time converts a naive timestamp into a bind argument.
	Time(t time.Time) any
	// ParseTime converts a scanned timestamp column back into a naive time.
	ParseTime(v any) (time.Time, error)
	// Classify maps a driver error onto the common store error taxonomy.
	Classify(err error) error
}

// PostgresDialect is used by the primary store.
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

// Rebind rewrites '?' placeholders as $1..$n, leaving quoted literals alone.
func (PostgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (PostgresDialect) Time(t time.Time) any { return timex.Naive(t) }

func (PostgresDialect) ParseTime(v any) (time.Time, error) { return parseTime(v) }

// SQLiteDialect is used by the local mirror. Timestamps are stored as TEXT in
// timex layout so they sort and compare lexically.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) Rebind(query string) string { return query }

func (SQLiteDialect) Time(t time.Time) any { return timex.Format(timex.Naive(t)) }

func (SQLiteDialect) ParseTime(v any) (time.Time, error) { return parseTime(v) }

func parseTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return timex.Naive(x), nil
	case string:
		return timex.Parse(x)
	case []byte:
		return timex.Parse(string(x))
	case nil:
		return time.Time{}, fmt.Errorf("timestamp is null")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
