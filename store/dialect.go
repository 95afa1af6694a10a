package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect is the SQL flavour of the underlying database
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// ParseDialect maps a DB_DRIVER value to a dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return SQLite, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// driverName is the database/sql driver registered for the dialect
func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// groupConcat aggregates the distinct values of expr into a comma separated
// list in ascending order. Values may themselves contain commas, so the order
// is fixed by the database and never by splitting the result.
func (d Dialect) groupConcat(expr string) string {
	if d == Postgres {
		return fmt.Sprintf("STRING_AGG(DISTINCT %s, ',' ORDER BY %s)", expr, expr)
	}
	return fmt.Sprintf("GROUP_CONCAT(DISTINCT %s ORDER BY %s)", expr, expr)
}

// rebind rewrites ? placeholders into the dialect's positional form.
// Queries in this package never contain literal question marks.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
