package storage

import (
	"fmt"
	"strings"
)

// Dialect abstracts the SQL syntax differences between the supported
// backends. Query-building code asks the dialect for placeholders and
// clauses instead of branching on the driver name.
type Dialect interface {
	// Name returns the driver name used with sql.Open.
	Name() string

	// Placeholder returns the parameter placeholder for the n-th
	// parameter (1-based). SQLite uses "?" regardless of position,
	// PostgreSQL uses "$1", "$2", ...
	Placeholder(n int) string

	// Placeholders returns a comma-separated placeholder list for
	// parameters start..start+count-1.
	Placeholders(start, count int) string

	// LimitClause returns the row-limiting clause for a query.
	LimitClause(limit, offset int) string

	// InClause returns a predicate matching column against count
	// parameters starting at placeholder index start. A zero count
	// short-circuits to a match-nothing predicate so callers never
	// emit invalid "IN ()" syntax.
	InClause(column string, start, count int) string

	// SerialPK returns the column definition for an auto-incrementing
	// integer primary key.
	SerialPK() string

	// Returning returns the clause appended to an INSERT to read back
	// a generated column, or "" when the driver reports it through
	// Result.LastInsertId instead.
	Returning(column string) string
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite3" }

func (sqliteDialect) Placeholder(_ int) string { return "?" }

func (sqliteDialect) Placeholders(_, count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

func (sqliteDialect) LimitClause(limit, offset int) string {
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	}
	return fmt.Sprintf("LIMIT %d", limit)
}

func (d sqliteDialect) InClause(column string, start, count int) string {
	if count <= 0 {
		return "1 = 0"
	}
	return fmt.Sprintf("%s IN (%s)", column, d.Placeholders(start, count))
}

func (sqliteDialect) SerialPK() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }

func (sqliteDialect) Returning(_ string) string { return "" }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (d postgresDialect) Placeholders(start, count int) string {
	if count <= 0 {
		return ""
	}
	parts := make([]string, count)
	for i := 0; i < count; i++ {
		parts[i] = d.Placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

func (postgresDialect) LimitClause(limit, offset int) string {
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	}
	return fmt.Sprintf("LIMIT %d", limit)
}

func (d postgresDialect) InClause(column string, start, count int) string {
	if count <= 0 {
		return "1 = 0"
	}
	return fmt.Sprintf("%s IN (%s)", column, d.Placeholders(start, count))
}

func (postgresDialect) SerialPK() string { return "BIGSERIAL PRIMARY KEY" }

func (postgresDialect) Returning(column string) string { return " RETURNING " + column }
