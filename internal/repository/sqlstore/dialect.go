package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between supported engines
type Dialect struct {
	Name string

	// NumberedPlaceholders rewrites ? into $1, $2, ...
	NumberedPlaceholders bool

	// LockClause is appended to reads that must lock the row inside a transaction
	LockClause string
}

var (
	// SQLite serializes writers with immediate transactions, so no row lock clause is needed
	SQLite = Dialect{Name: "sqlite"}

	// Postgres locks rows explicitly and uses numbered placeholders
	Postgres = Dialect{Name: "postgres", NumberedPlaceholders: true, LockClause: " FOR UPDATE"}
)

// Rebind converts a query written with ? placeholders into the dialect's form
func (d Dialect) Rebind(query string) string {
	if !d.NumberedPlaceholders {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}
