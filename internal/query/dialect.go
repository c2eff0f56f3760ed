package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder syntax for a SQL backend.
type Dialect int

// Supported dialects.
const (
	SQLite Dialect = iota
	Postgres
)

// DialectFor maps a backend name ("sqlite", "postgres") to its Dialect.
func DialectFor(backend string) (Dialect, error) {
	switch backend {
	case "sqlite":
		return SQLite, nil
	case "postgres":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("no SQL dialect for backend %q", backend)
	}
}

// String returns the backend name of the dialect.
func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// UnicodeLowerFunc is the SQLite scalar function that lowercases text with
// Unicode case folding. The store registers it with the SQLite driver;
// the built-in LOWER folds ASCII only.
const UnicodeLowerFunc = "pep_lower"

// Lower wraps expr in the dialect's Unicode-aware lowercase function.
func (d Dialect) Lower(expr string) string {
	if d == Postgres {
		return "LOWER(" + expr + ")"
	}
	return UnicodeLowerFunc + "(" + expr + ")"
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites the ? markers of a hand-written statement into the
// dialect's placeholder syntax. Statements must not contain ? inside
// string literals.
func (d Dialect) Rebind(q string) string {
	if d != Postgres || !strings.Contains(q, "?") {
		return q
	}
	var sb strings.Builder
	sb.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			sb.WriteString(d.Placeholder(n))
			continue
		}
		sb.WriteByte(q[i])
	}
	return sb.String()
}
