package store

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"modernc.org/sqlite"

	"github.com/mesh-intelligence/pepdb/internal/query"
)

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(query.UnicodeLowerFunc, 1, unicodeLower)
}

// unicodeLower lowercases its argument with Unicode case mapping so that
// search folds non-ASCII letters the same way on SQLite as on PostgreSQL.
func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return strings.ToLower(fmt.Sprint(v)), nil
	}
}
