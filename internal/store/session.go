package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/pepdb/internal/query"
)

// session is the transaction scope of a single store operation. Statements
// are written with ? markers and rebound for the dialect.
type session struct {
	tx      *sql.Tx
	dialect query.Dialect
	now     func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *session) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.tx.ExecContext(ctx, s.dialect.Rebind(q), args...)
}

func (s *session) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.tx.QueryRowContext(ctx, s.dialect.Rebind(q), args...)
}

func (s *session) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.tx.QueryContext(ctx, s.dialect.Rebind(q), args...)
}

// selectRows runs a built SELECT. Its placeholders are already in dialect
// form, so it bypasses Rebind.
func (s *session) selectRows(ctx context.Context, sel query.Select) (*sql.Rows, error) {
	q, args := sel.Build(s.dialect)
	return s.tx.QueryContext(ctx, q, args...)
}

// count returns the number of rows sel would return, under the same filter.
func (s *session) count(ctx context.Context, sel query.Select, expr string) (int, error) {
	q, args := sel.Count(expr).Build(s.dialect)
	var n int
	if err := s.tx.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", sel.From, err)
	}
	return n, nil
}

// collect drains rows through scan and closes them. Rows must be fully read
// before the next statement on the same transaction.
func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *session) timestamp() string {
	return formatTime(s.now())
}
