package query

import "strings"

// Select describes a single-table (or pre-joined) SELECT statement.
type Select struct {
	Columns []string
	From    string
	Where   Cond
	GroupBy []string
	OrderBy []string
	Limit   int // <= 0 means no limit
	Offset  int
}

// Build renders the statement for d, returning SQL text and bind arguments
// in placeholder order.
func (s Select) Build(d Dialect) (string, []any) {
	b := &builder{dialect: d}
	b.write("SELECT " + strings.Join(s.Columns, ", "))
	b.write(" FROM " + s.From)
	if s.Where != nil {
		b.write(" WHERE ")
		s.Where.render(b)
	}
	if len(s.GroupBy) > 0 {
		b.write(" GROUP BY " + strings.Join(s.GroupBy, ", "))
	}
	if len(s.OrderBy) > 0 {
		b.write(" ORDER BY " + strings.Join(s.OrderBy, ", "))
	}
	if s.Limit > 0 {
		b.write(" LIMIT ")
		b.bind(s.Limit)
		if s.Offset > 0 {
			b.write(" OFFSET ")
			b.bind(s.Offset)
		}
	} else if s.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT clause.
		if d == SQLite {
			b.write(" LIMIT -1")
		}
		b.write(" OFFSET ")
		b.bind(s.Offset)
	}
	return b.sb.String(), b.args
}

// Count returns a statement counting the rows s would select, ignoring its
// ordering and window. expr is the aggregate, e.g. "COUNT(*)".
func (s Select) Count(expr string) Select {
	return Select{Columns: []string{expr}, From: s.From, Where: s.Where}
}
