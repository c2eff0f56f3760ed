package query

import "strings"

// Cond is a node in a filter-condition tree. Implementations are sealed to
// this package; build trees with Eq, In, Contains, IsFalse, And and Or.
type Cond interface {
	render(b *builder)
}

// builder accumulates SQL text and bind arguments for one statement.
type builder struct {
	dialect Dialect
	sb      strings.Builder
	args    []any
}

func (b *builder) write(s string) { b.sb.WriteString(s) }

func (b *builder) bind(v any) {
	b.args = append(b.args, v)
	b.sb.WriteString(b.dialect.Placeholder(len(b.args)))
}

type eqCond struct {
	col string
	val any
}

func (c eqCond) render(b *builder) {
	b.write(c.col + " = ")
	b.bind(c.val)
}

// Eq matches rows where col equals val.
func Eq(col string, val any) Cond { return eqCond{col: col, val: val} }

type inCond struct {
	col  string
	vals []string
}

func (c inCond) render(b *builder) {
	if len(c.vals) == 0 {
		b.write("1 = 0")
		return
	}
	b.write(c.col + " IN (")
	for i, v := range c.vals {
		if i > 0 {
			b.write(", ")
		}
		b.bind(v)
	}
	b.write(")")
}

// In matches rows where col is one of vals. An empty vals matches nothing.
func In(col string, vals []string) Cond {
	return inCond{col: col, vals: append([]string(nil), vals...)}
}

type containsCond struct {
	col    string
	needle string
}

func (c containsCond) render(b *builder) {
	b.write(b.dialect.Lower(c.col) + " LIKE ")
	b.bind("%" + escapeLike(strings.ToLower(c.needle)) + "%")
	b.write(` ESCAPE '\'`)
}

// Contains matches rows where col contains needle, ignoring case. LIKE
// wildcards in needle match literally.
func Contains(col, needle string) Cond { return containsCond{col: col, needle: needle} }

type isFalseCond struct{ col string }

func (c isFalseCond) render(b *builder) {
	b.write(c.col + " = ")
	b.bind(false)
}

// IsFalse matches rows where the boolean col is false.
func IsFalse(col string) Cond { return isFalseCond{col: col} }

type andCond []Cond

func (c andCond) render(b *builder) { renderJoined(b, c, " AND ") }

// And matches rows satisfying every cond. Nil conds are ignored; an And of
// nothing matches everything.
func And(conds ...Cond) Cond {
	var out andCond
	for _, c := range conds {
		if c == nil {
			continue
		}
		if nested, ok := c.(andCond); ok {
			out = append(out, nested...)
			continue
		}
		out = append(out, c)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

type orCond []Cond

func (c orCond) render(b *builder) { renderJoined(b, c, " OR ") }

// Or matches rows satisfying any cond. Nil conds and empty In sets are
// dropped since they can never match.
func Or(conds ...Cond) Cond {
	var out orCond
	for _, c := range conds {
		if c == nil || matchesNothing(c) {
			continue
		}
		out = append(out, c)
	}
	switch len(out) {
	case 0:
		return inCond{}
	case 1:
		return out[0]
	}
	return out
}

func matchesNothing(c Cond) bool {
	in, ok := c.(inCond)
	return ok && len(in.vals) == 0
}

func renderJoined(b *builder, conds []Cond, sep string) {
	b.write("(")
	for i, c := range conds {
		if i > 0 {
			b.write(sep)
		}
		c.render(b)
	}
	b.write(")")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Render returns the SQL text and arguments of a standalone condition.
// A nil cond renders as an always-true predicate.
func Render(c Cond, d Dialect) (string, []any) {
	b := &builder{dialect: d}
	if c == nil {
		return "1 = 1", nil
	}
	c.render(b)
	return b.sb.String(), b.args
}
