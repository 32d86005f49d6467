// Package emit renders a query — already parsed, alias-resolved, folded
// and type-checked — into parameterized Postgres SQL text: `$name`
// external placeholders become positional `$1, $2, ...` parameters in
// first-appearance order, and the handful of grammar operators with no direct
// Postgres spelling (`xor`, bitwise `^`) are translated to an equivalent
// expression. It never talks to a database; Exec/Query are the caller's
// job once they have a Result. Grounded on the teacher runtime's view
// query builder, which renumbers the compiler's `$N` placeholders against
// a running argIndex the same way this package renumbers externals.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/windrift-orm/windrift/internal/ast"
)

// Result is a query rendered to parameterized SQL text. Externals lists
// the external placeholder names in the order their `$1, $2, ...` slots
// appear in SQL, so a caller can build its argument slice by looking each
// name up in whatever values map it was given.
type Result struct {
	SQL       string
	Externals []string
}

type emitter struct {
	b         strings.Builder
	externals []string
	seen      map[string]int // external name -> its $N slot, for reuse
}

// Query renders q to parameterized SQL.
func Query(q ast.Query) (*Result, error) {
	e := &emitter{seen: map[string]int{}}
	if err := e.query(q); err != nil {
		return nil, err
	}
	return &Result{SQL: e.b.String(), Externals: e.externals}, nil
}

func (e *emitter) query(q ast.Query) error {
	switch query := q.(type) {
	case *ast.SelectQuery:
		return e.selectQuery(query)
	case *ast.DeleteQuery:
		return e.deleteQuery(query)
	case *ast.UpdateQuery:
		return e.updateQuery(query)
	case *ast.InsertQuery:
		return e.insertQuery(query)
	default:
		return fmt.Errorf("emit: unsupported query type %T", q)
	}
}

func (e *emitter) selectQuery(q *ast.SelectQuery) error {
	e.b.WriteString("SELECT ")
	for i, item := range q.Select.Items {
		if i > 0 {
			e.b.WriteString(", ")
		}
		if err := e.expr(item.Expr); err != nil {
			return err
		}
		if item.Alias != "" {
			fmt.Fprintf(&e.b, " AS %s", quoteIdent(item.Alias))
		}
	}
	e.b.WriteString(" FROM ")
	if err := e.from(q.From); err != nil {
		return err
	}
	if err := e.whereClause(q.Where); err != nil {
		return err
	}
	if q.GroupBy != nil {
		e.b.WriteString(" GROUP BY ")
		if err := e.expr(q.GroupBy.By); err != nil {
			return err
		}
		if q.GroupBy.Having != nil {
			e.b.WriteString(" HAVING ")
			if err := e.expr(q.GroupBy.Having); err != nil {
				return err
			}
		}
	}
	if q.OrderBy != nil {
		e.b.WriteString(" ORDER BY ")
		for i, item := range q.OrderBy.Items {
			if i > 0 {
				e.b.WriteString(", ")
			}
			if err := e.expr(item.Expr); err != nil {
				return err
			}
			if item.Order == ast.Desc {
				e.b.WriteString(" DESC")
			} else {
				e.b.WriteString(" ASC")
			}
		}
	}
	if q.Limit != nil {
		fmt.Fprintf(&e.b, " LIMIT %d", *q.Limit)
	}
	if q.Offset != nil {
		fmt.Fprintf(&e.b, " OFFSET %d", *q.Offset)
	}
	return nil
}

func (e *emitter) deleteQuery(q *ast.DeleteQuery) error {
	e.b.WriteString("DELETE FROM ")
	e.tableRef(q.From)
	return e.whereClause(q.Where)
}

func (e *emitter) updateQuery(q *ast.UpdateQuery) error {
	e.b.WriteString("UPDATE ")
	e.tableRef(q.Table)
	e.b.WriteString(" SET ")
	for i, item := range q.Set.Items {
		if i > 0 {
			e.b.WriteString(", ")
		}
		e.b.WriteString(quoteIdent(item.Column.Column().Name))
		e.b.WriteString(" = ")
		if item.IsDefault {
			e.b.WriteString("DEFAULT")
		} else if err := e.expr(item.Value); err != nil {
			return err
		}
	}
	if q.From != nil {
		e.b.WriteString(" FROM ")
		if err := e.from(q.From); err != nil {
			return err
		}
	}
	return e.whereClause(q.Where)
}

func (e *emitter) insertQuery(q *ast.InsertQuery) error {
	fmt.Fprintf(&e.b, "INSERT INTO %s", quoteIdent(q.Table))
	if q.Columns != nil {
		cols := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			cols[i] = quoteIdent(c)
		}
		fmt.Fprintf(&e.b, " (%s)", strings.Join(cols, ", "))
	}
	e.b.WriteString(" VALUES (")
	for i, v := range q.Values {
		if i > 0 {
			e.b.WriteString(", ")
		}
		if err := e.expr(v); err != nil {
			return err
		}
	}
	e.b.WriteString(")")
	return nil
}

func (e *emitter) whereClause(where ast.Expr) error {
	if where == nil {
		return nil
	}
	e.b.WriteString(" WHERE ")
	return e.expr(where)
}

func (e *emitter) from(f *ast.FromClause) error {
	e.tableRef(f.Primary)
	for _, j := range f.Joins {
		e.b.WriteString(" ")
		if err := e.join(j); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) join(j *ast.JoinClause) error {
	switch j.Kind {
	case ast.JoinNatural:
		fmt.Fprintf(&e.b, "NATURAL %s JOIN ", j.JoinType)
		e.tableRef(j.Table)
		return nil
	case ast.JoinCross:
		e.b.WriteString("CROSS JOIN ")
		e.tableRef(j.Table)
		return nil
	default:
		fmt.Fprintf(&e.b, "%s JOIN ", j.JoinType)
		e.tableRef(j.Table)
		e.b.WriteString(" ON ")
		return e.expr(j.Condition)
	}
}

func (e *emitter) tableRef(t *ast.TableReference) {
	e.b.WriteString(quoteIdent(t.Name))
	if t.Alias != "" && t.Alias != t.Name {
		fmt.Fprintf(&e.b, " AS %s", quoteIdent(t.Alias))
	}
}

func (e *emitter) expr(ex ast.Expr) error {
	switch n := ex.(type) {
	case *ast.Literal:
		return e.literal(n)
	case *ast.ColumnIdent:
		e.b.WriteString(quoteColumnIdent(n))
		return nil
	case *ast.FunctionCall:
		return e.call(n)
	case *ast.UnaryExpr:
		return e.unary(n)
	case *ast.BinaryExpr:
		return e.binary(n)
	default:
		return fmt.Errorf("emit: unsupported expression node %T", ex)
	}
}

func (e *emitter) literal(l *ast.Literal) error {
	switch l.Kind {
	case ast.LitBool:
		if l.Bool {
			e.b.WriteString("TRUE")
		} else {
			e.b.WriteString("FALSE")
		}
	case ast.LitInt:
		e.b.WriteString(l.Int.String())
	case ast.LitFloat:
		e.b.WriteString(strconv.FormatFloat(l.Float, 'g', -1, 64))
	case ast.LitString:
		e.b.WriteString(quoteSQLString(l.StringValue))
	case ast.LitNull:
		e.b.WriteString("NULL")
	case ast.LitExternal:
		e.b.WriteString(e.placeholder(l.External))
	default:
		return fmt.Errorf("emit: unsupported literal kind %d", l.Kind)
	}
	return nil
}

// placeholder returns the $N slot for an external name, reusing the same
// slot if the name already appeared earlier in this query (matching
// Postgres's own positional-parameter reuse semantics).
func (e *emitter) placeholder(name string) string {
	if n, ok := e.seen[name]; ok {
		return fmt.Sprintf("$%d", n)
	}
	e.externals = append(e.externals, name)
	n := len(e.externals)
	e.seen[name] = n
	return fmt.Sprintf("$%d", n)
}

func (e *emitter) call(c *ast.FunctionCall) error {
	fmt.Fprintf(&e.b, "%s(", c.Name)
	for i, a := range c.Args {
		if i > 0 {
			e.b.WriteString(", ")
		}
		if err := e.expr(a); err != nil {
			return err
		}
	}
	e.b.WriteString(")")
	return nil
}

func (e *emitter) unary(u *ast.UnaryExpr) error {
	switch u.Op {
	case ast.Not:
		e.b.WriteString("NOT (")
	case ast.BitReverse:
		e.b.WriteString("~(")
	}
	if err := e.expr(u.Operand); err != nil {
		return err
	}
	e.b.WriteString(")")
	return nil
}

// binary renders the operator. Bitwise xor has no direct Postgres
// spelling and uses Postgres's `#` rather than the grammar's `^`. Logical
// xor is handled separately by xor below, since it has no direct
// Postgres spelling either.
func (e *emitter) binary(b *ast.BinaryExpr) error {
	if b.Op == ast.Xor {
		return e.xor(b)
	}
	e.b.WriteString("(")
	if err := e.expr(b.Left); err != nil {
		return err
	}
	e.b.WriteString(" ")
	e.b.WriteString(sqlOperator(b.Op))
	e.b.WriteString(" ")
	if err := e.expr(b.Right); err != nil {
		return err
	}
	e.b.WriteString(")")
	return nil
}

// xor expands the grammar's xor into AND/OR/NOT so it keeps SQL's
// three-valued null propagation. Postgres's IS DISTINCT FROM treats NULL
// as an ordinary comparable value and so never returns NULL, which would
// silently diverge from the grammar's xor over a nullable operand.
func (e *emitter) xor(b *ast.BinaryExpr) error {
	e.b.WriteString("((")
	if err := e.expr(b.Left); err != nil {
		return err
	}
	e.b.WriteString(" AND NOT (")
	if err := e.expr(b.Right); err != nil {
		return err
	}
	e.b.WriteString(")) OR (NOT (")
	if err := e.expr(b.Left); err != nil {
		return err
	}
	e.b.WriteString(") AND ")
	if err := e.expr(b.Right); err != nil {
		return err
	}
	e.b.WriteString("))")
	return nil
}

func sqlOperator(op ast.BinaryOp) string {
	switch op {
	case ast.Or:
		return "OR"
	case ast.And:
		return "AND"
	case ast.Ne:
		return "<>"
	case ast.BitXor:
		return "#"
	default:
		return op.String()
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteColumnIdent(c *ast.ColumnIdent) string {
	if c.Column().IsWildcard {
		if alias := c.Alias(); alias != "" {
			return quoteIdent(alias) + ".*"
		}
		return "*"
	}
	if alias := c.Alias(); alias != "" {
		return quoteIdent(alias) + "." + quoteIdent(c.Column().Name)
	}
	return quoteIdent(c.Column().Name)
}

func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
