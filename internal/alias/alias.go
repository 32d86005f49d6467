// Package alias implements the two-phase alias resolution pass (spec
// §4.D): first every table reference in a FROM clause is given a stable
// alias (its declared one, or a synthetic alias equal to its table name),
// then every unqualified column reference in the query is rewritten to
// carry an explicit alias, or rejected as ambiguous/unknown.
package alias

import (
	"github.com/windrift-orm/windrift/internal/ast"
	"github.com/windrift-orm/windrift/internal/diag"
)

// TableSet maps an alias to the table reference it names.
type TableSet map[string]*ast.TableReference

// SchemaLookup reports whether a table declares a column, letting
// unqualified-column rewriting resolve by field ownership instead of by
// table count alone. A nil SchemaLookup falls back to the arity-only
// rule: qualify against the sole table in scope, or report ambiguous as
// soon as there is more than one.
type SchemaLookup interface {
	HasColumn(table, column string) bool
}

// Collect walks a FROM clause assigning a synthetic alias (the table's own
// name) to any unaliased table reference, and records a conflict
// diagnostic if two references claim the same alias. The TableReference
// nodes are mutated in place so later passes observe the resolved alias.
func Collect(from *ast.FromClause, d *diag.Diagnostics) TableSet {
	set := TableSet{}
	if from == nil {
		return set
	}
	addTable(set, from.Primary, d)
	for _, j := range from.Joins {
		addTable(set, j.Table, d)
	}
	return set
}

func addTable(set TableSet, ref *ast.TableReference, d *diag.Diagnostics) {
	if ref == nil {
		return
	}
	if ref.Alias == "" {
		ref.Alias = ref.Name
	}
	if existing, ok := set[ref.Alias]; ok && existing != ref {
		d.AddErrorf(ref.Sp, diag.ErrConflictAlias, "alias %q is already bound to table %q", ref.Alias, existing.Name)
		return
	}
	set[ref.Alias] = ref
}

// RewriteExpr walks e, qualifying every unqualified column reference
// against schema (or, absent a schema, the query's sole table alias),
// validating qualified references against set, and recursing into every
// expression's children. Literal nodes and external placeholders are left
// untouched. e is mutated in place and also returned for call-site
// convenience.
func RewriteExpr(e ast.Expr, set TableSet, schema SchemaLookup, d *diag.Diagnostics) ast.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.Literal:
		return n
	case *ast.ColumnIdent:
		rewriteColumn(n, set, schema, d)
		return n
	case *ast.FunctionCall:
		for i, a := range n.Args {
			n.Args[i] = RewriteExpr(a, set, schema, d)
		}
		return n
	case *ast.UnaryExpr:
		n.Operand = RewriteExpr(n.Operand, set, schema, d)
		return n
	case *ast.BinaryExpr:
		n.Left = RewriteExpr(n.Left, set, schema, d)
		n.Right = RewriteExpr(n.Right, set, schema, d)
		return n
	default:
		return e
	}
}

func rewriteColumn(c *ast.ColumnIdent, set TableSet, schema SchemaLookup, d *diag.Diagnostics) {
	if c.Column().IsWildcard && len(c.Segments) == 1 {
		// Bare "*" needs no table qualifier; it expands against every
		// table in scope at a later stage.
		return
	}
	if len(c.Segments) >= 2 {
		aliasName := c.Alias()
		if _, ok := set[aliasName]; !ok {
			d.AddErrorf(c.Sp, diag.ErrUnknownAlias, "unknown table alias %q", aliasName)
		}
		return
	}
	name := c.Column().Name
	if schema != nil {
		var owners []string
		for a, ref := range set {
			if schema.HasColumn(ref.Name, name) {
				owners = append(owners, a)
			}
		}
		switch len(owners) {
		case 0:
			d.AddErrorf(c.Sp, diag.ErrUnknownField, "column %q is not declared by any table in scope", name)
		case 1:
			c.Segments = []ast.Segment{{Name: owners[0]}, c.Segments[0]}
		default:
			d.AddErrorf(c.Sp, diag.ErrUnknownField, "column %q is ambiguous; qualify it with a table alias", name)
		}
		return
	}
	switch len(set) {
	case 0:
		d.AddErrorf(c.Sp, diag.ErrUnknownAlias, "column %q referenced with no table in scope", name)
	case 1:
		var only string
		for a := range set {
			only = a
		}
		c.Segments = []ast.Segment{{Name: only}, c.Segments[0]}
	default:
		d.AddErrorf(c.Sp, diag.ErrUnknownField, "column %q is ambiguous; qualify it with a table alias", name)
	}
}

// ResolveQuery runs alias collection and column rewriting over every
// expression-bearing clause of q, dispatching on its concrete query type.
// INSERT queries are left as they are: their values are not rewritten.
// schema may be nil, in which case unqualified columns fall back to the
// arity-only rule (see SchemaLookup).
func ResolveQuery(q ast.Query, schema SchemaLookup, d *diag.Diagnostics) {
	switch query := q.(type) {
	case *ast.SelectQuery:
		set := Collect(query.From, d)
		rewriteJoinConditions(query.From, set, schema, d)
		for i := range query.Select.Items {
			query.Select.Items[i].Expr = RewriteExpr(query.Select.Items[i].Expr, set, schema, d)
		}
		query.Where = RewriteExpr(query.Where, set, schema, d)
		if query.GroupBy != nil {
			query.GroupBy.By = RewriteExpr(query.GroupBy.By, set, schema, d)
			query.GroupBy.Having = RewriteExpr(query.GroupBy.Having, set, schema, d)
		}
		if query.OrderBy != nil {
			for i := range query.OrderBy.Items {
				query.OrderBy.Items[i].Expr = RewriteExpr(query.OrderBy.Items[i].Expr, set, schema, d)
			}
		}
	case *ast.DeleteQuery:
		set := TableSet{}
		addTable(set, query.From, d)
		query.Where = RewriteExpr(query.Where, set, schema, d)
	case *ast.UpdateQuery:
		set := TableSet{}
		addTable(set, query.Table, d)
		if query.From != nil {
			for alias, ref := range Collect(query.From, d) {
				set[alias] = ref
			}
			rewriteJoinConditions(query.From, set, schema, d)
		}
		for i := range query.Set.Items {
			query.Set.Items[i].Column = columnIdentOrSelf(RewriteExpr(query.Set.Items[i].Column, set, schema, d))
			query.Set.Items[i].Value = RewriteExpr(query.Set.Items[i].Value, set, schema, d)
		}
		query.Where = RewriteExpr(query.Where, set, schema, d)
	case *ast.InsertQuery:
		for i, v := range query.Values {
			query.Values[i] = v
		}
	}
}

func columnIdentOrSelf(e ast.Expr) *ast.ColumnIdent {
	if c, ok := e.(*ast.ColumnIdent); ok {
		return c
	}
	return nil
}

func rewriteJoinConditions(from *ast.FromClause, set TableSet, schema SchemaLookup, d *diag.Diagnostics) {
	if from == nil {
		return
	}
	for _, j := range from.Joins {
		if j.Kind == ast.JoinOnCond {
			j.Condition = RewriteExpr(j.Condition, set, schema, d)
		}
	}
}
