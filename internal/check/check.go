// Package check implements the type inference/checking pass (spec §4.F):
// every expression in a query is wrapped with an rtype.ExprWrapper, and
// clauses with a contextual boolean requirement (WHERE, HAVING, JOIN ON)
// are verified to type as boolean.
package check

import (
	"github.com/windrift-orm/windrift/internal/ast"
	"github.com/windrift-orm/windrift/internal/diag"
	"github.com/windrift-orm/windrift/internal/rtype"
)

// ColumnTyper resolves a qualified column reference to the resolver name
// that owns its type. Implemented by the schema resolver once a schema is
// available; tests may supply a literal map-backed implementation.
type ColumnTyper interface {
	ColumnType(alias, column string) (typeName string, nullable bool, ok bool)
}

// Checker drives rtype.Registry over a query's expression tree.
type Checker struct {
	Registry *rtype.Registry
	Columns  ColumnTyper
	diag     *diag.Diagnostics
}

// New creates a Checker. d collects every diagnostic produced while
// checking; it is shared with the caller so earlier-stage diagnostics
// (parse, alias) remain in the same ordered collection.
func New(reg *rtype.Registry, columns ColumnTyper, d *diag.Diagnostics) *Checker {
	return &Checker{Registry: reg, Columns: columns, diag: d}
}

// Check type-checks e, returning its wrapper. On error it records a
// diagnostic and returns nil; callers must treat a nil wrapper as "this
// subtree could not be typed" and propagate without panicking.
func (c *Checker) Check(e ast.Expr) *rtype.ExprWrapper {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.Literal:
		w, err := c.Registry.WrapLiteral(n)
		if err != nil {
			c.diag.AddErrorf(n.Sp, diag.ErrCannotInferType, "%s", err)
			return nil
		}
		return w
	case *ast.ColumnIdent:
		return c.checkColumn(n)
	case *ast.FunctionCall:
		return c.checkCall(n)
	case *ast.UnaryExpr:
		operand := c.Check(n.Operand)
		if operand == nil {
			return nil
		}
		out, err := c.Registry.HandleUnary(n.Op, operand)
		if err != nil {
			c.diag.AddErrorf(n.Sp, diag.ErrTypeError, "%s", err)
			return nil
		}
		out.Expr = n
		return out
	case *ast.BinaryExpr:
		left, right := c.checkBinaryOperands(n.Left, n.Right)
		if left == nil || right == nil {
			return nil
		}
		out, err := c.Registry.HandleBinary(n.Op, left, right)
		if err != nil {
			c.diag.AddErrorf(n.Sp, diag.ErrTypeError, "%s", err)
			return nil
		}
		out.Expr = n
		return out
	default:
		c.diag.AddErrorf(e.Span(), diag.ErrCannotInferType, "cannot type-check expression of kind %T", e)
		return nil
	}
}

// checkBinaryOperands types a binary expression's two operands, giving an
// external placeholder (`$name`) the type of its sibling operand rather
// than trying to self-infer one from its own literal kind: an external
// literal carries no kind of its own until it is compared against
// something that does.
func (c *Checker) checkBinaryOperands(le, re ast.Expr) (*rtype.ExprWrapper, *rtype.ExprWrapper) {
	leftExt, rightExt := isExternal(le), isExternal(re)
	switch {
	case leftExt && !rightExt:
		right := c.Check(re)
		if right == nil {
			return nil, nil
		}
		return c.wrapExternal(le.(*ast.Literal), right), right
	case rightExt && !leftExt:
		left := c.Check(le)
		if left == nil {
			return nil, nil
		}
		return left, c.wrapExternal(re.(*ast.Literal), left)
	default:
		return c.Check(le), c.Check(re)
	}
}

func isExternal(e ast.Expr) bool {
	lit, ok := e.(*ast.Literal)
	return ok && lit.Kind == ast.LitExternal
}

// wrapExternal wraps an external placeholder using hint's resolved type,
// since the placeholder's own value is only known at query execution time.
func (c *Checker) wrapExternal(lit *ast.Literal, hint *rtype.ExprWrapper) *rtype.ExprWrapper {
	res, ok := c.Registry.Lookup(hint.TypeName)
	if !ok {
		c.diag.AddErrorf(lit.Sp, diag.ErrCannotInferType, "cannot infer a type for external placeholder %q", lit.External)
		return nil
	}
	return &rtype.ExprWrapper{Expr: lit, TypeName: res.Name(), Kind: res.Kind(), Nullable: true}
}

func (c *Checker) checkColumn(col *ast.ColumnIdent) *rtype.ExprWrapper {
	if col.Column().IsWildcard {
		c.diag.AddErrorf(col.Sp, diag.ErrCannotInferType, "wildcard cannot be used where a typed value is required")
		return nil
	}
	alias := col.Alias()
	name := col.Column().Name
	typeName, nullable, ok := c.Columns.ColumnType(alias, name)
	if !ok {
		c.diag.AddErrorf(col.Sp, diag.ErrUnknownField, "unknown field %q on alias %q", name, alias)
		return nil
	}
	res, ok := c.Registry.Lookup(typeName)
	if !ok {
		c.diag.AddErrorf(col.Sp, diag.ErrUnknownResolverName, "no resolver registered for type %q", typeName)
		return nil
	}
	return &rtype.ExprWrapper{Expr: col, TypeName: res.Name(), Kind: res.Kind(), Nullable: nullable}
}

// checkCall gives a handful of well-known aggregate/scalar functions a
// type without a full function-signature registry: COUNT is always a
// non-nullable numeric, COALESCE/IFNULL take the first argument's type and
// are nullable only if every argument is, and anything else falls back to
// numeric (the common case for arithmetic helper functions).
func (c *Checker) checkCall(call *ast.FunctionCall) *rtype.ExprWrapper {
	args := make([]*rtype.ExprWrapper, 0, len(call.Args))
	for _, a := range call.Args {
		w := c.Check(a)
		if w == nil {
			return nil
		}
		args = append(args, w)
	}

	switch lower(call.Name) {
	case "count":
		return &rtype.ExprWrapper{Expr: call, TypeName: "numeric", Kind: rtype.KindNumeric, Nullable: false}
	case "coalesce", "ifnull":
		if len(args) == 0 {
			c.diag.AddErrorf(call.Sp, diag.ErrTypeError, "%s requires at least one argument", call.Name)
			return nil
		}
		allNullable := true
		for _, a := range args {
			if !a.Nullable {
				allNullable = false
			}
		}
		return &rtype.ExprWrapper{Expr: call, TypeName: args[0].TypeName, Kind: args[0].Kind, Nullable: allNullable}
	default:
		return &rtype.ExprWrapper{Expr: call, TypeName: "numeric", Kind: rtype.KindNumeric, Nullable: true}
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// RequireBoolean checks e and records a diagnostic if it does not type as
// boolean, naming context (e.g. "WHERE", "HAVING", "JOIN ON") in the
// message.
func (c *Checker) RequireBoolean(e ast.Expr, context string) {
	if e == nil {
		return
	}
	w := c.Check(e)
	if w == nil {
		return
	}
	if w.Kind != rtype.KindBoolean {
		c.diag.AddErrorf(e.Span(), diag.ErrTypeError, "%s condition must be boolean, got %s", context, w.Kind)
	}
}

// CheckQuery type-checks every expression in q, enforcing the contextual
// boolean requirement on WHERE, HAVING and JOIN ON clauses.
func (c *Checker) CheckQuery(q ast.Query) {
	switch query := q.(type) {
	case *ast.SelectQuery:
		for _, item := range query.Select.Items {
			c.Check(item.Expr)
		}
		c.checkFromJoins(query.From)
		c.RequireBoolean(query.Where, "WHERE")
		if query.GroupBy != nil {
			c.Check(query.GroupBy.By)
			c.RequireBoolean(query.GroupBy.Having, "HAVING")
		}
		if query.OrderBy != nil {
			for _, item := range query.OrderBy.Items {
				c.Check(item.Expr)
			}
		}
	case *ast.DeleteQuery:
		c.RequireBoolean(query.Where, "WHERE")
	case *ast.UpdateQuery:
		c.checkFromJoins(query.From)
		for _, item := range query.Set.Items {
			if !item.IsDefault {
				c.Check(item.Value)
			}
		}
		c.RequireBoolean(query.Where, "WHERE")
	case *ast.InsertQuery:
		for _, v := range query.Values {
			c.Check(v)
		}
	}
}

func (c *Checker) checkFromJoins(from *ast.FromClause) {
	if from == nil {
		return
	}
	for _, j := range from.Joins {
		if j.Kind == ast.JoinOnCond {
			c.RequireBoolean(j.Condition, "JOIN ON")
		}
	}
}
