package check

import (
	"testing"

	"github.com/windrift-orm/windrift/internal/ast"
	"github.com/windrift-orm/windrift/internal/diag"
	"github.com/windrift-orm/windrift/internal/rtype"
	"github.com/windrift-orm/windrift/internal/token"
)

type mapColumnTyper map[string]map[string]struct {
	typeName string
	nullable bool
}

func (m mapColumnTyper) ColumnType(alias, column string) (string, bool, bool) {
	cols, ok := m[alias]
	if !ok {
		return "", false, false
	}
	c, ok := cols[column]
	if !ok {
		return "", false, false
	}
	return c.typeName, c.nullable, true
}

func newTyper() mapColumnTyper {
	return mapColumnTyper{
		"u": {
			"id":   {typeName: "numeric", nullable: false},
			"name": {typeName: "string", nullable: true},
		},
	}
}

func qualifiedCol(alias, name string) *ast.ColumnIdent {
	return &ast.ColumnIdent{Segments: []ast.Segment{{Name: alias}, {Name: name}}}
}

func TestCheckColumnResolvesRegisteredType(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	w := c.Check(qualifiedCol("u", "name"))
	if w == nil {
		t.Fatalf("unexpected nil wrapper; diagnostics: %v", d.Errors())
	}
	if w.TypeName != "string" || !w.Nullable {
		t.Fatalf("got %+v, want string/nullable", w)
	}
}

func TestCheckColumnUnknownFieldIsAnError(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	w := c.Check(qualifiedCol("u", "missing"))
	if w != nil {
		t.Fatal("expected nil wrapper for an unknown field")
	}
	if !d.HasErrors() {
		t.Fatal("expected an unknown-field diagnostic")
	}
}

func TestCheckColumnWildcardIsAnError(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	wildcard := &ast.ColumnIdent{Segments: []ast.Segment{{IsWildcard: true}}}
	if w := c.Check(wildcard); w != nil {
		t.Fatal("expected nil wrapper for a wildcard")
	}
	if !d.HasErrors() {
		t.Fatal("expected an error for typing a wildcard")
	}
}

func TestCheckCallCountIsNonNullableNumeric(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	call := &ast.FunctionCall{Name: "COUNT", Args: []ast.Expr{qualifiedCol("u", "id")}}
	w := c.Check(call)
	if w == nil {
		t.Fatalf("unexpected nil wrapper; diagnostics: %v", d.Errors())
	}
	if w.TypeName != "numeric" || w.Nullable {
		t.Fatalf("got %+v, want non-nullable numeric", w)
	}
}

func TestCheckCallCoalesceIsNullableOnlyIfAllArgsAre(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	call := &ast.FunctionCall{Name: "COALESCE", Args: []ast.Expr{
		qualifiedCol("u", "name"), // nullable
		qualifiedCol("u", "id"),   // not nullable
	}}
	w := c.Check(call)
	if w == nil {
		t.Fatalf("unexpected nil wrapper; diagnostics: %v", d.Errors())
	}
	if w.Nullable {
		t.Fatal("expected COALESCE to be non-nullable when one argument is non-nullable")
	}
}

func TestRequireBooleanRejectsNonBooleanCondition(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	c.RequireBoolean(qualifiedCol("u", "id"), "WHERE")
	if !d.HasErrors() {
		t.Fatal("expected a type error for a numeric WHERE condition")
	}
}

func TestRequireBooleanAcceptsComparisonResult(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	cond := &ast.BinaryExpr{Op: ast.Eq, Left: qualifiedCol("u", "id"), Right: mustInt(t, "1")}
	c.RequireBoolean(cond, "WHERE")
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
}

func TestCheckQueryFlagsNonBooleanJoinCondition(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	q := &ast.SelectQuery{
		Select: &ast.SelectClause{Items: []ast.SelectItem{{Expr: qualifiedCol("u", "id")}}},
		From: &ast.FromClause{
			Primary: &ast.TableReference{Name: "users", Alias: "u"},
			Joins: []*ast.JoinClause{
				{Kind: ast.JoinOnCond, Table: &ast.TableReference{Name: "users", Alias: "u2"}, Condition: qualifiedCol("u", "id")},
			},
		},
	}
	c.CheckQuery(q)
	if !d.HasErrors() {
		t.Fatal("expected a type error for a non-boolean JOIN ON condition")
	}
}

func TestCheckBinaryExternalPlaceholderInfersSiblingType(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	cond := &ast.BinaryExpr{Op: ast.Eq, Left: qualifiedCol("u", "id"), Right: ast.NewExternal("id", token.Span{})}
	w := c.Check(cond)
	if w == nil {
		t.Fatalf("unexpected nil wrapper; diagnostics: %v", d.Errors())
	}
	if w.TypeName != "boolean" {
		t.Fatalf("got %+v, want boolean comparison result", w)
	}
}

func TestCheckBinaryExternalOnEitherSideInfersSiblingType(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	cond := &ast.BinaryExpr{Op: ast.Eq, Left: ast.NewExternal("name", token.Span{}), Right: qualifiedCol("u", "name")}
	w := c.Check(cond)
	if w == nil {
		t.Fatalf("unexpected nil wrapper; diagnostics: %v", d.Errors())
	}
	if w.TypeName != "boolean" {
		t.Fatalf("got %+v, want boolean comparison result", w)
	}
}

func TestCheckExternalPlaceholderWithNoSiblingIsAnError(t *testing.T) {
	d := diag.New()
	c := New(rtype.NewRegistry(), newTyper(), d)
	w := c.Check(ast.NewExternal("id", token.Span{}))
	if w != nil {
		t.Fatal("expected nil wrapper for a standalone external placeholder")
	}
	if !d.HasErrors() {
		t.Fatal("expected a cannot-infer-type diagnostic")
	}
}

func mustInt(t *testing.T, text string) *ast.Literal {
	t.Helper()
	lit, err := ast.NewInt(text, token.Span{})
	if err != nil {
		t.Fatalf("NewInt(%q): %v", text, err)
	}
	return lit
}
