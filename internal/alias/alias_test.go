package alias

import (
	"testing"

	"github.com/windrift-orm/windrift/internal/ast"
	"github.com/windrift-orm/windrift/internal/diag"
)

func col(name string) *ast.ColumnIdent {
	return &ast.ColumnIdent{Segments: []ast.Segment{{Name: name}}}
}

func TestCollectAssignsSyntheticAlias(t *testing.T) {
	d := diag.New()
	from := &ast.FromClause{Primary: &ast.TableReference{Name: "users"}}
	set := Collect(from, d)
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	if from.Primary.Alias != "users" {
		t.Fatalf("alias = %q, want %q", from.Primary.Alias, "users")
	}
	if _, ok := set["users"]; !ok {
		t.Fatal("expected alias \"users\" in the table set")
	}
}

func TestCollectConflictingAliasesIsAnError(t *testing.T) {
	d := diag.New()
	from := &ast.FromClause{
		Primary: &ast.TableReference{Name: "users", Alias: "t"},
		Joins: []*ast.JoinClause{
			{Kind: ast.JoinCross, Table: &ast.TableReference{Name: "orders", Alias: "t"}},
		},
	}
	Collect(from, d)
	if !d.HasErrors() {
		t.Fatal("expected a conflict diagnostic for a duplicate alias")
	}
}

// fakeSchema implements SchemaLookup over a plain table->columns map.
type fakeSchema map[string][]string

func (s fakeSchema) HasColumn(table, column string) bool {
	for _, c := range s[table] {
		if c == column {
			return true
		}
	}
	return false
}

func TestRewriteExprQualifiesUnqualifiedColumnWithSoleAlias(t *testing.T) {
	d := diag.New()
	set := TableSet{"u": &ast.TableReference{Name: "users", Alias: "u"}}
	c := col("name")
	got := RewriteExpr(c, set, nil, d)
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	rewritten := got.(*ast.ColumnIdent)
	if rewritten.Alias() != "u" || rewritten.Column().Name != "name" {
		t.Fatalf("got alias=%q column=%q, want alias=u column=name", rewritten.Alias(), rewritten.Column().Name)
	}
}

func TestRewriteExprAmbiguousColumnWithMultipleTablesInScope(t *testing.T) {
	d := diag.New()
	set := TableSet{
		"u": &ast.TableReference{Name: "users", Alias: "u"},
		"o": &ast.TableReference{Name: "orders", Alias: "o"},
	}
	// Without a schema, arity alone can't disambiguate.
	RewriteExpr(col("id"), set, nil, d)
	if !d.HasErrors() {
		t.Fatal("expected an ambiguity diagnostic")
	}
}

func TestRewriteExprSchemaResolvesColumnOwnedBySingleTable(t *testing.T) {
	d := diag.New()
	set := TableSet{
		"u": &ast.TableReference{Name: "users", Alias: "u"},
		"o": &ast.TableReference{Name: "orders", Alias: "o"},
	}
	schema := fakeSchema{"users": {"id", "name"}, "orders": {"id", "user_id"}}
	got := RewriteExpr(col("name"), set, schema, d)
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	rewritten := got.(*ast.ColumnIdent)
	if rewritten.Alias() != "u" {
		t.Fatalf("got alias=%q, want u (the only table declaring \"name\")", rewritten.Alias())
	}
}

func TestRewriteExprSchemaStillAmbiguousWhenBothTablesDeclareColumn(t *testing.T) {
	d := diag.New()
	set := TableSet{
		"u": &ast.TableReference{Name: "users", Alias: "u"},
		"o": &ast.TableReference{Name: "orders", Alias: "o"},
	}
	schema := fakeSchema{"users": {"id"}, "orders": {"id"}}
	RewriteExpr(col("id"), set, schema, d)
	if !d.HasErrors() {
		t.Fatal("expected an ambiguity diagnostic when both tables declare the field")
	}
}

func TestRewriteExprSchemaRejectsColumnNoTableDeclares(t *testing.T) {
	d := diag.New()
	set := TableSet{"u": &ast.TableReference{Name: "users", Alias: "u"}}
	schema := fakeSchema{"users": {"id"}}
	RewriteExpr(col("name"), set, schema, d)
	if !d.HasErrors() {
		t.Fatal("expected an unknown-field diagnostic")
	}
}

func TestRewriteExprNoTablesInScope(t *testing.T) {
	d := diag.New()
	RewriteExpr(col("id"), TableSet{}, nil, d)
	if !d.HasErrors() {
		t.Fatal("expected an error when no table is in scope")
	}
}

func TestRewriteExprUnknownQualifiedAlias(t *testing.T) {
	d := diag.New()
	set := TableSet{"u": &ast.TableReference{Name: "users", Alias: "u"}}
	c := &ast.ColumnIdent{Segments: []ast.Segment{{Name: "o"}, {Name: "id"}}}
	RewriteExpr(c, set, nil, d)
	if !d.HasErrors() {
		t.Fatal("expected an unknown-alias diagnostic")
	}
}

func TestRewriteExprBareWildcardNeedsNoQualifier(t *testing.T) {
	d := diag.New()
	wildcard := &ast.ColumnIdent{Segments: []ast.Segment{{IsWildcard: true}}}
	RewriteExpr(wildcard, TableSet{}, nil, d)
	if d.HasErrors() {
		t.Fatalf("unexpected errors for bare wildcard: %v", d.Errors())
	}
}

func TestResolveQuerySelectQualifiesWhereColumn(t *testing.T) {
	d := diag.New()
	q := &ast.SelectQuery{
		Select: &ast.SelectClause{Items: []ast.SelectItem{{Expr: col("name")}}},
		From:   &ast.FromClause{Primary: &ast.TableReference{Name: "users"}},
		Where:  col("active"),
	}
	ResolveQuery(q, nil, d)
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	where := q.Where.(*ast.ColumnIdent)
	if where.Alias() != "users" {
		t.Fatalf("where column alias = %q, want %q", where.Alias(), "users")
	}
}
