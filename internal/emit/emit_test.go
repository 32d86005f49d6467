package emit

import (
	"strings"
	"testing"

	"github.com/windrift-orm/windrift/internal/ast"
	"github.com/windrift-orm/windrift/internal/token"
)

func mustInt(t *testing.T, text string) *ast.Literal {
	t.Helper()
	lit, err := ast.NewInt(text, token.Span{})
	if err != nil {
		t.Fatalf("NewInt(%q): %v", text, err)
	}
	return lit
}

func qualifiedCol(alias, name string) *ast.ColumnIdent {
	return &ast.ColumnIdent{Segments: []ast.Segment{{Name: alias}, {Name: name}}}
}

func TestQuerySelectBasic(t *testing.T) {
	q := &ast.SelectQuery{
		Select: &ast.SelectClause{Items: []ast.SelectItem{{Expr: qualifiedCol("u", "name")}}},
		From:   &ast.FromClause{Primary: &ast.TableReference{Name: "users", Alias: "u"}},
		Where:  &ast.BinaryExpr{Op: ast.Eq, Left: qualifiedCol("u", "id"), Right: mustInt(t, "1")},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `SELECT "u"."name" FROM "users" AS "u" WHERE ("u"."id" = 1)`
	if res.SQL != want {
		t.Fatalf("got %q, want %q", res.SQL, want)
	}
	if len(res.Externals) != 0 {
		t.Fatalf("expected no externals, got %v", res.Externals)
	}
}

func TestQueryExternalPlaceholdersAreNumberedInAppearanceOrder(t *testing.T) {
	q := &ast.SelectQuery{
		Select: &ast.SelectClause{Items: []ast.SelectItem{{Expr: qualifiedCol("u", "id")}}},
		From:   &ast.FromClause{Primary: &ast.TableReference{Name: "users", Alias: "u"}},
		Where: &ast.BinaryExpr{
			Op:   ast.Or,
			Left: &ast.BinaryExpr{Op: ast.Eq, Left: qualifiedCol("u", "id"), Right: ast.NewExternal("id", token.Span{})},
			Right: &ast.BinaryExpr{Op: ast.Eq, Left: qualifiedCol("u", "name"),
				Right: ast.NewExternal("name", token.Span{})},
		},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.SQL, "$1") || !strings.Contains(res.SQL, "$2") {
		t.Fatalf("expected $1 and $2 placeholders, got %q", res.SQL)
	}
	if len(res.Externals) != 2 || res.Externals[0] != "id" || res.Externals[1] != "name" {
		t.Fatalf("got externals %v, want [id name]", res.Externals)
	}
}

func TestQueryExternalPlaceholderReuseSharesSlot(t *testing.T) {
	q := &ast.SelectQuery{
		Select: &ast.SelectClause{Items: []ast.SelectItem{{Expr: qualifiedCol("u", "id")}}},
		From:   &ast.FromClause{Primary: &ast.TableReference{Name: "users", Alias: "u"}},
		Where: &ast.BinaryExpr{
			Op:   ast.Or,
			Left: &ast.BinaryExpr{Op: ast.Eq, Left: qualifiedCol("u", "id"), Right: ast.NewExternal("id", token.Span{})},
			Right: &ast.BinaryExpr{Op: ast.Ne, Left: qualifiedCol("u", "id"),
				Right: ast.NewExternal("id", token.Span{})},
		},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Externals) != 1 {
		t.Fatalf("got %d externals, want 1 (reused slot)", len(res.Externals))
	}
	if strings.Count(res.SQL, "$1") != 2 {
		t.Fatalf("expected $1 to appear twice, got %q", res.SQL)
	}
}

func TestQueryXorExpandsToNullPropagatingForm(t *testing.T) {
	q := &ast.SelectQuery{
		Select: &ast.SelectClause{Items: []ast.SelectItem{{Expr: qualifiedCol("u", "id")}}},
		From:   &ast.FromClause{Primary: &ast.TableReference{Name: "users", Alias: "u"}},
		Where: &ast.BinaryExpr{Op: ast.Xor,
			Left:  qualifiedCol("u", "active"),
			Right: qualifiedCol("u", "archived")},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Never IS DISTINCT FROM: it treats NULL as an ordinary value and
	// would never null-propagate like the grammar's xor must.
	if strings.Contains(res.SQL, "IS DISTINCT FROM") {
		t.Fatalf("got %q, xor must not use IS DISTINCT FROM", res.SQL)
	}
	want := `SELECT "u"."id" FROM "users" AS "u" WHERE (("u"."active" AND NOT ("u"."archived")) OR (NOT ("u"."active") AND "u"."archived"))`
	if res.SQL != want {
		t.Fatalf("got %q, want %q", res.SQL, want)
	}
}

func TestQueryBitwiseXorBecomesHash(t *testing.T) {
	q := &ast.SelectQuery{
		Select: &ast.SelectClause{Items: []ast.SelectItem{{Expr: &ast.BinaryExpr{Op: ast.BitXor, Left: mustInt(t, "6"), Right: mustInt(t, "3")}}}},
		From:   &ast.FromClause{Primary: &ast.TableReference{Name: "users"}},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.SQL, "#") {
		t.Fatalf("got %q, want the bitwise xor # translation", res.SQL)
	}
}

func TestQueryDelete(t *testing.T) {
	q := &ast.DeleteQuery{
		From:  &ast.TableReference{Name: "users"},
		Where: &ast.BinaryExpr{Op: ast.Eq, Left: qualifiedCol("users", "id"), Right: mustInt(t, "1")},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `DELETE FROM "users" WHERE ("users"."id" = 1)`
	if res.SQL != want {
		t.Fatalf("got %q, want %q", res.SQL, want)
	}
}

func TestQueryUpdate(t *testing.T) {
	q := &ast.UpdateQuery{
		Table: &ast.TableReference{Name: "users"},
		Set: &ast.SetClause{Items: []ast.SetItem{
			{Column: &ast.ColumnIdent{Segments: []ast.Segment{{Name: "name"}}}, Value: ast.NewString("bob", token.Span{})},
			{Column: &ast.ColumnIdent{Segments: []ast.Segment{{Name: "archived"}}}, IsDefault: true},
		}},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `UPDATE "users" SET "name" = 'bob', "archived" = DEFAULT`
	if res.SQL != want {
		t.Fatalf("got %q, want %q", res.SQL, want)
	}
}

func TestQueryInsert(t *testing.T) {
	q := &ast.InsertQuery{
		Table:   "users",
		Columns: []string{"id", "name"},
		Values:  []ast.Expr{mustInt(t, "1"), ast.NewString("bob", token.Span{})},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `INSERT INTO "users" ("id", "name") VALUES (1, 'bob')`
	if res.SQL != want {
		t.Fatalf("got %q, want %q", res.SQL, want)
	}
}

func TestQuoteSQLStringEscapesQuotes(t *testing.T) {
	if got := quoteSQLString(`it's`); got != `'it''s'` {
		t.Fatalf("got %q", got)
	}
}

func TestQueryJoinOnCondition(t *testing.T) {
	q := &ast.SelectQuery{
		Select: &ast.SelectClause{Items: []ast.SelectItem{{Expr: qualifiedCol("u", "id")}}},
		From: &ast.FromClause{
			Primary: &ast.TableReference{Name: "users", Alias: "u"},
			Joins: []*ast.JoinClause{
				{Kind: ast.JoinOnCond, JoinType: ast.LeftJoin, Table: &ast.TableReference{Name: "orders", Alias: "o"},
					Condition: &ast.BinaryExpr{Op: ast.Eq, Left: qualifiedCol("u", "id"), Right: qualifiedCol("o", "user_id")}},
			},
		},
	}
	res, err := Query(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `SELECT "u"."id" FROM "users" AS "u" LEFT JOIN "orders" AS "o" ON ("u"."id" = "o"."user_id")`
	if res.SQL != want {
		t.Fatalf("got %q, want %q", res.SQL, want)
	}
}
