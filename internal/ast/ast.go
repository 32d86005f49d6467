// Package ast defines the typed AST produced by the parser (spec §3, §4.B):
// literals, column identifiers, expressions, clauses and the four query
// forms. Every node carries a Span that is a subrange of its parent's
// (spec §3 invariant), and every node renders back to query text via
// Format, used for debugging and round-trip tests (SPEC_FULL.md §4).
package ast

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/windrift-orm/windrift/internal/token"
)

// Node is implemented by every AST node.
type Node interface {
	Span() token.Span
	Format() string
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	expr()
}

// ---- Literals ----------------------------------------------------------

// LiteralKind discriminates the Literal tagged union (spec §3).
type LiteralKind int

const (
	LitBool LiteralKind = iota
	LitInt
	LitFloat
	LitString
	LitExternal
	LitNull
)

// Literal is the tagged-union literal value.
type Literal struct {
	Kind LiteralKind

	Bool  bool
	Int   *big.Int // arbitrary precision (spec §9 open question b)
	Float float64

	// String carries both the decoded value and the raw (escaped) source
	// form, so folding/printing can round-trip verbatim (spec §3).
	StringValue string
	StringRaw   string

	// External is the placeholder name for a `$name` literal.
	External string

	Sp token.Span
}

func (l *Literal) expr()          {}
func (l *Literal) Span() token.Span { return l.Sp }

func (l *Literal) Format() string {
	switch l.Kind {
	case LitBool:
		if l.Bool {
			return "true"
		}
		return "false"
	case LitInt:
		return l.Int.String()
	case LitFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case LitString:
		return `"` + l.StringRaw + `"`
	case LitExternal:
		return "$" + l.External
	case LitNull:
		return "null"
	default:
		return "<?literal>"
	}
}

// NewBool builds a boolean literal.
func NewBool(v bool, sp token.Span) *Literal { return &Literal{Kind: LitBool, Bool: v, Sp: sp} }

// NewNull builds a null literal.
func NewNull(sp token.Span) *Literal { return &Literal{Kind: LitNull, Sp: sp} }

// NewExternal builds an external-placeholder literal ($name).
func NewExternal(name string, sp token.Span) *Literal {
	return &Literal{Kind: LitExternal, External: name, Sp: sp}
}

// NewInt parses an integer literal's source text into arbitrary-precision
// form. Returns an error if the text is not a valid base-10 integer.
func NewInt(text string, sp token.Span) (*Literal, error) {
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("cannot parse integer %q", text)
	}
	return &Literal{Kind: LitInt, Int: v, Sp: sp}, nil
}

// NewFloat parses a float literal's source text.
func NewFloat(text string, sp token.Span) (*Literal, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot parse float %q", text)
	}
	return &Literal{Kind: LitFloat, Float: v, Sp: sp}, nil
}

// NewString decodes a raw (escaped) string token body into a String
// literal, preserving the raw form for Format/round-trip.
func NewString(raw string, sp token.Span) *Literal {
	return &Literal{Kind: LitString, StringValue: decodeEscapes(raw), StringRaw: raw, Sp: sp}
}

func decodeEscapes(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte(raw[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ---- Column identifiers -------------------------------------------------

// Segment is one piece of a ColumnIdent: either a plain identifier name,
// or the wildcard "*".
type Segment struct {
	Name       string
	IsWildcard bool
}

func (s Segment) String() string {
	if s.IsWildcard {
		return "*"
	}
	return s.Name
}

// ColumnIdent is an ordered, non-empty sequence of segments (spec §3).
// Before alias rewriting it usually has one segment (a bare field name);
// after rewriting it has exactly two (alias, column).
type ColumnIdent struct {
	Segments []Segment
	Sp       token.Span
}

func (c *ColumnIdent) expr()            {}
func (c *ColumnIdent) Span() token.Span { return c.Sp }

func (c *ColumnIdent) Format() string {
	parts := make([]string, len(c.Segments))
	for i, s := range c.Segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Alias returns the first segment name when the identifier has been
// qualified (len(Segments) >= 2), or "" otherwise.
func (c *ColumnIdent) Alias() string {
	if len(c.Segments) >= 2 {
		return c.Segments[0].Name
	}
	return ""
}

// Column returns the final segment.
func (c *ColumnIdent) Column() Segment {
	return c.Segments[len(c.Segments)-1]
}

// ---- Operators -----------------------------------------------------------

// BinaryOp enumerates binary operators, ordered low-to-high precedence
// per spec §4.A (the numeric value is not the precedence; see parser).
type BinaryOp int

const (
	Or BinaryOp = iota
	Xor
	And
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	BitOr
	BitAnd
	BitXor
	ShiftLeft
	ShiftRight
	Add
	Sub
	Mul
	Div
	Mod
)

var binaryOpNames = map[BinaryOp]string{
	Or: "or", Xor: "xor", And: "and",
	Eq: "=", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
	BitOr: "|", BitAnd: "&", BitXor: "^", ShiftLeft: "<<", ShiftRight: ">>",
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// IsComparison reports whether op is one of eq/ne/lt/le/gt/ge — comparisons
// are non-associative relative to each other (spec §4.A).
func (op BinaryOp) IsComparison() bool {
	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge:
		return true
	default:
		return false
	}
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	Not UnaryOp = iota
	BitReverse
)

func (op UnaryOp) String() string {
	if op == Not {
		return "not"
	}
	return "~"
}

// ---- Expressions ---------------------------------------------------------

// FunctionCall is a named function applied to zero or more arguments.
type FunctionCall struct {
	Name string
	Args []Expr
	Sp   token.Span
}

func (f *FunctionCall) expr()            {}
func (f *FunctionCall) Span() token.Span { return f.Sp }
func (f *FunctionCall) Format() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.Format()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// UnaryExpr applies a unary operator to an operand.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
	Sp      token.Span
}

func (u *UnaryExpr) expr()            {}
func (u *UnaryExpr) Span() token.Span { return u.Sp }
func (u *UnaryExpr) Format() string {
	if u.Op == Not {
		return "(not " + u.Operand.Format() + ")"
	}
	return "(~" + u.Operand.Format() + ")"
}

// BinaryExpr applies a binary operator to a left-deep pair of operands.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Sp    token.Span
}

func (b *BinaryExpr) expr()            {}
func (b *BinaryExpr) Span() token.Span { return b.Sp }
func (b *BinaryExpr) Format() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.Format(), b.Op, b.Right.Format())
}

// ---- Clauses ---------------------------------------------------------

// TableReference names a table and its optional alias.
type TableReference struct {
	Name  string
	Alias string // "" when unaliased
	Sp    token.Span
}

func (t *TableReference) Span() token.Span { return t.Sp }
func (t *TableReference) Format() string {
	if t.Alias != "" {
		return t.Name + " AS " + t.Alias
	}
	return t.Name
}

// JoinType enumerates supported join flavors (spec §3).
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
)

var joinTypeNames = map[JoinType]string{
	InnerJoin: "INNER", LeftJoin: "LEFT", RightJoin: "RIGHT", FullJoin: "FULL",
	LeftOuterJoin: "LEFT OUTER", RightOuterJoin: "RIGHT OUTER", FullOuterJoin: "FULL OUTER",
}

func (j JoinType) String() string { return joinTypeNames[j] }

// JoinKind discriminates the JoinClause tagged union.
type JoinKind int

const (
	JoinNatural JoinKind = iota
	JoinCross
	JoinOnCond
)

// JoinClause is one FROM-clause join (spec §3).
type JoinClause struct {
	Kind      JoinKind
	JoinType  JoinType // meaningful for JoinNatural and JoinOnCond
	Table     *TableReference
	Condition Expr // only for JoinOnCond
	Sp        token.Span
}

func (j *JoinClause) Span() token.Span { return j.Sp }
func (j *JoinClause) Format() string {
	switch j.Kind {
	case JoinNatural:
		return fmt.Sprintf("NATURAL %s JOIN %s", j.JoinType, j.Table.Format())
	case JoinCross:
		return "CROSS JOIN " + j.Table.Format()
	default:
		return fmt.Sprintf("%s JOIN %s ON %s", j.JoinType, j.Table.Format(), j.Condition.Format())
	}
}

// FromClause is the primary table plus its ordered joins.
type FromClause struct {
	Primary *TableReference
	Joins   []*JoinClause
	Sp      token.Span
}

func (f *FromClause) Span() token.Span { return f.Sp }
func (f *FromClause) Format() string {
	parts := []string{"FROM " + f.Primary.Format()}
	for _, j := range f.Joins {
		parts = append(parts, j.Format())
	}
	return strings.Join(parts, " ")
}

// Order is the ORDER BY direction.
type Order int

const (
	Asc Order = iota
	Desc
)

func (o Order) String() string {
	if o == Desc {
		return "DESC"
	}
	return "ASC"
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr  Expr
	Order Order
}

// OrderByClause is the ordered list of ORDER BY entries.
type OrderByClause struct {
	Items []OrderItem
	Sp    token.Span
}

func (o *OrderByClause) Span() token.Span { return o.Sp }
func (o *OrderByClause) Format() string {
	parts := make([]string, len(o.Items))
	for i, it := range o.Items {
		parts[i] = it.Expr.Format() + " " + it.Order.String()
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// GroupByClause is the GROUP BY expression plus an optional HAVING.
type GroupByClause struct {
	By     Expr
	Having Expr // nil when absent
	Sp     token.Span
}

func (g *GroupByClause) Span() token.Span { return g.Sp }
func (g *GroupByClause) Format() string {
	s := "GROUP BY " + g.By.Format()
	if g.Having != nil {
		s += " HAVING " + g.Having.Format()
	}
	return s
}

// SelectItem is one SELECT projection: an expression plus optional alias.
type SelectItem struct {
	Expr  Expr
	Alias string // "" when absent
}

// SelectClause is the ordered list of SELECT projections.
type SelectClause struct {
	Items []SelectItem
	Sp    token.Span
}

func (s *SelectClause) Span() token.Span { return s.Sp }
func (s *SelectClause) Format() string {
	parts := make([]string, len(s.Items))
	for i, it := range s.Items {
		p := it.Expr.Format()
		if it.Alias != "" {
			p += " AS " + it.Alias
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}

// SetItem is one assignment in a SET clause: either DEFAULT or an
// expression assigned to a column (spec §3).
type SetItem struct {
	Column     *ColumnIdent
	IsDefault  bool
	Value      Expr // nil when IsDefault
}

// SetClause is the ordered list of UPDATE assignments.
type SetClause struct {
	Items []SetItem
	Sp    token.Span
}

func (s *SetClause) Span() token.Span { return s.Sp }
func (s *SetClause) Format() string {
	parts := make([]string, len(s.Items))
	for i, it := range s.Items {
		if it.IsDefault {
			parts[i] = it.Column.Format() + " = DEFAULT"
		} else {
			parts[i] = it.Column.Format() + " = " + it.Value.Format()
		}
	}
	return strings.Join(parts, ", ")
}

// ---- Queries ---------------------------------------------------------

// Query is implemented by every top-level query form.
type Query interface {
	Node
	query()
}

// SelectQuery is `SELECT ... FROM ... [WHERE] [GROUP BY] [ORDER BY] [LIMIT] [OFFSET]`.
type SelectQuery struct {
	Select  *SelectClause
	From    *FromClause
	Where   Expr
	GroupBy *GroupByClause
	OrderBy *OrderByClause
	Limit   *int64
	Offset  *int64
	Sp      token.Span
}

func (q *SelectQuery) query()            {}
func (q *SelectQuery) Span() token.Span { return q.Sp }
func (q *SelectQuery) Format() string {
	parts := []string{"SELECT " + q.Select.Format(), q.From.Format()}
	if q.Where != nil {
		parts = append(parts, "WHERE "+q.Where.Format())
	}
	if q.GroupBy != nil {
		parts = append(parts, q.GroupBy.Format())
	}
	if q.OrderBy != nil {
		parts = append(parts, q.OrderBy.Format())
	}
	if q.Limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *q.Limit))
	}
	if q.Offset != nil {
		parts = append(parts, fmt.Sprintf("OFFSET %d", *q.Offset))
	}
	return strings.Join(parts, " ")
}

// DeleteQuery is `DELETE FROM t [WHERE e]` (spec §3: Delete(from, where),
// where "from" is a single table reference, not a join chain).
type DeleteQuery struct {
	From  *TableReference
	Where Expr
	Sp    token.Span
}

func (q *DeleteQuery) query()            {}
func (q *DeleteQuery) Span() token.Span { return q.Sp }
func (q *DeleteQuery) Format() string {
	s := "DELETE FROM " + q.From.Format()
	if q.Where != nil {
		s += " WHERE " + q.Where.Format()
	}
	return s
}

// UpdateQuery is `UPDATE ... SET ... [FROM ...] [WHERE]`.
type UpdateQuery struct {
	Table *TableReference
	Set   *SetClause
	From  *FromClause // optional additional FROM
	Where Expr
	Sp    token.Span
}

func (q *UpdateQuery) query()            {}
func (q *UpdateQuery) Span() token.Span { return q.Sp }
func (q *UpdateQuery) Format() string {
	s := "UPDATE " + q.Table.Format() + " SET " + q.Set.Format()
	if q.From != nil {
		s += " " + q.From.Format()
	}
	if q.Where != nil {
		s += " WHERE " + q.Where.Format()
	}
	return s
}

// InsertQuery is `INSERT INTO t [(cols...)] VALUES (vals...)`.
type InsertQuery struct {
	Table   string
	Columns []string // nil when omitted (positional insert)
	Values  []Expr
	Sp      token.Span
}

func (q *InsertQuery) query()            {}
func (q *InsertQuery) Span() token.Span { return q.Sp }
func (q *InsertQuery) Format() string {
	s := "INSERT INTO " + q.Table
	if q.Columns != nil {
		s += " (" + strings.Join(q.Columns, ", ") + ")"
	}
	vals := make([]string, len(q.Values))
	for i, v := range q.Values {
		vals[i] = v.Format()
	}
	return s + " VALUES (" + strings.Join(vals, ", ") + ")"
}
