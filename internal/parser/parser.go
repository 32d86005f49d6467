// Package parser implements a hand-written recursive-descent clause parser
// with a Pratt expression parser for the query language (spec §4.A/§4.B).
// It mirrors the teacher's prefix/infix dispatch-table shape but adds the
// precedence table's non-associative comparison rule and the four query
// clause grammars.
package parser

import (
	"strings"

	"github.com/windrift-orm/windrift/internal/ast"
	"github.com/windrift-orm/windrift/internal/diag"
	"github.com/windrift-orm/windrift/internal/lexer"
	"github.com/windrift-orm/windrift/internal/token"
)

// Precedence levels, low to high, matching spec §4.A exactly:
// or < xor < and < not(unary) < compare < bit-or < bit-and < bit-xor <
// shift < add/sub < mul/div/mod < bit-reverse(unary) < primary.
const (
	_ int = iota
	lowest
	precOr
	precXor
	precAnd
	precNot
	precCompare
	precBitOr
	precBitAnd
	precBitXor
	precShift
	precAddSub
	precMulDivMod
	precBitReverse
	precPrimary
)

var infixPrecedence = map[token.Type]int{
	token.OR:      precOr,
	token.XOR:     precXor,
	token.AND:     precAnd,
	token.EQ:      precCompare,
	token.NEQ:     precCompare,
	token.LT:      precCompare,
	token.LE:      precCompare,
	token.GT:      precCompare,
	token.GE:      precCompare,
	token.BITOR:   precBitOr,
	token.BITAND:  precBitAnd,
	token.BITXOR:  precBitXor,
	token.SHIFTL:  precShift,
	token.SHIFTR:  precShift,
	token.PLUS:    precAddSub,
	token.MINUS:   precAddSub,
	token.STAR:    precMulDivMod,
	token.SLASH:   precMulDivMod,
	token.PERCENT: precMulDivMod,
}

var binaryOpFor = map[token.Type]ast.BinaryOp{
	token.OR: ast.Or, token.XOR: ast.Xor, token.AND: ast.And,
	token.EQ: ast.Eq, token.NEQ: ast.Ne, token.LT: ast.Lt, token.LE: ast.Le, token.GT: ast.Gt, token.GE: ast.Ge,
	token.BITOR: ast.BitOr, token.BITAND: ast.BitAnd, token.BITXOR: ast.BitXor,
	token.SHIFTL: ast.ShiftLeft, token.SHIFTR: ast.ShiftRight,
	token.PLUS: ast.Add, token.MINUS: ast.Sub, token.STAR: ast.Mul, token.SLASH: ast.Div, token.PERCENT: ast.Mod,
}

func isComparisonTok(t token.Type) bool {
	switch t {
	case token.EQ, token.NEQ, token.LT, token.LE, token.GT, token.GE:
		return true
	default:
		return false
	}
}

// Parser parses one query string into an AST.
type Parser struct {
	l    *lexer.Lexer
	cur  token.Token
	peek token.Token
	diag *diag.Diagnostics
}

// New creates a Parser over source.
func New(source string) *Parser {
	p := &Parser{l: lexer.New(source), diag: diag.New()}
	p.advance()
	p.advance()
	return p
}

// Diagnostics returns every diagnostic accumulated by the lexer and parser.
func (p *Parser) Diagnostics() *diag.Diagnostics {
	out := diag.New()
	out.Merge(p.l.Diagnostics())
	out.Merge(p.diag)
	return out
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) expect(t token.Type) bool {
	if p.peekIs(t) {
		p.advance()
		return true
	}
	p.errorf(p.peek.Span, diag.ErrUnexpectedRule, "expected %s, got %s", t, p.peek.Type)
	return false
}

func (p *Parser) errorf(span token.Span, code, format string, args ...any) {
	p.diag.AddErrorf(span, code, format, args...)
}

// ParseQuery parses one of SELECT/INSERT/UPDATE/DELETE.
func ParseQuery(source string) (ast.Query, *diag.Diagnostics) {
	p := New(source)
	q := p.parseQuery()
	return q, p.Diagnostics()
}

func (p *Parser) parseQuery() ast.Query {
	switch p.cur.Type {
	case token.SELECT:
		return p.parseSelect()
	case token.DELETE:
		return p.parseDelete()
	case token.UPDATE:
		return p.parseUpdate()
	case token.INSERT:
		return p.parseInsert()
	default:
		p.errorf(p.cur.Span, diag.ErrUnexpectedRule, "expected SELECT, INSERT, UPDATE or DELETE, got %s", p.cur.Type)
		return nil
	}
}

// ---- SELECT ---------------------------------------------------------

func (p *Parser) parseSelect() *ast.SelectQuery {
	start := p.cur.Span.Start
	q := &ast.SelectQuery{}

	p.advance() // move past SELECT onto the first projection token
	q.Select = p.parseSelectClause()
	if !p.expect(token.FROM) {
		return q
	}
	p.advance() // move past FROM onto the primary table name
	q.From = p.parseFromClause()

	if p.peekIs(token.WHERE) {
		p.advance()
		p.advance()
		q.Where = p.parseExpression(lowest)
	}
	if p.peekIs(token.GROUP) {
		p.advance()
		q.GroupBy = p.parseGroupBy()
	}
	if p.peekIs(token.ORDER) {
		p.advance()
		q.OrderBy = p.parseOrderBy()
	}
	if p.peekIs(token.LIMIT) {
		p.advance()
		p.advance()
		q.Limit = p.parseIntLiteralValue()
	}
	if p.peekIs(token.OFFSET) {
		p.advance()
		p.advance()
		q.Offset = p.parseIntLiteralValue()
	}

	q.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return q
}

func (p *Parser) parseIntLiteralValue() *int64 {
	if !p.curIs(token.INT) {
		p.errorf(p.cur.Span, diag.ErrUnexpectedRule, "expected integer literal, got %s", p.cur.Type)
		return nil
	}
	lit, err := ast.NewInt(p.cur.Literal, p.cur.Span)
	if err != nil {
		p.errorf(p.cur.Span, diag.ErrCannotParseInteger, "%s", err)
		return nil
	}
	v := lit.Int.Int64()
	return &v
}

func (p *Parser) parseSelectClause() *ast.SelectClause {
	start := p.cur.Span.Start
	clause := &ast.SelectClause{}

	for {
		item := ast.SelectItem{}
		if p.curIs(token.STAR) {
			item.Expr = &ast.ColumnIdent{Segments: []ast.Segment{{IsWildcard: true}}, Sp: p.cur.Span}
		} else {
			item.Expr = p.parseExpression(lowest)
		}
		if p.peekIs(token.AS) {
			p.advance()
			if p.expect(token.IDENT) {
				item.Alias = p.cur.Literal
			}
		} else if p.peekIs(token.IDENT) {
			// AS is optional (spec §4.A).
			p.advance()
			item.Alias = p.cur.Literal
		}
		clause.Items = append(clause.Items, item)

		if p.peekIs(token.COMMA) {
			p.advance()
			p.advance()
			continue
		}
		break
	}

	clause.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return clause
}

func (p *Parser) parseTableReference() *ast.TableReference {
	start := p.cur.Span.Start
	ref := &ast.TableReference{Name: p.cur.Literal}
	if p.peekIs(token.AS) {
		p.advance()
		if p.expect(token.IDENT) {
			ref.Alias = p.cur.Literal
		}
	} else if p.peekIs(token.IDENT) {
		p.advance()
		ref.Alias = p.cur.Literal
	}
	ref.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return ref
}

func (p *Parser) parseFromClause() *ast.FromClause {
	start := p.cur.Span.Start
	from := &ast.FromClause{Primary: p.parseTableReference()}

	for {
		switch p.peek.Type {
		case token.NATURAL:
			p.advance() // cur = NATURAL
			jt := InnerJoinDefault
			switch p.peek.Type {
			case token.INNER, token.LEFT, token.RIGHT, token.FULL:
				p.advance()
				jt, _ = p.tryParseJoinType()
			}
			if !p.expect(token.JOIN) {
				break
			}
			p.advance()
			table := p.parseTableReference()
			from.Joins = append(from.Joins, &ast.JoinClause{
				Kind: ast.JoinNatural, JoinType: jt, Table: table,
				Sp: token.Span{Start: start, End: p.cur.Span.End},
			})
			continue
		case token.CROSS:
			p.advance()
			if !p.expect(token.JOIN) {
				break
			}
			p.advance()
			table := p.parseTableReference()
			from.Joins = append(from.Joins, &ast.JoinClause{
				Kind: ast.JoinCross, Table: table,
				Sp: token.Span{Start: start, End: p.cur.Span.End},
			})
			continue
		case token.INNER, token.LEFT, token.RIGHT, token.FULL, token.JOIN:
			jt := InnerJoinDefault
			if p.peek.Type != token.JOIN {
				p.advance()
				jt, _ = p.tryParseJoinType()
			}
			if !p.expect(token.JOIN) {
				break
			}
			p.advance()
			table := p.parseTableReference()
			var cond ast.Expr
			if p.peekIs(token.ON) {
				p.advance()
				p.advance()
				cond = p.parseExpression(lowest)
			} else {
				p.errorf(p.cur.Span, diag.ErrUnexpectedRule, "expected ON after JOIN")
			}
			from.Joins = append(from.Joins, &ast.JoinClause{
				Kind: ast.JoinOnCond, JoinType: jt, Table: table, Condition: cond,
				Sp: token.Span{Start: start, End: p.cur.Span.End},
			})
			continue
		}
		break
	}

	from.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return from
}

// InnerJoinDefault is the join type assumed when the grammar's join-type
// prefix is omitted (a bare "JOIN").
const InnerJoinDefault = ast.InnerJoin

// tryParseJoinType consumes an optional INNER/LEFT/RIGHT/FULL [OUTER]
// sequence starting at p.cur, returning the resolved JoinType.
func (p *Parser) tryParseJoinType() (ast.JoinType, bool) {
	var base ast.JoinType
	switch p.cur.Type {
	case token.INNER:
		base = ast.InnerJoin
	case token.LEFT:
		base = ast.LeftJoin
	case token.RIGHT:
		base = ast.RightJoin
	case token.FULL:
		base = ast.FullJoin
	default:
		return InnerJoinDefault, false
	}
	if p.peekIs(token.OUTER) {
		p.advance()
		switch base {
		case ast.LeftJoin:
			base = ast.LeftOuterJoin
		case ast.RightJoin:
			base = ast.RightOuterJoin
		case ast.FullJoin:
			base = ast.FullOuterJoin
		}
	}
	return base, true
}

func (p *Parser) parseGroupBy() *ast.GroupByClause {
	start := p.cur.Span.Start
	if !p.expect(token.BY) {
		return nil
	}
	p.advance()
	g := &ast.GroupByClause{By: p.parseExpression(lowest)}
	if p.peekIs(token.HAVING) {
		p.advance()
		p.advance()
		g.Having = p.parseExpression(lowest)
	}
	g.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return g
}

func (p *Parser) parseOrderBy() *ast.OrderByClause {
	start := p.cur.Span.Start
	if !p.expect(token.BY) {
		return nil
	}
	p.advance()
	o := &ast.OrderByClause{}
	for {
		item := ast.OrderItem{Expr: p.parseExpression(lowest), Order: ast.Asc}
		if p.peekIs(token.ASC) {
			p.advance()
			item.Order = ast.Asc
		} else if p.peekIs(token.DESC) {
			p.advance()
			item.Order = ast.Desc
		}
		o.Items = append(o.Items, item)
		if p.peekIs(token.COMMA) {
			p.advance()
			p.advance()
			continue
		}
		break
	}
	o.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return o
}

// ---- DELETE ---------------------------------------------------------

func (p *Parser) parseDelete() *ast.DeleteQuery {
	start := p.cur.Span.Start
	if !p.expect(token.FROM) {
		return nil
	}
	p.advance()
	q := &ast.DeleteQuery{From: p.parseTableReference()}
	if p.peekIs(token.WHERE) {
		p.advance()
		p.advance()
		q.Where = p.parseExpression(lowest)
	}
	q.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return q
}

// ---- UPDATE ---------------------------------------------------------

func (p *Parser) parseUpdate() *ast.UpdateQuery {
	start := p.cur.Span.Start
	p.advance()
	q := &ast.UpdateQuery{Table: p.parseTableReference()}
	if !p.expect(token.SET) {
		return q
	}
	p.advance()
	q.Set = p.parseSetClause()

	if p.peekIs(token.FROM) {
		p.advance()
		p.advance()
		q.From = p.parseFromClause()
	}
	if p.peekIs(token.WHERE) {
		p.advance()
		p.advance()
		q.Where = p.parseExpression(lowest)
	}
	q.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return q
}

// parseSetClause parses either a comma-separated list of `col = expr | DEFAULT`
// assignments, or the `(col, ...) = (val, ...)` tuple form (spec §6).
func (p *Parser) parseSetClause() *ast.SetClause {
	start := p.cur.Span.Start
	set := &ast.SetClause{}

	if p.curIs(token.LPAREN) {
		var cols []*ast.ColumnIdent
		p.advance()
		for !p.curIs(token.RPAREN) {
			cols = append(cols, p.parseColumnIdentFromIdent())
			if p.peekIs(token.COMMA) {
				p.advance()
				p.advance()
				continue
			}
			p.advance()
			break
		}
		if !p.expect(token.EQ) {
			return set
		}
		p.advance()
		if !p.curIs(token.LPAREN) {
			p.errorf(p.cur.Span, diag.ErrUnexpectedRule, "expected ( to start value tuple, got %s", p.cur.Type)
			return set
		}
		p.advance()
		var vals []ast.Expr
		for !p.curIs(token.RPAREN) {
			vals = append(vals, p.parseExpression(lowest))
			if p.peekIs(token.COMMA) {
				p.advance()
				p.advance()
				continue
			}
			p.advance()
			break
		}
		for i, c := range cols {
			item := ast.SetItem{Column: c}
			if i < len(vals) {
				item.Value = vals[i]
			} else {
				item.IsDefault = true
			}
			set.Items = append(set.Items, item)
		}
		set.Sp = token.Span{Start: start, End: p.cur.Span.End}
		return set
	}

	for {
		col := p.parseColumnIdentFromIdent()
		if !p.expect(token.EQ) {
			break
		}
		p.advance()
		item := ast.SetItem{Column: col}
		if p.curIs(token.DEFAULT) {
			item.IsDefault = true
		} else {
			item.Value = p.parseExpression(lowest)
		}
		set.Items = append(set.Items, item)
		if p.peekIs(token.COMMA) {
			p.advance()
			p.advance()
			continue
		}
		break
	}
	set.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return set
}

// parseColumnIdentFromIdent parses a dotted column identifier starting at
// the current token (which must be an identifier).
func (p *Parser) parseColumnIdentFromIdent() *ast.ColumnIdent {
	start := p.cur.Span.Start
	segs := []ast.Segment{{Name: p.cur.Literal}}
	for p.peekIs(token.DOT) {
		p.advance()
		p.advance()
		if p.curIs(token.STAR) {
			segs = append(segs, ast.Segment{IsWildcard: true})
		} else {
			segs = append(segs, ast.Segment{Name: p.cur.Literal})
		}
	}
	return &ast.ColumnIdent{Segments: segs, Sp: token.Span{Start: start, End: p.cur.Span.End}}
}

// ---- INSERT ---------------------------------------------------------

func (p *Parser) parseInsert() *ast.InsertQuery {
	start := p.cur.Span.Start
	if !p.expect(token.INTO) {
		return nil
	}
	p.advance()
	q := &ast.InsertQuery{Table: p.cur.Literal}

	if p.peekIs(token.LPAREN) {
		p.advance()
		p.advance()
		for !p.curIs(token.RPAREN) {
			q.Columns = append(q.Columns, p.cur.Literal)
			if p.peekIs(token.COMMA) {
				p.advance()
				p.advance()
				continue
			}
			p.advance()
			break
		}
	}

	if !p.expect(token.VALUES) {
		return q
	}
	if !p.expect(token.LPAREN) {
		return q
	}
	p.advance()
	for !p.curIs(token.RPAREN) {
		q.Values = append(q.Values, p.parseExpression(lowest))
		if p.peekIs(token.COMMA) {
			p.advance()
			p.advance()
			continue
		}
		p.advance()
		break
	}

	q.Sp = token.Span{Start: start, End: p.cur.Span.End}
	return q
}

// ---- Expressions (Pratt parser) ---------------------------------------

func (p *Parser) peekPrecedence() int {
	if prec, ok := infixPrecedence[p.peek.Type]; ok {
		return prec
	}
	return lowest
}

// parseExpression implements precedence-climbing with the spec's
// non-associative-comparison rule: once a comparison has been folded into
// the running left-hand side, encountering another comparison operator at
// the same precedence is a syntax error rather than a further fold.
func (p *Parser) parseExpression(precedence int) ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	lastWasCompare := false
	for precedence < p.peekPrecedence() {
		opTok := p.peek.Type
		if isComparisonTok(opTok) {
			if lastWasCompare {
				p.errorf(p.peek.Span, diag.ErrUnexpectedExpr, "comparison operators do not associate; parenthesize")
				break
			}
			lastWasCompare = true
		} else {
			lastWasCompare = false
		}

		prec := infixPrecedence[opTok]
		p.advance() // move to operator
		opSpan := p.cur.Span
		p.advance() // move to start of right operand
		right := p.parseExpression(prec)
		end := opSpan.End
		if right != nil {
			end = right.Span().End
		}
		left = &ast.BinaryExpr{
			Op:    binaryOpFor[opTok],
			Left:  left,
			Right: right,
			Sp:    token.Span{Start: left.Span().Start, End: end},
		}
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expr {
	switch p.cur.Type {
	case token.IDENT:
		return p.parseIdentOrCallOrColumn()
	case token.INT:
		lit, err := ast.NewInt(p.cur.Literal, p.cur.Span)
		if err != nil {
			p.errorf(p.cur.Span, diag.ErrCannotParseInteger, "%s", err)
			return nil
		}
		return lit
	case token.FLOAT:
		lit, err := ast.NewFloat(p.cur.Literal, p.cur.Span)
		if err != nil {
			p.errorf(p.cur.Span, diag.ErrCannotParseFloat, "%s", err)
			return nil
		}
		return lit
	case token.STRING:
		return ast.NewString(p.cur.Literal, p.cur.Span)
	case token.BOOLEAN:
		return ast.NewBool(strings.EqualFold(p.cur.Literal, "true"), p.cur.Span)
	case token.NULLTOK:
		return ast.NewNull(p.cur.Span)
	case token.EXTERNAL:
		return ast.NewExternal(p.cur.Literal, p.cur.Span)
	case token.STAR:
		return &ast.ColumnIdent{Segments: []ast.Segment{{IsWildcard: true}}, Sp: p.cur.Span}
	case token.MINUS:
		start := p.cur.Span
		p.advance()
		operand := p.parseExpression(precMulDivMod)
		// Desugared as Sub(0, operand) rather than a dedicated unary-minus
		// node so the fold and check passes get arithmetic negation for
		// free. The implicit zero has no source text of its own, so its
		// span is a zero-width point at the `-` rather than the operand's
		// span, which would misattribute diagnostics raised against it.
		zero := zeroLiteral(token.Span{Start: start.Start, End: start.Start})
		return &ast.BinaryExpr{Op: ast.Sub, Left: zero, Right: operand, Sp: token.Span{Start: start.Start, End: operand.Span().End}}
	case token.NOT:
		start := p.cur.Span
		p.advance()
		operand := p.parseExpression(precNot)
		return &ast.UnaryExpr{Op: ast.Not, Operand: operand, Sp: token.Span{Start: start.Start, End: operand.Span().End}}
	case token.BITNOT:
		start := p.cur.Span
		p.advance()
		operand := p.parseExpression(precBitReverse)
		return &ast.UnaryExpr{Op: ast.BitReverse, Operand: operand, Sp: token.Span{Start: start.Start, End: operand.Span().End}}
	case token.LPAREN:
		p.advance()
		inner := p.parseExpression(lowest)
		if !p.expect(token.RPAREN) {
			return inner
		}
		return inner
	default:
		p.errorf(p.cur.Span, diag.ErrUnexpectedExpr, "unexpected token %s in expression", p.cur.Type)
		return nil
	}
}

func zeroLiteral(sp token.Span) ast.Expr {
	lit, _ := ast.NewInt("0", sp)
	return lit
}

// parseIdentOrCallOrColumn disambiguates IDENT(...) function calls from
// dotted column identifiers.
func (p *Parser) parseIdentOrCallOrColumn() ast.Expr {
	if p.peekIs(token.LPAREN) {
		name := p.cur.Literal
		start := p.cur.Span
		p.advance() // '('
		p.advance()
		call := &ast.FunctionCall{Name: name}
		for !p.curIs(token.RPAREN) {
			call.Args = append(call.Args, p.parseExpression(lowest))
			if p.peekIs(token.COMMA) {
				p.advance()
				p.advance()
				continue
			}
			p.advance()
			break
		}
		call.Sp = token.Span{Start: start.Start, End: p.cur.Span.End}
		return call
	}
	return p.parseColumnIdentFromIdent()
}
