// Package fold implements constant folding over the query AST (spec §4.C):
// sub-expressions built entirely from literals are evaluated eagerly, with
// SQL-style three-valued null propagation. Folding is idempotent — folding
// an already-folded tree returns an equivalent tree unchanged.
package fold

import (
	"math"
	"math/big"

	"github.com/windrift-orm/windrift/internal/ast"
	"github.com/windrift-orm/windrift/internal/dialectcfg"
	"github.com/windrift-orm/windrift/internal/diag"
	"github.com/windrift-orm/windrift/internal/token"
)

// Fold walks e bottom-up, replacing any subtree whose operands are all
// literals with the single literal that evaluating it would produce. Nodes
// that cannot be folded (column references, external placeholders, function
// calls) are returned with their children folded but are otherwise
// unchanged. Folding errors (e.g. division by zero, type mismatch) are
// recorded on d and the offending node is left unfolded.
//
// cfg supplies the dialect knobs that parameterize folding, currently
// IntDivisionYieldsFloat (spec §9(a)); a nil cfg falls back to
// dialectcfg.Default().
func Fold(e ast.Expr, cfg *dialectcfg.Config, d *diag.Diagnostics) ast.Expr {
	if cfg == nil {
		cfg = dialectcfg.Default()
	}
	switch n := e.(type) {
	case *ast.Literal:
		return n
	case *ast.ColumnIdent:
		return n
	case *ast.FunctionCall:
		for i, a := range n.Args {
			n.Args[i] = Fold(a, cfg, d)
		}
		return n
	case *ast.UnaryExpr:
		n.Operand = Fold(n.Operand, cfg, d)
		if lit, ok := n.Operand.(*ast.Literal); ok && lit.Kind != ast.LitExternal {
			if folded, err := evalUnary(n.Op, lit, n.Sp); err == nil {
				return folded
			} else {
				d.Add(*err)
			}
		}
		return n
	case *ast.BinaryExpr:
		n.Left = Fold(n.Left, cfg, d)
		n.Right = Fold(n.Right, cfg, d)
		ll, lok := n.Left.(*ast.Literal)
		rl, rok := n.Right.(*ast.Literal)
		if lok && rok && ll.Kind != ast.LitExternal && rl.Kind != ast.LitExternal {
			if folded, err := evalBinary(n.Op, ll, rl, n.Sp, cfg); err == nil {
				return folded
			} else {
				d.Add(*err)
			}
		}
		return n
	default:
		return e
	}
}

func evalUnary(op ast.UnaryOp, operand *ast.Literal, sp token.Span) (*ast.Literal, *diag.Diagnostic) {
	if operand.Kind == ast.LitNull {
		return ast.NewNull(sp), nil
	}
	switch op {
	case ast.Not:
		if operand.Kind != ast.LitBool {
			return nil, typeErr(sp, "NOT requires a boolean operand")
		}
		return ast.NewBool(!operand.Bool, sp), nil
	case ast.BitReverse:
		if operand.Kind != ast.LitInt {
			return nil, typeErr(sp, "~ requires an integer operand")
		}
		v := new(big.Int).Not(operand.Int)
		return &ast.Literal{Kind: ast.LitInt, Int: v, Sp: sp}, nil
	default:
		return nil, typeErr(sp, "unsupported unary operator")
	}
}

func evalBinary(op ast.BinaryOp, l, r *ast.Literal, sp token.Span, cfg *dialectcfg.Config) (*ast.Literal, *diag.Diagnostic) {
	// SQL-style three-valued logic for AND/OR short-circuits on a
	// determining non-null operand even when the other side is null.
	if op == ast.And {
		if l.Kind == ast.LitBool && !l.Bool || r.Kind == ast.LitBool && !r.Bool {
			return ast.NewBool(false, sp), nil
		}
		if l.Kind == ast.LitNull || r.Kind == ast.LitNull {
			return ast.NewNull(sp), nil
		}
		return ast.NewBool(l.Bool && r.Bool, sp), nil
	}
	if op == ast.Or {
		if l.Kind == ast.LitBool && l.Bool || r.Kind == ast.LitBool && r.Bool {
			return ast.NewBool(true, sp), nil
		}
		if l.Kind == ast.LitNull || r.Kind == ast.LitNull {
			return ast.NewNull(sp), nil
		}
		return ast.NewBool(l.Bool || r.Bool, sp), nil
	}

	if l.Kind == ast.LitNull || r.Kind == ast.LitNull {
		return ast.NewNull(sp), nil
	}

	switch op {
	case ast.Xor:
		if l.Kind != ast.LitBool || r.Kind != ast.LitBool {
			return nil, typeErr(sp, "xor requires boolean operands")
		}
		return ast.NewBool(l.Bool != r.Bool, sp), nil
	case ast.Eq, ast.Ne, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		return evalComparison(op, l, r, sp)
	case ast.BitOr, ast.BitAnd, ast.BitXor, ast.ShiftLeft, ast.ShiftRight:
		return evalBitwise(op, l, r, sp)
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		return evalArith(op, l, r, sp, cfg)
	default:
		return nil, typeErr(sp, "unsupported binary operator")
	}
}

func evalComparison(op ast.BinaryOp, l, r *ast.Literal, sp token.Span) (*ast.Literal, *diag.Diagnostic) {
	cmp, ok := compareLiterals(l, r)
	if !ok {
		return nil, typeErr(sp, "operands are not comparable")
	}
	var result bool
	switch op {
	case ast.Eq:
		result = cmp == 0
	case ast.Ne:
		result = cmp != 0
	case ast.Lt:
		result = cmp < 0
	case ast.Le:
		result = cmp <= 0
	case ast.Gt:
		result = cmp > 0
	case ast.Ge:
		result = cmp >= 0
	}
	return ast.NewBool(result, sp), nil
}

// compareLiterals returns -1/0/1 for numeric, string and boolean literals.
func compareLiterals(l, r *ast.Literal) (int, bool) {
	switch {
	case l.Kind == ast.LitInt && r.Kind == ast.LitInt:
		return l.Int.Cmp(r.Int), true
	case isNumeric(l) && isNumeric(r):
		lf, rf := asFloat(l), asFloat(r)
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		default:
			return 0, true
		}
	case l.Kind == ast.LitString && r.Kind == ast.LitString:
		switch {
		case l.StringValue < r.StringValue:
			return -1, true
		case l.StringValue > r.StringValue:
			return 1, true
		default:
			return 0, true
		}
	case l.Kind == ast.LitBool && r.Kind == ast.LitBool:
		if l.Bool == r.Bool {
			return 0, true
		}
		if !l.Bool {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

func evalBitwise(op ast.BinaryOp, l, r *ast.Literal, sp token.Span) (*ast.Literal, *diag.Diagnostic) {
	if l.Kind == ast.LitBool && r.Kind == ast.LitBool {
		switch op {
		case ast.BitOr:
			return ast.NewBool(l.Bool || r.Bool, sp), nil
		case ast.BitAnd:
			return ast.NewBool(l.Bool && r.Bool, sp), nil
		case ast.BitXor:
			return ast.NewBool(l.Bool != r.Bool, sp), nil
		default:
			return nil, typeErr(sp, "boolean operands do not support shift operators")
		}
	}
	if l.Kind != ast.LitInt || r.Kind != ast.LitInt {
		return nil, typeErr(sp, "bitwise operators require integer or boolean operands")
	}
	v := new(big.Int)
	switch op {
	case ast.BitOr:
		v.Or(l.Int, r.Int)
	case ast.BitAnd:
		v.And(l.Int, r.Int)
	case ast.BitXor:
		v.Xor(l.Int, r.Int)
	case ast.ShiftLeft:
		v.Lsh(l.Int, uint(r.Int.Uint64()))
	case ast.ShiftRight:
		v.Rsh(l.Int, uint(r.Int.Uint64()))
	}
	return &ast.Literal{Kind: ast.LitInt, Int: v, Sp: sp}, nil
}

func isNumeric(l *ast.Literal) bool { return l.Kind == ast.LitInt || l.Kind == ast.LitFloat }

func asFloat(l *ast.Literal) float64 {
	if l.Kind == ast.LitFloat {
		return l.Float
	}
	f := new(big.Float).SetInt(l.Int)
	v, _ := f.Float64()
	return v
}

func evalArith(op ast.BinaryOp, l, r *ast.Literal, sp token.Span, cfg *dialectcfg.Config) (*ast.Literal, *diag.Diagnostic) {
	if !isNumeric(l) || !isNumeric(r) {
		return nil, typeErr(sp, "arithmetic operators require numeric operands")
	}
	if op == ast.Mod {
		if l.Kind == ast.LitInt && r.Kind == ast.LitInt {
			if r.Int.Sign() == 0 {
				return nil, typeErr(sp, "division by zero")
			}
			v := new(big.Int).Mod(l.Int, r.Int)
			return &ast.Literal{Kind: ast.LitInt, Int: v, Sp: sp}, nil
		}
		lf, rf := asFloat(l), asFloat(r)
		if rf == 0 {
			return nil, typeErr(sp, "division by zero")
		}
		return &ast.Literal{Kind: ast.LitFloat, Float: math.Mod(lf, rf), Sp: sp}, nil
	}
	if l.Kind == ast.LitInt && r.Kind == ast.LitInt {
		if op == ast.Div {
			if r.Int.Sign() == 0 {
				return nil, typeErr(sp, "division by zero")
			}
			// int/int division behavior is the dialectcfg.IntDivisionYieldsFloat
			// knob (spec §9(a)): folding truncates to integer when the
			// dialect says so, otherwise it yields the float result.
			if !cfg.IntDivisionYieldsFloat {
				v := new(big.Int).Quo(l.Int, r.Int)
				return &ast.Literal{Kind: ast.LitInt, Int: v, Sp: sp}, nil
			}
			lf := asFloat(l)
			rf := asFloat(r)
			return &ast.Literal{Kind: ast.LitFloat, Float: lf / rf, Sp: sp}, nil
		}
		v := new(big.Int)
		switch op {
		case ast.Add:
			v.Add(l.Int, r.Int)
		case ast.Sub:
			v.Sub(l.Int, r.Int)
		case ast.Mul:
			v.Mul(l.Int, r.Int)
		}
		return &ast.Literal{Kind: ast.LitInt, Int: v, Sp: sp}, nil
	}

	lf, rf := asFloat(l), asFloat(r)
	var v float64
	switch op {
	case ast.Add:
		v = lf + rf
	case ast.Sub:
		v = lf - rf
	case ast.Mul:
		v = lf * rf
	case ast.Div:
		if rf == 0 {
			return nil, typeErr(sp, "division by zero")
		}
		v = lf / rf
	}
	return &ast.Literal{Kind: ast.LitFloat, Float: v, Sp: sp}, nil
}

func typeErr(sp token.Span, msg string) *diag.Diagnostic {
	return &diag.Diagnostic{Span: sp, Severity: diag.Error, Code: diag.ErrTypeError, Message: msg}
}
