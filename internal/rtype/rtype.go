// Package rtype implements the pluggable runtime-type resolver registry
// used by the type checker (spec §4.E). Each resolver owns one value
// category — numeric, string, boolean, collection, associated-entity — and
// knows how to wrap a literal into that category and how binary/unary
// operators behave over it. The checker (package check) drives the
// registry; it never hard-codes type rules itself.
package rtype

import (
	"fmt"

	"github.com/windrift-orm/windrift/internal/ast"
)

// Kind is the coarse value category a Resolver covers.
type Kind int

const (
	KindNumeric Kind = iota
	KindString
	KindBoolean
	KindCollection
	KindAssociatedEntity
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindCollection:
		return "collection"
	case KindAssociatedEntity:
		return "entity"
	default:
		return "unknown"
	}
}

// ExprWrapper annotates an expression with the resolver-assigned type it
// was checked against. Nullable tracks whether the value may be SQL NULL,
// propagated as `left.Nullable || right.Nullable` through binary ops
// (spec §9 open question c).
type ExprWrapper struct {
	Expr     ast.Expr
	TypeName string // resolver name, e.g. "numeric", "string", the entity name
	Kind     Kind
	Nullable bool
}

// Resolver is implemented once per value category.
type Resolver interface {
	// Name identifies the resolver for diagnostics and ExprWrapper.TypeName.
	Name() string
	Kind() Kind
	// WrapLiteral attempts to claim lit for this resolver's category,
	// returning ok=false if lit's kind does not belong to it.
	WrapLiteral(lit *ast.Literal) (*ExprWrapper, bool)
	// HandleBinary computes the result type of applying op to two values
	// already wrapped by this resolver (or a compatible one), or an error
	// if the category does not support op.
	HandleBinary(op ast.BinaryOp, left, right *ExprWrapper) (*ExprWrapper, error)
	// HandleUnary computes the result type of applying a unary op to a
	// value wrapped by this resolver.
	HandleUnary(op ast.UnaryOp, operand *ExprWrapper) (*ExprWrapper, error)
}

// Registry holds every known Resolver, tried in registration order so
// lookups stay deterministic (spec §5).
type Registry struct {
	order     []string
	resolvers map[string]Resolver
}

// NewRegistry builds a registry seeded with the four built-in resolvers.
// AssociatedEntity resolvers for specific entity names are registered by
// the schema resolver once entities are known (package schema/resolver).
func NewRegistry() *Registry {
	r := &Registry{resolvers: map[string]Resolver{}}
	r.Register(numericResolver{})
	r.Register(stringResolver{})
	r.Register(booleanResolver{})
	r.Register(collectionResolver{})
	return r
}

// Register adds (or replaces) a resolver.
func (r *Registry) Register(res Resolver) {
	if _, exists := r.resolvers[res.Name()]; !exists {
		r.order = append(r.order, res.Name())
	}
	r.resolvers[res.Name()] = res
}

// Lookup returns the resolver registered under name.
func (r *Registry) Lookup(name string) (Resolver, bool) {
	res, ok := r.resolvers[name]
	return res, ok
}

// WrapLiteral tries every registered resolver, in registration order,
// until one claims lit.
func (r *Registry) WrapLiteral(lit *ast.Literal) (*ExprWrapper, error) {
	if lit.Kind == ast.LitNull {
		return &ExprWrapper{Expr: lit, TypeName: "", Kind: KindNumeric, Nullable: true}, nil
	}
	for _, name := range r.order {
		if w, ok := r.resolvers[name].WrapLiteral(lit); ok {
			return w, nil
		}
	}
	return nil, fmt.Errorf("no resolver claims literal kind %v", lit.Kind)
}

// HandleBinary dispatches to left's resolver, falling back to right's when
// left is an untyped null.
func (r *Registry) HandleBinary(op ast.BinaryOp, left, right *ExprWrapper) (*ExprWrapper, error) {
	res, ok := r.resolverFor(left)
	if !ok {
		res, ok = r.resolverFor(right)
	}
	if !ok {
		return nullResult(left, right), nil
	}
	out, err := res.HandleBinary(op, left, right)
	if err != nil {
		return nil, err
	}
	out.Nullable = left.Nullable || right.Nullable
	return out, nil
}

// HandleUnary dispatches to operand's resolver.
func (r *Registry) HandleUnary(op ast.UnaryOp, operand *ExprWrapper) (*ExprWrapper, error) {
	res, ok := r.resolverFor(operand)
	if !ok {
		return operand, nil
	}
	out, err := res.HandleUnary(op, operand)
	if err != nil {
		return nil, err
	}
	out.Nullable = operand.Nullable
	return out, nil
}

func (r *Registry) resolverFor(w *ExprWrapper) (Resolver, bool) {
	if w == nil || w.TypeName == "" {
		return nil, false
	}
	res, ok := r.resolvers[w.TypeName]
	return res, ok
}

func nullResult(left, right *ExprWrapper) *ExprWrapper {
	return &ExprWrapper{TypeName: "", Kind: KindNumeric, Nullable: true}
}

// ---- Built-in resolvers -------------------------------------------------

type numericResolver struct{}

func (numericResolver) Name() string { return "numeric" }
func (numericResolver) Kind() Kind   { return KindNumeric }
func (numericResolver) WrapLiteral(lit *ast.Literal) (*ExprWrapper, bool) {
	if lit.Kind != ast.LitInt && lit.Kind != ast.LitFloat {
		return nil, false
	}
	return &ExprWrapper{Expr: lit, TypeName: "numeric", Kind: KindNumeric}, true
}
func (numericResolver) HandleBinary(op ast.BinaryOp, left, right *ExprWrapper) (*ExprWrapper, error) {
	switch op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod, ast.BitOr, ast.BitAnd, ast.BitXor, ast.ShiftLeft, ast.ShiftRight:
		return &ExprWrapper{TypeName: "numeric", Kind: KindNumeric}, nil
	case ast.Eq, ast.Ne, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		return &ExprWrapper{TypeName: "boolean", Kind: KindBoolean}, nil
	default:
		return nil, fmt.Errorf("numeric type does not support operator %s", op)
	}
}
func (numericResolver) HandleUnary(op ast.UnaryOp, operand *ExprWrapper) (*ExprWrapper, error) {
	if op != ast.BitReverse {
		return nil, fmt.Errorf("numeric type does not support unary operator %s", op)
	}
	return &ExprWrapper{TypeName: "numeric", Kind: KindNumeric}, nil
}

type stringResolver struct{}

func (stringResolver) Name() string { return "string" }
func (stringResolver) Kind() Kind   { return KindString }
func (stringResolver) WrapLiteral(lit *ast.Literal) (*ExprWrapper, bool) {
	if lit.Kind != ast.LitString {
		return nil, false
	}
	return &ExprWrapper{Expr: lit, TypeName: "string", Kind: KindString}, true
}
func (stringResolver) HandleBinary(op ast.BinaryOp, left, right *ExprWrapper) (*ExprWrapper, error) {
	switch op {
	case ast.Add:
		return &ExprWrapper{TypeName: "string", Kind: KindString}, nil
	case ast.Eq, ast.Ne, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		return &ExprWrapper{TypeName: "boolean", Kind: KindBoolean}, nil
	default:
		return nil, fmt.Errorf("string type does not support operator %s", op)
	}
}
func (stringResolver) HandleUnary(op ast.UnaryOp, operand *ExprWrapper) (*ExprWrapper, error) {
	return nil, fmt.Errorf("string type does not support unary operator %s", op)
}

type booleanResolver struct{}

func (booleanResolver) Name() string { return "boolean" }
func (booleanResolver) Kind() Kind   { return KindBoolean }
func (booleanResolver) WrapLiteral(lit *ast.Literal) (*ExprWrapper, bool) {
	if lit.Kind != ast.LitBool {
		return nil, false
	}
	return &ExprWrapper{Expr: lit, TypeName: "boolean", Kind: KindBoolean}, true
}
func (booleanResolver) HandleBinary(op ast.BinaryOp, left, right *ExprWrapper) (*ExprWrapper, error) {
	switch op {
	case ast.And, ast.Or, ast.Xor, ast.Eq, ast.Ne, ast.BitAnd, ast.BitOr, ast.BitXor:
		return &ExprWrapper{TypeName: "boolean", Kind: KindBoolean}, nil
	default:
		return nil, fmt.Errorf("boolean type does not support operator %s", op)
	}
}
func (booleanResolver) HandleUnary(op ast.UnaryOp, operand *ExprWrapper) (*ExprWrapper, error) {
	if op != ast.Not {
		return nil, fmt.Errorf("boolean type does not support unary operator %s", op)
	}
	return &ExprWrapper{TypeName: "boolean", Kind: KindBoolean}, nil
}

// collectionResolver covers function-call results that yield a list value
// (e.g. an IN-subquery helper), exercised by HandleBinary for equality
// membership tests; arithmetic is never supported.
type collectionResolver struct{}

func (collectionResolver) Name() string { return "collection" }
func (collectionResolver) Kind() Kind   { return KindCollection }
func (collectionResolver) WrapLiteral(lit *ast.Literal) (*ExprWrapper, bool) {
	return nil, false
}
func (collectionResolver) HandleBinary(op ast.BinaryOp, left, right *ExprWrapper) (*ExprWrapper, error) {
	if op == ast.Eq || op == ast.Ne {
		return &ExprWrapper{TypeName: "boolean", Kind: KindBoolean}, nil
	}
	return nil, fmt.Errorf("collection type does not support operator %s", op)
}
func (collectionResolver) HandleUnary(op ast.UnaryOp, operand *ExprWrapper) (*ExprWrapper, error) {
	return nil, fmt.Errorf("collection type does not support unary operator %s", op)
}

// AssociatedEntityResolver is registered once per entity name by the
// schema resolver (package schema/resolver), so that columns typed as a
// foreign-key relationship compare by identity rather than by scalar
// value.
type AssociatedEntityResolver struct {
	EntityName string
}

func (r AssociatedEntityResolver) Name() string { return r.EntityName }
func (AssociatedEntityResolver) Kind() Kind      { return KindAssociatedEntity }
func (AssociatedEntityResolver) WrapLiteral(lit *ast.Literal) (*ExprWrapper, bool) {
	return nil, false
}
func (r AssociatedEntityResolver) HandleBinary(op ast.BinaryOp, left, right *ExprWrapper) (*ExprWrapper, error) {
	if op == ast.Eq || op == ast.Ne {
		return &ExprWrapper{TypeName: "boolean", Kind: KindBoolean}, nil
	}
	return nil, fmt.Errorf("associated entity %q only supports equality comparison", r.EntityName)
}
func (r AssociatedEntityResolver) HandleUnary(op ast.UnaryOp, operand *ExprWrapper) (*ExprWrapper, error) {
	return nil, fmt.Errorf("associated entity %q does not support unary operators", r.EntityName)
}
