// Package diag provides structured diagnostics shared by the lexer,
// parser, alias rewriter, type checker and schema resolver. Every
// diagnostic carries a source span and a stable code so that a caller
// (the devserver, a test, a future LSP) can render them consistently.
package diag

import (
	"fmt"
	"strings"

	"github.com/windrift-orm/windrift/internal/token"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is one error or warning, anchored to a source span.
type Diagnostic struct {
	Span     token.Span
	Severity Severity
	Code     string
	Message  string
}

// String renders "line:column: severity: message [code]".
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d: ", d.Span.Start.Line, d.Span.Start.Column)
	fmt.Fprintf(&b, "%s: %s", d.Severity, d.Message)
	if d.Code != "" {
		fmt.Fprintf(&b, " [%s]", d.Code)
	}
	return b.String()
}

// Error codes, grouped by the spec §7 error kinds.
const (
	// Lexer / syntax (E01xx).
	ErrUnexpectedChar     = "E0101"
	ErrUnterminatedString = "E0102"
	ErrCannotParseInteger = "E0103"
	ErrCannotParseFloat   = "E0104"

	// Parser / grammar (E02xx).
	ErrUnexpectedRule = "E0201"
	ErrUnexpectedExpr = "E0202"

	// Alias resolution (E03xx).
	ErrConflictAlias = "E0301"
	ErrUnknownAlias  = "E0302"
	ErrUnknownField  = "E0303"

	// Type system (E04xx).
	ErrTypeError                     = "E0401"
	ErrTypeInferError                = "E0402"
	ErrUnknownResolverName           = "E0403"
	ErrUnimplementedOperationForType = "E0404"
	ErrCannotInferType               = "E0405"

	// Schema resolver (E05xx).
	ErrFieldResolverNotFound             = "E0501"
	ErrEntityResolverNotFound             = "E0502"
	ErrEntityResolverIsNotFinished        = "E0503"
	ErrFieldResolverIsNotFinished         = "E0504"
	ErrNoSuitableResolverSeedsFound       = "E0505"
	ErrUnsupportedEntityStructType        = "E0506"
	ErrUnsuitableColumnDataTypeForPrimaryKey = "E0507"
	ErrGenericNotSupported                = "E0508"
)

// Error implements the `error` interface so a Diagnostic can be returned
// directly from any pipeline stage.
func (d Diagnostic) Error() string { return d.String() }

// Diagnostics is an ordered collection of Diagnostic values. Ordering is
// insertion order, matching the determinism requirement in spec §5.
type Diagnostics struct {
	items []Diagnostic
}

// New creates an empty collection.
func New() *Diagnostics {
	return &Diagnostics{}
}

// Add appends a diagnostic.
func (d *Diagnostics) Add(item Diagnostic) {
	d.items = append(d.items, item)
}

// AddError appends an error diagnostic at the given span.
func (d *Diagnostics) AddError(span token.Span, code, message string) {
	d.Add(Diagnostic{Span: span, Severity: Error, Code: code, Message: message})
}

// AddErrorf appends an error diagnostic with a formatted message.
func (d *Diagnostics) AddErrorf(span token.Span, code, format string, args ...any) {
	d.AddError(span, code, fmt.Sprintf(format, args...))
}

// All returns every diagnostic in insertion order.
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// Errors returns only the error-severity diagnostics.
func (d *Diagnostics) Errors() []Diagnostic {
	var out []Diagnostic
	for _, item := range d.items {
		if item.Severity == Error {
			out = append(out, item)
		}
	}
	return out
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == Error {
			return true
		}
	}
	return false
}

// Merge appends another collection's diagnostics onto this one, preserving
// order (other's items come after this collection's existing items).
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// First returns the first error diagnostic, or nil.
func (d *Diagnostics) First() *Diagnostic {
	for i := range d.items {
		if d.items[i].Severity == Error {
			return &d.items[i]
		}
	}
	return nil
}
