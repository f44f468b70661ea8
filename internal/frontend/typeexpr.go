package frontend

import (
	"fmt"
	"strings"
)

// TypeExprKind tags one node of a parsed C type expression.
type TypeExprKind uint8

const (
	// TypeName is a base spelling: "int", "unsigned long", "struct Foo",
	// "uint32_t", a typedef name, and so on.
	TypeName TypeExprKind = iota + 1
	TypePointer
	TypeArray
	TypeFunc
	// TypeInline marks an aggregate defined inline in a declarator
	// ("struct { ... } field;"); the definition travels as the cursor's
	// child and the expression only marks the position.
	TypeInline
)

// ArrayNoLength marks array declarators without a length expression.
const ArrayNoLength int64 = -1

// TypeExpr is the type descriptor attached to cursors: the declarator
// shape as the parser saw it, before any resolution against the graph.
type TypeExpr struct {
	Kind     TypeExprKind
	Spelling string // TypeName: canonical base spelling
	Const    bool
	Inner    *TypeExpr // pointee / element / function result
	Len      int64     // TypeArray; ArrayNoLength when unsized
	Params   []*TypeExpr
	Variadic bool
}

// Name constructs a base type expression.
func Name(spelling string) *TypeExpr {
	return &TypeExpr{Kind: TypeName, Spelling: spelling}
}

// PointerTo wraps an expression in one level of pointer.
func PointerTo(inner *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: TypePointer, Inner: inner}
}

// ArrayOf wraps an expression in an array declarator. n is ArrayNoLength
// for incomplete arrays.
func ArrayOf(inner *TypeExpr, n int64) *TypeExpr {
	return &TypeExpr{Kind: TypeArray, Inner: inner, Len: n}
}

// FuncOf builds a function type expression.
func FuncOf(result *TypeExpr, params []*TypeExpr, variadic bool) *TypeExpr {
	return &TypeExpr{Kind: TypeFunc, Inner: result, Params: params, Variadic: variadic}
}

// Inline marks an inline aggregate definition position.
func Inline() *TypeExpr {
	return &TypeExpr{Kind: TypeInline}
}

func (t *TypeExpr) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeName:
		if t.Const {
			return "const " + t.Spelling
		}
		return t.Spelling
	case TypePointer:
		if t.Const {
			return t.Inner.String() + " *const"
		}
		return t.Inner.String() + " *"
	case TypeArray:
		if t.Len == ArrayNoLength {
			return t.Inner.String() + " []"
		}
		return fmt.Sprintf("%s [%d]", t.Inner.String(), t.Len)
	case TypeFunc:
		parts := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			parts = append(parts, p.String())
		}
		if t.Variadic {
			parts = append(parts, "...")
		}
		return fmt.Sprintf("%s (%s)", t.Inner.String(), strings.Join(parts, ", "))
	case TypeInline:
		return "<inline aggregate>"
	default:
		return fmt.Sprintf("TypeExpr(kind=%d)", t.Kind)
	}
}
