// Package frontend defines the boundary to the external C parser: a tree
// of cursor-like nodes with kind, spelling, type descriptor, location, and
// children. The core walks this tree read-only; it never reimplements a C
// front-end. The ingestion adapter in this package turns cursors into raw
// declaration records for the graph builder.
package frontend

import (
	"context"
	"fmt"

	"ffigen/internal/source"
)

// CursorKind tags one node of the parser's declaration tree.
type CursorKind uint8

const (
	CursorUnknown CursorKind = iota
	CursorTranslationUnit
	CursorStructDecl
	CursorUnionDecl
	CursorEnumDecl
	CursorEnumConstant
	CursorFieldDecl
	CursorTypedefDecl
	CursorFunctionDecl
	CursorParamDecl
	CursorVarDecl
	CursorMacroDef
)

func (k CursorKind) String() string {
	switch k {
	case CursorTranslationUnit:
		return "translation-unit"
	case CursorStructDecl:
		return "struct"
	case CursorUnionDecl:
		return "union"
	case CursorEnumDecl:
		return "enum"
	case CursorEnumConstant:
		return "enum-constant"
	case CursorFieldDecl:
		return "field"
	case CursorTypedefDecl:
		return "typedef"
	case CursorFunctionDecl:
		return "function"
	case CursorParamDecl:
		return "param"
	case CursorVarDecl:
		return "var"
	case CursorMacroDef:
		return "macro"
	default:
		return fmt.Sprintf("CursorKind(%d)", k)
	}
}

// Cursor is one node of the external parser's tree. Children returns a
// materialized, finite slice, so traversal is restartable. The core never
// mutates the tree.
type Cursor interface {
	Kind() CursorKind
	Spelling() string
	// Type returns the declared type expression, or nil when the node
	// kind carries none.
	Type() *TypeExpr
	Location() source.Span
	Children() []Cursor
	// BitWidth returns the declared bitfield width, or -1 when the node
	// is not a bitfield.
	BitWidth() int
	// ConstValue returns the literal value for enum constants and object
	// macros, when one was resolved.
	ConstValue() (ConstValue, bool)
	// ConstExpr returns the unevaluated initializer expression text for
	// enum constants whose value is not a plain literal; empty when the
	// node carries none.
	ConstExpr() string
	// PackAlign returns the #pragma pack ceiling in effect at the
	// declaration, in bytes. Zero means natural alignment.
	PackAlign() int
}

// Provider parses one header into a cursor tree. Implementations wrap a
// real parsing library (see the tsc subpackage); tests build Node trees
// directly.
type Provider interface {
	Parse(ctx context.Context, file *source.File) (Cursor, error)
}

// ConstKind tags the literal kind of a resolved constant.
type ConstKind uint8

const (
	ConstInt ConstKind = iota + 1
	ConstFloat
	ConstString
)

// ConstValue is a resolved literal constant.
type ConstValue struct {
	Kind  ConstKind
	Int   int64
	Float float64
	Str   string
}

// Node is the canonical in-memory Cursor implementation. The tree-sitter
// provider materializes Node trees, and tests construct them literally.
type Node struct {
	NodeKind CursorKind
	Name     string
	TypeOf   *TypeExpr
	Span     source.Span
	Kids     []*Node
	Bits     int // -1 when not a bitfield
	Value    *ConstValue
	Expr     string
	Pack     int
}

// NewNode constructs a Node with no bitfield width.
func NewNode(kind CursorKind, name string) *Node {
	return &Node{NodeKind: kind, Name: name, Bits: -1}
}

func (n *Node) Kind() CursorKind      { return n.NodeKind }
func (n *Node) Spelling() string      { return n.Name }
func (n *Node) Type() *TypeExpr       { return n.TypeOf }
func (n *Node) Location() source.Span { return n.Span }

func (n *Node) Children() []Cursor {
	out := make([]Cursor, len(n.Kids))
	for i, k := range n.Kids {
		out[i] = k
	}
	return out
}

func (n *Node) BitWidth() int {
	if n.Bits < 0 {
		return -1
	}
	return n.Bits
}

func (n *Node) ConstValue() (ConstValue, bool) {
	if n.Value == nil {
		return ConstValue{}, false
	}
	return *n.Value, true
}

func (n *Node) ConstExpr() string { return n.Expr }
func (n *Node) PackAlign() int    { return n.Pack }
