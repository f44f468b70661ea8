// Package graph builds the declaration graph: raw declaration records
// from the frontend become type nodes in a ctypes.Interner plus an
// ordered list of top-level declarations. Building is total: malformed
// or unsupported input demotes individual nodes to opaque placeholders
// and reports a diagnostic, it never fails the run.
package graph

import (
	"ffigen/internal/ctypes"
	"ffigen/internal/frontend"
	"ffigen/internal/source"
)

// DeclKind tags one top-level declaration.
type DeclKind uint8

const (
	DeclStruct DeclKind = iota + 1
	DeclUnion
	DeclEnum
	DeclTypedef
	DeclFunc
	DeclConst
)

func (k DeclKind) String() string {
	switch k {
	case DeclStruct:
		return "struct"
	case DeclUnion:
		return "union"
	case DeclEnum:
		return "enum"
	case DeclTypedef:
		return "typedef"
	case DeclFunc:
		return "func"
	case DeclConst:
		return "const"
	default:
		return "decl"
	}
}

// Decl is one top-level declaration in input order. Anonymous aggregates
// hoisted out of field positions appear as Decls with Name NoStringID;
// Host and AnonIndex let the resolver derive a stable synthetic name.
type Decl struct {
	Kind DeclKind
	Name source.StringID
	Span source.Span
	Type ctypes.TypeID

	// Value is set for DeclConst.
	Value *frontend.ConstValue

	// Host names the enclosing declaration of a hoisted anonymous
	// aggregate; AnonIndex orders hoisted siblings.
	Host      source.StringID
	AnonIndex int
}

// Anonymous reports whether the declaration needs a synthesized name.
func (d Decl) Anonymous() bool {
	return d.Name == source.NoStringID
}

// Graph is the output of building: the type arena, the string table, and
// every top-level declaration in input order.
type Graph struct {
	Types   *ctypes.Interner
	Strings *source.Interner
	Decls   []Decl
}

// Name returns the interned C name of a declaration, or "" for anonymous.
func (g *Graph) Name(d Decl) string {
	if d.Name == source.NoStringID {
		return ""
	}
	return g.Strings.MustLookup(d.Name)
}
