package frontend

import (
	"fmt"

	"ffigen/internal/source"
)

// RawKind tags one raw declaration record.
type RawKind uint8

const (
	RawStruct RawKind = iota + 1
	RawUnion
	RawEnum
	RawEnumConstant
	RawField
	RawTypedef
	RawFunction
	RawParam
	RawConst
	RawUnsupported
)

func (k RawKind) String() string {
	switch k {
	case RawStruct:
		return "struct"
	case RawUnion:
		return "union"
	case RawEnum:
		return "enum"
	case RawEnumConstant:
		return "enum-constant"
	case RawField:
		return "field"
	case RawTypedef:
		return "typedef"
	case RawFunction:
		return "function"
	case RawParam:
		return "param"
	case RawConst:
		return "const"
	case RawUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("RawKind(%d)", k)
	}
}

// RawDecl is one untyped declaration record produced by the ingestion
// adapter, before resolution into the graph. Name is empty for anonymous
// entities. Aggregates and functions carry ordered child records; typedefs
// and fields carry a type expression instead.
type RawDecl struct {
	Kind RawKind
	Name string
	Span source.Span
	Type *TypeExpr

	// BitWidth is the declared bitfield width for fields; -1 otherwise.
	BitWidth int

	// Value is set for enum constants and object macros.
	Value *ConstValue

	// Pack is the #pragma pack ceiling in effect at the declaration, in
	// bytes. Zero means natural alignment.
	Pack int

	// Reason explains a RawUnsupported record.
	Reason string

	Children []RawDecl
}
