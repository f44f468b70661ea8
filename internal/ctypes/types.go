// Package ctypes stores the intermediate representation of foreign
// declarations: an arena of type nodes indexed by TypeID. All references
// between nodes are TypeIDs, never pointers, so self-referential and
// mutually-recursive foreign types are representable without cycles in
// the ownership structure.
package ctypes

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of foreign types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindInt
	KindUint
	KindFloat
	KindPointer
	KindArray
	KindStruct
	KindUnion
	KindEnum
	KindTypedef
	KindFunc
	// KindOpaque stands in for a construct the engine could not fully
	// model. Nodes are demoted to it in place; they are never deleted.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	case KindTypedef:
		return "typedef"
	case KindFunc:
		return "func"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integer/float primitives in bits.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// ArrayIncompleteLength marks arrays declared without a length.
const ArrayIncompleteLength = ^uint32(0)

// Type is a compact descriptor for any supported foreign type. Nominal
// kinds (struct, union, enum, typedef, func, opaque) carry a Payload slot
// into the interner's per-kind info tables.
type Type struct {
	Kind    Kind
	Elem    TypeID // pointee for pointers, element for arrays
	Count   uint32 // array length; ArrayIncompleteLength when unsized
	Width   Width  // numeric primitives
	Const   bool   // pointer-to-const
	Payload uint32
}

// MakeInt describes a signed integer of the given width.
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer of the given width.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type of the given width.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer describes a pointer to elem. isConst marks pointer-to-const.
func MakePointer(elem TypeID, isConst bool) Type {
	return Type{Kind: KindPointer, Elem: elem, Const: isConst}
}

// MakeArray describes an array of elem. Use ArrayIncompleteLength for
// incomplete array declarations (extern int xs[];).
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}
