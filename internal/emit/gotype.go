package emit

import (
	"fmt"

	"ffigen/internal/ctypes"
)

// goType maps a type node to its Go spelling inside the generated
// package. The empty string means the node has no Go representation (an
// unnamed opaque placeholder); callers degrade the surrounding construct.
func (e *emitter) goType(id ctypes.TypeID, f *fileBuf) string {
	t, ok := e.g.Types.Lookup(id)
	if !ok {
		return ""
	}
	switch t.Kind {
	case ctypes.KindVoid:
		// Standalone void only appears as a pointee; the pointer case
		// handles it before recursing.
		return ""
	case ctypes.KindBool:
		return "bool"
	case ctypes.KindInt:
		return fmt.Sprintf("int%d", t.Width)
	case ctypes.KindUint:
		return fmt.Sprintf("uint%d", t.Width)
	case ctypes.KindFloat:
		return fmt.Sprintf("float%d", t.Width)
	case ctypes.KindPointer:
		return e.pointerType(t, f)
	case ctypes.KindArray:
		elem := e.goType(t.Elem, f)
		if elem == "" {
			return ""
		}
		if t.Count == ctypes.ArrayIncompleteLength {
			return "[0]" + elem
		}
		return fmt.Sprintf("[%d]%s", t.Count, elem)
	case ctypes.KindFunc:
		// Bare function types only make sense behind pointers; a raw
		// code address is all Go can hold.
		return "uintptr"
	case ctypes.KindStruct, ctypes.KindUnion, ctypes.KindEnum,
		ctypes.KindTypedef, ctypes.KindOpaque:
		return e.names.Types[id]
	default:
		return ""
	}
}

func (e *emitter) pointerType(t ctypes.Type, f *fileBuf) string {
	pt, ok := e.g.Types.Lookup(t.Elem)
	if !ok {
		return ""
	}
	switch pt.Kind {
	case ctypes.KindVoid:
		f.addImport("unsafe")
		return "unsafe.Pointer"
	case ctypes.KindFunc:
		return "uintptr"
	case ctypes.KindOpaque:
		if name := e.names.Types[t.Elem]; name != "" {
			return "*" + name
		}
		// Pointer to an unknown type is still just an address.
		f.addImport("unsafe")
		return "unsafe.Pointer"
	default:
		elem := e.goType(t.Elem, f)
		if elem == "" {
			f.addImport("unsafe")
			return "unsafe.Pointer"
		}
		return "*" + elem
	}
}

// ffiType maps a type node to its libffi descriptor expression, used in
// Prep calls. ok is false when the value cannot cross the boundary (an
// aggregate without a registered ffi type, or an opaque by value).
func (e *emitter) ffiType(id ctypes.TypeID) (string, bool) {
	t, ok := e.g.Types.Lookup(id)
	if !ok {
		return "", false
	}
	switch t.Kind {
	case ctypes.KindVoid:
		return "&ffi.TypeVoid", true
	case ctypes.KindBool:
		return "&ffi.TypeUint8", true
	case ctypes.KindInt:
		return fmt.Sprintf("&ffi.TypeSint%d", t.Width), true
	case ctypes.KindUint:
		return fmt.Sprintf("&ffi.TypeUint%d", t.Width), true
	case ctypes.KindFloat:
		if t.Width == ctypes.Width32 {
			return "&ffi.TypeFloat", true
		}
		return "&ffi.TypeDouble", true
	case ctypes.KindPointer:
		return "&ffi.TypePointer", true
	case ctypes.KindEnum:
		info, ok := e.g.Types.EnumInfo(id)
		if !ok || info.BaseType == ctypes.NoTypeID {
			return "&ffi.TypeSint32", true
		}
		return e.ffiType(info.BaseType)
	case ctypes.KindTypedef:
		return e.ffiType(e.g.Types.ResolveTypedefs(id))
	case ctypes.KindStruct:
		if e.hasFFIType(id) {
			return "&FFIType" + e.names.Types[id], true
		}
		return "", false
	default:
		return "", false
	}
}

// hasFFIType reports whether a struct gets a generated ffi.NewType
// descriptor: every member must itself map to a scalar or pointer
// descriptor, and bitfields have none.
func (e *emitter) hasFFIType(id ctypes.TypeID) bool {
	info, ok := e.g.Types.StructInfo(id)
	if !ok || info.IsForward || !info.HasLayout {
		return false
	}
	if e.names.Types[id] == "" {
		return false
	}
	// ffi.NewType lays elements out at natural alignment, which is wrong
	// for packed layouts; those structs get no descriptor.
	if !e.goRepresentable(info) {
		return false
	}
	for _, fl := range info.Fields {
		if fl.IsBitfield {
			return false
		}
		ft, ok := e.g.Types.Lookup(fl.Type)
		if !ok {
			return false
		}
		switch ft.Kind {
		case ctypes.KindBool, ctypes.KindInt, ctypes.KindUint,
			ctypes.KindFloat, ctypes.KindPointer:
		default:
			return false
		}
	}
	return true
}
