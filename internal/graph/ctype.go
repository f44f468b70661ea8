package graph

import (
	"strings"

	"fortio.org/safecast"

	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/frontend"
	"ffigen/internal/source"
)

// resolveExpr maps a frontend type expression to a TypeID. inline is the
// pre-built node for a TypeInline position, NoTypeID when there is none.
// Unknown names resolve to opaque placeholders, never to NoTypeID; only a
// nil expression or a dangling inline marker yields NoTypeID.
func (b *Builder) resolveExpr(e *frontend.TypeExpr, inline ctypes.TypeID, sp source.Span) ctypes.TypeID {
	if e == nil {
		return ctypes.NoTypeID
	}
	switch e.Kind {
	case frontend.TypeName:
		return b.baseType(e.Spelling, sp)
	case frontend.TypePointer:
		elem := b.resolveExpr(e.Inner, inline, sp)
		if elem == ctypes.NoTypeID {
			elem = b.types.Builtins().Void
		}
		isConst := e.Inner != nil && e.Inner.Const
		return b.types.Intern(ctypes.MakePointer(elem, isConst))
	case frontend.TypeArray:
		elem := b.resolveExpr(e.Inner, inline, sp)
		if elem == ctypes.NoTypeID {
			return ctypes.NoTypeID
		}
		if e.Len == frontend.ArrayNoLength {
			return b.types.Intern(ctypes.MakeArray(elem, ctypes.ArrayIncompleteLength))
		}
		n, err := safecast.Conv[uint32](e.Len)
		if err != nil || n == ctypes.ArrayIncompleteLength {
			diag.ReportWarning(b.rep, diag.GraphConstOutOfRange, sp,
				"array length out of range; treating the array as incomplete").Emit()
			return b.types.Intern(ctypes.MakeArray(elem, ctypes.ArrayIncompleteLength))
		}
		return b.types.Intern(ctypes.MakeArray(elem, n))
	case frontend.TypeFunc:
		result := b.resolveExpr(e.Inner, ctypes.NoTypeID, sp)
		if result == ctypes.NoTypeID {
			result = b.types.Builtins().Void
		}
		params := make([]ctypes.Param, 0, len(e.Params))
		for _, pe := range e.Params {
			pt := b.resolveExpr(pe, ctypes.NoTypeID, sp)
			if pt == ctypes.NoTypeID {
				pt = b.types.Builtins().Void
			}
			params = append(params, ctypes.Param{Type: pt})
		}
		return b.types.InternFunc(ctypes.FuncInfo{Result: result, Params: params, Variadic: e.Variadic})
	case frontend.TypeInline:
		return inline
	default:
		return ctypes.NoTypeID
	}
}

// baseType resolves a base spelling: a tag reference ("struct Foo"), a
// builtin C spelling, a fixed-width alias, or a typedef name.
func (b *Builder) baseType(spelling string, sp source.Span) ctypes.TypeID {
	s := stripQualifiers(spelling)

	if tag, kind, ok := splitTag(s); ok {
		return b.tagRef(kind, tag, sp)
	}
	if id, ok := b.builtinSpelling(s); ok {
		return id
	}
	if id, ok := b.named[namedKey{kind: 't', name: s}]; ok {
		return id
	}
	return b.unknownOpaque(sp, "", "type name \""+s+"\"")
}

// tagRef resolves "struct X" / "union X" / "enum X", registering a
// forward node on first reference.
func (b *Builder) tagRef(kind DeclKind, tag string, sp source.Span) ctypes.TypeID {
	key := namedKey{kind: kindTag(kind), name: tag}
	if id, ok := b.named[key]; ok {
		return id
	}
	nameID := b.strings.Intern(tag)
	id := b.registerNominal(kind, nameID, sp)
	b.named[key] = id
	b.decls = append(b.decls, Decl{Kind: kind, Name: nameID, Span: sp, Type: id})
	return id
}

func splitTag(s string) (tag string, kind DeclKind, ok bool) {
	switch {
	case strings.HasPrefix(s, "struct "):
		return strings.TrimSpace(s[len("struct "):]), DeclStruct, true
	case strings.HasPrefix(s, "union "):
		return strings.TrimSpace(s[len("union "):]), DeclUnion, true
	case strings.HasPrefix(s, "enum "):
		return strings.TrimSpace(s[len("enum "):]), DeclEnum, true
	}
	return "", 0, false
}

func stripQualifiers(s string) string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		switch f {
		case "const", "volatile", "restrict", "_Atomic":
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// builtinSpelling maps a C builtin or fixed-width spelling to a primitive
// TypeID using the target's integer model.
func (b *Builder) builtinSpelling(s string) (ctypes.TypeID, bool) {
	bt := b.types.Builtins()

	// Single-token fixed-width and standard aliases first.
	switch s {
	case "void":
		return bt.Void, true
	case "bool", "_Bool":
		return bt.Bool, true
	case "int8_t":
		return bt.Int8, true
	case "int16_t":
		return bt.Int16, true
	case "int32_t":
		return bt.Int32, true
	case "int64_t", "intmax_t":
		return bt.Int64, true
	case "uint8_t":
		return bt.Uint8, true
	case "uint16_t", "char16_t":
		return bt.Uint16, true
	case "uint32_t", "char32_t":
		return bt.Uint32, true
	case "uint64_t", "uintmax_t":
		return bt.Uint64, true
	case "float":
		return bt.Float32, true
	case "double":
		return bt.Float64, true
	case "size_t", "uintptr_t":
		return b.intID(b.opts.Target.IntWidthOf(b.opts.Target.PtrSize*8), true), true
	case "ssize_t", "ptrdiff_t", "intptr_t":
		return b.intID(b.opts.Target.IntWidthOf(b.opts.Target.PtrSize*8), false), true
	case "wchar_t":
		return bt.Int32, true
	}

	// Multi-token integer spellings: any order of signed/unsigned, char,
	// short, int, long.
	var longs, shorts, chars, ints, doubles int
	unsigned, signed := false, false
	for _, tok := range strings.Fields(s) {
		switch tok {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "long":
			longs++
		case "short":
			shorts++
		case "char":
			chars++
		case "int":
			ints++
		case "double":
			doubles++
		default:
			return ctypes.NoTypeID, false
		}
	}

	t := b.opts.Target
	switch {
	case doubles == 1 && longs == 1 && chars == 0 && shorts == 0 && ints == 0:
		// long double has no portable fixed-width representation.
		return ctypes.NoTypeID, false
	case chars == 1 && longs == 0 && shorts == 0 && ints == 0 && doubles == 0:
		if unsigned {
			return bt.Uint8, true
		}
		if signed || t.CharSigned {
			return bt.Int8, true
		}
		return bt.Uint8, true
	case shorts == 1 && longs == 0 && chars == 0 && doubles == 0:
		return b.intID(t.IntWidthOf(t.ShortWidth), unsigned), true
	case longs == 2 && chars == 0 && shorts == 0 && doubles == 0:
		return b.intID(t.IntWidthOf(t.LongLongWidth), unsigned), true
	case longs == 1 && chars == 0 && shorts == 0 && doubles == 0:
		return b.intID(t.IntWidthOf(t.LongWidth), unsigned), true
	case ints == 1 && longs == 0 && chars == 0 && shorts == 0 && doubles == 0:
		return b.intID(t.IntWidthOf(t.IntWidth), unsigned), true
	case ints == 0 && chars == 0 && doubles == 0 && (unsigned || signed) && longs == 0 && shorts == 0:
		// bare "unsigned" / "signed"
		return b.intID(t.IntWidthOf(t.IntWidth), unsigned), true
	}
	return ctypes.NoTypeID, false
}

func (b *Builder) intID(w ctypes.Width, unsigned bool) ctypes.TypeID {
	bt := b.types.Builtins()
	if unsigned {
		switch w {
		case ctypes.Width8:
			return bt.Uint8
		case ctypes.Width16:
			return bt.Uint16
		case ctypes.Width32:
			return bt.Uint32
		default:
			return bt.Uint64
		}
	}
	switch w {
	case ctypes.Width8:
		return bt.Int8
	case ctypes.Width16:
		return bt.Int16
	case ctypes.Width32:
		return bt.Int32
	default:
		return bt.Int64
	}
}
