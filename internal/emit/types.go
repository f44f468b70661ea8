package emit

import (
	"fmt"
	"strconv"
	"strings"

	"ffigen/internal/abi"
	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/frontend"
	"ffigen/internal/graph"
)

// typeImportOrder fixes the import block ordering of types.go.
var typeImportOrder = []string{"unsafe", "github.com/jupiterrider/ffi"}

func (e *emitter) renderTypes() (string, error) {
	f := newFileBuf()
	for _, d := range e.g.Decls {
		if !e.included(d) {
			continue
		}
		switch d.Kind {
		case graph.DeclConst:
			e.emitConst(f, d)
		case graph.DeclStruct, graph.DeclUnion, graph.DeclEnum, graph.DeclTypedef:
			e.emitType(f, d)
		}
	}
	return gofmt("types.go", f.render(e.opts.Package, typeImportOrder))
}

// emitType dispatches on the node's current kind: a declaration demoted
// to opaque during layout renders as a placeholder no matter how it was
// declared.
func (e *emitter) emitType(f *fileBuf, d graph.Decl) {
	name := e.names.Types[d.Type]
	if name == "" {
		return
	}
	t := e.g.Types.MustLookup(d.Type)
	switch t.Kind {
	case ctypes.KindStruct:
		e.emitStruct(f, d, name)
	case ctypes.KindUnion:
		e.emitUnion(f, d, name)
	case ctypes.KindEnum:
		e.emitEnum(f, d, name)
	case ctypes.KindTypedef:
		e.emitTypedef(f, d, name)
	case ctypes.KindOpaque:
		e.emitOpaque(f, d, name)
	}
}

func (e *emitter) emitConst(f *fileBuf, d graph.Decl) {
	name := e.names.Consts[d.Name]
	if name == "" || d.Value == nil {
		return
	}
	f.printf("const %s = %s\n\n", name, constLiteral(*d.Value))
}

func constLiteral(v frontend.ConstValue) string {
	switch v.Kind {
	case frontend.ConstInt:
		return strconv.FormatInt(v.Int, 10)
	case frontend.ConstFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return strconv.Quote(v.Str)
	}
}

func (e *emitter) emitOpaque(f *fileBuf, d graph.Decl, name string) {
	info, _ := e.g.Types.OpaqueInfo(d.Type)
	if info != nil && info.HasSize && info.Size > 0 {
		f.printf("// %s is opaque (%s); only its storage is modeled.\n", name, info.Reason)
		if anchor := alignAnchor(info.Align); anchor != "" {
			f.printf("type %s struct {\n", name)
			f.printf("\t_ [0]%s\n", anchor)
			f.printf("\traw [%d]byte\n", info.Size)
			f.printf("}\n\n")
		} else {
			f.printf("type %s [%d]byte\n\n", name, info.Size)
		}
		diag.ReportInfo(e.rep, diag.EmitOpaquePlaceholder, d.Span,
			name+" rendered as an opaque byte array").WithDecl(e.g.Name(d)).Emit()
		return
	}
	reason := "unsupported"
	if info != nil {
		reason = info.Reason.String()
	}
	f.printf("// %s is opaque (%s) with unknown size; usable behind pointers only.\n", name, reason)
	f.printf("type %s [0]byte\n\n", name)
	diag.ReportWarning(e.rep, diag.EmitUnknownSize, d.Span,
		name+" has no known size; by-value use of it will not round-trip").
		WithDecl(e.g.Name(d)).Emit()
}

func (e *emitter) emitTypedef(f *fileBuf, d graph.Decl, name string) {
	info, ok := e.g.Types.TypedefInfo(d.Type)
	if !ok {
		return
	}
	target := e.goType(info.Target, f)
	if target == "" {
		f.printf("// %s aliases a type with no Go representation.\n", name)
		f.printf("type %s [0]byte\n\n", name)
		diag.ReportWarning(e.rep, diag.EmitUnknownSize, d.Span,
			name+" aliases an unrepresentable type").WithDecl(e.g.Name(d)).Emit()
		return
	}
	f.printf("type %s = %s\n\n", name, target)
}

func (e *emitter) emitEnum(f *fileBuf, d graph.Decl, name string) {
	info, ok := e.g.Types.EnumInfo(d.Type)
	if !ok {
		return
	}
	base := "int32"
	if info.BaseType != ctypes.NoTypeID {
		base = e.goType(info.BaseType, f)
	}
	f.printf("type %s %s\n\n", name, base)
	variants := e.names.Variants[d.Type]
	if len(variants) == 0 {
		return
	}
	f.printf("const (\n")
	for i, v := range info.Variants {
		if i >= len(variants) {
			break
		}
		f.printf("\t%s %s = %d\n", variants[i], name, v.Value)
	}
	f.printf(")\n\n")
}

func (e *emitter) emitStruct(f *fileBuf, d graph.Decl, name string) {
	info, ok := e.g.Types.StructInfo(d.Type)
	if !ok || !info.HasLayout {
		return
	}
	if !e.goRepresentable(info) {
		e.emitRawStruct(f, d, name, info)
		return
	}
	fieldNames := e.names.Fields[d.Type]

	type bitGroup struct {
		unit      int // index of the Bits field
		startBits uint64
		storBits  uint64
	}
	var groups []bitGroup

	f.printf("// %s is %d bytes, aligned to %d.\n", name, info.Size, info.Align)
	f.printf("type %s struct {\n", name)
	cur := 0
	for i, fl := range info.Fields {
		if fl.IsBitfield {
			if fl.BitWidth == 0 {
				continue
			}
			stor, err := e.eng.SizeOf(fl.Type)
			if err != nil || stor <= 0 {
				continue
			}
			storBits := uint64(stor) * 8
			start := fl.OffsetBits - fl.OffsetBits%storBits
			if len(groups) == 0 || groups[len(groups)-1].startBits != start ||
				groups[len(groups)-1].storBits != storBits {
				unit := len(groups)
				offB := int(start / 8)
				if offB > cur {
					f.printf("\t_ [%d]byte\n", offB-cur)
				}
				f.printf("\tBits%d uint%d\n", unit, storBits)
				cur = offB + stor
				groups = append(groups, bitGroup{unit: unit, startBits: start, storBits: storBits})
			}
			continue
		}
		offB := int(fl.OffsetBits / 8)
		if offB > cur {
			f.printf("\t_ [%d]byte\n", offB-cur)
		}
		ft := e.goType(fl.Type, f)
		fname := fmt.Sprintf("Field%d", i)
		if i < len(fieldNames) {
			fname = fieldNames[i]
		}
		if ft == "" {
			// Field of an unrepresentable type: reserve its bytes.
			if sz, err := e.eng.SizeOf(fl.Type); err == nil && sz > 0 {
				f.printf("\t_ [%d]byte // %s: unrepresentable type\n", sz, fname)
				cur = offB + sz
			}
			continue
		}
		f.printf("\t%s %s\n", fname, ft)
		if sz, err := e.eng.SizeOf(fl.Type); err == nil {
			cur = offB + sz
		}
	}
	if info.Size > cur {
		f.printf("\t_ [%d]byte\n", info.Size-cur)
	}
	f.printf("}\n\n")

	// Bitfield accessors.
	gi := 0
	var lastStart, lastStor uint64
	for i, fl := range info.Fields {
		if !fl.IsBitfield || fl.BitWidth == 0 {
			continue
		}
		stor, err := e.eng.SizeOf(fl.Type)
		if err != nil || stor <= 0 {
			continue
		}
		storBits := uint64(stor) * 8
		start := fl.OffsetBits - fl.OffsetBits%storBits
		if lastStor != 0 && (start != lastStart || storBits != lastStor) {
			gi++
		}
		lastStart, lastStor = start, storBits
		if fl.Name == 0 {
			continue
		}
		fname := fmt.Sprintf("Field%d", i)
		if i < len(fieldNames) {
			fname = fieldNames[i]
		}
		e.emitBitfieldAccessors(f, name, fname, fl, gi, start, storBits)
	}

	if e.hasFFIType(d.Type) {
		f.addImport("github.com/jupiterrider/ffi")
		f.printf("var FFIType%s = ffi.NewType(\n", name)
		for _, fl := range info.Fields {
			ft, _ := e.ffiType(fl.Type)
			f.printf("\t%s,\n", ft)
		}
		f.printf(")\n\n")
	}
}

// goRepresentable reports whether the computed layout can be reproduced
// by a Go struct with padding fields: every member offset must be a
// multiple of the member's natural alignment, and the total size a
// multiple of the widest one. A #pragma pack ceiling below natural
// alignment breaks this, since Go has no packed structs.
func (e *emitter) goRepresentable(info *ctypes.StructInfo) bool {
	maxAlign := 1
	for _, fl := range info.Fields {
		if fl.IsBitfield {
			if fl.BitWidth == 0 {
				continue
			}
			stor, err := e.eng.SizeOf(fl.Type)
			if err != nil || stor <= 0 {
				continue
			}
			storBits := uint64(stor) * 8
			start := fl.OffsetBits - fl.OffsetBits%storBits
			if int(start/8)%stor != 0 {
				return false
			}
			if stor > maxAlign {
				maxAlign = stor
			}
			continue
		}
		al, err := e.eng.AlignOf(fl.Type)
		if err != nil || al <= 0 {
			continue
		}
		if int(fl.OffsetBits/8)%al != 0 {
			return false
		}
		if al > maxAlign {
			maxAlign = al
		}
	}
	return info.Size%maxAlign == 0
}

// emitRawStruct renders a struct whose member offsets no Go field list
// can hit: raw storage of the exact size and alignment, with typed
// pointer accessors at the packed offsets.
func (e *emitter) emitRawStruct(f *fileBuf, d graph.Decl, name string, info *ctypes.StructInfo) {
	fieldNames := e.names.Fields[d.Type]
	f.printf("// %s is %d bytes, aligned to %d. Its packed member offsets\n", name, info.Size, info.Align)
	f.printf("// cannot be expressed as Go fields; members are reached\n")
	f.printf("// through the typed accessors.\n")
	f.printf("type %s struct {\n", name)
	if anchor := alignAnchor(info.Align); anchor != "" {
		f.printf("\t_ [0]%s\n", anchor)
	}
	f.printf("\traw [%d]byte\n", info.Size)
	f.printf("}\n\n")

	for i, fl := range info.Fields {
		if fl.IsBitfield || fl.Name == 0 {
			continue
		}
		ft := e.goType(fl.Type, f)
		if ft == "" {
			continue
		}
		fname := fmt.Sprintf("Field%d", i)
		if i < len(fieldNames) {
			fname = fieldNames[i]
		}
		f.addImport("unsafe")
		f.printf("func (s *%s) %s() *%s {\n", name, fname, ft)
		f.printf("\treturn (*%s)(unsafe.Pointer(&s.raw[%d]))\n", ft, fl.OffsetBits/8)
		f.printf("}\n\n")
	}

	diag.ReportWarning(e.rep, diag.LayoutSizeDisagrees, d.Span,
		name+" has packed offsets no Go struct reproduces; rendered as raw storage").
		WithDecl(e.g.Name(d)).Emit()
}

// emitBitfieldAccessors renders the getter/setter pair for one bitfield
// member held in storage unit gi.
func (e *emitter) emitBitfieldAccessors(f *fileBuf, recv, fname string, fl ctypes.Field, gi int, startBits, storBits uint64) {
	width := uint64(fl.BitWidth)
	offInUnit := fl.OffsetBits - startBits
	var lsb uint64
	if e.opts.Target.BitfieldOrder == abi.BitfieldMSBFirst {
		lsb = storBits - offInUnit - width
	} else {
		lsb = offInUnit
	}
	mask := uint64(1)<<width - 1

	goT := e.goType(fl.Type, f)
	if goT == "" {
		return
	}
	signed := false
	if tt, ok := e.g.Types.Lookup(e.g.Types.ResolveTypedefs(fl.Type)); ok {
		signed = tt.Kind == ctypes.KindInt
	}

	unit := fmt.Sprintf("Bits%d", gi)
	f.printf("func (s *%s) %s() %s {\n", recv, fname, goT)
	if signed {
		f.printf("\tv := int%d(s.%s << %d)\n", storBits, unit, storBits-lsb-width)
		f.printf("\treturn %s(v >> %d)\n", goT, storBits-width)
	} else {
		f.printf("\treturn %s(s.%s >> %d & %#x)\n", goT, unit, lsb, mask)
	}
	f.printf("}\n\n")

	f.printf("func (s *%s) Set%s(v %s) {\n", recv, fname, goT)
	f.printf("\ts.%s = s.%s&^(%#x<<%d) | uint%d(v)&%#x<<%d\n",
		unit, unit, mask, lsb, storBits, mask, lsb)
	f.printf("}\n\n")
}

func (e *emitter) emitUnion(f *fileBuf, d graph.Decl, name string) {
	info, ok := e.g.Types.UnionInfo(d.Type)
	if !ok || !info.HasLayout {
		return
	}
	fieldNames := e.names.Fields[d.Type]

	f.printf("// %s is a union of %d bytes, aligned to %d. Members share\n", name, info.Size, info.Align)
	f.printf("// storage and are reached through the typed accessors.\n")
	f.printf("type %s struct {\n", name)
	if anchor := alignAnchor(info.Align); anchor != "" {
		f.printf("\t_ [0]%s\n", anchor)
	}
	f.printf("\traw [%d]byte\n", info.Size)
	f.printf("}\n\n")

	for i, fl := range info.Fields {
		if fl.IsBitfield || fl.Name == 0 {
			continue
		}
		ft := e.goType(fl.Type, f)
		if ft == "" {
			continue
		}
		fname := fmt.Sprintf("Field%d", i)
		if i < len(fieldNames) {
			fname = fieldNames[i]
		}
		f.addImport("unsafe")
		f.printf("func (u *%s) %s() *%s {\n", name, fname, ft)
		f.printf("\treturn (*%s)(unsafe.Pointer(&u.raw[0]))\n", ft)
		f.printf("}\n\n")
	}
}

// alignAnchor picks a zero-length anchor type forcing the union's
// alignment; byte arrays alone align to 1.
func alignAnchor(align int) string {
	switch {
	case align >= 8:
		return "uint64"
	case align == 4:
		return "uint32"
	case align == 2:
		return "uint16"
	default:
		return ""
	}
}
