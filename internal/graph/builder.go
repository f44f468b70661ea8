package graph

import (
	"fmt"

	"ffigen/internal/abi"
	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/frontend"
	"ffigen/internal/source"
)

// Options configure graph building.
type Options struct {
	Target abi.Target

	// AllowUnknownTypes downgrades unknown type spellings from errors to
	// warnings; the node is demoted to opaque either way.
	AllowUnknownTypes bool
}

type namedKey struct {
	kind byte // 's', 'u', 'e', 't'
	name string
}

// Builder accumulates raw declarations into a Graph. Feed declarations in
// input order with AddAll, then call Finish once.
type Builder struct {
	opts    Options
	types   *ctypes.Interner
	strings *source.Interner
	rep     diag.Reporter

	named map[namedKey]ctypes.TypeID
	anon  map[uint64]ctypes.TypeID

	// anonSeq counts hoisted anonymous aggregates per host name.
	anonSeq map[source.StringID]int

	decls []Decl
}

// NewBuilder constructs a builder over a fresh type arena. The string
// interner is shared with the caller so names survive into later phases.
func NewBuilder(opts Options, strings *source.Interner, rep diag.Reporter) *Builder {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Builder{
		opts:    opts,
		types:   ctypes.NewInterner(),
		strings: strings,
		rep:     rep,
		named:   make(map[namedKey]ctypes.TypeID, 64),
		anon:    make(map[uint64]ctypes.TypeID, 8),
		anonSeq: make(map[source.StringID]int, 8),
	}
}

// Types exposes the arena, mainly for tests that want to pre-seed nodes.
func (b *Builder) Types() *ctypes.Interner { return b.types }

// AddAll processes one header's raw declarations in order.
func (b *Builder) AddAll(raws []frontend.RawDecl) {
	for i := range raws {
		b.add(&raws[i])
	}
}

// Finish returns the built graph. The builder must not be reused after.
func (b *Builder) Finish() *Graph {
	return &Graph{Types: b.types, Strings: b.strings, Decls: b.decls}
}

func (b *Builder) add(raw *frontend.RawDecl) {
	switch raw.Kind {
	case frontend.RawStruct:
		b.addAggregate(raw, DeclStruct)
	case frontend.RawUnion:
		b.addAggregate(raw, DeclUnion)
	case frontend.RawEnum:
		b.addEnum(raw, true)
	case frontend.RawTypedef:
		b.addTypedef(raw)
	case frontend.RawFunction:
		b.addFunction(raw)
	case frontend.RawConst:
		b.addConst(raw)
	case frontend.RawUnsupported:
		// Already reported at ingestion.
	default:
		diag.ReportWarning(b.rep, diag.GraphUnsupportedDecl, raw.Span,
			fmt.Sprintf("declaration kind %s is not translated", raw.Kind)).
			WithDecl(raw.Name).Emit()
	}
}

// addAggregate builds a top-level struct or union definition or forward
// declaration. Returns the node's TypeID.
func (b *Builder) addAggregate(raw *frontend.RawDecl, kind DeclKind) ctypes.TypeID {
	if raw.Name == "" {
		// Top-level anonymous aggregate without a declarator declares
		// nothing usable.
		diag.ReportWarning(b.rep, diag.GraphUnsupportedDecl, raw.Span,
			"anonymous "+kind.String()+" at file scope declares nothing").Emit()
		return ctypes.NoTypeID
	}

	nameID := b.strings.Intern(raw.Name)
	key := namedKey{kind: kindTag(kind), name: raw.Name}
	id, seen := b.named[key]
	if !seen {
		id = b.registerNominal(kind, nameID, raw.Span)
		b.named[key] = id
		b.decls = append(b.decls, Decl{Kind: kind, Name: nameID, Span: raw.Span, Type: id})
	}

	if len(raw.Children) == 0 {
		// Forward declaration: leave the node incomplete. If no
		// definition follows, layout annotation demotes it.
		return id
	}
	if b.isDefined(kind, id) {
		diag.ReportWarning(b.rep, diag.GraphDuplicateName, raw.Span,
			fmt.Sprintf("redefinition of %s %s; the first definition wins", kind, raw.Name)).
			WithDecl(raw.Name).Emit()
		return id
	}

	fields := b.buildFields(raw, nameID)
	switch kind {
	case DeclStruct:
		b.types.SetStructFields(id, fields)
		if raw.Pack > 0 {
			b.types.SetStructPack(id, raw.Pack)
		}
	case DeclUnion:
		b.types.SetUnionFields(id, fields)
		if raw.Pack > 0 {
			b.types.SetUnionPack(id, raw.Pack)
		}
	}
	return id
}

func (b *Builder) registerNominal(kind DeclKind, name source.StringID, sp source.Span) ctypes.TypeID {
	switch kind {
	case DeclStruct:
		return b.types.RegisterStruct(name, sp)
	case DeclUnion:
		return b.types.RegisterUnion(name, sp)
	case DeclEnum:
		return b.types.RegisterEnum(name, sp)
	default:
		panic("graph: registerNominal: not a nominal kind")
	}
}

func (b *Builder) isDefined(kind DeclKind, id ctypes.TypeID) bool {
	switch kind {
	case DeclStruct:
		info, ok := b.types.StructInfo(id)
		return ok && !info.IsForward
	case DeclUnion:
		info, ok := b.types.UnionInfo(id)
		return ok && !info.IsForward
	case DeclEnum:
		info, ok := b.types.EnumInfo(id)
		return ok && len(info.Variants) > 0
	default:
		return false
	}
}

// buildFields resolves an aggregate's members. host is the aggregate's
// own name, used to title hoisted anonymous children.
func (b *Builder) buildFields(raw *frontend.RawDecl, host source.StringID) []ctypes.Field {
	fields := make([]ctypes.Field, 0, len(raw.Children))
	for i := range raw.Children {
		child := &raw.Children[i]
		if child.Kind != frontend.RawField {
			// Nested named aggregate definitions at member scope are
			// hoisted to file scope, matching how C scopes tags.
			b.add(child)
			continue
		}
		f, ok := b.buildField(child, host, i == len(raw.Children)-1)
		if ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func (b *Builder) buildField(raw *frontend.RawDecl, host source.StringID, last bool) (ctypes.Field, bool) {
	inline := b.buildInline(raw, host)
	ty := b.resolveExpr(raw.Type, inline, raw.Span)

	if raw.Type != nil && raw.Type.Kind == frontend.TypeArray &&
		raw.Type.Len == frontend.ArrayNoLength && last {
		diag.ReportWarning(b.rep, diag.GraphFlexibleArrayField, raw.Span,
			"flexible array member; the enclosing aggregate has no computable size").
			WithDecl(raw.Name).Emit()
	}

	f := ctypes.Field{
		Name: b.internOpt(raw.Name),
		Type: ty,
		Span: raw.Span,
	}
	if raw.BitWidth >= 0 {
		f.IsBitfield = true
		f.BitWidth = uint32(raw.BitWidth)
	}
	return f, ty != ctypes.NoTypeID
}

// buildInline materializes an inline aggregate definition carried as the
// record's child, returning its TypeID or NoTypeID when there is none.
func (b *Builder) buildInline(raw *frontend.RawDecl, host source.StringID) ctypes.TypeID {
	for i := range raw.Children {
		child := &raw.Children[i]
		switch child.Kind {
		case frontend.RawStruct, frontend.RawUnion:
			if child.Name != "" {
				return b.addAggregate(child, aggKind(child.Kind))
			}
			return b.buildAnonAggregate(child, host)
		case frontend.RawEnum:
			if child.Name != "" {
				return b.addEnum(child, true)
			}
			return b.buildAnonEnum(child, host)
		}
	}
	return ctypes.NoTypeID
}

// buildAnonAggregate builds an anonymous struct/union and deduplicates it
// by structural fingerprint; distinct anonymous definitions with the same
// shape share one node and one hoisted declaration.
func (b *Builder) buildAnonAggregate(raw *frontend.RawDecl, host source.StringID) ctypes.TypeID {
	kind := aggKind(raw.Kind)
	fields := b.buildFields(raw, host)
	fp := fingerprintFields(kindTag(kind), fields)
	if id, ok := b.anon[fp]; ok {
		return id
	}
	id := b.registerNominal(kind, source.NoStringID, raw.Span)
	switch kind {
	case DeclStruct:
		b.types.SetStructFields(id, fields)
		if raw.Pack > 0 {
			b.types.SetStructPack(id, raw.Pack)
		}
	case DeclUnion:
		b.types.SetUnionFields(id, fields)
		if raw.Pack > 0 {
			b.types.SetUnionPack(id, raw.Pack)
		}
	}
	b.anon[fp] = id
	b.decls = append(b.decls, Decl{
		Kind: kind, Span: raw.Span, Type: id,
		Host: host, AnonIndex: b.nextAnon(host),
	})
	return id
}

func (b *Builder) buildAnonEnum(raw *frontend.RawDecl, host source.StringID) ctypes.TypeID {
	variants := b.enumVariants(raw)
	fp := fingerprintVariants(variants)
	if id, ok := b.anon[fp]; ok {
		return id
	}
	id := b.types.RegisterEnum(source.NoStringID, raw.Span)
	b.types.SetEnumVariants(id, variants)
	b.anon[fp] = id
	b.decls = append(b.decls, Decl{
		Kind: DeclEnum, Span: raw.Span, Type: id,
		Host: host, AnonIndex: b.nextAnon(host),
	})
	return id
}

func (b *Builder) nextAnon(host source.StringID) int {
	n := b.anonSeq[host]
	b.anonSeq[host] = n + 1
	return n
}

func (b *Builder) addEnum(raw *frontend.RawDecl, topLevel bool) ctypes.TypeID {
	if raw.Name == "" {
		// File-scope anonymous enum: its constants are still usable, so
		// hoist it without a host.
		return b.buildAnonEnum(raw, source.NoStringID)
	}
	nameID := b.strings.Intern(raw.Name)
	key := namedKey{kind: 'e', name: raw.Name}
	id, seen := b.named[key]
	if !seen {
		id = b.types.RegisterEnum(nameID, raw.Span)
		b.named[key] = id
		b.decls = append(b.decls, Decl{Kind: DeclEnum, Name: nameID, Span: raw.Span, Type: id})
	}
	if len(raw.Children) == 0 {
		return id
	}
	if b.isDefined(DeclEnum, id) {
		diag.ReportWarning(b.rep, diag.GraphDuplicateName, raw.Span,
			fmt.Sprintf("redefinition of enum %s; the first definition wins", raw.Name)).
			WithDecl(raw.Name).Emit()
		return id
	}
	b.types.SetEnumVariants(id, b.enumVariants(raw))
	return id
}

func (b *Builder) enumVariants(raw *frontend.RawDecl) []ctypes.EnumVariant {
	out := make([]ctypes.EnumVariant, 0, len(raw.Children))
	for i := range raw.Children {
		c := &raw.Children[i]
		if c.Kind != frontend.RawEnumConstant || c.Value == nil {
			continue
		}
		out = append(out, ctypes.EnumVariant{
			Name:  b.strings.Intern(c.Name),
			Value: c.Value.Int,
			Span:  c.Span,
		})
	}
	return out
}

func (b *Builder) addTypedef(raw *frontend.RawDecl) {
	if raw.Name == "" {
		diag.ReportWarning(b.rep, diag.GraphUnsupportedDecl, raw.Span,
			"typedef without a name").Emit()
		return
	}
	nameID := b.strings.Intern(raw.Name)
	key := namedKey{kind: 't', name: raw.Name}
	if _, seen := b.named[key]; seen {
		// C allows exact-duplicate typedefs; re-resolution is pointless
		// either way.
		diag.ReportInfo(b.rep, diag.GraphDuplicateName, raw.Span,
			fmt.Sprintf("typedef %s declared again; the first declaration wins", raw.Name)).
			WithDecl(raw.Name).Emit()
		return
	}

	id := b.types.RegisterTypedef(nameID, raw.Span)
	b.named[key] = id
	inline := b.buildInline(raw, nameID)
	target := b.resolveExpr(raw.Type, inline, raw.Span)
	if target == ctypes.NoTypeID {
		target = b.unknownOpaque(raw.Span, raw.Name, "typedef target")
	}
	b.types.SetTypedefTarget(id, target)
	b.decls = append(b.decls, Decl{Kind: DeclTypedef, Name: nameID, Span: raw.Span, Type: id})
}

func (b *Builder) addFunction(raw *frontend.RawDecl) {
	if raw.Type == nil || raw.Type.Kind != frontend.TypeFunc {
		diag.ReportWarning(b.rep, diag.GraphUnsupportedDecl, raw.Span,
			"function declaration without a signature").WithDecl(raw.Name).Emit()
		return
	}
	nameID := b.strings.Intern(raw.Name)

	result := b.resolveExpr(raw.Type.Inner, ctypes.NoTypeID, raw.Span)
	if result == ctypes.NoTypeID {
		result = b.types.Builtins().Void
	}
	params := make([]ctypes.Param, 0, len(raw.Type.Params))
	for i, pe := range raw.Type.Params {
		pt := b.resolveExpr(pe, ctypes.NoTypeID, raw.Span)
		if pt == ctypes.NoTypeID {
			pt = b.unknownOpaque(raw.Span, raw.Name, fmt.Sprintf("parameter %d", i))
		}
		name := source.NoStringID
		if i < len(raw.Children) && raw.Children[i].Kind == frontend.RawParam {
			name = b.internOpt(raw.Children[i].Name)
		}
		params = append(params, ctypes.Param{Name: name, Type: pt})
	}
	if raw.Type.Variadic {
		diag.ReportInfo(b.rep, diag.GraphVariadicFunction, raw.Span,
			"variadic function; only a loading stub is generated").
			WithDecl(raw.Name).Emit()
	}
	sig := b.types.InternFunc(ctypes.FuncInfo{Result: result, Params: params, Variadic: raw.Type.Variadic})
	b.decls = append(b.decls, Decl{Kind: DeclFunc, Name: nameID, Span: raw.Span, Type: sig})
}

func (b *Builder) addConst(raw *frontend.RawDecl) {
	if raw.Name == "" || raw.Value == nil {
		return
	}
	b.decls = append(b.decls, Decl{
		Kind:  DeclConst,
		Name:  b.strings.Intern(raw.Name),
		Span:  raw.Span,
		Value: raw.Value,
	})
}

func (b *Builder) internOpt(s string) source.StringID {
	if s == "" {
		return source.NoStringID
	}
	return b.strings.Intern(s)
}

// unknownOpaque registers a zero-knowledge opaque node and reports it.
// The severity follows AllowUnknownTypes.
func (b *Builder) unknownOpaque(sp source.Span, decl, what string) ctypes.TypeID {
	sev := diag.SevError
	if b.opts.AllowUnknownTypes {
		sev = diag.SevWarning
	}
	diag.NewReportBuilder(b.rep, sev, diag.GraphUnknownTypeName, sp,
		"cannot resolve "+what+"; substituting an opaque placeholder").
		WithDecl(decl).Emit()
	return b.types.RegisterOpaque(ctypes.OpaqueInfo{Reason: ctypes.OpaqueUnsupported})
}

func kindTag(k DeclKind) byte {
	switch k {
	case DeclStruct:
		return 's'
	case DeclUnion:
		return 'u'
	case DeclEnum:
		return 'e'
	case DeclTypedef:
		return 't'
	default:
		return '?'
	}
}

func aggKind(k frontend.RawKind) DeclKind {
	if k == frontend.RawUnion {
		return DeclUnion
	}
	return DeclStruct
}
