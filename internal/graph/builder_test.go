package graph

import (
	"testing"

	"ffigen/internal/abi"
	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/frontend"
	"ffigen/internal/source"
)

func newTestBuilder(t *testing.T) (*Builder, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	b := NewBuilder(Options{Target: abi.X86_64LinuxGNU()}, source.NewInterner(), diag.BagReporter{Bag: bag})
	return b, bag
}

func field(name, spelling string) frontend.RawDecl {
	return frontend.RawDecl{
		Kind:     frontend.RawField,
		Name:     name,
		Type:     frontend.Name(spelling),
		BitWidth: -1,
	}
}

func TestBuildStruct(t *testing.T) {
	b, bag := newTestBuilder(t)
	b.AddAll([]frontend.RawDecl{{
		Kind:     frontend.RawStruct,
		Name:     "Point",
		BitWidth: -1,
		Children: []frontend.RawDecl{field("a", "int32_t"), field("b", "int32_t")},
	}})
	g := b.Finish()

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if len(g.Decls) != 1 {
		t.Fatalf("decls = %d, want 1", len(g.Decls))
	}
	d := g.Decls[0]
	if d.Kind != DeclStruct || g.Name(d) != "Point" {
		t.Fatalf("decl = %v %q", d.Kind, g.Name(d))
	}
	info, ok := g.Types.StructInfo(d.Type)
	if !ok || info.IsForward {
		t.Fatalf("struct not defined: ok=%v", ok)
	}
	if len(info.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(info.Fields))
	}
	for _, f := range info.Fields {
		if f.Type != g.Types.Builtins().Int32 {
			t.Errorf("field %d type = %d, want int32", f.Name, f.Type)
		}
	}
}

func TestSelfReferentialStruct(t *testing.T) {
	b, bag := newTestBuilder(t)
	b.AddAll([]frontend.RawDecl{{
		Kind:     frontend.RawStruct,
		Name:     "Node",
		BitWidth: -1,
		Children: []frontend.RawDecl{
			field("value", "int"),
			{
				Kind:     frontend.RawField,
				Name:     "next",
				Type:     frontend.PointerTo(frontend.Name("struct Node")),
				BitWidth: -1,
			},
		},
	}})
	g := b.Finish()

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if len(g.Decls) != 1 {
		t.Fatalf("decls = %d, want 1 (tag reference must reuse the node being defined)", len(g.Decls))
	}
	info, _ := g.Types.StructInfo(g.Decls[0].Type)
	next := g.Types.MustLookup(info.Fields[1].Type)
	if next.Kind != ctypes.KindPointer || next.Elem != g.Decls[0].Type {
		t.Fatalf("next = %+v, want pointer back to the struct itself", next)
	}
}

func TestForwardOnlyStaysIncomplete(t *testing.T) {
	b, _ := newTestBuilder(t)
	b.AddAll([]frontend.RawDecl{{Kind: frontend.RawStruct, Name: "Hidden", BitWidth: -1}})
	g := b.Finish()

	info, ok := g.Types.StructInfo(g.Decls[0].Type)
	if !ok || !info.IsForward {
		t.Fatalf("forward declaration should stay incomplete, got %+v", info)
	}
}

func TestDuplicateDefinitionWarns(t *testing.T) {
	b, bag := newTestBuilder(t)
	def := frontend.RawDecl{
		Kind:     frontend.RawStruct,
		Name:     "P",
		BitWidth: -1,
		Children: []frontend.RawDecl{field("x", "int")},
	}
	b.AddAll([]frontend.RawDecl{def, def})
	g := b.Finish()

	if len(g.Decls) != 1 {
		t.Fatalf("decls = %d, want 1", len(g.Decls))
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.GraphDuplicateName {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a duplicate-name diagnostic")
	}
}

func TestAnonymousAggregateDedup(t *testing.T) {
	inlineField := func() frontend.RawDecl {
		return frontend.RawDecl{
			Kind:     frontend.RawField,
			Name:     "pos",
			Type:     frontend.Inline(),
			BitWidth: -1,
			Children: []frontend.RawDecl{{
				Kind:     frontend.RawStruct,
				BitWidth: -1,
				Children: []frontend.RawDecl{field("x", "float"), field("y", "float")},
			}},
		}
	}
	b, _ := newTestBuilder(t)
	b.AddAll([]frontend.RawDecl{
		{Kind: frontend.RawStruct, Name: "A", BitWidth: -1, Children: []frontend.RawDecl{inlineField()}},
		{Kind: frontend.RawStruct, Name: "B", BitWidth: -1, Children: []frontend.RawDecl{inlineField()}},
	})
	g := b.Finish()

	var hoisted []Decl
	for _, d := range g.Decls {
		if d.Anonymous() {
			hoisted = append(hoisted, d)
		}
	}
	if len(hoisted) != 1 {
		t.Fatalf("hoisted anonymous decls = %d, want 1 (structural dedup)", len(hoisted))
	}
	ia, _ := g.Types.StructInfo(mustDecl(t, g, "A").Type)
	ib, _ := g.Types.StructInfo(mustDecl(t, g, "B").Type)
	if ia.Fields[0].Type != ib.Fields[0].Type {
		t.Fatal("identical inline aggregates should share one node")
	}
	if ia.Fields[0].Type != hoisted[0].Type {
		t.Fatal("field type should reference the hoisted node")
	}
}

func TestTypedefChain(t *testing.T) {
	b, bag := newTestBuilder(t)
	b.AddAll([]frontend.RawDecl{
		{Kind: frontend.RawTypedef, Name: "u32", Type: frontend.Name("unsigned int"), BitWidth: -1},
		{Kind: frontend.RawTypedef, Name: "id_t", Type: frontend.Name("u32"), BitWidth: -1},
	})
	g := b.Finish()

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	idt := mustDecl(t, g, "id_t")
	canon := g.Types.ResolveTypedefs(idt.Type)
	if canon != g.Types.Builtins().Uint32 {
		t.Fatalf("canon = %d, want uint32", canon)
	}
}

func TestUnknownTypeName(t *testing.T) {
	tests := []struct {
		name    string
		allow   bool
		wantSev diag.Severity
	}{
		{name: "strict", allow: false, wantSev: diag.SevError},
		{name: "allowed", allow: true, wantSev: diag.SevWarning},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bag := diag.NewBag(16)
			b := NewBuilder(Options{Target: abi.X86_64LinuxGNU(), AllowUnknownTypes: tc.allow},
				source.NewInterner(), diag.BagReporter{Bag: bag})
			b.AddAll([]frontend.RawDecl{{
				Kind:     frontend.RawStruct,
				Name:     "S",
				BitWidth: -1,
				Children: []frontend.RawDecl{field("h", "SomeVendorHandle")},
			}})
			g := b.Finish()

			info, _ := g.Types.StructInfo(mustDecl(t, g, "S").Type)
			ft := g.Types.MustLookup(info.Fields[0].Type)
			if ft.Kind != ctypes.KindOpaque {
				t.Fatalf("field kind = %v, want opaque", ft.Kind)
			}
			items := bag.Items()
			if len(items) != 1 || items[0].Code != diag.GraphUnknownTypeName || items[0].Severity != tc.wantSev {
				t.Fatalf("diagnostics = %+v", items)
			}
		})
	}
}

func TestEnumVariants(t *testing.T) {
	b, _ := newTestBuilder(t)
	iv := func(n string, v int64) frontend.RawDecl {
		return frontend.RawDecl{
			Kind:     frontend.RawEnumConstant,
			Name:     n,
			BitWidth: -1,
			Value:    &frontend.ConstValue{Kind: frontend.ConstInt, Int: v},
		}
	}
	b.AddAll([]frontend.RawDecl{{
		Kind:     frontend.RawEnum,
		Name:     "Mode",
		BitWidth: -1,
		Children: []frontend.RawDecl{iv("ModeOff", 0), iv("ModeOn", 1), iv("ModeAuto", 300)},
	}})
	g := b.Finish()

	info, ok := g.Types.EnumInfo(mustDecl(t, g, "Mode").Type)
	if !ok || len(info.Variants) != 3 {
		t.Fatalf("enum = %+v", info)
	}
	if info.Variants[2].Value != 300 {
		t.Fatalf("variant value = %d, want 300", info.Variants[2].Value)
	}
	if info.BaseType != ctypes.NoTypeID {
		t.Fatal("base type must stay unset until layout annotation")
	}
}

func TestFunctionDecl(t *testing.T) {
	b, _ := newTestBuilder(t)
	b.AddAll([]frontend.RawDecl{{
		Kind: frontend.RawFunction,
		Name: "mix",
		Type: frontend.FuncOf(frontend.Name("double"),
			[]*frontend.TypeExpr{frontend.Name("double"), frontend.PointerTo(frontend.Name("const char"))},
			false),
		BitWidth: -1,
		Children: []frontend.RawDecl{
			{Kind: frontend.RawParam, Name: "ratio", BitWidth: -1},
			{Kind: frontend.RawParam, Name: "label", BitWidth: -1},
		},
	}})
	g := b.Finish()

	fn, ok := g.Types.FuncInfo(mustDecl(t, g, "mix").Type)
	if !ok {
		t.Fatal("function signature missing")
	}
	if fn.Result != g.Types.Builtins().Float64 || len(fn.Params) != 2 {
		t.Fatalf("signature = %+v", fn)
	}
	if g.Strings.MustLookup(fn.Params[0].Name) != "ratio" {
		t.Fatal("parameter names should survive")
	}
}

func TestBuiltinSpellings(t *testing.T) {
	b, _ := newTestBuilder(t)
	bt := b.Types().Builtins()
	tests := []struct {
		spelling string
		want     ctypes.TypeID
	}{
		{"char", bt.Int8},
		{"unsigned char", bt.Uint8},
		{"short", bt.Int16},
		{"unsigned short int", bt.Uint16},
		{"int", bt.Int32},
		{"unsigned", bt.Uint32},
		{"long", bt.Int64},
		{"unsigned long long", bt.Uint64},
		{"long unsigned int", bt.Uint64},
		{"float", bt.Float32},
		{"double", bt.Float64},
		{"size_t", bt.Uint64},
		{"ptrdiff_t", bt.Int64},
		{"const uint32_t", bt.Uint32},
		{"_Bool", bt.Bool},
		{"void", bt.Void},
	}
	for _, tc := range tests {
		got := b.baseType(tc.spelling, source.Span{})
		if got != tc.want {
			t.Errorf("baseType(%q) = %d, want %d", tc.spelling, got, tc.want)
		}
	}
}

func mustDecl(t *testing.T, g *Graph, name string) Decl {
	t.Helper()
	for _, d := range g.Decls {
		if g.Name(d) == name {
			return d
		}
	}
	t.Fatalf("declaration %q not found", name)
	return Decl{}
}

func TestUnionPackRecorded(t *testing.T) {
	b, bag := newTestBuilder(t)
	b.AddAll([]frontend.RawDecl{{
		Kind:     frontend.RawUnion,
		Name:     "reg",
		BitWidth: -1,
		Pack:     1,
		Children: []frontend.RawDecl{field("wide", "double"), field("tag", "char")},
	}})
	g := b.Finish()

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	info, ok := g.Types.UnionInfo(g.Decls[0].Type)
	if !ok {
		t.Fatal("union not registered")
	}
	if info.Pack != 1 {
		t.Errorf("pack = %d, want 1", info.Pack)
	}
}
