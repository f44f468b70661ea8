package emit

import (
	"strings"
	"testing"

	"ffigen/internal/abi"
	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/frontend"
	"ffigen/internal/graph"
	"ffigen/internal/layout"
	"ffigen/internal/resolve"
	"ffigen/internal/source"
)

// pipeline runs graph building, layout annotation, and name resolution
// over hand-built raw declarations, then renders them.
func pipeline(t *testing.T, opts Options, raws []frontend.RawDecl) (map[string]string, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	rep := diag.BagReporter{Bag: bag}
	target := opts.Target
	if target.PtrSize == 0 {
		target = abi.X86_64LinuxGNU()
		opts.Target = target
	}

	b := graph.NewBuilder(graph.Options{Target: target}, source.NewInterner(), rep)
	b.AddAll(raws)
	g := b.Finish()

	eng := layout.New(target, g.Types)
	eng.Names = func(id source.StringID) string { return g.Strings.MustLookup(id) }
	var typeIDs []ctypes.TypeID
	for _, d := range g.Decls {
		if d.Type != ctypes.NoTypeID {
			typeIDs = append(typeIDs, d.Type)
		}
	}
	eng.Annotate(typeIDs, rep)

	names := resolve.Resolve(g, resolve.Options{}, rep)
	files, err := Generate(g, names, eng, opts, rep)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return files, bag
}

// containsCode compares with all whitespace runs collapsed, since gofmt
// realigns fields and operator spacing.
func containsCode(src, frag string) bool {
	norm := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	return strings.Contains(norm(src), norm(frag))
}

func wantCode(t *testing.T, src string, frags ...string) {
	t.Helper()
	for _, frag := range frags {
		if !containsCode(src, frag) {
			t.Errorf("missing %q in:\n%s", frag, src)
		}
	}
}

func rawField(name, spelling string) frontend.RawDecl {
	return frontend.RawDecl{Kind: frontend.RawField, Name: name, Type: frontend.Name(spelling), BitWidth: -1}
}

func rawStruct(name string, fields ...frontend.RawDecl) frontend.RawDecl {
	return frontend.RawDecl{Kind: frontend.RawStruct, Name: name, BitWidth: -1, Children: fields}
}

func TestEmitStructWithPadding(t *testing.T) {
	files, bag := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		rawStruct("mixed", rawField("tag", "char"), rawField("value", "int")),
	})
	if bag.HasErrors() {
		t.Fatalf("errors: %v", bag.Items())
	}
	wantCode(t, files["types.go"],
		"type Mixed struct {",
		"Tag int8",
		"_ [3]byte",
		"Value int32",
	)
}

func TestEmitBitfields(t *testing.T) {
	bf := func(name string, w int) frontend.RawDecl {
		return frontend.RawDecl{Kind: frontend.RawField, Name: name, Type: frontend.Name("unsigned int"), BitWidth: w}
	}
	files, _ := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		rawStruct("flags", bf("a", 3), bf("b", 5), bf("c", 24)),
	})
	src := files["types.go"]
	wantCode(t, src, "Bits0 uint32")
	// Offsets 0, 3, and 8 inside one 32-bit unit.
	if !containsCode(src, "s.Bits0 >> 0 & 0x7") && !containsCode(src, "s.Bits0>>0&0x7") {
		t.Errorf("missing extraction of field a in:\n%s", src)
	}
	if !containsCode(src, "s.Bits0 >> 3 & 0x1f") && !containsCode(src, "s.Bits0>>3&0x1f") {
		t.Errorf("missing extraction of field b in:\n%s", src)
	}
	if !containsCode(src, "s.Bits0 >> 8 & 0xffffff") && !containsCode(src, "s.Bits0>>8&0xffffff") {
		t.Errorf("missing extraction of field c in:\n%s", src)
	}
	if strings.Contains(src, "Bits1") {
		t.Error("all three bitfields must share one storage unit")
	}
}

func TestEmitSignedBitfieldSignExtends(t *testing.T) {
	files, _ := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		rawStruct("s", frontend.RawDecl{Kind: frontend.RawField, Name: "v", Type: frontend.Name("int"), BitWidth: 3}),
	})
	src := files["types.go"]
	if !containsCode(src, "int32(s.Bits0 << 29)") && !containsCode(src, "int32(s.Bits0<<29)") {
		t.Errorf("expected sign extension through shifts in:\n%s", src)
	}
}

func TestEmitUnion(t *testing.T) {
	files, _ := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		{Kind: frontend.RawUnion, Name: "value", BitWidth: -1, Children: []frontend.RawDecl{
			rawField("i", "int"),
			rawField("d", "double"),
		}},
	})
	wantCode(t, files["types.go"],
		"_ [0]uint64",
		"raw [8]byte",
		"func (u *Value) I() *int32 {",
		"func (u *Value) D() *float64 {",
		"unsafe.Pointer(&u.raw[0])",
	)
}

func TestEmitEnum(t *testing.T) {
	iv := func(n string, v int64) frontend.RawDecl {
		return frontend.RawDecl{Kind: frontend.RawEnumConstant, Name: n, BitWidth: -1,
			Value: &frontend.ConstValue{Kind: frontend.ConstInt, Int: v}}
	}
	files, _ := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		{Kind: frontend.RawEnum, Name: "mode", BitWidth: -1,
			Children: []frontend.RawDecl{iv("MODE_OFF", 0), iv("MODE_ON", 1), iv("MODE_AUTO", 300)}},
	})
	wantCode(t, files["types.go"],
		"type Mode int32",
		"MODEOFF Mode = 0",
		"MODEAUTO Mode = 300",
	)
}

func TestEmitOpaqueForwardDecl(t *testing.T) {
	files, bag := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		{Kind: frontend.RawStruct, Name: "hidden", BitWidth: -1},
	})
	wantCode(t, files["types.go"], "type Hidden [0]byte")
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.EmitUnknownSize {
			found = true
		}
	}
	if !found {
		t.Error("expected an unknown-size diagnostic")
	}
}

func TestEmitFlexibleArrayDemotes(t *testing.T) {
	files, _ := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		rawStruct("packet",
			rawField("len", "int"),
			frontend.RawDecl{Kind: frontend.RawField, Name: "data",
				Type: frontend.ArrayOf(frontend.Name("char"), frontend.ArrayNoLength), BitWidth: -1}),
		rawStruct("ok_sibling", rawField("x", "int")),
	})
	src := files["types.go"]
	wantCode(t, src, "type Packet [0]byte")
	wantCode(t, src, "type OkSibling struct {")
}

func TestEmitFunctions(t *testing.T) {
	files, _ := pipeline(t, Options{Package: "pkg", Library: "demo"}, []frontend.RawDecl{
		{Kind: frontend.RawFunction, Name: "demo_mix", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("double"),
				[]*frontend.TypeExpr{frontend.Name("double"), frontend.Name("int")}, false),
			Children: []frontend.RawDecl{
				{Kind: frontend.RawParam, Name: "ratio", BitWidth: -1},
				{Kind: frontend.RawParam, Name: "steps", BitWidth: -1},
			}},
	})
	wantCode(t, files["functions.go"],
		"demoMixFunc ffi.Fun",
		`lib.Prep("demo_mix", &ffi.TypeDouble, &ffi.TypeDouble, &ffi.TypeSint32)`,
		"func DemoMix(ratio float64, steps int32) float64 {",
		"demoMixFunc.Call(unsafe.Pointer(&result), unsafe.Pointer(&ratio), unsafe.Pointer(&steps))",
	)
	loader := files["loader.go"]
	if !strings.Contains(loader, `"libdemo.so"`) || !strings.Contains(loader, "func Load(path string) error {") {
		t.Errorf("loader malformed:\n%s", loader)
	}
}

func TestEmitVariadicGetsStubOnly(t *testing.T) {
	files, bag := pipeline(t, Options{Package: "pkg", Library: "demo"}, []frontend.RawDecl{
		{Kind: frontend.RawFunction, Name: "logf", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("void"),
				[]*frontend.TypeExpr{frontend.PointerTo(frontend.Name("const char"))}, true)},
	})
	fn := files["functions.go"]
	if strings.Contains(fn, "func Logf(") {
		t.Errorf("variadic function must not get a typed wrapper:\n%s", fn)
	}
	wantCode(t, fn, `lib.Prep("logf"`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.EmitVariadicStub {
			found = true
		}
	}
	if !found {
		t.Error("expected a variadic-stub diagnostic")
	}
}

func TestEmitDeterministic(t *testing.T) {
	raws := []frontend.RawDecl{
		rawStruct("point", rawField("x", "int"), rawField("y", "int")),
		{Kind: frontend.RawTypedef, Name: "point_t", Type: frontend.Name("struct point"), BitWidth: -1},
		{Kind: frontend.RawConst, Name: "MAX_POINTS", BitWidth: -1,
			Value: &frontend.ConstValue{Kind: frontend.ConstInt, Int: 64}},
	}
	first, _ := pipeline(t, Options{Package: "pkg"}, raws)
	for i := 0; i < 3; i++ {
		again, _ := pipeline(t, Options{Package: "pkg"}, raws)
		if len(again) != len(first) {
			t.Fatalf("file count changed between runs")
		}
		for name, content := range first {
			if again[name] != content {
				t.Fatalf("run %d: %s differs between runs", i, name)
			}
		}
	}
}

func TestEmitFFITypeForScalarStruct(t *testing.T) {
	files, _ := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		rawStruct("vec2", rawField("x", "float"), rawField("y", "float")),
	})
	wantCode(t, files["types.go"], "var FFITypeVec2 = ffi.NewType(")
}

func TestEmitPackedStructRawStorage(t *testing.T) {
	files, bag := pipeline(t, Options{Package: "pkg"}, []frontend.RawDecl{
		{Kind: frontend.RawStruct, Name: "packed", BitWidth: -1, Pack: 1,
			Children: []frontend.RawDecl{rawField("tag", "char"), rawField("value", "int")}},
	})
	src := files["types.go"]
	wantCode(t, src,
		"type Packed struct {",
		"raw [5]byte",
		"func (s *Packed) Value() *int32 {",
		"unsafe.Pointer(&s.raw[1])",
	)
	if strings.Contains(src, "Value int32") {
		t.Errorf("packed offsets must not surface as plain Go fields:\n%s", src)
	}
	if strings.Contains(src, "FFITypePacked") {
		t.Errorf("packed struct must not get an ffi descriptor:\n%s", src)
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.LayoutSizeDisagrees {
			found = true
		}
	}
	if !found {
		t.Error("expected a raw-storage diagnostic")
	}
}

func TestEmitPackedStructSkipsByValueBinding(t *testing.T) {
	files, _ := pipeline(t, Options{Package: "pkg", Library: "demo"}, []frontend.RawDecl{
		{Kind: frontend.RawStruct, Name: "packed", BitWidth: -1, Pack: 1,
			Children: []frontend.RawDecl{rawField("tag", "char"), rawField("value", "int")}},
		{Kind: frontend.RawFunction, Name: "send", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("void"),
				[]*frontend.TypeExpr{frontend.Name("struct packed")}, false)},
	})
	fn := files["functions.go"]
	if strings.Contains(fn, `lib.Prep("send"`) {
		t.Errorf("by-value packed parameter must leave the symbol unbound:\n%s", fn)
	}
}

func TestEmitLoaderSymbolCollision(t *testing.T) {
	files, _ := pipeline(t, Options{Package: "pkg", Library: "demo"}, []frontend.RawDecl{
		{Kind: frontend.RawFunction, Name: "load", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("void"), nil, false)},
	})
	fn := files["functions.go"]
	wantCode(t, fn, "func Load_2() {", "load_2Func.Call(nil)")
	if strings.Contains(fn, "func Load(") {
		t.Errorf("wrapper must not collide with the loader entry point:\n%s", fn)
	}
	if !strings.Contains(files["loader.go"], "func Load(path string) error {") {
		t.Errorf("loader entry point missing:\n%s", files["loader.go"])
	}
}

func TestEmitOpaqueKeepsAlignment(t *testing.T) {
	bag := diag.NewBag(16)
	rep := diag.BagReporter{Bag: bag}
	strs := source.NewInterner()
	types := ctypes.NewInterner()
	id := types.RegisterOpaque(ctypes.OpaqueInfo{
		Reason: ctypes.OpaqueLayoutUnresolvable, Size: 24, Align: 8, HasSize: true,
	})
	g := &graph.Graph{Types: types, Strings: strs, Decls: []graph.Decl{
		{Kind: graph.DeclStruct, Name: strs.Intern("ctx"), Type: id},
	}}
	target := abi.X86_64LinuxGNU()
	eng := layout.New(target, types)
	names := resolve.Resolve(g, resolve.Options{}, rep)

	files, err := Generate(g, names, eng, Options{Package: "pkg", Target: target}, rep)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	wantCode(t, files["types.go"],
		"type Ctx struct {",
		"_ [0]uint64",
		"raw [24]byte",
	)
}
