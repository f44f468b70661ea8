package frontend

import (
	"testing"

	"ffigen/internal/diag"
)

func node(kind CursorKind, name string, kids ...*Node) *Node {
	n := NewNode(kind, name)
	n.Kids = kids
	return n
}

func typedNode(kind CursorKind, name string, tt *TypeExpr) *Node {
	n := NewNode(kind, name)
	n.TypeOf = tt
	return n
}

func TestIngestStruct(t *testing.T) {
	bit := typedNode(CursorFieldDecl, "flags", Name("unsigned int"))
	bit.Bits = 3
	root := node(CursorTranslationUnit, "",
		node(CursorStructDecl, "mix_config",
			typedNode(CursorFieldDecl, "rate", Name("int32_t")),
			bit,
		),
	)

	bag := diag.NewBag(8)
	decls := Ingest(root, diag.BagReporter{Bag: bag})
	if bag.Len() != 0 {
		t.Fatalf("diagnostics: %v", bag.Items())
	}
	if len(decls) != 1 || decls[0].Kind != RawStruct || decls[0].Name != "mix_config" {
		t.Fatalf("decls = %+v", decls)
	}
	fields := decls[0].Children
	if len(fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(fields))
	}
	if fields[0].BitWidth != -1 {
		t.Errorf("plain field bit width = %d, want -1", fields[0].BitWidth)
	}
	if fields[1].BitWidth != 3 {
		t.Errorf("bitfield width = %d, want 3", fields[1].BitWidth)
	}
}

func TestIngestEnumConstants(t *testing.T) {
	off := NewNode(CursorEnumConstant, "MODE_OFF")
	off.Value = &ConstValue{Kind: ConstInt, Int: 0}
	on := NewNode(CursorEnumConstant, "MODE_ON")
	on.Value = &ConstValue{Kind: ConstInt, Int: 1}
	root := node(CursorTranslationUnit, "", node(CursorEnumDecl, "mode", off, on))

	decls := Ingest(root, nil)
	if decls[0].Kind != RawEnum || len(decls[0].Children) != 2 {
		t.Fatalf("decls = %+v", decls)
	}
	second := decls[0].Children[1]
	if second.Kind != RawEnumConstant || second.Value == nil || second.Value.Int != 1 {
		t.Errorf("constant = %+v", second)
	}
}

func TestIngestFunctionParams(t *testing.T) {
	sig := FuncOf(Name("float"), []*TypeExpr{PointerTo(Name("float")), Name("int")}, false)
	fn := typedNode(CursorFunctionDecl, "mix", sig)
	fn.Kids = []*Node{
		typedNode(CursorParamDecl, "samples", PointerTo(Name("float"))),
		typedNode(CursorParamDecl, "count", Name("int")),
	}
	root := node(CursorTranslationUnit, "", fn)

	decls := Ingest(root, nil)
	d := decls[0]
	if d.Kind != RawFunction || d.Type != sig {
		t.Fatalf("decl = %+v", d)
	}
	if len(d.Children) != 2 || d.Children[0].Name != "samples" {
		t.Errorf("params = %+v", d.Children)
	}
}

func TestIngestObjectMacro(t *testing.T) {
	lit := NewNode(CursorMacroDef, "MAX_CHANNELS")
	lit.Value = &ConstValue{Kind: ConstInt, Int: 8}
	fnLike := NewNode(CursorMacroDef, "MIN")
	root := node(CursorTranslationUnit, "", lit, fnLike)

	bag := diag.NewBag(8)
	decls := Ingest(root, diag.BagReporter{Bag: bag})

	if decls[0].Kind != RawConst || decls[0].Value.Int != 8 {
		t.Errorf("const macro = %+v", decls[0])
	}
	if decls[1].Kind != RawUnsupported {
		t.Errorf("non-literal macro = %+v", decls[1])
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.IngMacroNotConstant {
		t.Errorf("diagnostics = %v", bag.Items())
	}
}

func TestIngestVarDeclUnsupported(t *testing.T) {
	root := node(CursorTranslationUnit, "",
		typedNode(CursorVarDecl, "global_state", Name("int")))

	bag := diag.NewBag(8)
	decls := Ingest(root, diag.BagReporter{Bag: bag})
	if decls[0].Kind != RawUnsupported {
		t.Fatalf("decl = %+v", decls[0])
	}
	if !bag.HasWarnings() {
		t.Error("no warning recorded for extern object")
	}
}

func TestIngestTypedefWithInlineStruct(t *testing.T) {
	td := typedNode(CursorTypedefDecl, "point_t", Inline())
	td.Kids = []*Node{
		node(CursorStructDecl, "",
			typedNode(CursorFieldDecl, "x", Name("int")),
		),
	}
	root := node(CursorTranslationUnit, "", td)

	decls := Ingest(root, nil)
	d := decls[0]
	if d.Kind != RawTypedef || len(d.Children) != 1 || d.Children[0].Kind != RawStruct {
		t.Fatalf("decl = %+v", d)
	}
}

func TestIngestEnumExpressionValues(t *testing.T) {
	a := NewNode(CursorEnumConstant, "FLAG_A")
	a.Expr = "1 << 4"
	b := NewNode(CursorEnumConstant, "FLAG_B")
	c := NewNode(CursorEnumConstant, "FLAG_C")
	c.Expr = "FLAG_A * 2"
	root := node(CursorTranslationUnit, "", node(CursorEnumDecl, "flags", a, b, c))

	bag := diag.NewBag(8)
	decls := Ingest(root, diag.BagReporter{Bag: bag})
	if bag.Len() != 0 {
		t.Fatalf("diagnostics: %v", bag.Items())
	}
	kids := decls[0].Children
	if len(kids) != 3 {
		t.Fatalf("children = %+v", kids)
	}
	for i, want := range []int64{16, 17, 32} {
		if kids[i].Value == nil || kids[i].Value.Int != want {
			t.Errorf("enumerator %d = %+v, want %d", i, kids[i].Value, want)
		}
	}
}

func TestIngestEnumUnresolvableValueDegrades(t *testing.T) {
	a := NewNode(CursorEnumConstant, "MODE_X")
	a.Expr = "sizeof(int)"
	root := node(CursorTranslationUnit, "", node(CursorEnumDecl, "mode", a))

	bag := diag.NewBag(8)
	decls := Ingest(root, diag.BagReporter{Bag: bag})
	if decls[0].Kind != RawUnsupported {
		t.Fatalf("decl = %+v, want unsupported", decls[0])
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.IngUnsupportedCursor {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
}

func TestIngestAggregatePack(t *testing.T) {
	s := node(CursorStructDecl, "packet", typedNode(CursorFieldDecl, "tag", Name("char")))
	s.Pack = 2
	root := node(CursorTranslationUnit, "", s)

	bag := diag.NewBag(8)
	decls := Ingest(root, diag.BagReporter{Bag: bag})
	if decls[0].Pack != 2 {
		t.Errorf("pack = %d, want 2", decls[0].Pack)
	}
}
