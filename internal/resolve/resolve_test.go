package resolve

import (
	"testing"

	"ffigen/internal/abi"
	"ffigen/internal/diag"
	"ffigen/internal/frontend"
	"ffigen/internal/graph"
	"ffigen/internal/source"
)

func buildGraph(t *testing.T, raws []frontend.RawDecl) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder(graph.Options{Target: abi.X86_64LinuxGNU()}, source.NewInterner(), nil)
	b.AddAll(raws)
	return b.Finish()
}

func rawStruct(name string, fields ...frontend.RawDecl) frontend.RawDecl {
	return frontend.RawDecl{Kind: frontend.RawStruct, Name: name, BitWidth: -1, Children: fields}
}

func rawField(name, spelling string) frontend.RawDecl {
	return frontend.RawDecl{Kind: frontend.RawField, Name: name, Type: frontend.Name(spelling), BitWidth: -1}
}

func TestPascalConversion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"color_space", "ColorSpace"},
		{"sqlite3_open_v2", "Sqlite3OpenV2"},
		{"already_URL_cased", "AlreadyURLCased"},
		{"x", "X"},
		{"__reserved", "Reserved"},
	}
	for _, tc := range tests {
		if got := pascal(tc.in); got != tc.want {
			t.Errorf("pascal(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveTypesAndFields(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{
		rawStruct("audio_config", rawField("sample_rate", "int"), rawField("channels", "int")),
	})
	names := Resolve(g, Options{}, nil)

	id := g.Decls[0].Type
	if names.Types[id] != "AudioConfig" {
		t.Fatalf("type name = %q", names.Types[id])
	}
	fields := names.Fields[id]
	if len(fields) != 2 || fields[0] != "SampleRate" || fields[1] != "Channels" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestPreserveConvention(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{rawStruct("audio_config", rawField("rate", "int"))})
	names := Resolve(g, Options{Convention: ConventionPreserve}, nil)

	id := g.Decls[0].Type
	if names.Types[id] != "audio_config" {
		t.Fatalf("type name = %q, want the C spelling kept", names.Types[id])
	}
	// Fields are exported even under preserve.
	if names.Fields[id][0] != "Rate" {
		t.Fatalf("field = %q", names.Fields[id][0])
	}
}

func TestTrimPrefixes(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{rawStruct("SDL_Window", rawField("w", "int"))})
	names := Resolve(g, Options{TrimPrefixes: []string{"SDL_"}}, nil)
	if got := names.Types[g.Decls[0].Type]; got != "Window" {
		t.Fatalf("type name = %q, want Window", got)
	}
}

func TestDuplicateSuffixDeterministic(t *testing.T) {
	raws := []frontend.RawDecl{
		rawStruct("value", rawField("x", "int")),
		{Kind: frontend.RawTypedef, Name: "Value", Type: frontend.Name("int"), BitWidth: -1},
		{Kind: frontend.RawFunction, Name: "VALUE",
			Type: frontend.FuncOf(frontend.Name("void"), nil, false), BitWidth: -1},
	}
	want := map[string]bool{"Value": true, "Value_2": true, "VALUE": true}

	for run := 0; run < 3; run++ {
		bag := diag.NewBag(16)
		g := buildGraph(t, raws)
		names := Resolve(g, Options{}, diag.BagReporter{Bag: bag})

		got := map[string]bool{}
		for _, n := range names.Types {
			got[n] = true
		}
		for _, n := range names.Funcs {
			got[n] = true
		}
		if len(got) != len(want) {
			t.Fatalf("run %d: names = %v, want %v", run, got, want)
		}
		for n := range want {
			if !got[n] {
				t.Fatalf("run %d: missing %q in %v", run, n, got)
			}
		}
		renamed := false
		for _, d := range bag.Items() {
			if d.Code == diag.NameDuplicateRenamed {
				renamed = true
			}
		}
		if !renamed {
			t.Fatalf("run %d: expected a rename diagnostic", run)
		}
	}
}

func TestReservedWordSuffix(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{
		{Kind: frontend.RawTypedef, Name: "type", Type: frontend.Name("int"), BitWidth: -1},
	})
	bag := diag.NewBag(16)
	names := Resolve(g, Options{Convention: ConventionPreserve}, diag.BagReporter{Bag: bag})

	if got := names.Types[g.Decls[0].Type]; got != "type_" {
		t.Fatalf("name = %q, want type_", got)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.NameKeywordCollision {
		t.Fatalf("diagnostics = %+v", bag.Items())
	}
}

func TestAnonymousHoistedName(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{
		rawStruct("event", frontend.RawDecl{
			Kind: frontend.RawField, Name: "payload", Type: frontend.Inline(), BitWidth: -1,
			Children: []frontend.RawDecl{{
				Kind: frontend.RawStruct, BitWidth: -1,
				Children: []frontend.RawDecl{rawField("code", "int")},
			}},
		}),
	})
	names := Resolve(g, Options{}, nil)

	var anonName string
	for _, d := range g.Decls {
		if d.Anonymous() {
			anonName = names.Types[d.Type]
		}
	}
	if anonName != "Event_Anon0" {
		t.Fatalf("anonymous name = %q, want Event_Anon0", anonName)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"operator+", "operator_"},
		{"3d_point", "X3d_point"},
		{"", "X"},
		{"fine_name", "fine_name"},
	}
	for _, tc := range tests {
		if got := sanitize(tc.in); got != tc.want {
			t.Errorf("sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoaderNamesPreclaimed(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{
		{Kind: frontend.RawFunction, Name: "load", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("void"), nil, false)},
	})
	bag := diag.NewBag(16)
	names := Resolve(g, Options{}, diag.BagReporter{Bag: bag})

	if got := names.Funcs[g.Decls[0].Name]; got != "Load_2" {
		t.Fatalf("name = %q, want Load_2", got)
	}
	renamed := false
	for _, d := range bag.Items() {
		if d.Code == diag.NameDuplicateRenamed {
			renamed = true
		}
	}
	if !renamed {
		t.Error("expected a rename diagnostic")
	}
}

func TestLoaderHelperNamesPreclaimed(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{
		{Kind: frontend.RawFunction, Name: "lib", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("void"), nil, false)},
		{Kind: frontend.RawFunction, Name: "loadFuncs", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("void"), nil, false)},
	})
	names := Resolve(g, Options{Convention: ConventionPreserve}, nil)

	if got := names.Funcs[g.Decls[0].Name]; got != "lib_2" {
		t.Errorf("name = %q, want lib_2", got)
	}
	if got := names.Funcs[g.Decls[1].Name]; got != "loadFuncs_2" {
		t.Errorf("name = %q, want loadFuncs_2", got)
	}
}

func TestFuncVarClaimedInGlobalScope(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{
		{Kind: frontend.RawFunction, Name: "mix", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("void"), nil, false)},
		{Kind: frontend.RawFunction, Name: "mixFunc", BitWidth: -1,
			Type: frontend.FuncOf(frontend.Name("void"), nil, false)},
	})
	names := Resolve(g, Options{Convention: ConventionPreserve}, nil)

	if got := names.FuncVars[g.Decls[0].Name]; got != "mixFunc" {
		t.Fatalf("binding var = %q, want mixFunc", got)
	}
	if got := names.Funcs[g.Decls[1].Name]; got != "mixFunc_2" {
		t.Errorf("name = %q, want mixFunc_2", got)
	}
}

func TestBitfieldStorageNamesReserved(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{
		rawStruct("flags",
			frontend.RawDecl{Kind: frontend.RawField, Name: "bits0",
				Type: frontend.Name("unsigned int"), BitWidth: 3}),
	})
	names := Resolve(g, Options{}, nil)

	fields := names.Fields[g.Decls[0].Type]
	if len(fields) != 1 || fields[0] != "Bits0_2" {
		t.Errorf("fields = %v, want [Bits0_2]", fields)
	}
}

func TestFFITypeNamesReserved(t *testing.T) {
	g := buildGraph(t, []frontend.RawDecl{
		rawStruct("vec", rawField("x", "float")),
		{Kind: frontend.RawTypedef, Name: "FFITypeVec", Type: frontend.Name("int"), BitWidth: -1},
	})
	names := Resolve(g, Options{}, nil)

	if got := names.Types[g.Decls[1].Type]; got != "FFITypeVec_2" {
		t.Errorf("name = %q, want FFITypeVec_2", got)
	}
}
