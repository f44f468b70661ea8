package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("demo.h", []byte("struct s;\nint x;\ntypedef int t;\n"))

	cases := []struct {
		off        uint32
		line, col  uint32
	}{
		{0, 1, 1},
		{7, 1, 8},
		{10, 2, 1},
		{14, 2, 5},
		{17, 3, 1},
	}
	for _, tc := range cases {
		start, _ := fs.Resolve(Span{File: id, Start: tc.off, End: tc.off})
		if start.Line != tc.line || start.Col != tc.col {
			t.Errorf("offset %d -> %d:%d, want %d:%d", tc.off, start.Line, start.Col, tc.line, tc.col)
		}
	}
	if got := fs.Position(Span{File: id, Start: 10, End: 13}); got != "demo.h:2:1" {
		t.Errorf("Position = %q", got)
	}
}

func TestLoadNormalizesLineEndings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crlf.h")
	raw := "\xEF\xBB\xBFint a;\r\nint b;\r\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "int a;\nint b;\n" {
		t.Errorf("content = %q", f.Content)
	}
}

func TestHashChangesWithContent(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("a.h", []byte("int a;"))
	b := fs.AddVirtual("b.h", []byte("int b;"))
	same := fs.AddVirtual("c.h", []byte("int a;"))

	if fs.Get(a).Hash == fs.Get(b).Hash {
		t.Error("different contents share a hash")
	}
	if fs.Get(a).Hash != fs.Get(same).Hash {
		t.Error("identical contents hash differently")
	}
}

func TestReaddKeepsLatestInIndex(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("demo.h", []byte("int a;"))
	second := fs.AddVirtual("demo.h", []byte("int b;"))
	if first == second {
		t.Fatal("re-added path reused the FileID")
	}
	f, ok := fs.GetByPath("demo.h")
	if !ok || f.ID != second {
		t.Errorf("index points at %v, want %v", f.ID, second)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 9}
	b := Span{File: 1, Start: 2, End: 6}
	got := a.Cover(b)
	if got.Start != 2 || got.End != 9 {
		t.Errorf("Cover = %+v", got)
	}
}

func TestInternerRoundTrip(t *testing.T) {
	in := NewInterner()
	a := in.Intern("mix_config")
	b := in.Intern("mix_config")
	c := in.Intern("other")
	if a != b || a == c {
		t.Fatalf("intern ids: %d %d %d", a, b, c)
	}
	if got := in.MustLookup(a); got != "mix_config" {
		t.Errorf("MustLookup = %q", got)
	}
	if got, ok := in.Lookup(NoStringID); !ok || got != "" {
		t.Errorf("NoStringID lookup = %q, %v", got, ok)
	}
}
