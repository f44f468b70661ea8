package diag

import (
	"testing"

	"ffigen/internal/source"
)

func span(file source.FileID, start, end uint32) source.Span {
	return source.Span{File: file, Start: start, End: end}
}

func TestBagCap(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(NewWarning(GraphDuplicateName, span(0, 0, 1), "one")) {
		t.Fatal("first add rejected")
	}
	if !bag.Add(NewWarning(GraphDuplicateName, span(0, 1, 2), "two")) {
		t.Fatal("second add rejected")
	}
	if bag.Add(NewWarning(GraphDuplicateName, span(0, 2, 3), "three")) {
		t.Error("add past cap accepted")
	}
	if bag.Len() != 2 {
		t.Errorf("len = %d, want 2", bag.Len())
	}
}

func TestSeverityQueries(t *testing.T) {
	bag := NewBag(8)
	bag.Add(New(SevInfo, NameDuplicateRenamed, span(0, 0, 1), "renamed"))
	if bag.HasErrors() || bag.HasWarnings() {
		t.Error("info-only bag reports warnings or errors")
	}
	bag.Add(NewWarning(LayoutZeroSized, span(0, 1, 2), "zero sized"))
	if bag.HasErrors() {
		t.Error("warning counted as error")
	}
	if !bag.HasWarnings() {
		t.Error("warning not detected")
	}
	bag.Add(NewError(IngFrontendParseError, span(0, 2, 3), "broken"))
	if !bag.HasErrors() {
		t.Error("error not detected")
	}
}

func TestSortIsDeterministic(t *testing.T) {
	build := func() *Bag {
		bag := NewBag(8)
		bag.Add(NewWarning(LayoutUnresolvable, span(1, 5, 9), "b"))
		bag.Add(NewError(IngFrontendParseError, span(0, 5, 9), "c"))
		bag.Add(NewWarning(GraphIncompleteType, span(0, 5, 9), "d"))
		bag.Add(New(SevInfo, GraphVariadicFunction, span(0, 0, 3), "a"))
		bag.Sort()
		return bag
	}

	first := build().Items()
	second := build().Items()
	if len(first) != len(second) {
		t.Fatal("lengths differ")
	}
	for i := range first {
		if first[i].Code != second[i].Code {
			t.Fatalf("order differs at %d: %v vs %v", i, first[i].Code, second[i].Code)
		}
	}
	// File, then start, then severity descending.
	if first[0].Message != "a" || first[1].Message != "c" || first[3].Message != "b" {
		t.Errorf("unexpected order: %v", first)
	}
}

func TestDedup(t *testing.T) {
	bag := NewBag(8)
	bag.Add(NewWarning(GraphDuplicateName, span(0, 4, 8), "dup"))
	bag.Add(NewWarning(GraphDuplicateName, span(0, 4, 8), "dup again"))
	bag.Add(NewWarning(GraphDuplicateName, span(0, 9, 12), "elsewhere"))
	bag.Dedup()
	if bag.Len() != 2 {
		t.Errorf("len = %d, want 2", bag.Len())
	}
}

func TestMergeGrowsCap(t *testing.T) {
	a := NewBag(1)
	a.Add(NewWarning(GraphDuplicateName, span(0, 0, 1), "one"))
	b := NewBag(2)
	b.Add(NewWarning(LayoutZeroSized, span(0, 1, 2), "two"))
	b.Add(NewError(IngFrontendParseError, span(0, 2, 3), "three"))

	a.Merge(b)
	if a.Len() != 3 {
		t.Errorf("merged len = %d, want 3", a.Len())
	}
}

func TestCodeString(t *testing.T) {
	if got := IngFrontendParseError.String(); got != "FG1005" {
		t.Errorf("String = %q", got)
	}
}

func TestWithNoteAndDecl(t *testing.T) {
	d := NewWarning(GraphIncompleteType, span(0, 0, 4), "forward only").
		WithDecl("hidden").
		WithNote(span(0, 0, 4), "declared here")
	if d.Decl != "hidden" || len(d.Notes) != 1 {
		t.Errorf("diagnostic = %+v", d)
	}
}
