// Package resolve assigns every declaration a valid, unique Go
// identifier. Resolution is deterministic: names are handed out in
// declaration order, and collisions are repaired with numbered suffixes
// so the same input always produces the same output. Collisions are
// facts to report, never errors.
package resolve

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/graph"
	"ffigen/internal/source"
)

// Convention selects how C names map to Go identifiers.
type Convention uint8

const (
	// ConventionPascal converts snake_case names to PascalCase, exporting
	// everything.
	ConventionPascal Convention = iota
	// ConventionPreserve keeps the C spelling, only repairing characters
	// and reserved words.
	ConventionPreserve
)

// ParseConvention maps a config string to a Convention.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pascal":
		return ConventionPascal, nil
	case "preserve":
		return ConventionPreserve, nil
	default:
		return 0, fmt.Errorf("resolve: unknown naming convention %q", s)
	}
}

// Options configure name resolution.
type Options struct {
	Convention Convention

	// TrimPrefixes are C namespace prefixes stripped before conversion
	// ("sqlite3_", "SDL_"). The symbol name itself is never touched,
	// only the Go-side identifier.
	TrimPrefixes []string
}

// Names is the resolved identifier table. Top-level names (types,
// functions, constants, enum variants) share one scope; field names are
// scoped per aggregate. FuncVars holds the package-level binding
// variable of each function, claimed in the same scope so generated
// infrastructure never collides with a resolved declaration.
type Names struct {
	Types    map[ctypes.TypeID]string
	Funcs    map[source.StringID]string
	FuncVars map[source.StringID]string
	Consts   map[source.StringID]string
	Fields   map[ctypes.TypeID][]string
	Variants map[ctypes.TypeID][]string
}

// Resolve walks the graph in declaration order and fills the table.
func Resolve(g *graph.Graph, opts Options, rep diag.Reporter) *Names {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	r := &resolver{
		g:    g,
		opts: opts,
		rep:  rep,
		used: make(map[string]bool, len(g.Decls)*2+len(emitterOwned)),
		out: &Names{
			Types:    make(map[ctypes.TypeID]string),
			Funcs:    make(map[source.StringID]string),
			FuncVars: make(map[source.StringID]string),
			Consts:   make(map[source.StringID]string),
			Fields:   make(map[ctypes.TypeID][]string),
			Variants: make(map[ctypes.TypeID][]string),
		},
	}
	for _, n := range emitterOwned {
		r.used[n] = true
	}
	for _, d := range g.Decls {
		r.decl(d)
	}
	return r.out
}

type resolver struct {
	g    *graph.Graph
	opts Options
	rep  diag.Reporter
	used map[string]bool
	out  *Names
}

func (r *resolver) decl(d graph.Decl) {
	switch d.Kind {
	case graph.DeclStruct, graph.DeclUnion, graph.DeclEnum, graph.DeclTypedef:
		r.typeDecl(d)
	case graph.DeclFunc:
		cname := r.g.Name(d)
		name := r.claim(r.convert(cname), cname, d.Span)
		r.out.Funcs[d.Name] = name
		r.out.FuncVars[d.Name] = r.claim(lowerFirst(name)+"Func", cname, d.Span)
	case graph.DeclConst:
		cname := r.g.Name(d)
		r.out.Consts[d.Name] = r.claim(r.convert(cname), cname, d.Span)
	}
}

func (r *resolver) typeDecl(d graph.Decl) {
	var base string
	if d.Anonymous() {
		host := "Anon"
		if d.Host != source.NoStringID {
			host = r.convert(r.g.Strings.MustLookup(d.Host))
		}
		base = fmt.Sprintf("%s_Anon%d", host, d.AnonIndex)
		diag.ReportInfo(r.rep, diag.NameAnonymousHoisted, d.Span,
			"anonymous "+d.Kind.String()+" hoisted as "+base).Emit()
	} else {
		base = r.convert(r.g.Name(d))
	}
	name := r.claim(base, r.g.Name(d), d.Span)
	r.out.Types[d.Type] = name

	switch d.Kind {
	case graph.DeclStruct:
		// The emitter may declare an ffi descriptor var for the struct.
		r.used["FFIType"+name] = true
		if info, ok := r.g.Types.StructInfo(d.Type); ok {
			r.out.Fields[d.Type] = r.fieldNames(info.Fields)
		}
	case graph.DeclUnion:
		if info, ok := r.g.Types.UnionInfo(d.Type); ok {
			r.out.Fields[d.Type] = r.fieldNames(info.Fields)
		}
	case graph.DeclEnum:
		if info, ok := r.g.Types.EnumInfo(d.Type); ok {
			r.out.Variants[d.Type] = r.variantNames(info.Variants)
		}
	}
}

// fieldNames resolves member identifiers inside one aggregate scope.
// Fields are always exported regardless of convention, since unexported
// fields would make the generated struct unusable.
func (r *resolver) fieldNames(fields []ctypes.Field) []string {
	usedHere := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.IsBitfield {
			// Bitfield storage units surface as BitsN members; keep
			// those spellings free of declared field names.
			for i := range fields {
				usedHere[fmt.Sprintf("Bits%d", i)] = true
			}
			break
		}
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		base := ""
		if f.Name != source.NoStringID {
			base = r.convert(r.g.Strings.MustLookup(f.Name))
		}
		if base == "" {
			base = fmt.Sprintf("Field%d", i)
		}
		base = exportName(base)
		name := base
		for n := 2; usedHere[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		usedHere[name] = true
		out[i] = name
	}
	return out
}

func (r *resolver) variantNames(variants []ctypes.EnumVariant) []string {
	out := make([]string, len(variants))
	for i, v := range variants {
		cname := r.g.Strings.MustLookup(v.Name)
		out[i] = r.claim(r.convert(cname), cname, v.Span)
	}
	return out
}

// claim sanitizes base, repairs reserved words, and disambiguates against
// the global scope with numbered suffixes in declaration order.
func (r *resolver) claim(base, cname string, sp source.Span) string {
	base = sanitize(base)
	if reserved[base] {
		diag.ReportInfo(r.rep, diag.NameKeywordCollision, sp,
			fmt.Sprintf("%q collides with a reserved Go word; renamed to %q", base, base+"_")).
			WithDecl(cname).Emit()
		base += "_"
	}
	name := base
	for n := 2; r.used[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	if name != base {
		diag.ReportInfo(r.rep, diag.NameDuplicateRenamed, sp,
			fmt.Sprintf("%q already taken; renamed to %q", base, name)).
			WithDecl(cname).Emit()
	}
	r.used[name] = true
	return name
}

var titler = cases.Title(language.Und, cases.NoLower)

// convert applies prefix trimming and the configured convention.
func (r *resolver) convert(name string) string {
	for _, p := range r.opts.TrimPrefixes {
		if trimmed := strings.TrimPrefix(name, p); trimmed != name && trimmed != "" {
			name = trimmed
			break
		}
	}
	if r.opts.Convention == ConventionPreserve {
		return name
	}
	return pascal(name)
}

// pascal joins underscore-separated words, titling each and keeping
// existing interior capitals (URL stays URL).
func pascal(s string) string {
	parts := strings.Split(s, "_")
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString(titler.String(p))
	}
	if sb.Len() == 0 {
		return s
	}
	return sb.String()
}

// sanitize repairs characters that cannot appear in a Go identifier.
func sanitize(s string) string {
	if s == "" {
		return "X"
	}
	var sb strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
			sb.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				sb.WriteRune('X')
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func exportName(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ParamName picks the Go-side name of one parameter: the declared name
// when present and valid, an argN placeholder otherwise.
func ParamName(tab *source.Interner, p ctypes.Param, i int) string {
	if p.Name != source.NoStringID {
		n := sanitize(tab.MustLookup(p.Name))
		if reserved[n] {
			n += "_"
		}
		if n != "" && n != "X" {
			return n
		}
	}
	return fmt.Sprintf("arg%d", i)
}
