// Package emit renders the declaration graph as Go source. Layout is
// made explicit: structs carry padding fields so the Go layout matches
// the foreign one byte for byte, unions become sized byte arrays with
// typed accessors, and functions become loader stubs plus typed wrappers
// over github.com/jupiterrider/ffi. Output is deterministic: the same
// graph always renders to the same bytes.
package emit

import (
	"bytes"
	"fmt"
	"go/format"

	"ffigen/internal/abi"
	"ffigen/internal/diag"
	"ffigen/internal/graph"
	"ffigen/internal/layout"
	"ffigen/internal/resolve"
)

// Options configure rendering.
type Options struct {
	// Package is the generated package name.
	Package string

	// Library is the shared library base name the loader opens
	// ("sqlite3" loads libsqlite3.so). Empty skips loader and wrappers.
	Library string

	Target abi.Target

	// Include filters which declarations are rendered. Nil renders all.
	// Excluded declarations stay resolvable as types referenced by
	// included ones.
	Include func(d graph.Decl) bool
}

// Generate renders the graph into named files. Rendering never fails on
// individual declarations; unrepresentable ones degrade to placeholders
// with a diagnostic. The only error source is an internal rendering bug
// surfaced by the formatter.
func Generate(g *graph.Graph, names *resolve.Names, eng *layout.Engine, opts Options, rep diag.Reporter) (map[string]string, error) {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	if opts.Package == "" {
		opts.Package = "bindings"
	}
	e := &emitter{g: g, names: names, eng: eng, opts: opts, rep: rep}

	out := make(map[string]string, 3)

	types, err := e.renderTypes()
	if err != nil {
		return nil, err
	}
	out["types.go"] = types

	if opts.Library != "" {
		funcs, err := e.renderFuncs()
		if err != nil {
			return nil, err
		}
		out["functions.go"] = funcs
		out["loader.go"] = e.renderLoader()
	}
	return out, nil
}

type emitter struct {
	g     *graph.Graph
	names *resolve.Names
	eng   *layout.Engine
	opts  Options
	rep   diag.Reporter
}

func (e *emitter) included(d graph.Decl) bool {
	if e.opts.Include == nil {
		return true
	}
	// Hoisted anonymous aggregates follow their host's fate; filtering
	// them out while the host stays would leave dangling references.
	if d.Anonymous() {
		return true
	}
	return e.opts.Include(d)
}

// gofmt runs the formatter as a structural self-check: unparseable
// output means a rendering bug, not bad input.
func gofmt(name string, src []byte) (string, error) {
	pretty, err := format.Source(src)
	if err != nil {
		return "", fmt.Errorf("emit: generated %s does not parse: %w", name, err)
	}
	return string(pretty), nil
}

// fileBuf accumulates one output file, tracking imports as lines are
// written so the header can be rendered last.
type fileBuf struct {
	body    bytes.Buffer
	imports map[string]bool
}

func newFileBuf() *fileBuf {
	return &fileBuf{imports: make(map[string]bool, 4)}
}

func (f *fileBuf) addImport(path string) {
	f.imports[path] = true
}

func (f *fileBuf) printf(format string, args ...any) {
	fmt.Fprintf(&f.body, format, args...)
}

func (f *fileBuf) render(pkg string, importOrder []string) []byte {
	var out bytes.Buffer
	fmt.Fprintf(&out, "// Code generated by ffigen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", pkg)
	var used []string
	for _, p := range importOrder {
		if f.imports[p] {
			used = append(used, p)
		}
	}
	switch len(used) {
	case 0:
	case 1:
		fmt.Fprintf(&out, "import %q\n\n", used[0])
	default:
		fmt.Fprintf(&out, "import (\n")
		for _, p := range used {
			fmt.Fprintf(&out, "\t%q\n", p)
		}
		fmt.Fprintf(&out, ")\n\n")
	}
	out.Write(f.body.Bytes())
	return out.Bytes()
}
