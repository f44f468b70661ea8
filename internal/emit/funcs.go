package emit

import (
	"fmt"
	"strings"

	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/graph"
	"ffigen/internal/resolve"
)

var funcImportOrder = []string{"fmt", "unsafe", "github.com/jupiterrider/ffi"}

func (e *emitter) renderFuncs() (string, error) {
	f := newFileBuf()

	var bindings []binding
	for _, d := range e.g.Decls {
		if d.Kind == graph.DeclFunc && e.included(d) {
			bindings = append(bindings, e.bindingFor(d))
		}
	}
	bound := 0
	for _, b := range bindings {
		if b.ok {
			bound++
		}
	}

	if bound > 0 {
		f.addImport("fmt")
		f.addImport("github.com/jupiterrider/ffi")
		f.printf("var (\n")
		for _, b := range bindings {
			if b.ok {
				f.printf("\t%s ffi.Fun\n", e.names.FuncVars[b.d.Name])
			}
		}
		f.printf(")\n\n")
	}

	f.printf("func loadFuncs() error {\n")
	if bound > 0 {
		f.printf("\tvar err error\n\n")
	}
	for _, b := range bindings {
		if !b.ok {
			f.printf("\t// %s: %s; not bound.\n\n", b.symbol, b.why)
			continue
		}
		varName := e.names.FuncVars[b.d.Name]
		if len(b.args) == 0 {
			f.printf("\tif %s, err = lib.Prep(%q, %s); err != nil {\n", varName, b.symbol, b.ret)
		} else {
			f.printf("\tif %s, err = lib.Prep(%q, %s, %s); err != nil {\n",
				varName, b.symbol, b.ret, strings.Join(b.args, ", "))
		}
		f.printf("\t\treturn fmt.Errorf(\"%s: %%w\", err)\n\t}\n\n", b.symbol)
	}
	f.printf("\treturn nil\n}\n\n")

	for _, b := range bindings {
		if b.ok {
			e.emitWrapper(f, b.d)
		}
	}
	return gofmt("functions.go", f.render(e.opts.Package, funcImportOrder))
}

type binding struct {
	d      graph.Decl
	symbol string
	ret    string
	args   []string
	ok     bool
	why    string
}

// bindingFor decides whether a symbol can be bound: every value crossing
// the call boundary needs an ffi descriptor. Unbindable symbols are
// skipped with a diagnostic so the rest of the library still loads.
func (e *emitter) bindingFor(d graph.Decl) binding {
	b := binding{d: d, symbol: e.g.Name(d)}
	info, ok := e.g.Types.FuncInfo(d.Type)
	if !ok {
		b.why = "signature missing"
		e.reportSkip(d, b.symbol, b.why)
		return b
	}
	b.ret, ok = e.ffiType(info.Result)
	if !ok {
		b.why = "return type cannot cross the call boundary"
		e.reportSkip(d, b.symbol, b.why)
		return b
	}
	for _, p := range info.Params {
		at, ok := e.ffiType(p.Type)
		if !ok {
			b.why = "a parameter cannot cross the call boundary"
			e.reportSkip(d, b.symbol, b.why)
			return b
		}
		b.args = append(b.args, at)
	}
	b.ok = true
	return b
}

func (e *emitter) reportSkip(d graph.Decl, symbol, why string) {
	diag.ReportWarning(e.rep, diag.EmitOpaquePlaceholder, d.Span,
		symbol+": "+why+"; symbol left unbound").WithDecl(symbol).Emit()
}

// emitWrapper renders the typed Go wrapper over one bound symbol.
// Variadic functions get no wrapper: libffi needs per-call-site
// signatures for the variable part.
func (e *emitter) emitWrapper(f *fileBuf, d graph.Decl) {
	info, ok := e.g.Types.FuncInfo(d.Type)
	if !ok {
		return
	}
	symbol := e.g.Name(d)
	goName := e.names.Funcs[d.Name]
	varName := e.names.FuncVars[d.Name]

	if info.Variadic {
		f.printf("// %s wraps the variadic %s; call %s.Call directly with\n", goName, symbol, varName)
		f.printf("// per-site ffi types for the variable arguments.\n\n")
		diag.ReportWarning(e.rep, diag.EmitVariadicStub, d.Span,
			symbol+" is variadic; only the loading stub is generated").WithDecl(symbol).Emit()
		return
	}
	if _, ok := e.ffiType(info.Result); !ok {
		return
	}

	params := make([]string, 0, len(info.Params))
	names := make([]string, 0, len(info.Params))
	for i, p := range info.Params {
		if _, ok := e.ffiType(p.Type); !ok {
			return
		}
		pn := resolve.ParamName(e.g.Strings, p, i)
		gt := e.goType(p.Type, f)
		if gt == "" {
			return
		}
		params = append(params, pn+" "+gt)
		names = append(names, pn)
	}

	retType := ""
	if t, _ := e.g.Types.Lookup(info.Result); t.Kind != ctypes.KindVoid {
		retType = e.goType(info.Result, f)
		if retType == "" {
			return
		}
	}

	if retType != "" {
		f.printf("func %s(%s) %s {\n", goName, strings.Join(params, ", "), retType)
		f.printf("\tvar result %s\n", retType)
	} else {
		f.printf("func %s(%s) {\n", goName, strings.Join(params, ", "))
	}

	if retType != "" || len(names) > 0 {
		f.addImport("unsafe")
	}
	callArgs := []string{"nil"}
	if retType != "" {
		callArgs[0] = "unsafe.Pointer(&result)"
	}
	for _, n := range names {
		callArgs = append(callArgs, fmt.Sprintf("unsafe.Pointer(&%s)", n))
	}
	f.printf("\t%s.Call(%s)\n", varName, strings.Join(callArgs, ", "))
	if retType != "" {
		f.printf("\treturn result\n")
	}
	f.printf("}\n\n")
}

func (e *emitter) renderLoader() string {
	var sb strings.Builder
	sb.WriteString("// Code generated by ffigen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&sb, "package %s\n\n", e.opts.Package)
	sb.WriteString(`import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/jupiterrider/ffi"
)

var lib ffi.Lib

// Load opens the shared library under path and binds every symbol.
func Load(path string) error {
	var err error
	lib, err = ffi.Load(libraryPath(path))
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	return loadFuncs()
}

func libraryPath(basePath string) string {
	var filename string
	switch runtime.GOOS {
	case "darwin":
		filename = "lib` + e.opts.Library + `.dylib"
	case "windows":
		filename = "` + e.opts.Library + `.dll"
	default:
		filename = "lib` + e.opts.Library + `.so"
	}
	return filepath.Join(basePath, filename)
}
`)
	return sb.String()
}

