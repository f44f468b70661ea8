//go:build cgo

// Package tsc provides a frontend.Provider backed by the tree-sitter C
// grammar. It is the default cursor source for real headers; the core
// depends only on the frontend.Cursor boundary, never on tree-sitter
// types.
package tsc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsc "github.com/smacker/go-tree-sitter/c"

	"ffigen/internal/frontend"
	"ffigen/internal/source"
)

// Provider parses C headers with tree-sitter.
type Provider struct {
	parser *sitter.Parser
}

// New creates a tree-sitter backed provider.
func New() *Provider {
	p := sitter.NewParser()
	p.SetLanguage(tsc.GetLanguage())
	return &Provider{parser: p}
}

// Parse builds a cursor tree for one header.
func (p *Provider) Parse(ctx context.Context, file *source.File) (frontend.Cursor, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, file.Content)
	if err != nil {
		return nil, fmt.Errorf("tsc: parse %s: %w", file.Path, err)
	}
	w := &walker{src: file.Content, fileID: file.ID}
	root := frontend.NewNode(frontend.CursorTranslationUnit, file.Path)
	root.Span = w.span(tree.RootNode())
	for i := 0; i < int(tree.RootNode().NamedChildCount()); i++ {
		child := tree.RootNode().NamedChild(i)
		if n := w.topLevel(child); n != nil {
			root.Kids = append(root.Kids, n)
		}
	}
	return root, nil
}

type walker struct {
	src    []byte
	fileID source.FileID

	// pack is the #pragma pack ceiling currently in effect; packStack
	// holds ceilings saved by pack(push).
	pack      int
	packStack []int
}

func (w *walker) span(n *sitter.Node) source.Span {
	return source.Span{File: w.fileID, Start: n.StartByte(), End: n.EndByte()}
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

func (w *walker) topLevel(n *sitter.Node) *frontend.Node {
	switch n.Type() {
	case "preproc_def":
		return w.macro(n)
	case "type_definition":
		return w.typedef(n)
	case "struct_specifier":
		return w.aggregate(n, frontend.CursorStructDecl)
	case "union_specifier":
		return w.aggregate(n, frontend.CursorUnionDecl)
	case "enum_specifier":
		return w.enum(n)
	case "declaration":
		return w.declaration(n)
	case "preproc_call":
		w.pragma(n)
		return nil
	case "comment", "preproc_include", "preproc_ifdef", "preproc_if",
		"preproc_function_def", ";":
		return nil
	default:
		u := frontend.NewNode(frontend.CursorUnknown, "")
		u.Span = w.span(n)
		return u
	}
}

// pragma applies a #pragma pack directive to the walker state. Every
// other pragma is ignored.
func (w *walker) pragma(n *sitter.Node) {
	op, ok := parsePackPragma(w.text(n))
	if !ok {
		return
	}
	switch op.action {
	case packSet:
		w.pack = op.value
	case packPush:
		w.packStack = append(w.packStack, w.pack)
		if op.hasValue {
			w.pack = op.value
		}
	case packPop:
		if k := len(w.packStack); k > 0 {
			w.pack = w.packStack[k-1]
			w.packStack = w.packStack[:k-1]
		}
	}
}

func (w *walker) macro(n *sitter.Node) *frontend.Node {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	m := frontend.NewNode(frontend.CursorMacroDef, w.text(nameNode))
	m.Span = w.span(n)
	if valNode := n.ChildByFieldName("value"); valNode != nil {
		if v, ok := parseLiteral(strings.TrimSpace(w.text(valNode))); ok {
			m.Value = &v
		}
	}
	return m
}

// parseLiteral resolves a macro body when it is a single integer, float,
// character, or string literal. Anything else (expressions, casts, other
// macros) stays unresolved and is reported by the ingestion adapter.
func parseLiteral(s string) (frontend.ConstValue, bool) {
	if s == "" {
		return frontend.ConstValue{}, false
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unq, err := strconv.Unquote(s); err == nil {
			return frontend.ConstValue{Kind: frontend.ConstString, Str: unq}, true
		}
		return frontend.ConstValue{}, false
	}
	if len(s) >= 3 && s[0] == '\'' && s[len(s)-1] == '\'' {
		body := s[1 : len(s)-1]
		if r, _, _, err := strconv.UnquoteChar(body, '\''); err == nil {
			return frontend.ConstValue{Kind: frontend.ConstInt, Int: int64(r)}, true
		}
		return frontend.ConstValue{}, false
	}
	lit := strings.TrimRight(s, "uUlL")
	if iv, err := strconv.ParseInt(lit, 0, 64); err == nil {
		return frontend.ConstValue{Kind: frontend.ConstInt, Int: iv}, true
	}
	litF := strings.TrimRight(s, "fFlL")
	if fv, err := strconv.ParseFloat(litF, 64); err == nil {
		return frontend.ConstValue{Kind: frontend.ConstFloat, Float: fv}, true
	}
	return frontend.ConstValue{}, false
}

func (w *walker) aggregate(n *sitter.Node, kind frontend.CursorKind) *frontend.Node {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = w.text(nameNode)
	}
	agg := frontend.NewNode(kind, name)
	agg.Span = w.span(n)
	body := n.ChildByFieldName("body")
	if body == nil {
		// Forward declaration: no members, the builder records it as
		// incomplete unless a definition shows up later.
		return agg
	}
	agg.Pack = w.pack
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "field_declaration" {
			continue
		}
		agg.Kids = append(agg.Kids, w.fields(member)...)
	}
	return agg
}

// fields expands one field_declaration, which may declare several members
// ("int a, b;") or an inline aggregate.
func (w *walker) fields(n *sitter.Node) []*frontend.Node {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}

	var inlineDef *frontend.Node
	base := w.baseExpr(typeNode, &inlineDef)

	var out []*frontend.Node
	declarators := w.fieldDeclarators(n)
	if len(declarators) == 0 {
		// Anonymous member: "struct { ... };" contributes its inline
		// definition as an unnamed field.
		f := frontend.NewNode(frontend.CursorFieldDecl, "")
		f.Span = w.span(n)
		f.TypeOf = base
		if inlineDef != nil {
			f.Kids = append(f.Kids, inlineDef)
		}
		if bw, ok := w.bitWidth(n); ok {
			f.Bits = bw
		}
		return []*frontend.Node{f}
	}
	for _, d := range declarators {
		name, expr := w.applyDeclarator(d, base)
		f := frontend.NewNode(frontend.CursorFieldDecl, name)
		f.Span = w.span(d)
		f.TypeOf = expr
		if inlineDef != nil {
			f.Kids = append(f.Kids, inlineDef)
		}
		if bw, ok := w.bitWidth(n); ok {
			f.Bits = bw
		}
		out = append(out, f)
	}
	return out
}

func (w *walker) bitWidth(n *sitter.Node) (int, bool) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "bitfield_clause" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			if v, err := strconv.Atoi(strings.TrimSpace(w.text(c.NamedChild(j)))); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func (w *walker) fieldDeclarators(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	if d := n.ChildByFieldName("declarator"); d != nil {
		out = append(out, d)
	}
	// Additional declarators of "int a, b;" appear as further named
	// children of the declaration node.
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "field_identifier", "pointer_declarator", "array_declarator", "function_declarator":
			if len(out) == 0 || !sameNode(out[len(out)-1], c) {
				if !containsNode(out, c) {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func containsNode(xs []*sitter.Node, n *sitter.Node) bool {
	for _, x := range xs {
		if sameNode(x, n) {
			return true
		}
	}
	return false
}

// baseExpr maps a type specifier node to a base type expression. Inline
// aggregate definitions are returned through inlineDef and the expression
// marks the inline position.
func (w *walker) baseExpr(typeNode *sitter.Node, inlineDef **frontend.Node) *frontend.TypeExpr {
	switch typeNode.Type() {
	case "struct_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			*inlineDef = w.aggregate(typeNode, frontend.CursorStructDecl)
			if (*inlineDef).Name == "" {
				return frontend.Inline()
			}
			return frontend.Name("struct " + (*inlineDef).Name)
		}
		return frontend.Name(normalizeSpelling(w.text(typeNode)))
	case "union_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			*inlineDef = w.aggregate(typeNode, frontend.CursorUnionDecl)
			if (*inlineDef).Name == "" {
				return frontend.Inline()
			}
			return frontend.Name("union " + (*inlineDef).Name)
		}
		return frontend.Name(normalizeSpelling(w.text(typeNode)))
	case "enum_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			*inlineDef = w.enum(typeNode)
			if (*inlineDef).Name == "" {
				return frontend.Inline()
			}
			return frontend.Name("enum " + (*inlineDef).Name)
		}
		return frontend.Name(normalizeSpelling(w.text(typeNode)))
	default:
		return frontend.Name(normalizeSpelling(w.text(typeNode)))
	}
}

// normalizeSpelling collapses whitespace so "unsigned   long\nint" and
// "unsigned long int" intern identically.
func normalizeSpelling(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// applyDeclarator peels declarator nodes, wrapping base in pointer/array
// layers, and returns the declared name with the final expression.
func (w *walker) applyDeclarator(d *sitter.Node, base *frontend.TypeExpr) (string, *frontend.TypeExpr) {
	switch d.Type() {
	case "identifier", "field_identifier", "type_identifier":
		return w.text(d), base
	case "pointer_declarator":
		inner := d.ChildByFieldName("declarator")
		if inner == nil {
			return "", frontend.PointerTo(base)
		}
		return w.applyDeclarator(inner, frontend.PointerTo(base))
	case "array_declarator":
		length := frontend.ArrayNoLength
		if sizeNode := d.ChildByFieldName("size"); sizeNode != nil {
			if v, err := strconv.ParseInt(strings.TrimSpace(w.text(sizeNode)), 0, 64); err == nil {
				length = v
			}
		}
		inner := d.ChildByFieldName("declarator")
		if inner == nil {
			return "", frontend.ArrayOf(base, length)
		}
		name, expr := w.applyDeclarator(inner, base)
		return name, frontend.ArrayOf(expr, length)
	case "function_declarator":
		params, variadic := w.params(d)
		fn := frontend.FuncOf(base, params, variadic)
		inner := d.ChildByFieldName("declarator")
		if inner == nil {
			return "", fn
		}
		return w.applyDeclarator(inner, fn)
	case "parenthesized_declarator":
		for i := 0; i < int(d.NamedChildCount()); i++ {
			return w.applyDeclarator(d.NamedChild(i), base)
		}
		return "", base
	default:
		return "", base
	}
}

func (w *walker) params(fnDecl *sitter.Node) ([]*frontend.TypeExpr, bool) {
	list := fnDecl.ChildByFieldName("parameters")
	if list == nil {
		return nil, false
	}
	var params []*frontend.TypeExpr
	variadic := false
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration":
			typeNode := p.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			var inline *frontend.Node
			base := w.baseExpr(typeNode, &inline)
			if d := p.ChildByFieldName("declarator"); d != nil {
				_, expr := w.applyDeclarator(d, base)
				params = append(params, expr)
			} else {
				params = append(params, base)
			}
		case "variadic_parameter":
			variadic = true
		}
	}
	// "(void)" declares no parameters.
	if len(params) == 1 && params[0].Kind == frontend.TypeName && params[0].Spelling == "void" {
		params = nil
	}
	return params, variadic
}

func (w *walker) paramNames(fnDecl *sitter.Node) []*frontend.Node {
	list := fnDecl.ChildByFieldName("parameters")
	if list == nil {
		return nil
	}
	var out []*frontend.Node
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		if p.Type() != "parameter_declaration" {
			continue
		}
		name := ""
		var expr *frontend.TypeExpr
		if typeNode := p.ChildByFieldName("type"); typeNode != nil {
			var inline *frontend.Node
			base := w.baseExpr(typeNode, &inline)
			expr = base
			if d := p.ChildByFieldName("declarator"); d != nil {
				name, expr = w.applyDeclarator(d, base)
			}
		}
		pn := frontend.NewNode(frontend.CursorParamDecl, name)
		pn.Span = w.span(p)
		pn.TypeOf = expr
		out = append(out, pn)
	}
	return out
}

func (w *walker) enum(n *sitter.Node) *frontend.Node {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = w.text(nameNode)
	}
	e := frontend.NewNode(frontend.CursorEnumDecl, name)
	e.Span = w.span(n)
	body := n.ChildByFieldName("body")
	if body == nil {
		return e
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		v := body.NamedChild(i)
		if v.Type() != "enumerator" {
			continue
		}
		nameNode := v.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		ec := frontend.NewNode(frontend.CursorEnumConstant, w.text(nameNode))
		ec.Span = w.span(v)
		if valNode := v.ChildByFieldName("value"); valNode != nil {
			txt := strings.TrimSpace(w.text(valNode))
			if cv, ok := parseLiteral(txt); ok && cv.Kind == frontend.ConstInt {
				ec.Value = &cv
			} else {
				// Expression values travel as text; the adapter
				// evaluates them against earlier enumerators and
				// degrades the enum when that fails.
				ec.Expr = txt
			}
		}
		e.Kids = append(e.Kids, ec)
	}
	return e
}

func (w *walker) typedef(n *sitter.Node) *frontend.Node {
	typeNode := n.ChildByFieldName("type")
	declNode := n.ChildByFieldName("declarator")
	if typeNode == nil || declNode == nil {
		u := frontend.NewNode(frontend.CursorUnknown, "")
		u.Span = w.span(n)
		return u
	}
	var inline *frontend.Node
	base := w.baseExpr(typeNode, &inline)
	name, expr := w.applyDeclarator(declNode, base)
	td := frontend.NewNode(frontend.CursorTypedefDecl, name)
	td.Span = w.span(n)
	td.TypeOf = expr
	if inline != nil {
		td.Kids = append(td.Kids, inline)
	}
	return td
}

func (w *walker) declaration(n *sitter.Node) *frontend.Node {
	declNode := n.ChildByFieldName("declarator")
	typeNode := n.ChildByFieldName("type")
	if declNode == nil || typeNode == nil {
		u := frontend.NewNode(frontend.CursorUnknown, "")
		u.Span = w.span(n)
		return u
	}
	fnDecl := findFunctionDeclarator(declNode)
	if fnDecl == nil {
		var inline *frontend.Node
		base := w.baseExpr(typeNode, &inline)
		name, expr := w.applyDeclarator(declNode, base)
		v := frontend.NewNode(frontend.CursorVarDecl, name)
		v.Span = w.span(n)
		v.TypeOf = expr
		return v
	}

	var inline *frontend.Node
	base := w.baseExpr(typeNode, &inline)
	name, expr := w.applyDeclarator(declNode, base)
	fn := frontend.NewNode(frontend.CursorFunctionDecl, name)
	fn.Span = w.span(n)
	fn.TypeOf = expr
	fn.Kids = w.paramNames(fnDecl)
	return fn
}

func findFunctionDeclarator(d *sitter.Node) *sitter.Node {
	if d == nil {
		return nil
	}
	if d.Type() == "function_declarator" {
		return d
	}
	if inner := d.ChildByFieldName("declarator"); inner != nil {
		return findFunctionDeclarator(inner)
	}
	return nil
}
