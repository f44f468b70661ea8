package frontend

import (
	"fmt"

	"ffigen/internal/diag"
)

// Ingest converts a cursor tree into raw declaration records. One bad
// node never aborts the walk: a cursor of unrecognized kind yields a
// RawUnsupported record plus a diagnostic, and ingestion continues with
// its siblings.
func Ingest(root Cursor, rep diag.Reporter) []RawDecl {
	if root == nil {
		return nil
	}
	kids := root.Children()
	out := make([]RawDecl, 0, len(kids))
	for _, c := range kids {
		out = append(out, ingestOne(c, rep))
	}
	return out
}

func ingestOne(c Cursor, rep diag.Reporter) RawDecl {
	switch c.Kind() {
	case CursorStructDecl:
		return ingestAggregate(c, RawStruct, rep)
	case CursorUnionDecl:
		return ingestAggregate(c, RawUnion, rep)
	case CursorEnumDecl:
		return ingestEnum(c, rep)
	case CursorTypedefDecl:
		return ingestTypedef(c, rep)
	case CursorFunctionDecl:
		return ingestFunction(c, rep)
	case CursorMacroDef:
		return ingestMacro(c, rep)
	case CursorVarDecl:
		// Extern object declarations carry no layout or call surface we
		// translate; record them as unsupported so the report names them.
		return unsupported(c, rep, "extern object declarations are not translated")
	default:
		return unsupported(c, rep, fmt.Sprintf("unrecognized cursor kind %s", c.Kind()))
	}
}

func ingestAggregate(c Cursor, kind RawKind, rep diag.Reporter) RawDecl {
	rec := RawDecl{
		Kind: kind,
		Name: c.Spelling(),
		Span: c.Location(),
		Pack: c.PackAlign(),
	}
	for _, child := range c.Children() {
		switch child.Kind() {
		case CursorFieldDecl:
			rec.Children = append(rec.Children, ingestField(child, rep))
		case CursorStructDecl, CursorUnionDecl, CursorEnumDecl:
			// Aggregate defined inline; keep the definition nested so the
			// builder can inline it as a synthetic field type.
			rec.Children = append(rec.Children, ingestOne(child, rep))
		default:
			rec.Children = append(rec.Children, unsupported(child, rep,
				fmt.Sprintf("unrecognized member kind %s", child.Kind())))
		}
	}
	return rec
}

func ingestField(c Cursor, rep diag.Reporter) RawDecl {
	if c.Type() == nil {
		return unsupported(c, rep, "field without a type descriptor")
	}
	rec := RawDecl{
		Kind:     RawField,
		Name:     c.Spelling(),
		Span:     c.Location(),
		Type:     c.Type(),
		BitWidth: c.BitWidth(),
	}
	// Inline aggregate as the field type: the definition is the only
	// aggregate child of the field cursor.
	for _, child := range c.Children() {
		switch child.Kind() {
		case CursorStructDecl, CursorUnionDecl, CursorEnumDecl:
			rec.Children = append(rec.Children, ingestOne(child, rep))
		}
	}
	return rec
}

// ingestEnum assigns every enumerator its value: an explicit literal, an
// evaluated constant expression over earlier enumerators, or the running
// counter. One unresolvable value poisons the whole enum, which degrades
// to an unsupported record so later references demote to opaque.
func ingestEnum(c Cursor, rep diag.Reporter) RawDecl {
	rec := RawDecl{
		Kind: RawEnum,
		Name: c.Spelling(),
		Span: c.Location(),
	}
	next := int64(0)
	seen := make(map[string]int64)
	for _, child := range c.Children() {
		if child.Kind() != CursorEnumConstant {
			rec.Children = append(rec.Children, unsupported(child, rep,
				fmt.Sprintf("unrecognized enum member kind %s", child.Kind())))
			continue
		}
		val := next
		if v, ok := child.ConstValue(); ok && v.Kind == ConstInt {
			val = v.Int
		} else if expr := child.ConstExpr(); expr != "" {
			ev, err := EvalConstExpr(expr, func(name string) (int64, bool) {
				v, ok := seen[name]
				return v, ok
			})
			if err != nil {
				reason := fmt.Sprintf("enumerator %s = %s does not reduce to an integer constant (%v)",
					child.Spelling(), expr, err)
				b := diag.ReportWarning(rep, diag.IngUnsupportedCursor, child.Location(), reason)
				if c.Spelling() != "" {
					b.WithDecl(c.Spelling())
				}
				b.Emit()
				return RawDecl{
					Kind:   RawUnsupported,
					Name:   c.Spelling(),
					Span:   c.Location(),
					Reason: reason,
				}
			}
			val = ev
		}
		seen[child.Spelling()] = val
		next = val + 1
		rec.Children = append(rec.Children, RawDecl{
			Kind:  RawEnumConstant,
			Name:  child.Spelling(),
			Span:  child.Location(),
			Value: &ConstValue{Kind: ConstInt, Int: val},
		})
	}
	return rec
}

func ingestTypedef(c Cursor, rep diag.Reporter) RawDecl {
	if c.Type() == nil {
		return unsupported(c, rep, "typedef without a type descriptor")
	}
	rec := RawDecl{
		Kind: RawTypedef,
		Name: c.Spelling(),
		Span: c.Location(),
		Type: c.Type(),
	}
	for _, child := range c.Children() {
		switch child.Kind() {
		case CursorStructDecl, CursorUnionDecl, CursorEnumDecl:
			rec.Children = append(rec.Children, ingestOne(child, rep))
		}
	}
	return rec
}

func ingestFunction(c Cursor, rep diag.Reporter) RawDecl {
	sig := c.Type()
	if sig == nil || sig.Kind != TypeFunc {
		return unsupported(c, rep, "function without a signature descriptor")
	}
	rec := RawDecl{
		Kind: RawFunction,
		Name: c.Spelling(),
		Span: c.Location(),
		Type: sig,
	}
	for _, child := range c.Children() {
		if child.Kind() != CursorParamDecl {
			continue
		}
		rec.Children = append(rec.Children, RawDecl{
			Kind: RawParam,
			Name: child.Spelling(),
			Span: child.Location(),
			Type: child.Type(),
		})
	}
	return rec
}

func ingestMacro(c Cursor, rep diag.Reporter) RawDecl {
	v, ok := c.ConstValue()
	if !ok {
		d := diag.NewReportBuilder(rep, diag.SevInfo, diag.IngMacroNotConstant, c.Location(),
			"macro does not expand to a literal constant")
		d.WithDecl(c.Spelling()).Emit()
		return RawDecl{
			Kind:   RawUnsupported,
			Name:   c.Spelling(),
			Span:   c.Location(),
			Reason: "macro does not expand to a literal constant",
		}
	}
	val := v
	return RawDecl{
		Kind:  RawConst,
		Name:  c.Spelling(),
		Span:  c.Location(),
		Value: &val,
	}
}

func unsupported(c Cursor, rep diag.Reporter, reason string) RawDecl {
	b := diag.ReportWarning(rep, diag.IngUnsupportedCursor, c.Location(), reason)
	if c.Spelling() != "" {
		b.WithDecl(c.Spelling())
	}
	b.Emit()
	return RawDecl{
		Kind:   RawUnsupported,
		Name:   c.Spelling(),
		Span:   c.Location(),
		Reason: reason,
	}
}
