package layout

import (
	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/source"
)

// Annotate walks the given type nodes in ID order and writes computed
// layouts back into the interner. Nodes whose layout cannot be computed
// deterministically are demoted to opaque placeholders with a recorded
// diagnostic; the pass itself never fails.
//
// After Annotate returns, every struct or union reachable from an emitted
// declaration either carries size/alignment or is explicitly opaque.
func (e *Engine) Annotate(ids []ctypes.TypeID, rep diag.Reporter) {
	for _, id := range ids {
		tt, ok := e.Types.Lookup(id)
		if !ok {
			continue
		}
		switch tt.Kind {
		case ctypes.KindStruct:
			e.annotateStruct(id, rep)
		case ctypes.KindUnion:
			e.annotateUnion(id, rep)
		case ctypes.KindEnum:
			e.annotateEnum(id)
		}
	}
}

func (e *Engine) annotateStruct(id ctypes.TypeID, rep diag.Reporter) {
	info, ok := e.Types.StructInfo(id)
	if !ok || info.HasLayout {
		return
	}
	if info.IsForward {
		e.demote(id, ctypes.OpaqueIncomplete, rep, diag.GraphIncompleteType,
			"struct is forward-declared and never defined")
		return
	}
	l, err := e.LayoutOf(id)
	if err != nil {
		e.demoteLayoutErr(id, err, rep)
		return
	}
	e.Types.SetStructLayout(id, l.Size, l.Align, l.FieldOffsetsBits)
}

func (e *Engine) annotateUnion(id ctypes.TypeID, rep diag.Reporter) {
	info, ok := e.Types.UnionInfo(id)
	if !ok || info.HasLayout {
		return
	}
	if info.IsForward {
		e.demote(id, ctypes.OpaqueIncomplete, rep, diag.GraphIncompleteType,
			"union is forward-declared and never defined")
		return
	}
	l, err := e.LayoutOf(id)
	if err != nil {
		e.demoteLayoutErr(id, err, rep)
		return
	}
	e.Types.SetUnionLayout(id, l.Size, l.Align)
}

func (e *Engine) annotateEnum(id ctypes.TypeID) {
	info, ok := e.Types.EnumInfo(id)
	if !ok || info.BaseType != ctypes.NoTypeID {
		return
	}
	e.Types.SetEnumBaseType(id, e.EnumUnderlying(info))
}

func (e *Engine) demoteLayoutErr(id ctypes.TypeID, err error, rep diag.Reporter) {
	lerr, ok := err.(*Error)
	if !ok {
		e.demote(id, ctypes.OpaqueLayoutUnresolvable, rep, diag.LayoutUnresolvable, err.Error())
		return
	}
	switch lerr.Kind {
	case ErrIncomplete:
		e.demote(id, ctypes.OpaqueIncomplete, rep, diag.GraphIncompleteType, lerr.Error())
	case ErrRecursiveValue:
		e.demote(id, ctypes.OpaqueLayoutUnresolvable, rep, diag.LayoutRecursiveValue, lerr.Error())
	default:
		e.demote(id, ctypes.OpaqueLayoutUnresolvable, rep, diag.LayoutUnresolvable, lerr.Error())
	}
}

func (e *Engine) demote(id ctypes.TypeID, reason ctypes.OpaqueReason, rep diag.Reporter, code diag.Code, msg string) {
	var span source.Span
	var name source.StringID
	if info, ok := e.Types.StructInfo(id); ok {
		span, name = info.Decl, info.Name
	} else if info, ok := e.Types.UnionInfo(id); ok {
		span, name = info.Decl, info.Name
	}
	e.Types.MarkOpaque(id, ctypes.OpaqueInfo{Reason: reason})
	if rep == nil {
		return
	}
	d := diag.NewWarning(code, span, msg)
	if e.Names != nil && name != source.NoStringID {
		d = d.WithDecl(e.Names(name))
	}
	rep.Report(d)
}
