package diag

import (
	"ffigen/internal/source"
)

// Note is a secondary span with extra context for a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one finding reported against a foreign declaration.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	// Decl names the foreign declaration the finding applies to, when one
	// exists. Tooling consumes diagnostics separately from generated code,
	// so the name travels with the record instead of being rendered inline.
	Decl  string
	Notes []Note
}

// New constructs a Diagnostic without emitting it.
func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

// WithNote returns a copy with an extra note appended.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// WithDecl returns a copy annotated with the foreign declaration name.
func (d Diagnostic) WithDecl(name string) Diagnostic {
	d.Decl = name
	return d
}
