// Package diagfmt renders diagnostic bags for terminals and tooling.
// Pretty output targets humans running the CLI; JSON output targets
// editors and CI consumers.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"ffigen/internal/diag"
	"ffigen/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	codeColor = color.New(color.Faint)
)

// Pretty writes one line per diagnostic:
//
//	<path>:<line>:<col>: <severity> <code>: <message> [decl]
//
// followed by indented notes when ShowNotes is set. The bag is expected
// to be sorted already.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	items := bag.Items()
	n := len(items)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	for i := range n {
		writeOne(w, items[i], fs, opts)
	}
	if n < len(items) {
		fmt.Fprintf(w, "... and %d more\n", len(items)-n)
	}
}

func writeOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	sev := d.Severity.String()
	code := d.Code.String()
	if opts.Color {
		sev = severityColor(d.Severity).Sprint(sev)
		code = codeColor.Sprint(code)
	}
	fmt.Fprintf(w, "%s: %s %s: %s", fs.Position(d.Primary), sev, code, d.Message)
	if d.Decl != "" {
		fmt.Fprintf(w, " [%s]", d.Decl)
	}
	fmt.Fprintln(w)

	if !opts.ShowNotes {
		return
	}
	for _, note := range d.Notes {
		fmt.Fprintf(w, "    %s: note: %s\n", fs.Position(note.Span), note.Msg)
	}
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	default:
		return infoColor
	}
}

// Summary writes the closing counts line ("2 errors, 1 warning").
func Summary(w io.Writer, bag *diag.Bag, useColor bool) {
	errs, warns := 0, 0
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	if errs == 0 && warns == 0 {
		return
	}
	parts := ""
	if errs > 0 {
		s := fmt.Sprintf("%d %s", errs, plural("error", errs))
		if useColor {
			s = errColor.Sprint(s)
		}
		parts = s
	}
	if warns > 0 {
		s := fmt.Sprintf("%d %s", warns, plural("warning", warns))
		if useColor {
			s = warnColor.Sprint(s)
		}
		if parts != "" {
			parts += ", "
		}
		parts += s
	}
	fmt.Fprintln(w, parts)
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
