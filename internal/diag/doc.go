// Package diag defines the diagnostic model shared by all generator phases.
//
// Every phase (ingestion, graph building, layout, name resolution, emission)
// reports per-declaration findings through a diag.Reporter instead of failing
// the run: unsupported or ambiguous foreign constructs degrade to opaque
// placeholders and leave a Diagnostic behind. Only configuration validation
// may abort a run, and it does so before any declaration is processed.
//
// Diagnostic is the central record: Severity, a stable numeric Code, a short
// message, the primary source.Span (the foreign declaration site), and
// optional notes. Diagnostics are collected into a Bag which supports
// deterministic sorting and deduplication, so two runs over identical input
// produce byte-identical reports.
//
// The package performs no formatting or IO; rendering lives in
// internal/diagfmt and orchestration in internal/driver.
package diag
