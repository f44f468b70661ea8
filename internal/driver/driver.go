// Package driver orchestrates one generation run: headers in, rendered
// Go files and a sorted diagnostic bag out. Parsing is the only phase
// allowed to touch the filesystem or the external parser; everything
// after it is a pure function over the declaration graph.
package driver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"ffigen/internal/abi"
	"ffigen/internal/ctypes"
	"ffigen/internal/diag"
	"ffigen/internal/emit"
	"ffigen/internal/frontend"
	"ffigen/internal/graph"
	"ffigen/internal/layout"
	"ffigen/internal/resolve"
	"ffigen/internal/source"
)

// Options configure one run. Each run owns its type arena exclusively;
// Options values themselves may be shared.
type Options struct {
	// Headers are read from disk in the given order.
	Headers []string

	// VirtualHeaders are in-memory inputs keyed by display name, used by
	// tests and stdin-driven invocations. They are processed after
	// Headers, in sorted name order.
	VirtualHeaders map[string]string

	Target  abi.Target
	Package string
	Library string

	Naming resolve.Options

	// Match keeps only declarations whose C name contains one of these
	// substrings. Excluded declarations stay in the graph so included
	// ones can still reference them.
	Match []string

	AllowUnknownTypes bool

	// MaxDiagnostics caps the bag; zero uses a generous default.
	MaxDiagnostics int

	// Provider parses headers into cursor trees. Required unless every
	// input is pre-parsed by a test double.
	Provider frontend.Provider

	// Cache, when set, short-circuits runs whose inputs and
	// configuration digest to a previously stored result.
	Cache *DiskCache

	// Version participates in the cache key so new tool releases never
	// serve stale output.
	Version string
}

// Result is one finished run.
type Result struct {
	// Files maps output file names to rendered contents.
	Files map[string]string

	Bag     *diag.Bag
	FileSet *source.FileSet

	// FromCache marks results served from the disk cache.
	FromCache bool
}

// HasErrors reports whether the run recorded error-severity diagnostics.
func (r *Result) HasErrors() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

const defaultMaxDiagnostics = 256

// Run executes the pipeline for one header set.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Target.Validate(); err != nil {
		return nil, err
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("driver: no frontend provider configured")
	}

	maxDiags := opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = defaultMaxDiagnostics
	}
	bag := diag.NewBag(maxDiags)
	rep := diag.BagReporter{Bag: bag}

	fs := source.NewFileSet()
	var files []source.FileID
	for _, path := range opts.Headers {
		id, err := fs.Load(path)
		if err != nil {
			return nil, fmt.Errorf("driver: %w", err)
		}
		files = append(files, id)
	}
	for _, name := range sortedKeys(opts.VirtualHeaders) {
		files = append(files, fs.AddVirtual(name, []byte(opts.VirtualHeaders[name])))
	}

	key := cacheKey(opts, fs, files)
	if opts.Cache != nil {
		if res, ok := opts.Cache.lookup(key, fs); ok {
			return res, nil
		}
	}

	cursors, err := parseAll(ctx, opts.Provider, fs, files, rep)
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder(graph.Options{
		Target:            opts.Target,
		AllowUnknownTypes: opts.AllowUnknownTypes,
	}, source.NewInterner(), rep)
	for _, c := range cursors {
		if c != nil {
			b.AddAll(frontend.Ingest(c, rep))
		}
	}
	g := b.Finish()

	eng := layout.New(opts.Target, g.Types)
	eng.Names = func(id source.StringID) string { return g.Strings.MustLookup(id) }
	var ids []ctypes.TypeID
	for _, d := range g.Decls {
		if d.Type != ctypes.NoTypeID {
			ids = append(ids, d.Type)
		}
	}
	eng.Annotate(ids, rep)

	names := resolve.Resolve(g, opts.Naming, rep)

	out, err := emit.Generate(g, names, eng, emit.Options{
		Package: opts.Package,
		Library: opts.Library,
		Target:  opts.Target,
		Include: matchPredicate(g, opts.Match),
	}, rep)
	if err != nil {
		return nil, err
	}

	bag.Sort()
	bag.Dedup()

	res := &Result{Files: out, Bag: bag, FileSet: fs}
	if opts.Cache != nil {
		// Best effort: a failed write only costs the next run a rebuild.
		_ = opts.Cache.store(key, res)
	}
	return res, nil
}

// RunAll executes independent runs in parallel. Each run owns its arena,
// interner, and bag; nothing is shared but the cache, which is
// internally locked.
func RunAll(ctx context.Context, runs []Options) ([]*Result, error) {
	results := make([]*Result, len(runs))
	eg, ctx := errgroup.WithContext(ctx)
	for i := range runs {
		eg.Go(func() error {
			res, err := Run(ctx, runs[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseAll parses headers concurrently. Slots of failed parses stay nil
// with a recorded diagnostic: one broken header never aborts the run.
func parseAll(ctx context.Context, p frontend.Provider, fs *source.FileSet, files []source.FileID, rep diag.Reporter) ([]frontend.Cursor, error) {
	cursors := make([]frontend.Cursor, len(files))
	diags := make([]*diag.Diagnostic, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	for i, id := range files {
		file := fs.Get(id)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := p.Parse(ctx, file)
			if err != nil {
				d := diag.NewError(diag.IngFrontendParseError,
					source.Span{File: file.ID},
					fmt.Sprintf("%s: %v", file.Path, err))
				diags[i] = &d
				return nil
			}
			cursors[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	// Report in input order so diagnostics stay deterministic.
	for _, d := range diags {
		if d != nil {
			rep.Report(*d)
		}
	}
	return cursors, nil
}

// matchPredicate compiles the substring allowlist. Anonymous declarations
// are always kept; they surface only through their host.
func matchPredicate(g *graph.Graph, patterns []string) func(graph.Decl) bool {
	if len(patterns) == 0 {
		return nil
	}
	return func(d graph.Decl) bool {
		name := g.Name(d)
		if name == "" {
			return true
		}
		for _, p := range patterns {
			if strings.Contains(name, p) {
				return true
			}
		}
		return false
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
