package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ffigen/internal/diagfmt"
	"ffigen/internal/driver"
	"ffigen/internal/frontend"
	"ffigen/internal/frontend/tsc"
	"ffigen/internal/project"
	"ffigen/internal/resolve"
	"ffigen/internal/version"
)

// loadManifest finds and parses ffigen.toml, starting from --dir.
func loadManifest(cmd *cobra.Command) (*project.Manifest, error) {
	start, _ := cmd.Flags().GetString("dir")
	path, err := project.Find(start)
	if err != nil {
		if project.IsNotFound(err) {
			return nil, fmt.Errorf("no %s found (run \"ffigen init\" to create one)", project.ManifestName)
		}
		return nil, err
	}
	return project.Load(path)
}

// optionsFromManifest translates a manifest into driver options.
func optionsFromManifest(cmd *cobra.Command, m *project.Manifest, useCache bool) (driver.Options, error) {
	target, err := m.ResolveTarget()
	if err != nil {
		return driver.Options{}, err
	}
	conv, err := resolve.ParseConvention(m.Generate.Naming)
	if err != nil {
		return driver.Options{}, err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	if args := frontend.SplitArgs(m.Generate.ParserArgs); len(args) > 0 && !quiet {
		fmt.Fprintf(os.Stderr, "note: the built-in parser ignores parser_args (%d flags)\n", len(args))
	}

	opts := driver.Options{
		Headers: m.HeaderPaths(),
		Target:  target,
		Package: m.Package.Name,
		Library: m.PrimaryLibrary(),
		Naming: resolve.Options{
			Convention:   conv,
			TrimPrefixes: m.Generate.TrimPrefixes,
		},
		Match:             m.Generate.Match,
		AllowUnknownTypes: m.Generate.AllowUnknownTypes,
		Provider:          tsc.New(),
		Version:           version.Version,
	}
	opts.MaxDiagnostics, _ = cmd.Flags().GetInt("max-diagnostics")

	if useCache {
		cache, err := driver.OpenDiskCache("ffigen")
		if err != nil && !quiet {
			fmt.Fprintf(os.Stderr, "note: disk cache unavailable: %v\n", err)
		}
		opts.Cache = cache
	}
	return opts, nil
}

// reportDiagnostics prints the bag to stderr and returns whether errors
// were recorded.
func reportDiagnostics(cmd *cobra.Command, res *driver.Result) bool {
	quiet, _ := cmd.Flags().GetBool("quiet")
	colored := useColor(cmd)

	opts := diagfmt.PrettyOpts{Color: colored, ShowNotes: !quiet}
	if quiet {
		opts.Max = 1
	}
	diagfmt.Pretty(os.Stderr, res.Bag, res.FileSet, opts)
	if !quiet {
		diagfmt.Summary(os.Stderr, res.Bag, colored)
	}
	return res.HasErrors()
}
