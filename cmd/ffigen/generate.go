package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"ffigen/internal/driver"
)

var (
	generateOutput string
	generateDryRun bool
	generateNoCache bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output directory (overrides [generate].output)")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "print generated files to stdout instead of writing them")
	generateCmd.Flags().BoolVar(&generateNoCache, "no-cache", false, "skip the disk cache")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate bindings for the current project",
	Long: `Generate reads the headers listed in ffigen.toml, lays out their types
for the configured target, and writes Go source files to the output
directory. Declarations the target cannot represent are emitted as opaque
byte arrays and reported as diagnostics.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	opts, err := optionsFromManifest(cmd, m, !generateNoCache && !generateDryRun)
	if err != nil {
		return err
	}

	res, err := driver.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	hadErrors := reportDiagnostics(cmd, res)

	if generateDryRun {
		for _, name := range sortedFileNames(res.Files) {
			fmt.Fprintf(cmd.OutOrStdout(), "// --- %s ---\n%s", name, res.Files[name])
		}
	} else {
		outDir := generateOutput
		if outDir == "" {
			outDir = m.Generate.Output
		}
		if outDir == "" {
			outDir = "."
		}
		if !filepath.IsAbs(outDir) {
			outDir = filepath.Join(m.Dir, outDir)
		}
		if err := writeFiles(outDir, res.Files); err != nil {
			return err
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			from := ""
			if res.FromCache {
				from = " (cached)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s%s\n", len(res.Files), outDir, from)
		}
	}

	if hadErrors {
		return fmt.Errorf("generation finished with errors")
	}
	return nil
}

func writeFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range sortedFileNames(files) {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func sortedFileNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
