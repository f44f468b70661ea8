package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ffigen/internal/diagfmt"
	"ffigen/internal/driver"
)

var diagnoseJSON bool

func init() {
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "emit diagnostics as JSON")
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the pipeline and report findings without writing files",
	Long: `Diagnose runs the full generation pipeline and prints every finding:
unsupported constructs, unresolved layouts, renamed identifiers. Nothing
is written to disk. Exits non-zero when errors are found.`,
	Args: cobra.NoArgs,
	RunE: runDiagnose,
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	opts, err := optionsFromManifest(cmd, m, false)
	if err != nil {
		return err
	}

	res, err := driver.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if diagnoseJSON {
		maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")
		err := diagfmt.WriteJSON(os.Stdout, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			Max:              maxDiags,
		})
		if err != nil {
			return err
		}
		if res.HasErrors() {
			return fmt.Errorf("diagnose found errors")
		}
		return nil
	}

	if reportDiagnostics(cmd, res) {
		return fmt.Errorf("diagnose found errors")
	}
	return nil
}
