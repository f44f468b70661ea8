package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ffigen/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ffigen",
	Short: "Generate Go bindings from C headers",
	Long: `ffigen reads C headers, lays out their types for a target ABI, and
emits Go struct definitions and call wrappers for a shared library.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Int("max-diagnostics", 256, "maximum number of diagnostics to record")
	rootCmd.PersistentFlags().StringP("dir", "C", ".", "directory to search for ffigen.toml")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color mode against the output stream. It also
// flips the global color switch so Pretty() and friends agree.
func useColor(cmd *cobra.Command) bool {
	mode, _ := cmd.Flags().GetString("color")
	var on bool
	switch mode {
	case "on", "always":
		on = true
	case "off", "never":
		on = false
	default:
		on = isTerminal(os.Stderr)
	}
	color.NoColor = !on
	return on
}
