// Package cli wires the papersumm commands: one-shot summarization and the
// HTTP service mode.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "papersumm",
	Short: "Engineering-focused summarizer for technical papers",
	Long: `papersumm turns technical papers (PDF, Markdown, HTML, DOCX, plain text)
into engineering-focused summaries: key takeaways, per-section summaries and
an Engineer's Corner advice block, produced by a hierarchical map-reduce over
an Anthropic model.`,
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("papersumm %s\n", version))
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML tunables file (default $PAPERSUMM_CONFIG)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
