package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/importer"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Process a folder of Markdown notes",
		Long: `Walk a directory of Markdown files and process each one.

Frontmatter keys source_type, source_id, company, contact_email and
contact_name are honoured; the source id defaults to the relative path.
Files already processed with the same content are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := importer.NewImporter(a.engine).Import(cmd.Context(), args[0])
	if res == nil {
		return err
	}

	if outputFormat == "json" {
		if jerr := writeJSON(cmd.OutOrStdout(), res); jerr != nil {
			return jerr
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s: %d files, %d processed, %d skipped, %d failed, %d sticky notes (%s)\n",
		res.BatchID, res.FilesFound, res.FilesProcessed, res.FilesSkipped, res.FilesFailed,
		res.StickiesCreated, res.Duration.Round(time.Millisecond))
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return err
}
