package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var outputFormat string

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vengeance",
		Short: "Opportunity detection and distributed memory",
		Long: `Vengeance scans chat, email and CRM text for sales opportunities,
turns them into scored sticky notes and stores every input in a memory
that can be searched and synced across devices.

Configuration comes from VENGEANCE_* environment variables, optionally
loaded from a .env file in the working directory.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if outputFormat != "text" && outputFormat != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", outputFormat)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text or json")

	cmd.AddCommand(
		NewServeCmd(),
		NewProcessCmd(),
		NewImportCmd(),
		NewSearchCmd(),
		NewContextCmd(),
		NewCleanupCmd(),
		NewSyncCmd(),
		NewStickiesCmd(),
		NewBackupCmd(),
		NewWatchCmd(),
	)
	return cmd
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
