package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/memory"
)

var (
	searchLimit      int
	searchCategory   string
	searchImportance int
	contextMax       int
	syncDevice       string
	syncSince        string
	syncHistory      bool
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored memories",
		Long: `Rank stored memories by relevance to the query.

Examples:
  vengeance search "BillCo funding"
  vengeance search --category opportunity --limit 5 "series B"
  vengeance search --importance 2 "renewal"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}
	cmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum results to return")
	cmd.Flags().StringVar(&searchCategory, "category", "", "Only return this category")
	cmd.Flags().IntVar(&searchImportance, "importance", 0, "Only return items at this importance level or higher (1-4)")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.engine.Memory().RetrieveMemory(cmd.Context(), memory.RetrieveOptions{
		Query:         args[0],
		Category:      searchCategory,
		Limit:         searchLimit,
		MinImportance: searchImportance,
	})
	if err != nil {
		return fmt.Errorf("searching memories: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), results)
	}
	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No memories found for query: %s\n", args[0])
		return nil
	}
	printScored(cmd.OutOrStdout(), results)
	return nil
}

// NewContextCmd creates the context command.
func NewContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <topic>",
		Short: "Show memories about a topic grouped by bucket",
		Args:  cobra.ExactArgs(1),
		RunE:  runContext,
	}
	cmd.Flags().IntVar(&contextMax, "max", 5, "Maximum items per bucket")
	return cmd
}

func runContext(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(contextMax, "max"); err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	cm, err := a.engine.Memory().GetContextualMemory(cmd.Context(), args[0], contextMax)
	if err != nil {
		return fmt.Errorf("building context: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), cm)
	}

	out := cmd.OutOrStdout()
	if cm.Total() == 0 {
		fmt.Fprintf(out, "No memories found for topic: %s\n", args[0])
		return nil
	}
	for _, b := range []struct {
		name  string
		items []memory.ScoredMemory
	}{
		{memory.BucketBusiness, cm.Business},
		{memory.BucketCustomer, cm.Customer},
		{memory.BucketEmergency, cm.Emergency},
		{memory.BucketGeneral, cm.General},
	} {
		if len(b.items) == 0 {
			continue
		}
		fmt.Fprintf(out, "== %s (%d)\n", b.name, len(b.items))
		printScored(out, b.items)
		fmt.Fprintln(out)
	}
	return nil
}

// NewCleanupCmd creates the cleanup command.
func NewCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired medium and low importance memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.engine.RunCleanup(cmd.Context())
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d, deleted %d, kept %d, failed %d (%s)\n",
				report.Scanned, report.Deleted, report.Kept, report.Failed, report.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile memories with other devices",
		Long: `Without flags, push pending local writes and pull from every known device.

Examples:
  vengeance sync
  vengeance sync --device laptop --since 2026-06-01T00:00:00Z
  vengeance sync --history --device laptop`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}
	cmd.Flags().StringVar(&syncDevice, "device", "", "Sync a single device")
	cmd.Flags().StringVar(&syncSince, "since", "", "RFC 3339 time to sync from (default: last completed sync)")
	cmd.Flags().BoolVar(&syncHistory, "history", false, "Show the sync log instead of syncing")
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	var since *time.Time
	if syncSince != "" {
		t, err := time.Parse(time.RFC3339, syncSince)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		since = &t
	}
	if since != nil && syncDevice == "" {
		return fmt.Errorf("--since requires --device")
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case syncHistory:
		entries, err := a.engine.Sync().History(ctx, syncDevice, 50)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return writeJSON(out, entries)
		}
		w := newTable(out)
		fmt.Fprintln(w, "TIME\tDEVICE\tOP\tMEMORY\tSTATUS\tRESOLUTION")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339),
				e.DeviceID, e.Operation, e.MemoryID, e.Status, e.ConflictResolution)
		}
		return w.Flush()

	case syncDevice != "":
		report, err := a.engine.Sync().SyncWithDevice(ctx, syncDevice, since)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return writeJSON(out, report)
		}
		fmt.Fprintf(out, "%s since %s: %d reconciled, %d rejected, %d failed\n",
			report.DeviceID, report.Since.Format(time.RFC3339), report.Reconciled, report.Rejected, report.Failed)
		return nil

	default:
		report, err := a.engine.RunSync(ctx)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return writeJSON(out, report)
		}
		fmt.Fprintf(out, "Pushed %d pending writes\n", report.Pushed)
		for _, d := range report.Devices {
			fmt.Fprintf(out, "  %s: %d reconciled, %d rejected, %d failed\n", d.DeviceID, d.Reconciled, d.Rejected, d.Failed)
		}
		return nil
	}
}

func printScored(out io.Writer, results []memory.ScoredMemory) {
	w := newTable(out)
	fmt.Fprintln(w, "SCORE\tLEVEL\tCATEGORY\tID\tCONTENT")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%d\t%s\t%s\t%s\n", r.Score, r.Item.ImportanceLevel, r.Item.Category,
			r.Item.ID, truncate(r.Item.Content, 60))
	}
	_ = w.Flush()
}
