package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/sticky"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

var (
	stickiesLimit  int
	stickiesSource string
)

// NewStickiesCmd creates the stickies command group.
func NewStickiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stickies",
		Aliases: []string{"sticky"},
		Short:   "List and resolve sticky notes",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List active sticky notes, newest first",
		Long: `List active sticky notes, or every note for one source.

Examples:
  vengeance stickies list --limit 20
  vengeance stickies list --source chat/msg-42`,
		Args: cobra.NoArgs,
		RunE: runStickiesList,
	}
	list.Flags().IntVar(&stickiesLimit, "limit", 50, "Maximum notes to list")
	list.Flags().StringVar(&stickiesSource, "source", "", "Only notes from source_type/source_id")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one sticky note",
			Args:  cobra.ExactArgs(1),
			RunE: withStickies(func(f *sticky.Factory, cmd *cobra.Command, id string) (*types.StickyNote, error) {
				return f.Get(cmd.Context(), id)
			}),
		},
		&cobra.Command{
			Use:   "act <id>",
			Short: "Mark a sticky note as acted on",
			Args:  cobra.ExactArgs(1),
			RunE: withStickies(func(f *sticky.Factory, cmd *cobra.Command, id string) (*types.StickyNote, error) {
				return f.MarkActionTaken(cmd.Context(), id)
			}),
		},
		&cobra.Command{
			Use:   "dismiss <id>",
			Short: "Mark a sticky note as a false positive",
			Args:  cobra.ExactArgs(1),
			RunE: withStickies(func(f *sticky.Factory, cmd *cobra.Command, id string) (*types.StickyNote, error) {
				return f.MarkFalsePositive(cmd.Context(), id)
			}),
		},
	)
	return cmd
}

func runStickiesList(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(stickiesLimit, "limit"); err != nil {
		return err
	}

	var sourceType, sourceID string
	if stickiesSource != "" {
		var ok bool
		sourceType, sourceID, ok = strings.Cut(stickiesSource, "/")
		if !ok || sourceType == "" || sourceID == "" {
			return fmt.Errorf("--source must look like source_type/source_id, got %q", stickiesSource)
		}
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var notes []*types.StickyNote
	if sourceType != "" {
		notes, err = a.engine.Stickies().ListForSource(cmd.Context(), sourceType, sourceID)
	} else {
		notes, err = a.engine.Stickies().ListActive(cmd.Context(), stickiesLimit)
	}
	if err != nil {
		return fmt.Errorf("listing sticky notes: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), notes)
	}
	if len(notes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sticky notes")
		return nil
	}
	printStickies(cmd.OutOrStdout(), notes)
	return nil
}

// withStickies adapts a single-note operation into a RunE.
func withStickies(op func(*sticky.Factory, *cobra.Command, string) (*types.StickyNote, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		note, err := op(a.engine.Stickies(), cmd, args[0])
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), note)
		}
		printStickies(cmd.OutOrStdout(), []*types.StickyNote{note})
		return nil
	}
}

func printStickies(out io.Writer, notes []*types.StickyNote) {
	w := newTable(out)
	fmt.Fprintln(w, "ID\tCATEGORY\tCONF\tSTATUS\tFOLLOW UP\tCOMPANY\tSUMMARY")
	for _, n := range notes {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\t%s\n", n.ID, n.Category, n.ConfidenceScore, n.Status,
			n.FollowUpDate.Format("2006-01-02"), n.Company, truncate(n.ExtractedText, 60))
	}
	_ = w.Flush()
}
