package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/engine"
)

var (
	processSourceType   string
	processSourceID     string
	processCompany      string
	processContactEmail string
	processContactName  string
)

// NewProcessCmd creates the process command.
func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [text]",
		Short: "Detect opportunities in one piece of text",
		Long: `Run a single input through opportunity detection.

The text is read from the argument, or from stdin when it is omitted or "-".
Processing the same source and content twice is a no-op.

Examples:
  vengeance process --source-type chat --source-id msg-42 "We are raising $6M"
  cat thread.txt | vengeance process --source-type email --source-id t-9 --company "BillCo Inc"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().StringVar(&processSourceType, "source-type", "chat", "Source type (chat, email, crm_note, ...)")
	cmd.Flags().StringVar(&processSourceID, "source-id", "", "Identifier within the source system (required)")
	cmd.Flags().StringVar(&processCompany, "company", "", "Company the text is about")
	cmd.Flags().StringVar(&processContactEmail, "contact-email", "", "Contact email for the relationship lookup")
	cmd.Flags().StringVar(&processContactName, "contact-name", "", "Contact name")
	_ = cmd.MarkFlagRequired("source-id")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	content, err := readContent(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	meta := map[string]interface{}{}
	if processCompany != "" {
		meta[engine.MetaCompany] = processCompany
	}
	if processContactEmail != "" {
		meta[engine.MetaContactEmail] = processContactEmail
	}
	if processContactName != "" {
		meta[engine.MetaContactName] = processContactName
	}

	res, err := a.engine.ProcessInput(cmd.Context(), engine.Input{
		SourceType: processSourceType,
		SourceID:   processSourceID,
		Content:    content,
		Metadata:   meta,
	})
	if err != nil {
		return fmt.Errorf("processing input: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), res)
	}

	out := cmd.OutOrStdout()
	if res.StickyCount == 0 {
		fmt.Fprintf(out, "No sticky notes (%s)\n", res.Reason)
		return nil
	}
	fmt.Fprintf(out, "%d sticky note(s):\n\n", res.StickyCount)
	printStickies(out, res.Stickies)
	return nil
}

// readContent returns the single argument, or stdin when it is absent or "-".
func readContent(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
