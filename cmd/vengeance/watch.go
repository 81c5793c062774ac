package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/config"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/notify"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print engine events as they arrive",
		Long: `Consume event files written by other vengeance processes and print them.

Each event is consumed once: files are deleted after they are read.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	watcher := notify.NewWatcher(cfg.Storage.DataPath, func(evt notify.Event) {
		if outputFormat == "json" {
			data, _ := json.Marshal(evt)
			fmt.Fprintf(out, "%s\n", data)
			return
		}
		ts := time.Unix(0, evt.Time).Format(time.RFC3339)
		switch evt.Type {
		case notify.EventStickiesGenerated:
			fmt.Fprintf(out, "%s  %d sticky note(s) from %s\n", ts, evt.Count, evt.Subject)
		default:
			fmt.Fprintf(out, "%s  %s %s (%s)\n", ts, evt.Type, evt.Subject, evt.Category)
		}
	})
	return watcher.Run(ctx)
}
