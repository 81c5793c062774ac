package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var shutdownTimeout time.Duration

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background cleanup, sync and backup jobs",
		Long: `Start the engine and run its scheduled jobs until interrupted.

Schedules come from VENGEANCE_CLEANUP_SCHEDULE, VENGEANCE_SYNC_SCHEDULE and,
when VENGEANCE_BACKUP_ENABLED is set, VENGEANCE_BACKUP_SCHEDULE.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "How long to wait for running jobs on shutdown")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.engine.Start(ctx); err != nil {
		return err
	}
	log.Printf("serving (device %s, data %s)", a.cfg.Engine.DeviceID, a.cfg.Storage.DataPath)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.engine.Shutdown(shutdownCtx)
}
