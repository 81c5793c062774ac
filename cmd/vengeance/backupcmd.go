package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/backup"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/config"
)

// NewBackupCmd creates the backup command group. Backups work on the SQLite
// file directly and never open the engine.
func NewBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot, list and restore the SQLite database",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "now",
			Short: "Take a snapshot and apply retention",
			Args:  cobra.NoArgs,
			RunE: withBackup(func(svc *backup.Service, cmd *cobra.Command, args []string) error {
				res, err := svc.BackupNow(cmd.Context())
				if err != nil {
					return err
				}
				if outputFormat == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s (%d bytes, verified=%t, pruned %d) in %s\n",
					res.Path, res.Size, res.Verified, res.Pruned, res.Duration.Round(time.Millisecond))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List snapshots, newest first",
			Args:  cobra.NoArgs,
			RunE: withBackup(func(svc *backup.Service, cmd *cobra.Command, args []string) error {
				infos, err := svc.ListBackups()
				if err != nil {
					return err
				}
				if outputFormat == "json" {
					return writeJSON(cmd.OutOrStdout(), infos)
				}
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "TIME\tSIZE\tPATH")
				for _, b := range infos {
					fmt.Fprintf(w, "%s\t%d\t%s\n", b.Timestamp.Format(time.RFC3339), b.Size, b.Path)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show backup directory status",
			Args:  cobra.NoArgs,
			RunE: withBackup(func(svc *backup.Service, cmd *cobra.Command, args []string) error {
				st, err := svc.Status()
				if err != nil {
					return err
				}
				if outputFormat == "json" {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Directory: %s\nBackups: %d\nDisk used: %d bytes\n",
					st.BackupDir, st.TotalBackups, st.DiskSpaceUsed)
				if !st.LastBackup.IsZero() {
					fmt.Fprintf(cmd.OutOrStdout(), "Last backup: %s\n", st.LastBackup.Format(time.RFC3339))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "restore <backup-file>",
			Short: "Replace the database with a snapshot (stop serve first)",
			Args:  cobra.ExactArgs(1),
			RunE: withBackup(func(svc *backup.Service, cmd *cobra.Command, args []string) error {
				if err := svc.RestoreBackup(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Database restored from %s\n", args[0])
				return nil
			}),
		},
	)
	return cmd
}

func withBackup(fn func(*backup.Service, *cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage.StorageEngine != "sqlite" {
			return fmt.Errorf("backups are only supported for the sqlite engine")
		}
		svc, err := newBackupService(cfg, filepath.Join(cfg.Storage.DataPath, dbFileName))
		if err != nil {
			return err
		}
		return fn(svc, cmd, args)
	}
}
