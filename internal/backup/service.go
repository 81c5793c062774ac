package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Service takes verified SQLite snapshots and prunes old ones.
type Service struct {
	dbPath        string
	backupDir     string
	retention     RetentionPolicy
	verifyBackups bool
	now           func() time.Time

	mu sync.Mutex // serialises snapshots
}

// NewService creates a backup service. Zero retention tiers take defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.BackupDir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}

	def := DefaultRetention()
	if cfg.Retention.Hourly == 0 {
		cfg.Retention.Hourly = def.Hourly
	}
	if cfg.Retention.Daily == 0 {
		cfg.Retention.Daily = def.Daily
	}
	if cfg.Retention.Weekly == 0 {
		cfg.Retention.Weekly = def.Weekly
	}
	if cfg.Retention.Monthly == 0 {
		cfg.Retention.Monthly = def.Monthly
	}

	if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &Service{
		dbPath:        cfg.DBPath,
		backupDir:     cfg.BackupDir,
		retention:     cfg.Retention,
		verifyBackups: cfg.VerifyBackups,
		now:           time.Now,
	}, nil
}

// BackupNow writes a timestamped snapshot, verifies it when enabled and
// applies the retention policy. A snapshot that fails verification is removed.
func (s *Service) BackupNow(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if _, err := os.Stat(s.dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}

	// Microseconds keep names unique across back-to-back runs
	name := fmt.Sprintf("vengeance-%s.db", s.now().UTC().Format("20060102-150405.000000"))
	path := filepath.Join(s.backupDir, name)

	if err := backupSQLite(ctx, s.dbPath, path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}
	result := &Result{Path: path, Size: info.Size()}

	if s.verifyBackups {
		if err := verifyBackup(ctx, path); err != nil {
			_ = os.Remove(path)
			return nil, fmt.Errorf("backup verification failed: %w", err)
		}
		result.Verified = true
	}

	pruned, err := applyRetention(s.backupDir, s.retention, s.now())
	if err != nil {
		log.Printf("backup: retention incomplete: %v", err)
	}
	result.Pruned = pruned
	result.Duration = time.Since(start)

	log.Printf("backup: wrote %s (%d bytes, verified=%v, pruned=%d) in %v",
		filepath.Base(path), result.Size, result.Verified, result.Pruned, result.Duration)
	return result, nil
}

// Run is the scheduled job form of BackupNow.
func (s *Service) Run(ctx context.Context) error {
	_, err := s.BackupNow(ctx)
	return err
}

// ListBackups lists all available backups, newest first.
func (s *Service) ListBackups() ([]Info, error) {
	return listBackups(s.backupDir)
}

// RestoreBackup replaces the database with a backup. The store must be
// closed. The current database is first snapshotted to <db>.pre-restore so a
// restore can be undone by hand; a failed restore leaves the database as it was.
func (s *Service) RestoreBackup(ctx context.Context, backupPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup not found: %w", err)
	}

	if _, err := os.Stat(s.dbPath); err == nil {
		undo := s.dbPath + ".pre-restore"
		_ = os.Remove(undo)
		if err := backupSQLite(ctx, s.dbPath, undo); err != nil {
			return fmt.Errorf("failed to create pre-restore backup: %w", err)
		}
	}

	if err := restoreSQLite(ctx, backupPath, s.dbPath); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	log.Printf("backup: database restored from %s", backupPath)
	return nil
}

// Status summarizes the backup directory.
func (s *Service) Status() (*Status, error) {
	backups, err := s.ListBackups()
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	st := &Status{
		TotalBackups:  len(backups),
		BackupDir:     s.backupDir,
		DiskSpaceUsed: calculateDiskUsage(backups),
	}
	if len(backups) > 0 {
		st.LastBackup = backups[0].Timestamp
	}
	return st, nil
}
