package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// backupSQLite writes a consistent copy of the database at sourcePath to
// destPath using VACUUM INTO, which is safe against a live WAL-mode writer.
func backupSQLite(ctx context.Context, sourcePath, destPath string) error {
	sourceDB, err := sql.Open("sqlite", sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer func() { _ = sourceDB.Close() }()

	if err := sourceDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping source database: %w", err)
	}

	dest := strings.ReplaceAll(destPath, "'", "''")
	if _, err := sourceDB.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return fmt.Errorf("failed to backup database: %w", err)
	}
	return nil
}

// verifyBackup runs PRAGMA integrity_check against a backup file.
func verifyBackup(ctx context.Context, backupPath string) error {
	db, err := sql.Open("sqlite", backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	var tables int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('sticky_notes', 'processed_sources', 'memory_items')`,
	).Scan(&tables); err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if tables != 3 {
		return fmt.Errorf("backup is missing core tables")
	}
	return nil
}

// restoreSQLite replaces targetPath with a verified backup. The image is
// staged next to the target and renamed into place, so a failed copy leaves
// the original untouched. The target database must not be open.
func restoreSQLite(ctx context.Context, backupPath, targetPath string) error {
	if err := verifyBackup(ctx, backupPath); err != nil {
		return fmt.Errorf("backup verification failed: %w", err)
	}

	staged := targetPath + ".restore"
	if err := copyFile(backupPath, staged); err != nil {
		_ = os.Remove(staged)
		return err
	}
	if err := verifyBackup(ctx, staged); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("staged restore verification failed: %w", err)
	}

	// Stale WAL files would be replayed over the restored image.
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(targetPath + suffix)
	}
	if err := os.Rename(staged, targetPath); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("failed to move restored database into place: %w", err)
	}
	return nil
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(to, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", to, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy backup: %w", err)
	}
	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to sync %s: %w", to, err)
	}
	return dst.Close()
}
