package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// listBackups lists all backup files in the backup directory, newest first.
func listBackups(backupDir string) ([]Info, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // Skip files we can't stat
		}
		backups = append(backups, Info{
			Path:      filepath.Join(backupDir, entry.Name()),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// applyRetention removes backups beyond each tier's quota as of now and
// returns how many were removed. Deletion continues past individual failures.
func applyRetention(backupDir string, policy RetentionPolicy, now time.Time) (int, error) {
	backups, err := listBackups(backupDir)
	if err != nil {
		return 0, err
	}

	var (
		toDelete []string
		tiers    [4][]Info
	)
	for _, b := range backups {
		age := now.Sub(b.Timestamp)
		switch {
		case age < 24*time.Hour:
			tiers[0] = append(tiers[0], b)
		case age < 7*24*time.Hour:
			tiers[1] = append(tiers[1], b)
		case age < 30*24*time.Hour:
			tiers[2] = append(tiers[2], b)
		case age < 365*24*time.Hour:
			tiers[3] = append(tiers[3], b)
		default:
			toDelete = append(toDelete, b.Path)
		}
	}

	quotas := [4]int{policy.Hourly, policy.Daily, policy.Weekly, policy.Monthly}
	for i, tier := range tiers {
		if len(tier) > quotas[i] {
			for _, b := range tier[quotas[i]:] {
				toDelete = append(toDelete, b.Path)
			}
		}
	}

	var (
		removed int
		lastErr error
	)
	for _, path := range toDelete {
		if err := os.Remove(path); err != nil {
			lastErr = err
			continue
		}
		removed++
	}
	if lastErr != nil {
		return removed, fmt.Errorf("failed to delete some backups: %w", lastErr)
	}
	return removed, nil
}

// calculateDiskUsage calculates total bytes used by all backups.
func calculateDiskUsage(backups []Info) int64 {
	var total int64
	for _, b := range backups {
		total += b.Size
	}
	return total
}
