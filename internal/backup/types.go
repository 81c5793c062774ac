// Package backup snapshots the SQLite store with tiered retention and
// integrity verification. Scheduling is left to the engine's cron.
package backup

import (
	"time"
)

// Config holds backup service configuration.
type Config struct {
	// DBPath is the path to the SQLite database file to back up
	DBPath string

	// BackupDir is the directory where backups will be stored
	BackupDir string

	// Retention defines how many backups to keep at each age tier
	Retention RetentionPolicy

	// VerifyBackups enables integrity checking after each backup
	VerifyBackups bool
}

// RetentionPolicy defines how many backups to keep at each tier.
// Backups are categorized by age:
// - Hourly: backups less than 24 hours old
// - Daily: backups between 1-7 days old
// - Weekly: backups between 7-30 days old
// - Monthly: backups between 30-365 days old
// Anything older is always removed.
type RetentionPolicy struct {
	Hourly  int // default: 24
	Daily   int // default: 7
	Weekly  int // default: 4
	Monthly int // default: 12
}

// DefaultRetention returns the default retention tiers.
func DefaultRetention() RetentionPolicy {
	return RetentionPolicy{Hourly: 24, Daily: 7, Weekly: 4, Monthly: 12}
}

// Info contains metadata about a backup file.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Result contains the result of a backup operation.
type Result struct {
	Path     string
	Duration time.Duration
	Size     int64
	Verified bool
	Pruned   int
}

// Status summarizes the backup directory.
type Status struct {
	LastBackup    time.Time
	TotalBackups  int
	BackupDir     string
	DiskSpaceUsed int64
}
