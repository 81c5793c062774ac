// Package config provides configuration management for Vengeance.
// It loads settings from environment variables with the VENGEANCE_ prefix
// and provides sensible defaults for all configuration options.
//
// An optional YAML file named by VENGEANCE_CONFIG_FILE overrides the
// detection vocabulary (hesitation marker, positive phrases and enterprise
// keywords).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/attribution"
)

// Config holds all configuration settings for the Vengeance application.
type Config struct {
	Storage    StorageConfig
	Engine     EngineConfig
	CRM        CRMConfig
	Backup     BackupConfig
	Notify     NotifyConfig
	Vocabulary VocabularyConfig
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite or postgres (default: sqlite)
	DataPath      string // Path to data directory (default: ./data)
	PostgresDSN   string // Connection string when StorageEngine is postgres
}

// EngineConfig contains detection, memory and scheduling settings.
type EngineConfig struct {
	DeviceID            string        // Local device id (default: detected)
	VectorDimensions    int           // Embedding size (default: 384)
	HotCacheCost        int64         // Hot cache budget (default: 1000)
	AcceptanceThreshold float64       // Minimum sticky confidence (default: 0.5)
	CleanupMaxAge       time.Duration // Minimum age before cleanup (default: 720h)
	SyncQueueSize       int           // Pending write queue bound (default: 1024)
	CleanupSchedule     string        // Cron spec (default: @every 1h)
	SyncSchedule        string        // Cron spec (default: @every 5m)
	BackupSchedule      string        // Cron spec (default: @every 24h)
}

// CRMConfig contains the relationship strength collaborator settings.
// The lookup is disabled when BaseURL is empty.
type CRMConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration // default: 5s
	RequestsPerSecond float64       // default: 5
}

// BackupConfig contains backup configuration.
type BackupConfig struct {
	BackupEnabled          bool   // Enable scheduled backups (default: false)
	BackupPath             string // Path to backup directory (default: ./backups)
	BackupVerify           bool   // Verify backups after creation (default: true)
	BackupRetentionHourly  int    // Number of hourly backups to keep (default: 24)
	BackupRetentionDaily   int    // Number of daily backups to keep (default: 7)
	BackupRetentionWeekly  int    // Number of weekly backups to keep (default: 4)
	BackupRetentionMonthly int    // Number of monthly backups to keep (default: 12)
}

// NotifyConfig controls the event file drop.
type NotifyConfig struct {
	EventsEnabled bool // Write *.event files under DataPath/events (default: true)
}

// VocabularyConfig overrides the extractor and adjuster word lists.
// Empty values keep the built-in defaults.
type VocabularyConfig struct {
	HesitationMarker   string   `yaml:"hesitation_marker"`
	PositivePhrases    []string `yaml:"positive_phrases"`
	EnterpriseKeywords []string `yaml:"enterprise_keywords"`
}

// LoadConfig loads configuration from environment variables with sensible
// defaults, applies the optional vocabulary file and validates the result.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()

	if path := getEnv("VENGEANCE_CONFIG_FILE", ""); path != "" {
		vocab, err := LoadVocabulary(path)
		if err != nil {
			return nil, err
		}
		cfg.Vocabulary = *vocab
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadVocabulary reads a YAML vocabulary file.
func LoadVocabulary(path string) (*VocabularyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	var vocab VocabularyConfig
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	vocab.HesitationMarker = strings.TrimSpace(vocab.HesitationMarker)
	return &vocab, nil
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: VENGEANCE_POSTGRES_DSN is required for the postgres engine")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.StorageEngine)
	}
	if c.Engine.VectorDimensions < 1 {
		return fmt.Errorf("config: vector dimensions must be >= 1, got %d", c.Engine.VectorDimensions)
	}
	if c.Engine.HotCacheCost < 1 {
		return fmt.Errorf("config: hot cache size must be >= 1, got %d", c.Engine.HotCacheCost)
	}
	if c.Engine.AcceptanceThreshold < 0 || c.Engine.AcceptanceThreshold > 1 {
		return fmt.Errorf("config: acceptance threshold must be within [0, 1], got %v", c.Engine.AcceptanceThreshold)
	}
	if c.Engine.SyncQueueSize < 1 {
		return fmt.Errorf("config: sync queue size must be >= 1, got %d", c.Engine.SyncQueueSize)
	}
	if c.CRM.RequestsPerSecond < 0 {
		return fmt.Errorf("config: CRM rate must be >= 0, got %v", c.CRM.RequestsPerSecond)
	}
	for name, n := range map[string]int{
		"hourly":  c.Backup.BackupRetentionHourly,
		"daily":   c.Backup.BackupRetentionDaily,
		"weekly":  c.Backup.BackupRetentionWeekly,
		"monthly": c.Backup.BackupRetentionMonthly,
	} {
		if n < 0 {
			return fmt.Errorf("config: %s backup retention must be >= 0, got %d", name, n)
		}
	}
	return nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			StorageEngine: getEnv("VENGEANCE_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("VENGEANCE_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("VENGEANCE_POSTGRES_DSN", ""),
		},
		Engine: EngineConfig{
			DeviceID:            attribution.DetectDevice(),
			VectorDimensions:    getEnvInt("VENGEANCE_VECTOR_DIMENSIONS", 384),
			HotCacheCost:        int64(getEnvInt("VENGEANCE_HOT_CACHE_SIZE", 1000)),
			AcceptanceThreshold: getEnvFloat("VENGEANCE_ACCEPTANCE_THRESHOLD", 0.5),
			CleanupMaxAge:       getEnvDuration("VENGEANCE_CLEANUP_MAX_AGE", 30*24*time.Hour),
			SyncQueueSize:       getEnvInt("VENGEANCE_SYNC_QUEUE_SIZE", 1024),
			CleanupSchedule:     getEnv("VENGEANCE_CLEANUP_SCHEDULE", "@every 1h"),
			SyncSchedule:        getEnv("VENGEANCE_SYNC_SCHEDULE", "@every 5m"),
			BackupSchedule:      getEnv("VENGEANCE_BACKUP_SCHEDULE", "@every 24h"),
		},
		CRM: CRMConfig{
			BaseURL:           getEnv("VENGEANCE_CRM_URL", ""),
			Token:             getEnv("VENGEANCE_CRM_TOKEN", ""),
			Timeout:           getEnvDuration("VENGEANCE_CRM_TIMEOUT", 5*time.Second),
			RequestsPerSecond: getEnvFloat("VENGEANCE_CRM_RATE", 5),
		},
		Backup: BackupConfig{
			BackupEnabled:          getEnvBool("VENGEANCE_BACKUP_ENABLED", false),
			BackupPath:             getEnv("VENGEANCE_BACKUP_PATH", "./backups"),
			BackupVerify:           getEnvBool("VENGEANCE_BACKUP_VERIFY", true),
			BackupRetentionHourly:  getEnvInt("VENGEANCE_BACKUP_RETENTION_HOURLY", 24),
			BackupRetentionDaily:   getEnvInt("VENGEANCE_BACKUP_RETENTION_DAILY", 7),
			BackupRetentionWeekly:  getEnvInt("VENGEANCE_BACKUP_RETENTION_WEEKLY", 4),
			BackupRetentionMonthly: getEnvInt("VENGEANCE_BACKUP_RETENTION_MONTHLY", 12),
		},
		Notify: NotifyConfig{
			EventsEnabled: getEnvBool("VENGEANCE_EVENTS_ENABLED", true),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable ("90s", "720h")
// or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
// If the environment variable exists but cannot be parsed as a boolean,
// it returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}
