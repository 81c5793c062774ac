package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"VENGEANCE_STORAGE_ENGINE", "VENGEANCE_DATA_PATH", "VENGEANCE_VECTOR_DIMENSIONS",
		"VENGEANCE_ACCEPTANCE_THRESHOLD", "VENGEANCE_CLEANUP_MAX_AGE", "VENGEANCE_CONFIG_FILE",
	} {
		_ = os.Unsetenv(key)
	}

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.StorageEngine)
	assert.Equal(t, "./data", cfg.Storage.DataPath)
	assert.Equal(t, 384, cfg.Engine.VectorDimensions)
	assert.Equal(t, 0.5, cfg.Engine.AcceptanceThreshold)
	assert.Equal(t, 30*24*time.Hour, cfg.Engine.CleanupMaxAge)
	assert.Equal(t, "@every 5m", cfg.Engine.SyncSchedule)
	assert.NotEmpty(t, cfg.Engine.DeviceID)
	assert.True(t, cfg.Notify.EventsEnabled)
	assert.Empty(t, cfg.Vocabulary.HesitationMarker)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("VENGEANCE_VECTOR_DIMENSIONS", "128")
	t.Setenv("VENGEANCE_ACCEPTANCE_THRESHOLD", "0.65")
	t.Setenv("VENGEANCE_CLEANUP_MAX_AGE", "48h")
	t.Setenv("VENGEANCE_CRM_URL", "https://crm.example.com/api")
	t.Setenv("VENGEANCE_BACKUP_ENABLED", "YES")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Engine.VectorDimensions)
	assert.Equal(t, 0.65, cfg.Engine.AcceptanceThreshold)
	assert.Equal(t, 48*time.Hour, cfg.Engine.CleanupMaxAge)
	assert.Equal(t, "https://crm.example.com/api", cfg.CRM.BaseURL)
	assert.True(t, cfg.Backup.BackupEnabled)
}

func TestLoadConfig_UnparseableValuesFallBack(t *testing.T) {
	t.Setenv("VENGEANCE_VECTOR_DIMENSIONS", "lots")
	t.Setenv("VENGEANCE_CLEANUP_MAX_AGE", "a month")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 384, cfg.Engine.VectorDimensions)
	assert.Equal(t, 30*24*time.Hour, cfg.Engine.CleanupMaxAge)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	t.Run("threshold", func(t *testing.T) {
		t.Setenv("VENGEANCE_ACCEPTANCE_THRESHOLD", "1.5")
		_, err := config.LoadConfig()
		assert.Error(t, err)
	})
	t.Run("engine", func(t *testing.T) {
		t.Setenv("VENGEANCE_STORAGE_ENGINE", "mongodb")
		_, err := config.LoadConfig()
		assert.Error(t, err)
	})
	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("VENGEANCE_STORAGE_ENGINE", "postgres")
		t.Setenv("VENGEANCE_POSTGRES_DSN", "")
		_, err := config.LoadConfig()
		assert.Error(t, err)
	})
}

func TestLoadConfig_VocabularyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hesitation_marker: " ooh "
positive_phrases:
  - could work
  - worth a call
enterprise_keywords: [inc, gmbh, plc]
`), 0o600))
	t.Setenv("VENGEANCE_CONFIG_FILE", path)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ooh", cfg.Vocabulary.HesitationMarker)
	assert.Equal(t, []string{"could work", "worth a call"}, cfg.Vocabulary.PositivePhrases)
	assert.Equal(t, []string{"inc", "gmbh", "plc"}, cfg.Vocabulary.EnterpriseKeywords)
}

func TestLoadConfig_VocabularyFileErrors(t *testing.T) {
	t.Setenv("VENGEANCE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := config.LoadConfig()
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("positive_phrases: {nope"), 0o600))
	_, err = config.LoadVocabulary(bad)
	assert.Error(t, err)
}
