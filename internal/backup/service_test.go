package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage/sqlite"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

func seedStore(t *testing.T, path, content string) {
	t.Helper()
	store, err := sqlite.NewStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.UpsertMemory(context.Background(), &types.MemoryItem{
		ID:              "mem_" + content,
		Content:         content,
		Category:        types.MemoryCategoryBusiness,
		ImportanceLevel: types.ImportanceHigh,
		RetentionDays:   30,
		Vector:          []float32{1, 0},
		DeviceID:        "local",
		CreatedAt:       time.Now().UTC(),
	}))
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "vengeance.db")
	seedStore(t, dbPath, "first")

	svc, err := NewService(Config{
		DBPath:        dbPath,
		BackupDir:     filepath.Join(dir, "backups"),
		VerifyBackups: true,
	})
	require.NoError(t, err)
	return svc, dbPath
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(Config{BackupDir: t.TempDir()})
	assert.Error(t, err)
	_, err = NewService(Config{DBPath: "x.db"})
	assert.Error(t, err)

	svc, err := NewService(Config{DBPath: "x.db", BackupDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DefaultRetention(), svc.retention)
}

func TestBackupNowWritesVerifiedSnapshot(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.BackupNow(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Positive(t, res.Size)
	assert.FileExists(t, res.Path)

	backups, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	st, err := svc.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalBackups)
	assert.Equal(t, res.Size, st.DiskSpaceUsed)
	assert.False(t, st.LastBackup.IsZero())
}

func TestBackupNowMissingDatabase(t *testing.T) {
	svc, err := NewService(Config{DBPath: filepath.Join(t.TempDir(), "missing.db"), BackupDir: t.TempDir()})
	require.NoError(t, err)
	_, err = svc.BackupNow(context.Background())
	assert.Error(t, err)
}

func TestRestoreBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, dbPath := newTestService(t)

	res, err := svc.BackupNow(ctx)
	require.NoError(t, err)

	seedStore(t, dbPath, "second")
	require.NoError(t, svc.RestoreBackup(ctx, res.Path))
	assert.FileExists(t, dbPath+".pre-restore")

	store, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.GetMemory(ctx, "mem_first")
	assert.NoError(t, err)
	_, err = store.GetMemory(ctx, "mem_second")
	assert.Error(t, err)
}

func TestRestoreCorruptBackupLeavesDatabase(t *testing.T) {
	ctx := context.Background()
	svc, dbPath := newTestService(t)

	bad := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, os.WriteFile(bad, []byte("definitely not sqlite"), 0o600))

	err := svc.RestoreBackup(ctx, bad)
	require.Error(t, err)

	store, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	_, err = store.GetMemory(ctx, "mem_first")
	assert.NoError(t, err)
}

func TestRunIsBackupNow(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Run(context.Background()))
	backups, err := svc.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
