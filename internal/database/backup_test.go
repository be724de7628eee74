package database

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "booking.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("payload"), 0o644))

	logger := zerolog.New(io.Discard)
	s := NewBackupService(dbPath, BackupConfig{StoragePath: filepath.Join(dir, "backups")}, &logger)
	s.now = func() time.Time { return time.Date(2026, 1, 14, 3, 0, 0, 0, time.UTC) }

	require.NoError(t, s.PerformBackup())

	data, err := os.ReadFile(filepath.Join(dir, "backups", "backup_20260114_030000.db"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(storage, 0o755))

	oldFile := filepath.Join(storage, "backup_old.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	freshFile := filepath.Join(storage, "backup_fresh.db")
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0o644))

	logger := zerolog.New(io.Discard)
	s := NewBackupService(filepath.Join(dir, "booking.db"), BackupConfig{
		StoragePath:   storage,
		RetentionDays: 7,
	}, &logger)

	s.CleanupOldBackups()

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err), "old backup should be removed")
	_, err = os.Stat(freshFile)
	assert.NoError(t, err, "fresh backup should remain")
}

func TestCleanupDisabledWithoutRetention(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(storage, 0o755))

	oldFile := filepath.Join(storage, "backup_old.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -100)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	logger := zerolog.New(io.Discard)
	s := NewBackupService(filepath.Join(dir, "booking.db"), BackupConfig{StoragePath: storage}, &logger)
	s.CleanupOldBackups()

	_, err := os.Stat(oldFile)
	assert.NoError(t, err)
}
