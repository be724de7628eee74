package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
telegram:
  client_token: "123:abc"
  admin_id: 42
database:
  path: "`+filepath.Join(dir, "data", "test.db")+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.ClientToken)
	assert.Equal(t, "123:abc", cfg.Telegram.OrdersToken, "orders token falls back to client token")
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 5*time.Minute, cfg.SessionCleanupInterval())
	assert.True(t, cfg.BookingAnchorNextWeek())

	// Database directory is created on load.
	_, err = os.Stat(filepath.Dir(cfg.Database.Path))
	assert.NoError(t, err)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "999:secret")
	dir := t.TempDir()
	path := writeConfig(t, `
telegram:
  client_token: "${TEST_BOT_TOKEN}"
  admin_id: 7
database:
  path: "`+filepath.Join(dir, "test.db")+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "999:secret", cfg.Telegram.ClientToken)
}

func TestLoadExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
telegram:
  client_token: "a"
  orders_token: "b"
  admin_id: 1
database:
  path: "`+filepath.Join(dir, "test.db")+`"
sessions:
  ttl_minutes: 10
  cleanup_interval_minutes: 1
booking:
  anchor_next_week: false
redis:
  enabled: true
  address: "localhost:6379"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "b", cfg.Telegram.OrdersToken)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL())
	assert.Equal(t, time.Minute, cfg.SessionCleanupInterval())
	assert.False(t, cfg.BookingAnchorNextWeek())
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadRejectsMissingRequired(t *testing.T) {
	path := writeConfig(t, `
telegram:
  admin_id: 1
`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, `
telegram:
  client_token: "x"
`)
	_, err = Load(path)
	assert.Error(t, err)
}
