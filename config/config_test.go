package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "ultrasound_reports", cfg.Store.Table)
	assert.Equal(t, int64(DefaultMaxUploadSize), cfg.Upload.MaxFileSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadInfersSupabaseBackendFromURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
store:
  url: https://example.supabase.co
  api_key: secret
`))
	require.NoError(t, err)
	assert.Equal(t, BackendSupabase, cfg.Store.Backend)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
store:
  backend: supabase
  url: https://example.supabase.co
  api_key: secret
  table: reports
upload:
  max_file_size: 1048576
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "reports", cfg.Store.Table)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxFileSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadSupabaseRequiresCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, `
store:
  backend: supabase
  url: https://example.supabase.co
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.api_key")

	_, err = Load(writeConfig(t, `
store:
  backend: supabase
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.url")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
store:
  backend: postgres
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestLoadRejectsBadPort(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  port: 70000
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
