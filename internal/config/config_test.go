package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile keeps a stray .env in the package directory out of the tests.
func noEnvFile(t *testing.T) string {
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "lectern.db", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "repos", cfg.Import.ReposDir)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "lectern.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
server:
  addr: ":9000"
  read_timeout: 5s
db:
  path: /var/lib/lectern/file.db
log:
  level: debug
`), 0o600))

	t.Setenv("LECTERN_DB_PATH", "/tmp/env.db")
	t.Setenv("LECTERN_SERVER_WRITE_TIMEOUT", "45s")

	cfg, err := Load([]string{noEnvFile(t), "--config", configPath, "--log-level", "error"})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr, "file beats flag default")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout, "env beats flag default")
	assert.Equal(t, "/tmp/env.db", cfg.DB.Path, "env beats file")
	assert.Equal(t, "error", cfg.Log.Level, "explicit flag beats file")
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LECTERN_ENV=production\nLECTERN_AUTH_COOKIE_SECURE=true\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LECTERN_ENV")
		os.Unsetenv("LECTERN_AUTH_COOKIE_SECURE")
	})

	cfg, err := Load([]string{"--env-file", envFile})
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.True(t, cfg.Auth.CookieSecure)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown environment", []string{"--env", "staging"}},
		{"short token key", []string{"--token-key", "abcd"}},
		{"bad log format", []string{"--log-format", "xml"}},
		{"import without owner", []string{"--import-timetable", "timetable.md"}},
		{"zero session ttl", []string{"--session-ttl", "0s"}},
		{"missing config file", []string{"--config", "/nonexistent/lectern.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(append([]string{noEnvFile(t)}, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.read_timeout", envKey("LECTERN_SERVER_READ_TIMEOUT"))
	assert.Equal(t, "env", envKey("LECTERN_ENV"))
	assert.Equal(t, "import.repos_dir", envKey("LECTERN_IMPORT_REPOS_DIR"))
}
