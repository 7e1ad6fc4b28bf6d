package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_MergesEnvironmentOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: ":9000"
db:
  host: db.internal
  port: 5432
  password: ${DB_SECRET}
  slow_query_threshold: 250ms
storage:
  driver: postgres
schedule:
  locale: it
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: staging-db
schedule:
  strict_not_found: true
`)
	writeFile(t, dir, "secrets.env", `
# comment
DB_SECRET="s3cret"
`)

	cfg, err := Load("staging", dir)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, "staging-db", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "s3cret", cfg.DB.Password)
	assert.Equal(t, 250*time.Millisecond, cfg.DB.SlowQueryThreshold)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.True(t, cfg.Schedule.StrictNotFound)

	// untouched sections keep their defaults
	assert.Equal(t, "gantt_tasks_", cfg.Storage.KeyPrefix)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
}

func TestLoad_SystemEnvWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "storage:\n  driver: file\n")
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("SCHEDULE_LOCALE", "en")

	cfg, err := Load("local", dir)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "en", cfg.Schedule.Locale)
}

func TestLoad_MissingBase(t *testing.T) {
	_, err := Load("local", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSubstituteString(t *testing.T) {
	t.Setenv("FROM_OS", "os-value")
	env := map[string]string{"A": "1"}

	assert.Equal(t, "x-1-os-value", substituteString("x-${A}-${FROM_OS}", env))
	assert.Equal(t, "${UNDEFINED_VAR_FOR_TEST}", substituteString("${UNDEFINED_VAR_FOR_TEST}", env))
	assert.Equal(t, "plain", substituteString("plain", env))
}

func TestMergeMaps_Nested(t *testing.T) {
	dst := map[string]interface{}{
		"db": map[string]interface{}{"host": "a", "port": 1},
		"x":  "keep",
	}
	src := map[string]interface{}{
		"db": map[string]interface{}{"host": "b"},
	}

	merged := mergeMaps(dst, src)
	assert.Equal(t, map[string]interface{}{"host": "b", "port": 1}, merged["db"])
	assert.Equal(t, "keep", merged["x"])
}
