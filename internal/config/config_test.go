package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  host: "db.internal"
  port: 5433
  name: "bangumi_test"
  user: "loader"
  password: "secret"

archive:
  dir: "/srv/bangumiArchive"

batch:
  size: 500

iteration:
  start_date: "2024-01-01"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "bangumi_test", cfg.Database.Name)
	assert.Equal(t, "loader", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)

	assert.Equal(t, "/srv/bangumiArchive", cfg.Archive.Dir)
	assert.Equal(t, 500, cfg.Batch.Size)
	assert.Equal(t, "2024-01-01", cfg.Iteration.StartDate)

	// Unset fields fall back to defaults.
	assert.Equal(t, "character.jsonlines", cfg.Archive.CharacterFile)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "bangumi", cfg.Database.Name)
	assert.Equal(t, 1000, cfg.Batch.Size)
	assert.Equal(t, "bangumiArchive", cfg.Archive.Dir)
	assert.Empty(t, cfg.Iteration.StartDate)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_PASSWORD", "env-secret")
	t.Setenv("ARCHIVE_DIR", "/tmp/archive")
	t.Setenv("DATA_START_DATE", "2023-06-15")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, "env-secret", cfg.Database.Password)
	assert.Equal(t, "/tmp/archive", cfg.Archive.Dir)
	assert.Equal(t, "2023-06-15", cfg.Iteration.StartDate)
}

func TestLoadFromEnv_BadPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")

	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "localhost", Port: 5432, Name: "bangumi", User: "postgres", Password: "postgres", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 dbname=bangumi user=postgres password=postgres sslmode=disable", cfg.DSN())
}

func TestArchiveFilePath(t *testing.T) {
	cfg := ArchiveConfig{Dir: "bangumiArchive", CharacterFile: "character.jsonlines", PersonFile: "person.jsonlines", SubjectFile: "subject.jsonlines"}

	path, err := cfg.FilePath("subject")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("bangumiArchive", "subject.jsonlines"), path)

	_, err = cfg.FilePath("episode")
	assert.Error(t, err)

	assert.Len(t, cfg.FilePaths(), 3)
}
