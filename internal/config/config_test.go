package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "https://gay.xtapes.in", cfg.Site.BaseURL)
	require.Equal(t, []string{"74k.io", "88z.io"}, cfg.Site.EmbedHosts)
	require.Equal(t, ".mp4", cfg.Site.MediaExtension)
	require.True(t, cfg.Site.UseSeedOnEmpty)
	require.Equal(t, 2000, cfg.Crawl.PageDelayMs)
	require.Equal(t, 3000, cfg.Crawl.VideoDelayMs)
	require.Equal(t, 5000, cfg.Crawl.StudioDelayMs)
	require.Equal(t, 3, cfg.HTTP.MaxAttempts)
	require.Equal(t, 15*time.Second, cfg.FetchTimeout())
	require.Equal(t, 2*time.Second, cfg.BackoffBase())
	require.Equal(t, "memory", cfg.DB.Provider)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
crawl:
  max_studios: 2
db:
  provider: postgres
  dsn: postgres://localhost/catalog
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, 2, cfg.Crawl.MaxStudios)
	require.Equal(t, "postgres", cfg.DB.Provider)
}

func TestValidateRejectsPostgresWithoutDSN(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.DB.Provider = "postgres"
	cfg.DB.DSN = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsAuthWithoutKey(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsGCSWithoutBucket(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Archive.Provider = "gcs"
	require.Error(t, cfg.Validate())
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
