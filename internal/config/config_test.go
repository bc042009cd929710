package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 4, cfg.Pipeline.Concurrency)
	require.Equal(t, 64, cfg.Pipeline.QueueDepth)
	require.Equal(t, 10, cfg.Pipeline.MaxURLsPerTask)
	require.Equal(t, 9, cfg.Pipeline.SelectionTarget)
	require.Equal(t, 300, cfg.Pipeline.ScrapeTimeoutSeconds)
	require.Equal(t, 120, cfg.Pipeline.NormalizeTimeoutSeconds)
	require.Equal(t, "memory", cfg.Storage.Backend)
	require.Equal(t, "tasks", cfg.Storage.Prefix)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
pipeline:
  selection_target: 6
storage:
  backend: local
  local_dir: /tmp/artifacts
apify:
  token: tok_123
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 6, cfg.Pipeline.SelectionTarget)
	require.Equal(t, "local", cfg.Storage.Backend)
	require.Equal(t, "tok_123", cfg.Apify.Token)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONTENT_SERVER_PORT", "7070")
	t.Setenv("CONTENT_APIFY_TOKEN", "env-token")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "env-token", cfg.Apify.Token)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Pipeline.MaxURLsPerTask = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Backend = "s3"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Backend = "gcs"
	require.Error(t, cfg.Validate(), "gcs backend needs a bucket")
	cfg.Storage.GCSBucket = "artifacts"
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Auth.Enabled = true
	require.Error(t, cfg.Validate())
	cfg.Auth.APIKey = "key"
	require.NoError(t, cfg.Validate())
}
