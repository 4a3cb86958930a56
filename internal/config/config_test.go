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
	path := filepath.Join(t.TempDir(), "tarn.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads a full config", func(t *testing.T) {
		path := writeConfig(t, `
version: "1.0"
instance: vision-pipeline
redis:
  addr: localhost:6379
registries:
  artifacts: redis://localhost:6379/artifacts
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "vision-pipeline", cfg.Instance)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.Equal(t, "redis://localhost:6379/artifacts", cfg.Registries["artifacts"])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "version: [unbalanced")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *TarnConfig {
		return &TarnConfig{
			Version:  "1.0",
			Instance: "vision-pipeline",
			Redis:    RedisConfig{Addr: "localhost:6379"},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects unsupported version", func(t *testing.T) {
		cfg := valid()
		cfg.Version = "2.0"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2.0")
	})

	t.Run("requires instance name", func(t *testing.T) {
		cfg := valid()
		cfg.Instance = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unsafe instance names", func(t *testing.T) {
		cfg := valid()
		cfg.Instance = "Vision Pipeline!"
		assert.Error(t, cfg.Validate())
	})

	t.Run("requires redis addr", func(t *testing.T) {
		cfg := valid()
		cfg.Redis.Addr = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects registry URI without scheme", func(t *testing.T) {
		cfg := valid()
		cfg.Registries = map[string]string{"artifacts": "localhost:6379"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "artifacts")
	})
}
