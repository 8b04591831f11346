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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"8081\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 20, cfg.Search.MaxLimit)
	assert.Equal(t, 200, cfg.Search.CandidateLimit)
	assert.InDelta(t, 0.4, cfg.Search.RelevanceThreshold, 1e-9)
	assert.Equal(t, 10*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, "memory", cfg.Search.CacheBackend)
	assert.Equal(t, 3, cfg.Wikipedia.ResultLimit)
	assert.Equal(t, 10, cfg.RateLimit.AISearchPerMinute)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
search:
  relevance_threshold: 0.55
  cache_ttl: 30s
  cache_backend: redis
embedding:
  model: test-model
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.55, cfg.Search.RelevanceThreshold, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Search.CacheTTL)
	assert.Equal(t, "redis", cfg.Search.CacheBackend)
	assert.Equal(t, "test-model", cfg.Embedding.Model)
	// 未在文件中出现的键仍使用默认值
	assert.Equal(t, 8, cfg.Search.EmbedWorkers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
