package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 500, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap)
	assert.Equal(t, 3, cfg.Retrieve.CorrectionsTopK)
	assert.Equal(t, 30, cfg.Tuning.WindowDays)
	assert.Equal(t, 0.3, cfg.Tuning.MinConfidence)
	assert.Equal(t, []string{"**/*.md"}, cfg.Ingest.Includes)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "supportrag.yaml")

	content := `
embedding:
  provider: hash
  dimension: 64
  cache_ttl: 30s
chunk:
  size: 300
retrieve:
  top_k: 8
rerank:
  enabled: true
  provider: term
  diversity: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Embedding.Dimension)
	assert.Equal(t, 30*time.Second, cfg.Embedding.CacheTTL)
	assert.Equal(t, 300, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap, "unset fields keep defaults")
	assert.Equal(t, 8, cfg.Retrieve.TopK)
	assert.True(t, cfg.Rerank.Enabled)
	assert.True(t, cfg.Rerank.Diversity)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap not below size", "chunk:\n  size: 50\n  overlap: 50\n"},
		{"unknown embedding provider", "embedding:\n  provider: voyage\n"},
		{"unknown rerank provider", "rerank:\n  provider: llm\n"},
		{"zero top_k", "retrieve:\n  top_k: 0\n"},
		{"malformed yaml", "chunk: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "supportrag.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadFromDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retrieve.TopK)

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, DataDirName), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DataDirName, "config.yaml"), []byte("retrieve:\n  top_k: 7\n"), 0644))
	cfg, err = LoadFromDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retrieve.TopK)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "supportrag.yaml"), []byte("retrieve:\n  top_k: 9\n"), 0644))
	cfg, err = LoadFromDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Retrieve.TopK, "root file wins")
}

func TestLoadEnv(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, LoadEnv(tmpDir), "missing .env is not an error")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("SUPPORTRAG_TEST_KEY=from-dotenv\n"), 0644))
	t.Setenv("SUPPORTRAG_TEST_KEY", "")
	os.Unsetenv("SUPPORTRAG_TEST_KEY")
	require.NoError(t, LoadEnv(tmpDir))
	assert.Equal(t, "from-dotenv", os.Getenv("SUPPORTRAG_TEST_KEY"))
}

func TestDBPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/project", DataDirName, "engine.db"), cfg.DBPath("/project"))

	cfg.Storage.DBFile = "/var/lib/supportrag.db"
	assert.Equal(t, "/var/lib/supportrag.db", cfg.DBPath("/project"))

	dir := t.TempDir()
	cfg = DefaultConfig()
	require.NoError(t, cfg.EnsureDataDir(dir))
	info, err := os.Stat(filepath.Join(dir, DataDirName))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
