package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small"},
		Index: IndexConfig{
			Address:    "localhost:19530",
			Collection: "doc_chunks",
			VectorSize: 1536,
		},
		Uploads:   UploadsConfig{Provider: "local", Dir: "storage/uploads"},
		Chunking:  ChunkingConfig{WindowSize: 400, Overlap: 100},
		Retrieval: RetrievalConfig{TopK: 4},
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	require.NoError(t, LoadConfig())
	cfg := AppConfig

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "localhost:19530", cfg.Index.Address)
	assert.Equal(t, "doc_chunks", cfg.Index.Collection)
	assert.Equal(t, 1536, cfg.Index.VectorSize)
	assert.Equal(t, "local", cfg.Uploads.Provider)
	assert.Equal(t, 400, cfg.Chunking.WindowSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Events.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "200")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("TOP_K", "8")
	t.Setenv("EMBED_MODEL", "text-embedding-3-large")
	t.Setenv("MILVUS_COLLECTION", "my_chunks")

	require.NoError(t, LoadConfig())
	cfg := AppConfig

	assert.Equal(t, 200, cfg.Chunking.WindowSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, "my_chunks", cfg.Index.Collection)
}

func TestValidateRejectsOverlapNotSmallerThanWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking.Overlap = 400
	assert.Error(t, Validate(cfg))

	cfg.Chunking.Overlap = 500
	assert.Error(t, Validate(cfg))

	cfg.Chunking.Overlap = 399
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsStructuralErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking.WindowSize = 0
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.Retrieval.TopK = 0
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.Uploads.Provider = "ftp"
	assert.Error(t, Validate(cfg))
}

func TestLoadConfigRejectsInvalidChunking(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	assert.Error(t, LoadConfig())
}
