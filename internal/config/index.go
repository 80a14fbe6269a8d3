package config

import (
	"fmt"
	"path/filepath"
)

// IndexConfig configures the reference-law retrieval index.
type IndexConfig struct {
	// Snapshot location: <data_dir>/<snapshot_name>
	DataDir      string `yaml:"data_dir"`
	SnapshotName string `yaml:"snapshot_name"`

	// Glob patterns selecting the reference documents
	Sources []string `yaml:"sources"`

	// Number of chunks handed to the law retrieval step
	TopK int `yaml:"top_k"`

	// Token splitter
	ChunkSize             int `yaml:"chunk_size"`
	MinChunkSizeChars     int `yaml:"min_chunk_size_chars"`
	MinChunkLengthToEmbed int `yaml:"min_chunk_length_to_embed"`
	MaxNumChunks          int `yaml:"max_num_chunks"`

	// Embedding fan-out during a build
	BuildConcurrency int `yaml:"build_concurrency"`
	BatchSize        int `yaml:"batch_size"`
}

// SnapshotPath returns the full path of the persisted index snapshot.
func (c IndexConfig) SnapshotPath() string {
	return filepath.Join(c.DataDir, c.SnapshotName)
}

// Validate checks the index settings.
func (c IndexConfig) Validate() error {
	if c.SnapshotName == "" {
		return fmt.Errorf("index.snapshot_name must not be empty")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("index.top_k must be positive, got %d", c.TopK)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	RequestTimeout string `yaml:"request_timeout"`
}
