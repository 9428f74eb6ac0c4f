package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DataDirName is the per-project directory holding the engine database.
const DataDirName = ".supportrag"

// Config holds all configuration for the reply engine.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Tuning    TuningConfig    `yaml:"tuning"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
}

// StorageConfig locates the bbolt database. A relative DBFile is resolved
// against the project directory.
type StorageConfig struct {
	DBFile string `yaml:"db_file"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`    // "openai", "hash"
	Model      string        `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv  string        `yaml:"api_key_env"` // Environment variable for API key
	BaseURL    string        `yaml:"base_url"`
	Dimension  int           `yaml:"dimension"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"` // retries applied by the caller-side decorator
	CacheSize  int           `yaml:"cache_size"`  // query embedding cache entries, 0 disables
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IngestConfig selects knowledge-base files.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

type RetrieveConfig struct {
	TopK                int `yaml:"top_k"`
	CorrectionsTopK     int `yaml:"corrections_top_k"`
	CandidateMultiplier int `yaml:"candidate_multiplier"`
}

// RerankConfig controls the optional second-stage scoring.
type RerankConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Provider       string  `yaml:"provider"` // "cohere", "cosine", "term"
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	Diversity      bool    `yaml:"diversity"`
}

type TuningConfig struct {
	WindowDays    int     `yaml:"window_days"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DBFile: filepath.Join(DataDirName, "engine.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			APIKeyEnv:  "OPENAI_API_KEY",
			Dimension:  1536,
			BatchSize:  100,
			MaxRetries: 3,
			CacheSize:  256,
			CacheTTL:   10 * time.Minute,
		},
		Chunk: ChunkConfig{
			Size:    500,
			Overlap: 50,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.md"},
			Excludes: []string{"**/.git/**", "**/node_modules/**", "**/" + DataDirName + "/**"},
		},
		Retrieve: RetrieveConfig{
			TopK:                5,
			CorrectionsTopK:     3,
			CandidateMultiplier: 2,
		},
		Rerank: RerankConfig{
			Enabled:        false,
			Provider:       "cosine",
			Model:          "rerank-english-v3.0",
			APIKeyEnv:      "COHERE_API_KEY",
			TopK:           5,
			ScoreThreshold: 0,
			Diversity:      false,
		},
		Tuning: TuningConfig{
			WindowDays:    30,
			MinConfidence: 0.3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for supportrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "supportrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DataDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnv loads KEY=value pairs from dir/.env into the process environment
// without overriding variables that are already set. A missing file is fine.
func LoadEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Validate checks values that would make the engine misbehave.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, %d), got %d", c.Chunk.Size, c.Chunk.Overlap)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.Retrieve.CorrectionsTopK <= 0 {
		return fmt.Errorf("retrieve.corrections_top_k must be positive, got %d", c.Retrieve.CorrectionsTopK)
	}
	if c.Retrieve.CandidateMultiplier < 1 {
		c.Retrieve.CandidateMultiplier = 1
	}
	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Rerank.Provider {
	case "cohere", "cosine", "term":
	default:
		return fmt.Errorf("unknown rerank provider %q", c.Rerank.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DBPath returns the database path for a project directory.
func (c *Config) DBPath(dir string) string {
	if filepath.IsAbs(c.Storage.DBFile) {
		return c.Storage.DBFile
	}
	return filepath.Join(dir, c.Storage.DBFile)
}

// EnsureDataDir ensures the directory holding the database exists.
func (c *Config) EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.DBPath(dir)), 0755)
}
