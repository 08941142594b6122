package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the recommendation service.
type Config struct {
	Store         StoreConfig         `yaml:"store"`
	Retrieve      RetrieveConfig      `yaml:"retrieve"`
	Encoder       EncoderConfig       `yaml:"encoder"`
	Cache         CacheConfig         `yaml:"cache"`
	Collaborative CollaborativeConfig `yaml:"collaborative"`
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// StoreConfig locates the embedding snapshot and the artifacts it is imported from.
type StoreConfig struct {
	Path      string   `yaml:"path"`      // bbolt snapshot file, relative to the root dir
	Artifacts []string `yaml:"artifacts"` // doublestar globs for JSON record sets
}

// RetrieveConfig holds nearest-neighbour retrieval configuration.
type RetrieveConfig struct {
	TopK          int `yaml:"top_k"`
	MaxQueryWords int `yaml:"max_query_words"`
}

// EncoderConfig holds text encoder configuration.
type EncoderConfig struct {
	Provider  string        `yaml:"provider"` // "bert", "openai", "ollama", "mock"
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"`
	VocabPath string        `yaml:"vocab_path"` // WordPiece vocab for the bert provider
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
	Breaker   BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the encoder.
type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
}

// CacheConfig holds the text-query vector cache configuration.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// CollaborativeConfig holds the user-based recommender configuration.
type CollaborativeConfig struct {
	Path          string  `yaml:"path"` // SQLite interactions file, relative to the root dir
	K             int     `yaml:"k"`
	M             int     `yaml:"m"`
	MinSimilarity float64 `yaml:"min_similarity"`
	Shrinkage     float64 `yaml:"shrinkage"`
}

// ServerConfig holds HTTP transport configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RateLimit       int           `yaml:"rate_limit"` // requests per window per IP, 0 disables
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	Preload         bool          `yaml:"preload"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:      filepath.Join(".bookrec", "embeddings.db"),
			Artifacts: []string{"Data/Embeddings/**/*.json"},
		},
		Retrieve: RetrieveConfig{
			TopK:          5,
			MaxQueryWords: 256,
		},
		Encoder: EncoderConfig{
			Provider:  "bert",
			BaseURL:   "http://localhost:8080",
			Model:     "bert-base-uncased",
			APIKeyEnv: "OPENAI_API_KEY",
			VocabPath: filepath.Join("Models", "bert-base-uncased", "vocab.txt"),
			Dimension: 768,
			Timeout:   30 * time.Second,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1024,
			TTL:     10 * time.Minute,
		},
		Collaborative: CollaborativeConfig{
			Path:          filepath.Join(".bookrec", "interactions.db"),
			K:             200,
			M:             20,
			MinSimilarity: 0,
			Shrinkage:     0,
		},
		Server: ServerConfig{
			Addr:            ":5000",
			CORSOrigins:     []string{"*"},
			RateLimit:       600,
			RateLimitWindow: time.Minute,
			RequestTimeout:  60 * time.Second,
			Preload:         true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
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
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for bookrec.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "bookrec.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".bookrec", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve joins a configured path onto dir unless it is already absolute.
func Resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// StorePath returns the embedding snapshot path for a root directory.
func (c *Config) StorePath(dir string) string {
	return Resolve(dir, c.Store.Path)
}

// InteractionsPath returns the interactions database path for a root directory.
func (c *Config) InteractionsPath(dir string) string {
	return Resolve(dir, c.Collaborative.Path)
}

// EnsureParentDir creates the directory holding path.
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
