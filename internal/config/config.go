// Package config loads amanjournal configuration from defaults, the user
// config file, the journal's own config file, .env files and AMANJOURNAL_*
// environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// JournalConfigFile is the per-journal configuration file name.
const JournalConfigFile = ".amanjournal.yaml"

// Snapshot backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config represents the complete amanjournal configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Snapshots  SnapshotsConfig  `yaml:"snapshots" json:"snapshots"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
}

// SnapshotsConfig selects where the metadata and embeddings snapshots live.
type SnapshotsConfig struct {
	// Backend is "file" (default) or "sqlite".
	Backend string `yaml:"backend" json:"backend"`

	// Dir holds snapshot files for the file backend. Empty means the journal root.
	Dir string `yaml:"dir" json:"dir"`

	// SQLitePath is the database file for the sqlite backend.
	// Empty means <journal>/.amanjournal.db.
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// SearchConfig tunes lexical and vector search.
type SearchConfig struct {
	// MaxResults caps lexical search results.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// VectorTopN is the default number of vector search results.
	VectorTopN int `yaml:"vector_top_n" json:"vector_top_n"`

	// TitleBoost weights title matches over body matches.
	TitleBoost float64 `yaml:"title_boost" json:"title_boost"`
}

// EmbeddingsConfig configures the embedding provider.
// An empty Provider disables embeddings entirely.
type EmbeddingsConfig struct {
	Provider      string        `yaml:"provider" json:"provider"`
	Model         string        `yaml:"model" json:"model"`
	OllamaHost    string        `yaml:"ollama_host" json:"ollama_host"`
	OpenAIBaseURL string        `yaml:"openai_base_url" json:"openai_base_url"`
	GeminiBaseURL string        `yaml:"gemini_base_url" json:"gemini_base_url"`
	APIKey        string        `yaml:"api_key" json:"-"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	CacheSize     int           `yaml:"cache_size" json:"cache_size"`

	// Workers bounds concurrent provider calls during regenerate.
	Workers int `yaml:"workers" json:"workers"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	Stderr    bool   `yaml:"stderr" json:"stderr"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Snapshots: SnapshotsConfig{
			Backend: BackendFile,
		},
		Search: SearchConfig{
			MaxResults: 50,
			VectorTopN: 10,
			TitleBoost: 2.0,
		},
		Embeddings: EmbeddingsConfig{
			OllamaHost:    "http://localhost:11434",
			OpenAIBaseURL: "https://api.openai.com/v1",
			GeminiBaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Timeout:       30 * time.Second,
			MaxRetries:    3,
			CacheSize:     256,
			Workers:       4,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/amanjournal/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amanjournal/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amanjournal", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amanjournal", "config.yaml")
	}
	return filepath.Join(home, ".config", "amanjournal", "config.yaml")
}

// SQLitePathFor returns the sqlite database path for journalDir.
func (c *Config) SQLitePathFor(journalDir string) string {
	if c.Snapshots.SQLitePath != "" {
		return c.Snapshots.SQLitePath
	}
	return filepath.Join(journalDir, ".amanjournal.db")
}

// Load loads configuration for the journal at journalDir using the default
// user config location.
func Load(journalDir string) (*Config, error) {
	return LoadFrom(GetUserConfigPath(), journalDir)
}

// LoadFrom loads configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (userConfigPath, if it exists)
//  3. Journal config (<journalDir>/.amanjournal.yaml)
//  4. .env files in the journal and user config directories
//  5. Environment variables (AMANJOURNAL_*, OPENAI_API_KEY, GEMINI_API_KEY)
func LoadFrom(userConfigPath, journalDir string) (*Config, error) {
	cfg := NewConfig()

	if userConfigPath != "" && fileExists(userConfigPath) {
		if err := cfg.loadYAML(userConfigPath); err != nil {
			return nil, jerrors.New(jerrors.ErrCodeConfigInvalid, "failed to load user config", err).
				WithDetail("path", userConfigPath)
		}
	}

	if journalDir != "" {
		journalPath := filepath.Join(journalDir, JournalConfigFile)
		if fileExists(journalPath) {
			if err := cfg.loadYAML(journalPath); err != nil {
				return nil, jerrors.New(jerrors.ErrCodeConfigInvalid, "failed to load journal config", err).
					WithDetail("path", journalPath)
			}
		}
	}

	if err := loadDotEnv(journalDir, filepath.Dir(userConfigPath)); err != nil {
		return nil, jerrors.ConfigError("failed to load .env", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, jerrors.ConfigError("invalid configuration", err).
			WithSuggestion("check " + JournalConfigFile + " and AMANJOURNAL_* variables")
	}

	return cfg, nil
}

// loadDotEnv loads .env files without overriding variables already set.
// The first directory wins for keys defined in more than one file.
func loadDotEnv(dirs ...string) error {
	var files []string
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		path := filepath.Join(dir, ".env")
		if fileExists(path) {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil
	}
	return godotenv.Load(files...)
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Snapshots.Backend != "" {
		c.Snapshots.Backend = other.Snapshots.Backend
	}
	if other.Snapshots.Dir != "" {
		c.Snapshots.Dir = other.Snapshots.Dir
	}
	if other.Snapshots.SQLitePath != "" {
		c.Snapshots.SQLitePath = other.Snapshots.SQLitePath
	}

	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.VectorTopN != 0 {
		c.Search.VectorTopN = other.Search.VectorTopN
	}
	if other.Search.TitleBoost != 0 {
		c.Search.TitleBoost = other.Search.TitleBoost
	}

	e := other.Embeddings
	if e.Provider != "" {
		c.Embeddings.Provider = e.Provider
	}
	if e.Model != "" {
		c.Embeddings.Model = e.Model
	}
	if e.OllamaHost != "" {
		c.Embeddings.OllamaHost = e.OllamaHost
	}
	if e.OpenAIBaseURL != "" {
		c.Embeddings.OpenAIBaseURL = e.OpenAIBaseURL
	}
	if e.GeminiBaseURL != "" {
		c.Embeddings.GeminiBaseURL = e.GeminiBaseURL
	}
	if e.APIKey != "" {
		c.Embeddings.APIKey = e.APIKey
	}
	if e.Timeout != 0 {
		c.Embeddings.Timeout = e.Timeout
	}
	if e.MaxRetries != 0 {
		c.Embeddings.MaxRetries = e.MaxRetries
	}
	if e.CacheSize != 0 {
		c.Embeddings.CacheSize = e.CacheSize
	}
	if e.Workers != 0 {
		c.Embeddings.Workers = e.Workers
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
	// A bool cannot be told apart from "unset"; true always wins.
	if other.Logging.Stderr {
		c.Logging.Stderr = true
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}

// applyEnvOverrides applies AMANJOURNAL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AMANJOURNAL_SNAPSHOT_BACKEND"); v != "" {
		c.Snapshots.Backend = v
	}
	if v := os.Getenv("AMANJOURNAL_SNAPSHOT_DIR"); v != "" {
		c.Snapshots.Dir = v
	}
	if v := os.Getenv("AMANJOURNAL_SQLITE_PATH"); v != "" {
		c.Snapshots.SQLitePath = v
	}

	if v := os.Getenv("AMANJOURNAL_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("AMANJOURNAL_VECTOR_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.VectorTopN = n
		}
	}

	if v := os.Getenv("AMANJOURNAL_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("AMANJOURNAL_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("AMANJOURNAL_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("AMANJOURNAL_OPENAI_BASE_URL"); v != "" {
		c.Embeddings.OpenAIBaseURL = v
	}
	if v := os.Getenv("AMANJOURNAL_GEMINI_BASE_URL"); v != "" {
		c.Embeddings.GeminiBaseURL = v
	}
	if v := os.Getenv("AMANJOURNAL_EMBED_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embeddings.Workers = n
		}
	}
	if v := os.Getenv("AMANJOURNAL_EMBED_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Embeddings.Timeout = d
		}
	}

	// Provider-specific keys only fill an empty key; AMANJOURNAL_API_KEY beats both.
	if c.Embeddings.APIKey == "" {
		switch strings.ToLower(c.Embeddings.Provider) {
		case "openai":
			c.Embeddings.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			c.Embeddings.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if v := os.Getenv("AMANJOURNAL_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}

	if v := os.Getenv("AMANJOURNAL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AMANJOURNAL_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("AMANJOURNAL_WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Watch.Debounce = d
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch c.Snapshots.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("snapshots.backend must be 'file' or 'sqlite', got %q", c.Snapshots.Backend)
	}

	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.VectorTopN <= 0 {
		return fmt.Errorf("search.vector_top_n must be positive, got %d", c.Search.VectorTopN)
	}
	if c.Search.TitleBoost <= 0 {
		return fmt.Errorf("search.title_boost must be positive, got %f", c.Search.TitleBoost)
	}

	provider := strings.ToLower(c.Embeddings.Provider)
	switch provider {
	case "", "ollama":
	case "openai", "gemini":
		if c.Embeddings.APIKey == "" {
			return fmt.Errorf("embeddings.api_key is required for provider %s", provider)
		}
	default:
		return fmt.Errorf("embeddings.provider must be 'ollama', 'openai', 'gemini', or empty, got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.Timeout <= 0 {
		return fmt.Errorf("embeddings.timeout must be positive, got %s", c.Embeddings.Timeout)
	}
	if c.Embeddings.MaxRetries < 0 {
		return fmt.Errorf("embeddings.max_retries must be non-negative, got %d", c.Embeddings.MaxRetries)
	}
	if c.Embeddings.CacheSize < 0 {
		return fmt.Errorf("embeddings.cache_size must be non-negative, got %d", c.Embeddings.CacheSize)
	}
	if c.Embeddings.Workers < 1 {
		return fmt.Errorf("embeddings.workers must be at least 1, got %d", c.Embeddings.Workers)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file, creating parent
// directories. An existing file is kept as <path>.bak.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if fileExists(path) {
		if err := os.Rename(path, path+".bak"); err != nil {
			return fmt.Errorf("failed to back up existing config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
