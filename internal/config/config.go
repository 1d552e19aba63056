// Package config provides configuration loading and structs for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Memory    MemoryConfig    `yaml:"memory"`
	Corpus    CorpusConfig    `yaml:"corpus"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database path and collection name.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	Collection   string `yaml:"collection"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// OpenAIConfig holds embedding and chat model settings. The API key comes from
// the OPENAI_API_KEY environment variable, never from the config file.
type OpenAIConfig struct {
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	Dimensions     int    `yaml:"dimensions"`
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	MaxChunks int `yaml:"max_chunks"`
}

// MemoryConfig holds interaction-memory settings.
type MemoryConfig struct {
	Dir           string `yaml:"dir"`
	ShortTermSize int    `yaml:"short_term_size"`
}

// CorpusConfig holds the source document location and watch settings.
type CorpusConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.SnapshotPath = expandPath(cfg.Storage.SnapshotPath, configDir)
	cfg.Memory.Dir = expandPath(cfg.Memory.Dir, configDir)
	cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
