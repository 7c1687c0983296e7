package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	RAG          RAGConfig      `yaml:"rag"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	Store        StoreConfig    `yaml:"store"`
	Database     DatabaseConfig `yaml:"database"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

// LLMConfig describes one model endpoint. Provider is "openai" (any
// OpenAI-compatible API, including OpenRouter) or "ollama".
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Key      string `yaml:"key"`
}

// StoreConfig selects the vector store backend: "chromem" (local, default)
// or "postgres".
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

type DatabaseConfig struct {
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	VectorSize int    `yaml:"vector_size"`
	Debug      bool   `yaml:"debug"`
}

const (
	defaultChunkSize  = 1000
	defaultTopK       = 6
	defaultStorePath  = "./chromemdb"
	defaultCollection = "fda_reviews"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.RAG.ChunkOverlap = c.RAG.ChunkSize / 5
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "chromem"
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.Collection == "" {
		c.Store.Collection = defaultCollection
	}
}

// applyEnv lets API keys come from the environment instead of the config
// file so the file can be committed without secrets.
func (c *Config) applyEnv() {
	if key := os.Getenv("EMBED_API_KEY"); key != "" {
		c.EmbedLLM.Key = key
	}
	if key := os.Getenv("INFERENCE_API_KEY"); key != "" {
		c.InferenceLLM.Key = key
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
}
