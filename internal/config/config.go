// ABOUTME: Centralized configuration for chat2db
// ABOUTME: Loads from an optional YAML file and environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go.yaml.in/yaml/v3"
)

// Supported completion providers
const (
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
)

// Supported memory backends
const (
	BackendFile  = "file"
	BackendCharm = "charm"
)

// Config holds all configuration for chat2db
type Config struct {
	// Completion service
	Provider       string
	APIURL         string
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float64
	TopP           float64
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// SQL Server connection
	DBServer       string
	DBUser         string
	DBPassword     string
	UseWindowsAuth bool

	// Durable memory
	DataDir       string
	MemoryBackend string
	CharmHost     string
	CharmDBName   string

	// Context assembly
	TokenBudget     int
	RAGCandidates   int
	UserMemoryLimit int

	// Ambient
	LogLevel  string
	LogFormat string
	HTTPAddr  string
}

// Load reads the optional YAML file named by CHAT2DB_CONFIG, then applies
// environment variables on top of it.
func Load() (*Config, error) {
	file := map[string]string{}
	if path := os.Getenv("CHAT2DB_CONFIG"); path != "" {
		var err error
		file, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}
	get := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return file[key]
	}

	cfg := &Config{
		Provider:        strings.ToLower(getString(get, "LLM_PROVIDER", ProviderOpenAI)),
		APIURL:          getString(get, "LLM_API_URL", ""),
		APIKey:          getString(get, "LLM_API_KEY", get("OPENAI_API_KEY")),
		Model:           getString(get, "LLM_MODEL", "gpt-4o-mini"),
		EmbeddingModel:  getString(get, "LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
		Temperature:     getFloat(get, "LLM_TEMPERATURE", 0.6),
		TopP:            getFloat(get, "LLM_TOP_P", 0.95),
		Timeout:         getDuration(get, "LLM_TIMEOUT", 60*time.Second),
		MaxRetries:      getInt(get, "EMBED_MAX_RETRIES", 3),
		RetryDelay:      getDuration(get, "EMBED_RETRY_DELAY", 2*time.Second),
		DBServer:        getString(get, "DB_SERVER", "localhost"),
		DBUser:          getString(get, "DB_USER", ""),
		DBPassword:      getString(get, "DB_PASSWORD", ""),
		UseWindowsAuth:  getBool(get, "USE_WINDOWS_AUTH", true),
		DataDir:         getString(get, "CHAT2DB_DATA_DIR", defaultDataDir()),
		MemoryBackend:   strings.ToLower(getString(get, "MEMORY_BACKEND", BackendFile)),
		CharmHost:       getString(get, "CHARM_HOST", ""),
		CharmDBName:     getString(get, "CHARM_DB", "chat2db"),
		TokenBudget:     getInt(get, "RAG_TOKEN_BUDGET", 1000),
		RAGCandidates:   getInt(get, "RAG_CANDIDATES", 30),
		UserMemoryLimit: getInt(get, "USER_MEMORY_LIMIT", 10),
		LogLevel:        getString(get, "LOG_LEVEL", "info"),
		LogFormat:       getString(get, "LOG_FORMAT", "console"),
		HTTPAddr:        getString(get, "HTTP_ADDR", ":8080"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Provider != ProviderOpenAI && c.Provider != ProviderHTTP {
		return fmt.Errorf("LLM_PROVIDER must be openai or http, got %q", c.Provider)
	}
	if c.Provider == ProviderHTTP && c.APIURL == "" {
		return fmt.Errorf("LLM_API_URL is required when LLM_PROVIDER=http")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be 0-2, got %f", c.Temperature)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("LLM_TOP_P must be in (0,1], got %f", c.TopP)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("EMBED_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.MemoryBackend != BackendFile && c.MemoryBackend != BackendCharm {
		return fmt.Errorf("MEMORY_BACKEND must be file or charm, got %q", c.MemoryBackend)
	}
	if c.TokenBudget <= 0 {
		return fmt.Errorf("RAG_TOKEN_BUDGET must be positive, got %d", c.TokenBudget)
	}
	if c.RAGCandidates < 1 || c.RAGCandidates > 100 {
		return fmt.Errorf("RAG_CANDIDATES must be 1-100, got %d", c.RAGCandidates)
	}
	if c.UserMemoryLimit <= 0 {
		return fmt.Errorf("USER_MEMORY_LIMIT must be positive, got %d", c.UserMemoryLimit)
	}
	return nil
}

// LoadFile parses a flat YAML mapping of configuration keys. Keys are
// upper-cased so files may use either llm_model or LLM_MODEL.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

// defaultDataDir follows the XDG base directory convention
func defaultDataDir() string {
	return filepath.Join(xdg.DataHome, "chat2db")
}

// Helper functions
func getString(get func(string) string, key, defaultVal string) string {
	if v := get(key); v != "" {
		return v
	}
	return defaultVal
}

func getBool(get func(string) string, key string, defaultVal bool) bool {
	v := strings.ToLower(get(key))
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1" || v == "yes"
}

func getInt(get func(string) string, key string, defaultVal int) int {
	if v := get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloat(get func(string) string, key string, defaultVal float64) float64 {
	if v := get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDuration(get func(string) string, key string, defaultVal time.Duration) time.Duration {
	if v := get(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
