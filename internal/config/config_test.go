// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing, the YAML overlay, and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != ProviderOpenAI {
		t.Errorf("Provider = %s, want openai", cfg.Provider)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %s, want gpt-4o-mini", cfg.Model)
	}
	if cfg.Temperature != 0.6 {
		t.Errorf("Temperature = %f, want 0.6", cfg.Temperature)
	}
	if cfg.TopP != 0.95 {
		t.Errorf("TopP = %f, want 0.95", cfg.TopP)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.DBServer != "localhost" {
		t.Errorf("DBServer = %s, want localhost", cfg.DBServer)
	}
	if !cfg.UseWindowsAuth {
		t.Error("UseWindowsAuth = false, want true")
	}
	if cfg.MemoryBackend != BackendFile {
		t.Errorf("MemoryBackend = %s, want file", cfg.MemoryBackend)
	}
	if cfg.CharmDBName != "chat2db" {
		t.Errorf("CharmDBName = %s, want chat2db", cfg.CharmDBName)
	}
	if cfg.TokenBudget != 1000 {
		t.Errorf("TokenBudget = %d, want 1000", cfg.TokenBudget)
	}
	if cfg.RAGCandidates != 30 {
		t.Errorf("RAGCandidates = %d, want 30", cfg.RAGCandidates)
	}
	if cfg.UserMemoryLimit != 10 {
		t.Errorf("UserMemoryLimit = %d, want 10", cfg.UserMemoryLimit)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %s, want :8080", cfg.HTTPAddr)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should have a default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("LLM_PROVIDER", "HTTP")
	os.Setenv("LLM_API_URL", "http://localhost:1234/v1/chat/completions")
	os.Setenv("OPENAI_API_KEY", "fallback-key")
	os.Setenv("LLM_TEMPERATURE", "0.2")
	os.Setenv("USE_WINDOWS_AUTH", "false")
	os.Setenv("DB_USER", "sa")
	os.Setenv("RAG_TOKEN_BUDGET", "2000")
	os.Setenv("CHAT2DB_DATA_DIR", "/tmp/chat2db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != ProviderHTTP {
		t.Errorf("Provider = %s, want http", cfg.Provider)
	}
	if cfg.APIKey != "fallback-key" {
		t.Errorf("APIKey = %s, want OPENAI_API_KEY fallback", cfg.APIKey)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("Temperature = %f, want 0.2", cfg.Temperature)
	}
	if cfg.UseWindowsAuth {
		t.Error("UseWindowsAuth = true, want false")
	}
	if cfg.DBUser != "sa" {
		t.Errorf("DBUser = %s, want sa", cfg.DBUser)
	}
	if cfg.TokenBudget != 2000 {
		t.Errorf("TokenBudget = %d, want 2000", cfg.TokenBudget)
	}
	if cfg.DataDir != "/tmp/chat2db" {
		t.Errorf("DataDir = %s, want /tmp/chat2db", cfg.DataDir)
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "chat2db.yaml")
	content := "llm_model: gpt-4o\nrag_candidates: 12\ndb_server: sql01\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	os.Setenv("CHAT2DB_CONFIG", path)
	os.Setenv("DB_SERVER", "sql02")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %s, want gpt-4o from file", cfg.Model)
	}
	if cfg.RAGCandidates != 12 {
		t.Errorf("RAGCandidates = %d, want 12 from file", cfg.RAGCandidates)
	}
	if cfg.DBServer != "sql02" {
		t.Errorf("DBServer = %s, environment should win over file", cfg.DBServer)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	os.Clearenv()
	os.Setenv("CHAT2DB_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown provider", "LLM_PROVIDER", "bedrock"},
		{"temperature too high", "LLM_TEMPERATURE", "2.5"},
		{"zero top_p", "LLM_TOP_P", "0"},
		{"negative budget", "RAG_TOKEN_BUDGET", "-1"},
		{"too many candidates", "RAG_CANDIDATES", "500"},
		{"zero memory limit", "USER_MEMORY_LIMIT", "0"},
		{"unknown backend", "MEMORY_BACKEND", "redis"},
		{"too many retries", "EMBED_MAX_RETRIES", "11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestValidate_HTTPProviderNeedsURL(t *testing.T) {
	os.Clearenv()
	os.Setenv("LLM_PROVIDER", "http")

	if _, err := Load(); err == nil {
		t.Error("expected error when http provider has no URL")
	}
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("RAG_CANDIDATES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.RAGCandidates != 30 {
		t.Errorf("RAGCandidates = %d, want default 30", cfg.RAGCandidates)
	}
}
