// ABOUTME: Tests for the OpenAI client against a fake OpenAI-compatible server
// ABOUTME: Verifies completion parameters, error classification and embedding retries
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harper/chat2db/internal/config"
	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/models"
)

func fakeOpenAI(t *testing.T, handler http.HandlerFunc) (*OpenAIClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	cfg.RetryDelay = time.Millisecond
	c, err := NewOpenAIClientWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewOpenAIClientWithConfig() error = %v", err)
	}
	return c, srv
}

func TestNewOpenAIClient_MissingKey(t *testing.T) {
	if _, err := NewOpenAIClient(""); !errs.IsInvalidInput(err) {
		t.Errorf("error = %v, want invalid input", err)
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var body map[string]interface{}
	c, srv := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"USE HR;\nGO\nSELECT * FROM Employees"},"finish_reason":"stop"}]}`))
	})
	defer srv.Close()

	got, err := c.Complete(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "rules"},
		{Role: models.RoleUser, Content: "show employees"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "USE HR;\nGO\nSELECT * FROM Employees" {
		t.Errorf("Complete() = %q", got)
	}
	if body["model"] != DefaultChatModel {
		t.Errorf("model = %v", body["model"])
	}
	if msgs, _ := body["messages"].([]interface{}); len(msgs) != 2 {
		t.Errorf("messages = %v", body["messages"])
	}
}

func TestOpenAIClient_CompleteUpstreamError(t *testing.T) {
	var calls int32
	c, srv := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})
	defer srv.Close()

	_, err := c.Complete(context.Background(), []models.Message{{Role: models.RoleUser, Content: "x"}})
	if !errs.IsUpstream(err) {
		t.Fatalf("error = %v, want upstream", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("completion was retried: %d calls", calls)
	}
}

func TestOpenAIClient_GenerateEmbeddingRetries(t *testing.T) {
	var calls int32
	c, srv := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"text-embedding-3-small"}`))
	})
	defer srv.Close()

	vec, err := c.GenerateEmbedding("employees table")
	if err != nil {
		t.Fatalf("GenerateEmbedding() error = %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != 0.25 {
		t.Errorf("vector = %v", vec)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestOpenAIClient_GenerateEmbeddingDoesNotRetryAuthErrors(t *testing.T) {
	var calls int32
	c, srv := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})
	defer srv.Close()

	if _, err := c.GenerateEmbedding("employees table"); !errs.IsUpstream(err) {
		t.Fatalf("error = %v, want upstream", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestNewCompleter(t *testing.T) {
	os.Clearenv()
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewCompleter(cfg); !errs.IsInvalidInput(err) {
		t.Errorf("openai provider without key: error = %v", err)
	}

	cfg.APIKey = "k"
	if c, err := NewCompleter(cfg); err != nil {
		t.Errorf("NewCompleter(openai) error = %v", err)
	} else if _, ok := c.(*OpenAIClient); !ok {
		t.Errorf("NewCompleter(openai) = %T", c)
	}

	cfg.Provider = config.ProviderHTTP
	cfg.APIURL = "http://localhost:11434/api/chat"
	if c, err := NewCompleter(cfg); err != nil {
		t.Errorf("NewCompleter(http) error = %v", err)
	} else if _, ok := c.(*HTTPClient); !ok {
		t.Errorf("NewCompleter(http) = %T", c)
	}
}
