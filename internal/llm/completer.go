// ABOUTME: Interfaces for the completion and embedding services
// ABOUTME: NewCompleter picks the go-openai client or the generic HTTP client from config
package llm

import (
	"context"

	"github.com/harper/chat2db/internal/config"
	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/models"
)

// Completer sends an ordered message list and returns the reply text.
// Implementations never retry; a failed call is surfaced to the caller.
type Completer interface {
	Complete(ctx context.Context, msgs []models.Message) (string, error)
}

// Embedder turns text into a vector for retrieval
type Embedder interface {
	GenerateEmbedding(text string) ([]float64, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, msgs []models.Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, msgs []models.Message) (string, error) {
	return f(ctx, msgs)
}

// NewCompleter builds the completer selected by cfg.Provider
func NewCompleter(cfg *config.Config) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderHTTP:
		c, err := NewHTTPClient(HTTPConfig{
			URL:         cfg.APIURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderOpenAI:
		c, err := NewOpenAIClientWithConfig(ConfigFrom(cfg))
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown completion provider %q", cfg.Provider)
	}
}
