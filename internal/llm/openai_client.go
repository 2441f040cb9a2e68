// ABOUTME: OpenAI client for chat completions and embeddings
// ABOUTME: Works with any OpenAI-compatible endpoint through a custom base URL
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harper/chat2db/internal/config"
	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel openai.EmbeddingModel
	Temperature    float64
	TopP           float64
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Temperature:    0.6,
		TopP:           0.95,
		Timeout:        60 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second * 2,
	}
}

// ConfigFrom maps application config onto the client config
func ConfigFrom(cfg *config.Config) *ClientConfig {
	return &ClientConfig{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.APIURL,
		ChatModel:      cfg.Model,
		EmbeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		Temperature:    cfg.Temperature,
		TopP:           cfg.TopP,
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
	}
}

// OpenAIClient wraps the OpenAI API client
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	temperature    float32
	topP           float32
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(cfg *ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "OpenAI API key is required (LLM_API_KEY or OPENAI_API_KEY)")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    float32(cfg.Temperature),
		topP:           float32(cfg.TopP),
		timeout:        timeout,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
	}, nil
}

// Complete sends msgs as one chat completion request
func (c *OpenAIClient) Complete(ctx context.Context, msgs []models.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chat := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		chat = append(chat, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    chat,
		Temperature: c.temperature,
		TopP:        c.topP,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", errs.New(errs.ErrKindUpstream, "unexpected API response structure")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateEmbedding generates an embedding vector for text, retrying with
// backoff. Client errors other than rate limiting are not retried.
func (c *OpenAIClient) GenerateEmbedding(text string) ([]float64, error) {
	var embedding []float64
	policy := util.Policy{MaxRetries: c.maxRetries, BaseDelay: c.retryDelay}

	err := util.Retry(context.Background(), policy, func(attempt int) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: c.embeddingModel,
		})
		if err != nil {
			err = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if !retryable(err) {
				return util.Permanent(err)
			}
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("attempt %d: no embeddings returned", attempt+1)
		}

		embedding32 := resp.Data[0].Embedding
		embedding = make([]float64, len(embedding32))
		for i, v := range embedding32 {
			embedding[i] = float64(v)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUpstream,
			fmt.Sprintf("failed to generate embedding after %d attempts", c.maxRetries+1), err)
	}
	return embedding, nil
}

// retryable reports whether an embedding failure may succeed on a later attempt
func retryable(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return true
	}
	return status == 0 || status == 429 || status >= 500
}

// classify maps go-openai errors onto error kinds
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "completion request timed out", err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return errs.Wrap(errs.ErrKindUpstream, fmt.Sprintf("LLM Error %d", apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return errs.Wrap(errs.ErrKindUpstream, fmt.Sprintf("LLM Error %d", reqErr.HTTPStatusCode), err)
	}
	return errs.Wrap(errs.ErrKindUpstream, "completion request failed", err)
}
