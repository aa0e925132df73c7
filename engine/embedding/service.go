// Package embedding generates query vectors through an OpenAI-compatible
// embedding API. Stored catalog vectors and query vectors must come from the
// same model, so a service is bound to a single model name.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config represents the embedding service configuration.
type Config struct {
	Provider string // siliconflow, openai, ollama, or any OpenAI-compatible
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  int // request timeout in seconds (default: 30)
}

// Service embeds free text through an embedding model.
type Service struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewService creates an embedding service for the configured provider.
func NewService(cfg *Config) (*Service, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model cannot be empty")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)

	baseURL := cfg.BaseURL
	switch cfg.Provider {
	case "siliconflow":
		if baseURL == "" {
			baseURL = "https://api.siliconflow.cn/v1"
		}
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
	case "openai", "":
		// Library default unless overridden.
	default:
		slog.Info("Using generic OpenAI-compatible embedding provider", "provider", cfg.Provider)
	}
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	return &Service{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: time.Duration(timeout) * time.Second,
	}, nil
}

// Embed generates the vector for a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(s.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	return resp.Data[0].Embedding, nil
}
