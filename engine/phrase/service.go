// Package phrase turns a structured decision into one short recommendation
// sentence using an OpenAI-compatible chat model. The service is strictly
// best-effort: callers fall back to a deterministic template whenever it
// errors, so it never carries retry logic of its own.
package phrase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const systemPrompt = `You are a concise shopping assistant. You receive a JSON object of decision facts about a product match: product, brand, market, price, budget, and optionally quantity, total price and cheaper alternatives in other markets. Reply with one or two short sentences recommending the product, mentioning affordability and the best alternative if present. Never invent facts not in the JSON. Reply with plain text only.`

// Config represents the prose service configuration.
type Config struct {
	Provider    string // deepseek, openai, siliconflow, ollama, or any OpenAI-compatible
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 256
	Temperature float32 // default: 0.7
	Timeout     int     // request timeout in seconds (default: 30)

	// RequestsPerMinute throttles upstream calls. 0 disables throttling.
	RequestsPerMinute int
}

// Service phrases decision facts through a chat model.
type Service struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
}

// NewService creates a prose service for the configured provider.
func NewService(cfg *Config) (*Service, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("phrase model cannot be empty")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = newHTTPClient()

	baseURL := cfg.BaseURL
	switch cfg.Provider {
	case "deepseek":
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
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
		slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider)
	}
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &Service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     time.Duration(timeout) * time.Second,
		limiter:     limiter,
	}, nil
}

// Phrase renders the facts map into one short recommendation sentence.
func (s *Service) Phrase(ctx context.Context, facts map[string]any) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("phrase rate limit: %w", err)
		}
	}

	payload, err := json.Marshal(facts)
	if err != nil {
		return "", fmt.Errorf("marshal decision facts: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("phrase completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("phrase completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// newHTTPClient builds an HTTP client tuned for chat API calls: generous
// response header timeout for slow first tokens, keep-alives for connection
// reuse across requests.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
		},
	}
}
