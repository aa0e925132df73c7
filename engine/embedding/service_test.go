package embedding

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewService_RequiresModel(t *testing.T) {
	if _, err := NewService(&Config{Provider: "openai"}); err == nil {
		t.Error("Expected error for empty model")
	}
}

func TestEmbed_ReturnsVector(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.25,0.25]}]}`))
	}))
	defer server.Close()

	s, err := NewService(&Config{
		Provider: "openai",
		Model:    "bge-m3",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	vec, err := s.Embed(context.Background(), "danone yaourt nature")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.5 {
		t.Errorf("Expected vector [0.5 0.25 0.25], got %v", vec)
	}

	if model, _ := gotBody["model"].(string); model != "bge-m3" {
		t.Errorf("Expected configured model in request, got %q", model)
	}
	input, ok := gotBody["input"].([]any)
	if !ok || len(input) != 1 || input[0] != "danone yaourt nature" {
		t.Errorf("Expected query text as input, got %v", gotBody["input"])
	}
}

func TestEmbed_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	s, err := NewService(&Config{
		Provider: "openai",
		Model:    "bge-m3",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := s.Embed(context.Background(), "anything"); err == nil {
		t.Error("Expected error for empty embedding response")
	}
}
