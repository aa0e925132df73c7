package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProfileDefaults(t *testing.T) {
	clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"AIEnabled should be false by default", "false", boolToString(profile.AIEnabled)},
		{"LLMProvider default", "deepseek", profile.LLMProvider},
		{"LLMBaseURL default", "https://api.deepseek.com", profile.LLMBaseURL},
		{"LLMModel default", "deepseek-chat", profile.LLMModel},
		{"EmbeddingProvider default", "siliconflow", profile.EmbeddingProvider},
		{"EmbeddingModel default", "BAAI/bge-m3", profile.EmbeddingModel},
		{"DefaultMarket default", "aziza", profile.DefaultMarket},
		{"ConfigDir default", "config", profile.ConfigDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.MaxAlternatives != 3 {
		t.Errorf("MaxAlternatives default: expected 3, got %d", profile.MaxAlternatives)
	}
	if profile.LLMTimeout != 30 {
		t.Errorf("LLMTimeout default: expected 30, got %d", profile.LLMTimeout)
	}
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "LLM API key",
			envVar:   "SHOPSENSE_AI_LLM_API_KEY",
			envValue: "test-llm-key",
			field:    func(p *Profile) string { return p.LLMAPIKey },
			expected: "test-llm-key",
		},
		{
			name:     "LLM provider",
			envVar:   "SHOPSENSE_AI_LLM_PROVIDER",
			envValue: "openai",
			field:    func(p *Profile) string { return p.LLMProvider },
			expected: "openai",
		},
		{
			name:     "Embedding model",
			envVar:   "SHOPSENSE_AI_EMBEDDING_MODEL",
			envValue: "custom/embedding-model",
			field:    func(p *Profile) string { return p.EmbeddingModel },
			expected: "custom/embedding-model",
		},
		{
			name:     "Default market",
			envVar:   "SHOPSENSE_DEFAULT_MARKET",
			envValue: "carrefour",
			field:    func(p *Profile) string { return p.DefaultMarket },
			expected: "carrefour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			os.Setenv(tt.envVar, tt.envValue)
			defer os.Unsetenv(tt.envVar)

			profile := &Profile{}
			profile.FromEnv()

			actual := tt.field(profile)
			if actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestUnknownLLMProviderFallsBack(t *testing.T) {
	clearEnvVars()
	os.Setenv("SHOPSENSE_AI_LLM_PROVIDER", "not-a-provider")
	defer os.Unsetenv("SHOPSENSE_AI_LLM_PROVIDER")

	profile := &Profile{}
	profile.FromEnv()

	if profile.LLMProvider != "deepseek" {
		t.Errorf("Expected fallback provider deepseek, got %q", profile.LLMProvider)
	}
}

func TestIsAIEnabled(t *testing.T) {
	tests := []struct {
		name           string
		setupProfile   func(*Profile)
		expectedResult bool
	}{
		{
			name:           "no API key returns false",
			setupProfile:   func(p *Profile) {},
			expectedResult: false,
		},
		{
			name: "API key with AIEnabled returns true",
			setupProfile: func(p *Profile) {
				p.AIEnabled = true
				p.LLMAPIKey = "test-key"
			},
			expectedResult: true,
		},
		{
			name: "API key without AIEnabled returns false",
			setupProfile: func(p *Profile) {
				p.LLMAPIKey = "test-key"
			},
			expectedResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &Profile{}
			tt.setupProfile(profile)

			result := profile.IsAIEnabled()
			if result != tt.expectedResult {
				t.Errorf("IsAIEnabled(): expected %v, got %v", tt.expectedResult, result)
			}
		})
	}
}

func TestValidate_SQLiteDSNDefaulting(t *testing.T) {
	dir := t.TempDir()

	profile := &Profile{
		Mode:   "dev",
		Data:   dir,
		Driver: "sqlite",
	}
	if err := profile.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	expected := filepath.Join(dir, "shopsense_dev.db")
	if profile.DSN != expected {
		t.Errorf("Expected DSN %q, got %q", expected, profile.DSN)
	}
}

// clearEnvVars removes all shopsense environment variables.
func clearEnvVars() {
	vars := []string{
		"SHOPSENSE_AI_LLM_PROVIDER",
		"SHOPSENSE_AI_LLM_API_KEY",
		"SHOPSENSE_AI_LLM_BASE_URL",
		"SHOPSENSE_AI_LLM_MODEL",
		"SHOPSENSE_AI_LLM_TIMEOUT_SECONDS",
		"SHOPSENSE_AI_LLM_REQUESTS_PER_MINUTE",
		"SHOPSENSE_AI_EMBEDDING_PROVIDER",
		"SHOPSENSE_AI_EMBEDDING_MODEL",
		"SHOPSENSE_AI_EMBEDDING_API_KEY",
		"SHOPSENSE_AI_EMBEDDING_BASE_URL",
		"SHOPSENSE_DEFAULT_MARKET",
		"SHOPSENSE_MAX_ALTERNATIVES",
		"SHOPSENSE_CONFIG_DIR",
	}

	for _, v := range vars {
		os.Unsetenv(v)
	}
}

// Helper functions
func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
