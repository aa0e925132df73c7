package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Prose (LLM) configuration. All providers (deepseek, openai,
	// siliconflow, ollama) speak the OpenAI-compatible protocol.
	LLMProvider          string // Provider identifier: deepseek, openai, siliconflow, ollama
	LLMAPIKey            string
	LLMBaseURL           string // Optional, has default per provider
	LLMModel             string // Model name: deepseek-chat, gpt-4o-mini, etc.
	LLMTimeout           int    // LLM request timeout in seconds (default: 30)
	LLMRequestsPerMinute int    // Throttle for prose calls, 0 disables

	// Embedding configuration. The catalog's vectors must come from the same
	// model the query embeddings come from.
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string

	// Engine configuration.
	DefaultMarket   string // Market assumed when a query names none
	MaxAlternatives int    // Cap on alternatives surfaced per decision
	ConfigDir       string // Directory holding vocabulary.yaml and matching.yaml

	// Other configurations.
	Mode      string
	Addr      string
	Data      string
	DSN       string
	Driver    string
	Version   string
	Port      int
	AIEnabled bool
}

// Provider default configurations for the prose LLM.
// Used when SHOPSENSE_AI_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and the LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.LLMAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Prose LLM configuration.
	p.LLMProvider = getEnvOrDefault("SHOPSENSE_AI_LLM_PROVIDER", "deepseek")
	p.LLMAPIKey = getEnvOrDefault("SHOPSENSE_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("SHOPSENSE_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("SHOPSENSE_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("SHOPSENSE_AI_LLM_TIMEOUT_SECONDS", 30)
	p.LLMRequestsPerMinute = getEnvOrDefaultInt("SHOPSENSE_AI_LLM_REQUESTS_PER_MINUTE", 0)

	// AI is enabled if an API key is configured.
	p.AIEnabled = p.LLMAPIKey != ""

	// Validate and apply provider defaults if not explicitly set.
	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: deepseek", "provider", p.LLMProvider)
			p.LLMProvider = "deepseek"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	// Embedding configuration.
	p.EmbeddingProvider = getEnvOrDefault("SHOPSENSE_AI_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("SHOPSENSE_AI_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingAPIKey = getEnvOrDefault("SHOPSENSE_AI_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("SHOPSENSE_AI_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")

	// Engine configuration.
	p.DefaultMarket = getEnvOrDefault("SHOPSENSE_DEFAULT_MARKET", "aziza")
	p.MaxAlternatives = getEnvOrDefaultInt("SHOPSENSE_MAX_ALTERNATIVES", 3)
	p.ConfigDir = getEnvOrDefault("SHOPSENSE_CONFIG_DIR", "config")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "shopsense")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/shopsense"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("shopsense_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
