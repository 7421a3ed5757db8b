package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (openai, deepseek, openrouter, ollama) use the same config
	LLMProvider string // Provider identifier: openai, deepseek, openrouter, ollama
	LLMAPIKey   string // Unified LLM API key
	LLMBaseURL  string // Unified LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-4o, deepseek-chat, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Embedding configuration
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Tool configuration
	SerpAPIKey string // SerpAPI key for web_search and news_search tools

	// Retrieval tuning
	HybridAlpha         float64 // weight of the vector score in hybrid fusion
	RetrievalTopK       int
	ConfidenceThreshold float64

	// Memory tuning
	MemoryRetentionDays int
	MemorySalienceFloor float64
	MemorySweepHours    int // interval between retention sweeps

	// Agent tuning
	AgentMaxIterations int

	// Other configurations
	Mode        string
	Addr        string
	Port        int
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
	AIEnabled   bool
}

// Provider default configurations for LLM.
// Used when DOCPILOT_AI_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
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

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("DOCPILOT_AI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("DOCPILOT_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("DOCPILOT_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("DOCPILOT_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("DOCPILOT_AI_LLM_TIMEOUT_SECONDS", 120)

	// AI is enabled if API key is configured
	p.AIEnabled = p.LLMAPIKey != ""

	// Validate and apply provider defaults if not explicitly set
	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
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

	// Embedding configuration
	p.EmbeddingProvider = getEnvOrDefault("DOCPILOT_AI_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("DOCPILOT_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = getEnvOrDefault("DOCPILOT_AI_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("DOCPILOT_AI_EMBEDDING_BASE_URL", "")
	p.EmbeddingDimensions = getEnvOrDefaultInt("DOCPILOT_AI_EMBEDDING_DIMENSIONS", 1536)

	// Tools
	p.SerpAPIKey = getEnvOrDefault("DOCPILOT_SERPAPI_API_KEY", "")

	// Retrieval tuning
	p.HybridAlpha = getEnvOrDefaultFloat("DOCPILOT_RETRIEVAL_HYBRID_ALPHA", 0.7)
	p.RetrievalTopK = getEnvOrDefaultInt("DOCPILOT_RETRIEVAL_TOP_K", 5)
	p.ConfidenceThreshold = getEnvOrDefaultFloat("DOCPILOT_RETRIEVAL_CONFIDENCE_THRESHOLD", 0.7)

	// Memory tuning
	p.MemoryRetentionDays = getEnvOrDefaultInt("DOCPILOT_MEMORY_RETENTION_DAYS", 30)
	p.MemorySalienceFloor = getEnvOrDefaultFloat("DOCPILOT_MEMORY_SALIENCE_FLOOR", 0.3)
	p.MemorySweepHours = getEnvOrDefaultInt("DOCPILOT_MEMORY_SWEEP_HOURS", 24)

	// Agent tuning
	p.AgentMaxIterations = getEnvOrDefaultInt("DOCPILOT_AGENT_MAX_ITERATIONS", 5)
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
		p.Data = "/var/opt/docpilot"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("docpilot_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	return nil
}
