// Package ai holds configuration shared by the AI subsystems.
package ai

import (
	"github.com/hrygo/docpilot/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Retrieval RetrievalConfig
	Memory    MemoryConfig
	Agent     AgentConfig
	Enabled   bool
}

// LLMConfig represents LLM service configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, openrouter, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // request timeout in seconds (default: 120)
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// RetrievalConfig tunes hybrid retrieval and the confidence gate.
type RetrievalConfig struct {
	// HybridAlpha weighs the vector score; the lexical score gets 1-alpha.
	HybridAlpha         float64
	TopK                int
	ConfidenceThreshold float64
}

// MemoryConfig tunes long-term memory retention.
type MemoryConfig struct {
	RetentionDays int
	SalienceFloor float64
	RecallLimit   int
}

// AgentConfig tunes the tool-calling loop.
type AgentConfig struct {
	MaxIterations int
	SerpAPIKey    string
	HistoryLimit  int // turns of history composed into the prompt
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}

	cfg.LLM = LLMConfig{
		Provider:    p.LLMProvider,
		Model:       p.LLMModel,
		APIKey:      p.LLMAPIKey,
		BaseURL:     p.LLMBaseURL,
		MaxTokens:   2048,
		Temperature: 0.7,
		Timeout:     p.LLMTimeout,
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Dimensions: p.EmbeddingDimensions,
	}

	cfg.Retrieval = RetrievalConfig{
		HybridAlpha:         p.HybridAlpha,
		TopK:                p.RetrievalTopK,
		ConfidenceThreshold: p.ConfidenceThreshold,
	}

	cfg.Memory = MemoryConfig{
		RetentionDays: p.MemoryRetentionDays,
		SalienceFloor: p.MemorySalienceFloor,
		RecallLimit:   5,
	}

	cfg.Agent = AgentConfig{
		MaxIterations: p.AgentMaxIterations,
		SerpAPIKey:    p.SerpAPIKey,
		HistoryLimit:  10,
	}

	return cfg
}
