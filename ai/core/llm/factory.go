package llm

import (
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// providerBaseURLs maps known provider names to their OpenAI-compatible
// endpoints. Unknown providers must carry an explicit base URL.
var providerBaseURLs = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"deepseek":   "https://api.deepseek.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"ollama":     "http://localhost:11434/v1",
}

// Options configures a Service instance.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     int // seconds
}

// NewService creates a Service for the given provider options.
func NewService(opts Options) (Service, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		var ok bool
		baseURL, ok = providerBaseURLs[opts.Provider]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q and no base URL given", opts.Provider)
		}
	}
	// Local ollama accepts any key but the client requires one.
	apiKey := opts.APIKey
	if apiKey == "" {
		if opts.Provider != "ollama" {
			return nil, fmt.Errorf("api key is required for provider %q", opts.Provider)
		}
		apiKey = "ollama"
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = newHTTPClient()

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &service{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		provider:    opts.Provider,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		timeout:     timeout,
	}, nil
}

// Factory builds Service instances, honoring per-request overrides while
// falling back to the configured default provider when an override cannot
// be satisfied.
type Factory struct {
	defaults Options
}

// NewFactory creates a Factory with the given default provider options.
func NewFactory(defaults Options) *Factory {
	return &Factory{defaults: defaults}
}

// Default returns a Service using the default provider options.
func (f *Factory) Default() (Service, error) {
	return NewService(f.defaults)
}

// Override describes per-request provider settings. Zero-valued fields keep
// the factory defaults.
type Override struct {
	Provider    string
	Model       string
	Temperature *float32
}

// For returns a Service honoring the override. When the overridden provider
// cannot be initialized, the default provider is used instead and the
// degradation is logged.
func (f *Factory) For(ov Override) (Service, error) {
	opts := f.defaults
	if ov.Provider != "" && ov.Provider != f.defaults.Provider {
		opts.Provider = ov.Provider
		// Credentials and endpoints are per-provider. A different provider
		// starts from its well-known endpoint without the default provider's
		// key, so a missing credential fails at init and falls back below
		// instead of sending the wrong key over the wire.
		opts.BaseURL = ""
		opts.APIKey = ""
		if _, known := providerBaseURLs[ov.Provider]; !known {
			slog.Warn("llm: unknown provider override, using default",
				"requested", ov.Provider, "default", f.defaults.Provider)
			opts = f.defaults
		}
	}
	if ov.Model != "" {
		opts.Model = ov.Model
	}
	if ov.Temperature != nil {
		opts.Temperature = *ov.Temperature
	}

	svc, err := NewService(opts)
	if err != nil {
		slog.Warn("llm: provider override failed, falling back to default",
			"provider", opts.Provider, "model", opts.Model, "error", err)
		return NewService(f.defaults)
	}
	return svc, nil
}
