// Package embedding provides text embedding over the OpenAI-compatible
// embeddings endpoint.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Service produces vector embeddings for text.
type Service interface {
	// Embed returns the embedding for a single input.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns embeddings for a batch of inputs, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the configured vector width.
	Dimensions() int
}

// Options configures the embedding service.
type Options struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	Timeout    int // seconds
}

type service struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    int
}

// NewService creates an embedding Service.
func NewService(opts Options) (Service, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	dims := opts.Dimensions
	if dims <= 0 {
		dims = 1536
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	return &service{
		client:     openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		dimensions: dims,
		timeout:    timeout,
	}, nil
}

func (s *service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	startTime := time.Now()
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}

	slog.Debug("embedding: batch completed",
		"inputs", len(texts),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return vectors, nil
}

func (s *service) Dimensions() int {
	return s.dimensions
}
