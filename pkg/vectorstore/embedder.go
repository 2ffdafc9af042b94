package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// maxEmbedLength caps the text sent to the embedding model.
const maxEmbedLength = 8192

// OllamaEmbedder embeds problem statements through a local Ollama
// instance via langchaingo.
type OllamaEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
}

// NewOllamaEmbedder connects to Ollama and probes the model's embedding
// dimensions with a test call.
func NewOllamaEmbedder(model, baseURL string) (*OllamaEmbedder, error) {
	opts := []ollama.Option{
		ollama.WithModel(model),
		ollama.WithHTTPClient(newRetryingClient(defaultRetryConfig())),
	}
	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ollama: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	probe, err := embedder.EmbedDocuments(context.Background(), []string{"probe"})
	if err != nil {
		return nil, fmt.Errorf("embedding model %s is not available: %w", model, err)
	}
	if len(probe) == 0 || len(probe[0]) == 0 {
		return nil, fmt.Errorf("embedding model %s returned an empty vector", model)
	}

	return &OllamaEmbedder{embedder: embedder, dimensions: len(probe[0])}, nil
}

func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}
	if len(text) > maxEmbedLength {
		text = text[:maxEmbedLength]
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("embedding model returned no vectors")
	}
	return vectors[0], nil
}

func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// MockEmbedder produces deterministic vectors from word overlap, enough
// for similarity ordering in tests without a model.
type MockEmbedder struct {
	dims int
}

func NewMockEmbedder(dimensions int) *MockEmbedder {
	return &MockEmbedder{dims: dimensions}
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}

	vec := make([]float32, m.dims)
	for i := range vec {
		vec[i] = float32(i%5) * 0.01
	}

	// Hash each word into a handful of dimensions so shared vocabulary
	// means nearby vectors.
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := uint32(2166136261)
		for _, c := range word {
			h = (h ^ uint32(c)) * 16777619
		}
		for j := 0; j < 3; j++ {
			idx := int((h >> (j * 8)) % uint32(m.dims))
			vec[idx] += 1.0
		}
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := float32(math.Sqrt(sum))
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (m *MockEmbedder) Dimensions() int {
	return m.dims
}
