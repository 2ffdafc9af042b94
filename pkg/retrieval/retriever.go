package retrieval

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/schema"

	"github.com/tonyyueyu/optimization/pkg/solve"
	"github.com/tonyyueyu/optimization/pkg/vectorstore"
)

// Config tunes local example retrieval.
type Config struct {
	// MaxExamples caps how many solved problems a query pulls in.
	MaxExamples int

	// ScoreThreshold drops weak matches entirely.
	ScoreThreshold float32
}

// Retriever serves example problems from the local index. It stands in
// for the backend's retrieve endpoint when that is unreachable.
type Retriever struct {
	store  vectorstore.ProblemStore
	config Config
}

// NewRetriever wraps a problem store. MaxExamples defaults to 2, the
// number of examples a solve request carries.
func NewRetriever(store vectorstore.ProblemStore, config Config) *Retriever {
	if config.MaxExamples == 0 {
		config.MaxExamples = 2
	}
	return &Retriever{store: store, config: config}
}

// Retrieve returns the solved problems most similar to the query, best
// match first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]solve.ExampleProblem, error) {
	if r.store == nil {
		return nil, fmt.Errorf("problem store not initialized")
	}

	results, err := r.store.Search(ctx, query, r.config.MaxExamples, r.config.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("example retrieval failed: %w", err)
	}

	examples := make([]solve.ExampleProblem, len(results))
	for i, result := range results {
		examples[i] = solve.ExampleProblem{
			Score:    float64(result.Score),
			ID:       result.ID,
			Problem:  result.Problem,
			Solution: result.Solution,
		}
	}
	return examples, nil
}

// RelevantDocuments exposes retrieval results as langchaingo documents
// for callers composing prompt chains.
func (r *Retriever) RelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	examples, err := r.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, len(examples))
	for i, ex := range examples {
		docs[i] = schema.Document{
			PageContent: ex.Problem,
			Metadata: map[string]any{
				"id":       ex.ID,
				"solution": ex.Solution,
			},
			Score: float32(ex.Score),
		}
	}
	return docs, nil
}
