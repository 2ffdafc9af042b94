package vectorstore

import "context"

// SolvedProblem is one indexed example: a problem statement paired with
// the code that solved it.
type SolvedProblem struct {
	ID       string `json:"id"`
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

// SearchResult is a solved problem with its similarity to the query.
type SearchResult struct {
	SolvedProblem
	Score float32
}

// Embedder turns text into vectors.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// ProblemStore indexes solved problems and retrieves the ones most
// similar to a query.
type ProblemStore interface {
	Index(ctx context.Context, problems []SolvedProblem) error
	Search(ctx context.Context, query string, k int, scoreThreshold float32) ([]SearchResult, error)
	Count() int
	Clear(ctx context.Context) error
	Close() error
}
