package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tonyyueyu/optimization/pkg/vectorstore"
)

// LoadCorpus reads a JSON array of solved problems from disk.
func LoadCorpus(path string) ([]vectorstore.SolvedProblem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var problems []vectorstore.SolvedProblem
	if err := json.Unmarshal(data, &problems); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("corpus %s contains no problems", path)
	}
	return problems, nil
}

// IndexCorpus loads a corpus file and indexes it, replacing whatever
// the store held before. Returns the number of problems indexed.
func IndexCorpus(ctx context.Context, store vectorstore.ProblemStore, path string) (int, error) {
	problems, err := LoadCorpus(path)
	if err != nil {
		return 0, err
	}
	if err := store.Clear(ctx); err != nil {
		return 0, err
	}
	if err := store.Index(ctx, problems); err != nil {
		return 0, err
	}
	return len(problems), nil
}
