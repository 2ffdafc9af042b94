package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const solutionMetadataKey = "solution"

// ChromemStore is a ProblemStore backed by chromem-go. With a persist
// directory it survives restarts; without one it lives in memory, which
// is what tests use.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	embed      chromem.EmbeddingFunc
	mu         sync.RWMutex
}

// ChromemConfig configures a ChromemStore.
type ChromemConfig struct {
	CollectionName   string
	PersistDirectory string
	Embedder         Embedder
}

// NewChromemStore opens or creates the problem collection.
func NewChromemStore(cfg ChromemConfig) (*ChromemStore, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.CollectionName == "" {
		cfg.CollectionName = "problems"
	}

	var db *chromem.DB
	var err error
	if cfg.PersistDirectory != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistDirectory, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open problem index: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return cfg.Embedder.EmbedText(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(cfg.CollectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", cfg.CollectionName, err)
	}

	return &ChromemStore{
		db:         db,
		collection: collection,
		name:       cfg.CollectionName,
		embed:      embed,
	}, nil
}

// Index embeds and stores the given problems. The problem statement is
// the embedded content; the solution rides along as metadata.
func (s *ChromemStore) Index(ctx context.Context, problems []SolvedProblem) error {
	if len(problems) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.collection.Count()
	docs := make([]chromem.Document, 0, len(problems))
	for i, p := range problems {
		if p.Problem == "" {
			return fmt.Errorf("problem %d has an empty statement", i)
		}
		id := p.ID
		if id == "" {
			id = fmt.Sprintf("problem-%d", base+i+1)
		}
		docs = append(docs, chromem.Document{
			ID:       id,
			Content:  p.Problem,
			Metadata: map[string]string{solutionMetadataKey: p.Solution},
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to index problems: %w", err)
	}
	return nil
}

// Search returns up to k problems most similar to the query, dropping
// anything below the score threshold. Chromem rejects a k larger than
// the collection, so the request is clamped.
func (s *ChromemStore) Search(ctx context.Context, query string, k int, scoreThreshold float32) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count := s.collection.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	found, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("problem search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(found))
	for _, r := range found {
		if scoreThreshold > 0 && r.Similarity < scoreThreshold {
			continue
		}
		results = append(results, SearchResult{
			SolvedProblem: SolvedProblem{
				ID:       r.ID,
				Problem:  r.Content,
				Solution: r.Metadata[solutionMetadataKey],
			},
			Score: r.Similarity,
		})
	}
	return results, nil
}

// Count reports how many problems are indexed.
func (s *ChromemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count()
}

// Clear drops and recreates the collection.
func (s *ChromemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to clear problem index: %w", err)
	}
	collection, err := s.db.GetOrCreateCollection(s.name, nil, s.embed)
	if err != nil {
		return fmt.Errorf("failed to recreate collection %s: %w", s.name, err)
	}
	s.collection = collection
	return nil
}

// Close releases the store. Persistent chromem saves on every write, so
// there is nothing to flush.
func (s *ChromemStore) Close() error {
	return nil
}
