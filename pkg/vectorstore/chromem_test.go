package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{
		CollectionName: "test-problems",
		Embedder:       NewMockEmbedder(64),
	})
	require.NoError(t, err)
	return store
}

func TestChromemStore(t *testing.T) {
	corpus := []SolvedProblem{
		{ID: "knapsack", Problem: "maximize value of items packed into a knapsack with a weight limit", Solution: "model.x = pyo.Var(items, domain=pyo.Binary)"},
		{ID: "transport", Problem: "minimize shipping cost between warehouses and stores", Solution: "model.ship = pyo.Var(routes, domain=pyo.NonNegativeReals)"},
		{ID: "diet", Problem: "minimize food cost while meeting nutrition requirements", Solution: "model.servings = pyo.Var(foods)"},
	}

	t.Run("should index and count problems", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Index(context.Background(), corpus))
		assert.Equal(t, 3, store.Count())
	})

	t.Run("should return the most similar problems first", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Index(context.Background(), corpus))

		results, err := store.Search(context.Background(), "minimize shipping cost between warehouses and stores", 2, 0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "transport", results[0].ID)
		assert.Contains(t, results[0].Solution, "model.ship")
	})

	t.Run("should clamp k to the collection size", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Index(context.Background(), corpus[:1]))

		results, err := store.Search(context.Background(), "knapsack", 5, 0)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("should return nothing from an empty store", func(t *testing.T) {
		store := newTestStore(t)
		results, err := store.Search(context.Background(), "anything", 2, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("should filter results below the score threshold", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Index(context.Background(), corpus))

		results, err := store.Search(context.Background(), "minimize shipping cost between warehouses and stores", 3, 0.99)
		require.NoError(t, err)
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Score, float32(0.99))
		}
	})

	t.Run("should reject an empty problem statement", func(t *testing.T) {
		store := newTestStore(t)
		err := store.Index(context.Background(), []SolvedProblem{{ID: "bad"}})
		require.Error(t, err)
	})

	t.Run("should assign ids when missing", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Index(context.Background(), []SolvedProblem{
			{Problem: "first problem statement"},
			{Problem: "second problem statement"},
		}))
		assert.Equal(t, 2, store.Count())
	})

	t.Run("should clear the index", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Index(context.Background(), corpus))
		require.NoError(t, store.Clear(context.Background()))
		assert.Equal(t, 0, store.Count())

		// Still usable after a clear.
		require.NoError(t, store.Index(context.Background(), corpus[:1]))
		assert.Equal(t, 1, store.Count())
	})

	t.Run("should require an embedder", func(t *testing.T) {
		_, err := NewChromemStore(ChromemConfig{CollectionName: "x"})
		require.Error(t, err)
	})
}

func TestMockEmbedder(t *testing.T) {
	t.Run("should produce normalized deterministic vectors", func(t *testing.T) {
		embedder := NewMockEmbedder(32)

		a, err := embedder.EmbedText(context.Background(), "minimize total cost")
		require.NoError(t, err)
		b, err := embedder.EmbedText(context.Background(), "minimize total cost")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, 32)
	})

	t.Run("should reject empty text", func(t *testing.T) {
		_, err := NewMockEmbedder(32).EmbedText(context.Background(), "")
		require.Error(t, err)
	})
}
