package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		primary := &MockEmbedder{Default: []float32{1, 2}, Dim: 2}
		fallback := &MockEmbedder{Default: []float32{3, 4}, Dim: 2}
		embedder := NewFallbackEmbedder(primary, fallback, nil)

		vector, err := embedder.Embed(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, vector)
		assert.Zero(t, fallback.EmbedCalls)
	})

	t.Run("PrimaryDownUsesFallback", func(t *testing.T) {
		primary := &MockEmbedder{Err: errors.New("connection refused")}
		fallback := &MockEmbedder{Default: []float32{3, 4}, Dim: 2}
		embedder := NewFallbackEmbedder(primary, fallback, nil)

		vector, err := embedder.Embed(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{3, 4}, vector)
		assert.Equal(t, 1, primary.EmbedCalls)
		assert.Equal(t, 1, fallback.EmbedCalls)
	})

	t.Run("BothDown", func(t *testing.T) {
		primary := &MockEmbedder{Err: errors.New("connection refused")}
		fallback := &MockEmbedder{Err: errors.New("quota exceeded")}
		embedder := NewFallbackEmbedder(primary, fallback, nil)

		_, err := embedder.Embed(ctx, "hello")
		assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	})

	t.Run("NilFallbackReturnsPrimary", func(t *testing.T) {
		primary := &MockEmbedder{Default: []float32{1, 2}, Dim: 2}
		embedder := NewFallbackEmbedder(primary, nil, nil)
		assert.Equal(t, EmbeddingService(primary), embedder)
	})

	t.Run("BatchFallsBack", func(t *testing.T) {
		primary := &MockEmbedder{Err: errors.New("connection refused")}
		fallback := &MockEmbedder{Default: []float32{3, 4}, Dim: 2}
		embedder := NewFallbackEmbedder(primary, fallback, nil)

		vectors, err := embedder.EmbedBatch(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
	})
}
