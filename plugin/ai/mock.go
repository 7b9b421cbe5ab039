package ai

import (
	"context"
	"errors"
)

// MockEmbedder is a deterministic EmbeddingService for tests.
type MockEmbedder struct {
	Vectors    map[string][]float32 // per-text override
	Default    []float32
	Dim        int
	Err        error
	EmbedCalls int
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.EmbedCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	if m.Default != nil {
		return m.Default, nil
	}
	return nil, errors.New("no mock vector for text")
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (m *MockEmbedder) Dimensions() int {
	return m.Dim
}

var _ EmbeddingService = (*MockEmbedder)(nil)
