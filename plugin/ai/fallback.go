package ai

import (
	"context"
	"log/slog"
)

// fallbackEmbedder tries the primary provider and falls back to a secondary
// one when the primary errors out. Both failing is ErrEmbeddingUnavailable;
// callers degrade (cache miss, empty retrieval, UNCERTAIN preflight) rather
// than searching with a zero vector.
type fallbackEmbedder struct {
	primary  EmbeddingService
	fallback EmbeddingService
	logger   *slog.Logger
}

// NewFallbackEmbedder chains two embedding services. fallback may be nil.
func NewFallbackEmbedder(primary, fallback EmbeddingService, logger *slog.Logger) EmbeddingService {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback == nil {
		return primary
	}
	return &fallbackEmbedder{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *fallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := f.primary.Embed(ctx, text)
	if err == nil {
		return vector, nil
	}
	f.logger.WarnContext(ctx, "primary embedding provider failed, using fallback", "error", err)

	vector, ferr := f.fallback.Embed(ctx, text)
	if ferr != nil {
		f.logger.ErrorContext(ctx, "fallback embedding provider failed", "error", ferr)
		return nil, ErrEmbeddingUnavailable
	}
	return vector, nil
}

func (f *fallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := f.primary.EmbedBatch(ctx, texts)
	if err == nil {
		return vectors, nil
	}
	f.logger.WarnContext(ctx, "primary embedding provider failed, using fallback", "error", err)

	vectors, ferr := f.fallback.EmbedBatch(ctx, texts)
	if ferr != nil {
		f.logger.ErrorContext(ctx, "fallback embedding provider failed", "error", ferr)
		return nil, ErrEmbeddingUnavailable
	}
	return vectors, nil
}

func (f *fallbackEmbedder) Dimensions() int {
	return f.primary.Dimensions()
}
