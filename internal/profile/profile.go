package profile

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration to start the engine.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Driver is the database driver (postgres)
	Driver string
	// DSN points to where engram stores its data
	DSN string
	// Version is the current version of the engine
	Version string

	// Embedding provider configuration. The primary provider is required;
	// the fallback is optional and used when the primary is unreachable.
	EmbeddingProvider   string        // ENGRAM_EMBEDDING_PROVIDER (default: openai)
	EmbeddingAPIKey     string        // ENGRAM_EMBEDDING_API_KEY
	EmbeddingBaseURL    string        // ENGRAM_EMBEDDING_BASE_URL
	EmbeddingModel      string        // ENGRAM_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingDimensions int           // ENGRAM_EMBEDDING_DIMENSIONS (default: 1024)
	FallbackAPIKey      string        // ENGRAM_FALLBACK_API_KEY
	FallbackBaseURL     string        // ENGRAM_FALLBACK_BASE_URL
	FallbackModel       string        // ENGRAM_FALLBACK_MODEL
	EmbeddingTimeout    time.Duration // ENGRAM_EMBEDDING_TIMEOUT (default: 10s)

	// Engine tunables.
	ContextMaxTokens      int           // ENGRAM_CONTEXT_MAX_TOKENS (default: 4000)
	RetrievalLimit        int           // ENGRAM_RETRIEVAL_LIMIT (default: 10)
	PreflightRefreshEvery time.Duration // ENGRAM_PREFLIGHT_REFRESH_EVERY (default: 1h)
	RankWeightSimilarity  float64       // ENGRAM_RANK_WEIGHT_SIMILARITY (default: 0.5)
	RankWeightRecency     float64       // ENGRAM_RANK_WEIGHT_RECENCY (default: 0.2)
	RankWeightImportance  float64       // ENGRAM_RANK_WEIGHT_IMPORTANCE (default: 0.2)
	RankWeightFeedback    float64       // ENGRAM_RANK_WEIGHT_FEEDBACK (default: 0.1)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Validate checks that the profile can actually start the engine.
func (p *Profile) Validate() error {
	if p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.DSN == "" {
		return errors.New("dsn is required")
	}
	if p.EmbeddingAPIKey == "" && p.EmbeddingBaseURL == "" {
		return errors.New("no embedding provider configured")
	}
	if p.EmbeddingDimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	return nil
}

// New builds a profile from viper, which the command layer has already
// bound to flags and ENGRAM_* environment variables.
func New(v *viper.Viper) (*Profile, error) {
	v.SetEnvPrefix("engram")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "dev")
	v.SetDefault("driver", "postgres")
	v.SetDefault("embedding-provider", "openai")
	v.SetDefault("embedding-model", "text-embedding-3-small")
	v.SetDefault("embedding-dimensions", 1024)
	v.SetDefault("embedding-timeout", 10*time.Second)
	v.SetDefault("context-max-tokens", 4000)
	v.SetDefault("retrieval-limit", 10)
	v.SetDefault("preflight-refresh-every", time.Hour)
	v.SetDefault("rank-weight-similarity", 0.5)
	v.SetDefault("rank-weight-recency", 0.2)
	v.SetDefault("rank-weight-importance", 0.2)
	v.SetDefault("rank-weight-feedback", 0.1)

	p := &Profile{
		Mode:                  v.GetString("mode"),
		Driver:                v.GetString("driver"),
		DSN:                   v.GetString("dsn"),
		EmbeddingProvider:     v.GetString("embedding-provider"),
		EmbeddingAPIKey:       v.GetString("embedding-api-key"),
		EmbeddingBaseURL:      v.GetString("embedding-base-url"),
		EmbeddingModel:        v.GetString("embedding-model"),
		EmbeddingDimensions:   v.GetInt("embedding-dimensions"),
		FallbackAPIKey:        v.GetString("fallback-api-key"),
		FallbackBaseURL:       v.GetString("fallback-base-url"),
		FallbackModel:         v.GetString("fallback-model"),
		EmbeddingTimeout:      v.GetDuration("embedding-timeout"),
		ContextMaxTokens:      v.GetInt("context-max-tokens"),
		RetrievalLimit:        v.GetInt("retrieval-limit"),
		PreflightRefreshEvery: v.GetDuration("preflight-refresh-every"),
		RankWeightSimilarity:  v.GetFloat64("rank-weight-similarity"),
		RankWeightRecency:     v.GetFloat64("rank-weight-recency"),
		RankWeightImportance:  v.GetFloat64("rank-weight-importance"),
		RankWeightFeedback:    v.GetFloat64("rank-weight-feedback"),
	}

	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return p, nil
}
