package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mnemoslab/engram/internal/profile"
	"github.com/mnemoslab/engram/plugin/ai"
	"github.com/mnemoslab/engram/plugin/ai/contextbuilder"
	"github.com/mnemoslab/engram/plugin/ai/preflight"
	"github.com/mnemoslab/engram/plugin/ai/qcache"
	"github.com/mnemoslab/engram/plugin/ai/rank"
	"github.com/mnemoslab/engram/plugin/ai/retrieval"
	"github.com/mnemoslab/engram/plugin/ai/salience"
	"github.com/mnemoslab/engram/plugin/ai/triage"
	"github.com/mnemoslab/engram/store"
	"github.com/mnemoslab/engram/store/db"
)

const greetingBanner = `
engram - adaptive retrieval & memory-quality engine
`

var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "An adaptive retrieval and memory-quality engine for LLM memory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		instanceProfile, err := profile.New(viper.GetViper())
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel(instanceProfile),
		}))
		slog.SetDefault(logger)

		engine, err := newEngine(ctx, instanceProfile, logger)
		if err != nil {
			return err
		}
		defer engine.close()

		go engine.preflight.RunRefresher(ctx, instanceProfile.PreflightRefreshEvery)

		fmt.Print(greetingBanner)
		logger.InfoContext(ctx, "engine started",
			"mode", instanceProfile.Mode,
			"driver", instanceProfile.Driver,
			"retrieval_limit", instanceProfile.RetrievalLimit,
		)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		logger.InfoContext(ctx, "shutting down")
		cancel()
		return nil
	},
}

func logLevel(p *profile.Profile) slog.Level {
	if p.IsDev() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// engine wires the retrieval pipeline end to end.
type engine struct {
	store     *store.Store
	embedder  ai.EmbeddingService
	retriever *retrieval.Retriever
	ranker    *rank.Ranker
	builder   *contextbuilder.Builder
	preflight *preflight.Checker
	salience  *salience.Scorer
	triager   *triage.Triager
	cache     *qcache.Cache
	logger    *slog.Logger
}

func newEngine(ctx context.Context, p *profile.Profile, logger *slog.Logger) (*engine, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}

	primary, err := ai.NewEmbeddingService(&ai.EmbeddingConfig{
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Model:      p.EmbeddingModel,
		Dimensions: p.EmbeddingDimensions,
		Timeout:    p.EmbeddingTimeout,
	})
	if err != nil {
		return nil, err
	}
	var fallback ai.EmbeddingService
	if p.FallbackAPIKey != "" || p.FallbackBaseURL != "" {
		fallback, err = ai.NewEmbeddingService(&ai.EmbeddingConfig{
			APIKey:     p.FallbackAPIKey,
			BaseURL:    p.FallbackBaseURL,
			Model:      p.FallbackModel,
			Dimensions: p.EmbeddingDimensions,
			Timeout:    p.EmbeddingTimeout,
		})
		if err != nil {
			return nil, err
		}
	}
	embedder := ai.NewFallbackEmbedder(primary, fallback, logger)

	ranker, err := rank.New(rank.Weights{
		Similarity: p.RankWeightSimilarity,
		Recency:    p.RankWeightRecency,
		Importance: p.RankWeightImportance,
		Feedback:   p.RankWeightFeedback,
	})
	if err != nil {
		return nil, err
	}

	checker := preflight.New(st, p.EmbeddingDimensions, logger)
	if err := checker.Initialize(ctx); err != nil {
		return nil, err
	}

	scorer := salience.NewScorer()
	return &engine{
		store:     st,
		embedder:  embedder,
		retriever: retrieval.New(st, nil),
		ranker:    ranker,
		builder:   contextbuilder.New(p.ContextMaxTokens),
		preflight: checker,
		salience:  scorer,
		triager: triage.New(
			triage.WithFollowUpChecker(triage.NewStoreFollowUpChecker(st)),
			triage.WithNoveltyChecker(triage.NewStoreNoveltyChecker(st)),
			triage.WithLogger(logger),
		),
		cache:  qcache.New(st, embedder, logger),
		logger: logger,
	}, nil
}

func (e *engine) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Error("failed to close store", "error", err)
	}
}

// Answer resolves one query: cache first, then a preflight feeling-of-knowing
// check, then retrieval, ranking and context assembly. Every degraded branch
// still returns a usable (possibly empty) context.
type Answer struct {
	FromCache bool
	Response  string
	Context   string
	Signal    preflight.Signal
}

func (e *engine) Answer(ctx context.Context, query, userID, requestedAgent string, limit int) (*Answer, error) {
	if hit := e.cache.Get(ctx, query, userID, requestedAgent); hit != nil {
		return &Answer{FromCache: true, Response: hit.Response}, nil
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.WarnContext(ctx, "query embedding failed, returning empty context", "error", err)
		return &Answer{Signal: preflight.SignalUncertain}, nil
	}

	answer := &Answer{Signal: preflight.SignalUncertain}
	if result, err := e.preflight.Check(ctx, query, embedding, userID); err != nil {
		e.logger.WarnContext(ctx, "preflight check failed", "error", err)
	} else {
		answer.Signal = result.Signal
		if result.Signal == preflight.SignalUnlikely {
			return answer, nil
		}
	}

	results, err := e.retriever.Retrieve(ctx, &retrieval.Options{
		Query:          query,
		QueryEmbedding: embedding,
		UserID:         userID,
		Limit:          limit,
		Sources:        []string{store.CollectionKnowledge, store.CollectionInteractions},
		RequestID:      shortuuid.New(),
		Logger:         e.logger,
	})
	if err != nil {
		return nil, err
	}

	scored := e.ranker.Score(results, time.Now())
	answer.Context = e.builder.Build(scored)
	return answer, nil
}

// Interaction is one completed exchange handed back for consolidation.
type Interaction struct {
	SessionID              string
	UserID                 string
	Question               string
	Answer                 string
	Topic                  string
	PositiveFeedback       bool
	NegativeFeedback       bool
	FollowUpCount          int
	SessionDurationSeconds float64
	ReturnVisits           int
}

// RecordInteraction persists the exchange in session history, scores its
// salience and decides the consolidation depth. History persistence failure
// degrades the triager's follow-up/novelty signals, not the triage itself.
func (e *engine) RecordInteraction(ctx context.Context, interaction *Interaction) *triage.Result {
	if _, err := e.store.CreateQueryHistoryEntry(ctx, &store.QueryHistoryEntry{
		SessionID: interaction.SessionID,
		UserID:    interaction.UserID,
		Question:  interaction.Question,
		AskedAt:   time.Now(),
	}); err != nil {
		e.logger.WarnContext(ctx, "failed to persist query history", "error", err)
	}

	score := e.salience.ScoreInteraction(&salience.Interaction{
		SessionID:              interaction.SessionID,
		Question:               interaction.Question,
		Response:               interaction.Answer,
		PositiveFeedback:       interaction.PositiveFeedback,
		FollowUpCount:          interaction.FollowUpCount,
		SessionDurationSeconds: interaction.SessionDurationSeconds,
		ReturnVisits:           interaction.ReturnVisits,
	})

	return e.triager.Triage(ctx, &triage.QueryRecord{
		SessionID:        interaction.SessionID,
		UserID:           interaction.UserID,
		Question:         interaction.Question,
		Answer:           interaction.Answer,
		PositiveFeedback: interaction.PositiveFeedback,
		NegativeFeedback: interaction.NegativeFeedback,
		Topic:            interaction.Topic,
		Salience:         score,
	})
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the engine, can be "prod" or "dev"`)
	flags.String("driver", "postgres", "database driver")
	flags.String("dsn", "", "database connection string")
	flags.String("embedding-api-key", "", "embedding provider api key")
	flags.String("embedding-base-url", "", "embedding provider base url")
	flags.String("embedding-model", "text-embedding-3-small", "embedding model")
	flags.Int("embedding-dimensions", 1024, "embedding vector dimensions")
	flags.Int("context-max-tokens", 4000, "token budget for assembled context")
	flags.Int("retrieval-limit", 10, "default retrieval result limit")
	flags.Duration("preflight-refresh-every", time.Hour, "preflight index refresh interval")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
