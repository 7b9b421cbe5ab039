// Package triage classifies how much knowledge-extraction effort a
// completed query deserves: full extraction, lightweight tagging, or none.
package triage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mnemoslab/engram/plugin/ai/salience"
)

// Priority is the consolidation priority class.
type Priority string

const (
	PriorityFullExtraction     Priority = "FULL_EXTRACTION"
	PriorityLightweightTagging Priority = "LIGHTWEIGHT_TAGGING"
	PriorityTransient          Priority = "TRANSIENT"
)

// Score thresholds and signal increments.
const (
	FullExtractionThreshold = 0.6
	LightweightThreshold    = 0.3

	baseScore = 0.5

	longResponseBonus     = 0.10
	codeInAnswerBonus     = 0.10
	codeInQuestionBonus   = 0.05
	substantialBonus      = 0.05
	technicalBonus        = 0.05
	errorLanguageBonus    = 0.05
	positiveFeedbackBonus = 0.20
	negativeFeedbackBonus = 0.05
	followUpBonus         = 0.15
	noveltyBonus          = 0.15
	salienceBoostCap      = 0.15

	longResponseWords      = 200
	substantialQuestionLen = 100
	salienceGate           = 0.5
)

// Signal names reported in SignalsDetected.
const (
	SignalLongResponse     = "long_response"
	SignalCodeInAnswer     = "code_in_answer"
	SignalCodeInQuestion   = "code_in_question"
	SignalSubstantial      = "substantial_question"
	SignalTechnical        = "technical_keywords"
	SignalErrorLanguage    = "error_language"
	SignalPositiveFeedback = "positive_feedback"
	SignalNegativeFeedback = "negative_feedback"
	SignalFollowUp         = "follow_up"
	SignalNovelTopic       = "novel_topic"
	SignalSalience         = "salience_boost"
)

// Result is the triage verdict.
type Result struct {
	Priority        Priority
	Score           float64
	SignalsDetected []string
	TransientReason string
}

// QueryRecord carries the completed interaction under triage.
type QueryRecord struct {
	SessionID        string
	UserID           string
	Question         string
	Answer           string
	PositiveFeedback bool
	NegativeFeedback bool
	Topic            string
	Salience         *salience.Score // optional, pre-computed salience
}

// FollowUpChecker reports whether the query is a follow-up within the
// session. Optional: a nil checker contributes nothing.
type FollowUpChecker interface {
	IsFollowUp(ctx context.Context, record *QueryRecord) (bool, error)
}

// NoveltyChecker reports whether the topic is new for the user. Optional.
type NoveltyChecker interface {
	IsNovelTopic(ctx context.Context, userID, topic string) (bool, error)
}

// Triager scores consolidation priority.
type Triager struct {
	followUp FollowUpChecker
	novelty  NoveltyChecker
	logger   *slog.Logger
}

// Option configures a Triager.
type Option func(*Triager)

// WithFollowUpChecker wires a session-history follow-up signal.
func WithFollowUpChecker(c FollowUpChecker) Option {
	return func(t *Triager) { t.followUp = c }
}

// WithNoveltyChecker wires a topic-novelty signal.
func WithNoveltyChecker(c NoveltyChecker) Option {
	return func(t *Triager) { t.novelty = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Triager) { t.logger = logger }
}

// New creates a Triager. All signal sources are optional.
func New(opts ...Option) *Triager {
	t := &Triager{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Triage classifies the record. Transient questions short-circuit to
// TRANSIENT with score zero before any other signal is considered.
func (t *Triager) Triage(ctx context.Context, record *QueryRecord) *Result {
	if record == nil {
		return &Result{Priority: PriorityTransient, Score: 0, TransientReason: "empty_record"}
	}

	if isTransientQuestion(record.Question) {
		return &Result{
			Priority:        PriorityTransient,
			Score:           0,
			TransientReason: "transient_pattern",
		}
	}

	result := &Result{Score: baseScore}
	add := func(signal string, bonus float64) {
		result.SignalsDetected = append(result.SignalsDetected, signal)
		result.Score += bonus
	}

	if len(strings.Fields(record.Answer)) >= longResponseWords {
		add(SignalLongResponse, longResponseBonus)
	}
	if containsCode(record.Answer) {
		add(SignalCodeInAnswer, codeInAnswerBonus)
	}
	if containsCode(record.Question) {
		add(SignalCodeInQuestion, codeInQuestionBonus)
	}
	if len(record.Question) > substantialQuestionLen {
		add(SignalSubstantial, substantialBonus)
	}
	if technicalKeywordRe.MatchString(record.Question) || technicalKeywordRe.MatchString(record.Answer) {
		add(SignalTechnical, technicalBonus)
	}
	if errorLanguageRe.MatchString(record.Question) {
		add(SignalErrorLanguage, errorLanguageBonus)
	}
	switch {
	case record.PositiveFeedback:
		add(SignalPositiveFeedback, positiveFeedbackBonus)
	case record.NegativeFeedback:
		add(SignalNegativeFeedback, negativeFeedbackBonus)
	}

	// Persistence-backed signals are optional capabilities; their absence
	// or failure leaves the content signals untouched.
	if t.followUp != nil {
		if isFollowUp, err := t.followUp.IsFollowUp(ctx, record); err != nil {
			t.logger.WarnContext(ctx, "follow-up check failed", "error", err)
		} else if isFollowUp {
			add(SignalFollowUp, followUpBonus)
		}
	}
	if t.novelty != nil && record.Topic != "" {
		if novel, err := t.novelty.IsNovelTopic(ctx, record.UserID, record.Topic); err != nil {
			t.logger.WarnContext(ctx, "novelty check failed", "error", err)
		} else if novel {
			add(SignalNovelTopic, noveltyBonus)
		}
	}

	if record.Salience != nil && record.Salience.Score >= salienceGate {
		boost := record.Salience.Score * salienceBoostCap
		if boost > salienceBoostCap {
			boost = salienceBoostCap
		}
		add(SignalSalience, boost)
	}

	result.Score = clamp01(result.Score)
	switch {
	case result.Score >= FullExtractionThreshold:
		result.Priority = PriorityFullExtraction
	case result.Score >= LightweightThreshold:
		result.Priority = PriorityLightweightTagging
	default:
		result.Priority = PriorityTransient
		result.TransientReason = "low_score"
	}
	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
