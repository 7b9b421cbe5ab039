// Package salience scores completed interactions for engagement and
// emotional significance. High-salience interactions earn more
// consolidation effort downstream.
package salience

import (
	"regexp"
	"strings"
)

// Signal names reported in SignalsDetected and Contributions.
const (
	SignalPositiveFeedback = "positive_feedback"
	SignalFollowUps        = "follow_ups"
	SignalLongSession      = "long_session"
	SignalDetailedResponse = "detailed_response"
	SignalCodePresent      = "code_present"
	SignalReturnVisits     = "return_visits"
	SignalEmotional        = "emotional_markers"
)

// Signal weights and gates.
const (
	positiveFeedbackWeight = 0.20
	followUpWeight         = 0.15
	sessionWeight          = 0.10
	detailedWeight         = 0.10
	codeWeight             = 0.10
	returnVisitWeight      = 0.15
	emotionalWeight        = 0.10

	minSessionSeconds  = 300
	minResponseWords   = 200
	maxFollowUps       = 5
	maxReturnVisits    = 3
	maxEmotionalGroups = 3

	// DefaultHighThreshold is the conventional bar for "high salience".
	DefaultHighThreshold = 0.6
)

// Interaction carries the signals of one completed exchange. Missing fields
// simply contribute nothing; scoring never fails.
type Interaction struct {
	SessionID              string
	Question               string
	Response               string
	PositiveFeedback       bool
	FollowUpCount          int
	SessionDurationSeconds float64
	ReturnVisits           int
}

// Score is the salience verdict for one interaction.
type Score struct {
	Score              float64
	SignalsDetected    []string
	Contributions      map[string]float64
	ContextWindowBoost float64
}

// IsHigh reports whether the score clears the threshold.
func (s *Score) IsHigh(threshold float64) bool {
	return s.Score >= threshold
}

var (
	fencedCodeRe   = regexp.MustCompile("```")
	inlineCodeRe   = regexp.MustCompile("`[^`]+`")
	codeSyntaxRe   = regexp.MustCompile(`(?m)(func\s+\w+\s*\(|def\s+\w+\s*\(|class\s+\w+|import\s+[\w."/]+|=>\s|;\s*$)`)
	frustrationRe  = regexp.MustCompile(`(?i)(frustrat|annoying|stuck|confus|doesn'?t work|not working|broken|keeps failing)`)
	excitementRe   = regexp.MustCompile(`(?i)(awesome|amazing|perfect|excellent|brilliant|love (it|this)|finally works)`)
	urgencyRe      = regexp.MustCompile(`(?i)(urgent|asap|immediately|right now|deadline|critical|emergency)`)
	emotionGroupRe = []*regexp.Regexp{frustrationRe, excitementRe, urgencyRe}
)

// Scorer computes salience scores and keeps the per-session score windows.
type Scorer struct {
	windows *sessionWindows
}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{windows: newSessionWindows()}
}

// ScoreInteraction scores one interaction. The per-session window of recent
// scores is read for the context boost and updated with the final score.
func (s *Scorer) ScoreInteraction(interaction *Interaction) *Score {
	result := &Score{Contributions: map[string]float64{}}
	if interaction == nil {
		return result
	}

	add := func(signal string, contribution float64) {
		if contribution <= 0 {
			return
		}
		result.SignalsDetected = append(result.SignalsDetected, signal)
		result.Contributions[signal] = contribution
		result.Score += contribution
	}

	if interaction.PositiveFeedback {
		add(SignalPositiveFeedback, positiveFeedbackWeight)
	}
	if interaction.FollowUpCount > 0 {
		count := minInt(interaction.FollowUpCount, maxFollowUps)
		add(SignalFollowUps, followUpWeight*float64(count)/maxFollowUps)
	}
	if interaction.SessionDurationSeconds >= minSessionSeconds {
		hours := interaction.SessionDurationSeconds / 3600
		if hours > 1 {
			hours = 1
		}
		add(SignalLongSession, sessionWeight*(0.5+0.5*hours))
	}
	if wordCount(interaction.Response) >= minResponseWords {
		add(SignalDetailedResponse, detailedWeight)
	}
	if containsCode(interaction.Response) || containsCode(interaction.Question) {
		add(SignalCodePresent, codeWeight)
	}
	if interaction.ReturnVisits > 0 {
		visits := minInt(interaction.ReturnVisits, maxReturnVisits)
		add(SignalReturnVisits, returnVisitWeight*float64(visits)/maxReturnVisits)
	}
	if groups := emotionalGroups(interaction.Question); groups > 0 {
		add(SignalEmotional, emotionalWeight*float64(minInt(groups, maxEmotionalGroups))/maxEmotionalGroups)
	}

	if interaction.SessionID != "" {
		if boost := s.windows.boost(interaction.SessionID); boost > 0 {
			result.ContextWindowBoost = boost
			result.Score += boost
		}
	}

	result.Score = clamp01(result.Score)

	if interaction.SessionID != "" {
		s.windows.record(interaction.SessionID, result.Score)
	}
	return result
}

// PruneSessions drops windows not touched within maxSessions entries of use.
func (s *Scorer) PruneSessions(keep int) {
	s.windows.prune(keep)
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func containsCode(text string) bool {
	if text == "" {
		return false
	}
	return fencedCodeRe.MatchString(text) ||
		inlineCodeRe.MatchString(text) ||
		codeSyntaxRe.MatchString(text)
}

func emotionalGroups(text string) int {
	if text == "" {
		return 0
	}
	count := 0
	for _, re := range emotionGroupRe {
		if re.MatchString(text) {
			count++
		}
	}
	return count
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
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
