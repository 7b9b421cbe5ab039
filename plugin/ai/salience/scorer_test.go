package salience

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreInteraction_Signals(t *testing.T) {
	scorer := NewScorer()

	t.Run("EmptyInteraction", func(t *testing.T) {
		result := scorer.ScoreInteraction(&Interaction{})
		assert.Equal(t, 0.0, result.Score)
		assert.Empty(t, result.SignalsDetected)
	})

	t.Run("NilInteraction", func(t *testing.T) {
		result := scorer.ScoreInteraction(nil)
		assert.Equal(t, 0.0, result.Score)
	})

	t.Run("PositiveFeedback", func(t *testing.T) {
		result := scorer.ScoreInteraction(&Interaction{PositiveFeedback: true})
		assert.InDelta(t, 0.20, result.Contributions[SignalPositiveFeedback], 1e-9)
	})

	t.Run("FollowUpsScaleAndSaturate", func(t *testing.T) {
		two := scorer.ScoreInteraction(&Interaction{FollowUpCount: 2})
		assert.InDelta(t, 0.15*2/5, two.Contributions[SignalFollowUps], 1e-9)

		many := scorer.ScoreInteraction(&Interaction{FollowUpCount: 12})
		assert.InDelta(t, 0.15, many.Contributions[SignalFollowUps], 1e-9)
	})

	t.Run("SessionDuration", func(t *testing.T) {
		short := scorer.ScoreInteraction(&Interaction{SessionDurationSeconds: 200})
		assert.NotContains(t, short.Contributions, SignalLongSession)

		halfHour := scorer.ScoreInteraction(&Interaction{SessionDurationSeconds: 1800})
		assert.InDelta(t, 0.10*(0.5+0.5*0.5), halfHour.Contributions[SignalLongSession], 1e-9)

		twoHours := scorer.ScoreInteraction(&Interaction{SessionDurationSeconds: 7200})
		assert.InDelta(t, 0.10, twoHours.Contributions[SignalLongSession], 1e-9)
	})

	t.Run("DetailedResponse", func(t *testing.T) {
		long := strings.Repeat("word ", 220)
		result := scorer.ScoreInteraction(&Interaction{Response: long})
		assert.InDelta(t, 0.10, result.Contributions[SignalDetailedResponse], 1e-9)
	})

	t.Run("CodeDetection", func(t *testing.T) {
		fenced := scorer.ScoreInteraction(&Interaction{Response: "use this:\n```\nSELECT 1;\n```"})
		assert.Contains(t, fenced.Contributions, SignalCodePresent)

		inline := scorer.ScoreInteraction(&Interaction{Question: "what does `defer` do"})
		assert.Contains(t, inline.Contributions, SignalCodePresent)

		syntax := scorer.ScoreInteraction(&Interaction{Response: "func main() { ... }"})
		assert.Contains(t, syntax.Contributions, SignalCodePresent)
	})

	t.Run("ReturnVisits", func(t *testing.T) {
		result := scorer.ScoreInteraction(&Interaction{ReturnVisits: 2})
		assert.InDelta(t, 0.15*2/3, result.Contributions[SignalReturnVisits], 1e-9)
	})

	t.Run("EmotionalMarkers", func(t *testing.T) {
		one := scorer.ScoreInteraction(&Interaction{Question: "this is so frustrating, nothing works"})
		assert.InDelta(t, 0.10*1/3, one.Contributions[SignalEmotional], 1e-9)

		two := scorer.ScoreInteraction(&Interaction{Question: "urgent: the deploy is broken and I'm stuck"})
		assert.InDelta(t, 0.10*2/3, two.Contributions[SignalEmotional], 1e-9)
	})

	t.Run("ScoreClamped", func(t *testing.T) {
		result := scorer.ScoreInteraction(&Interaction{
			Question:               "urgent!! this broken thing is frustrating but the fix was awesome `code`",
			Response:               strings.Repeat("word ", 300) + "\n```go\nfunc x() {}\n```",
			PositiveFeedback:       true,
			FollowUpCount:          10,
			SessionDurationSeconds: 7200,
			ReturnVisits:           5,
		})
		assert.LessOrEqual(t, result.Score, 1.0)
	})
}

func TestContextWindowBoost(t *testing.T) {
	scorer := NewScorer()
	session := "sess-1"

	// Fill the window with high scores.
	for i := 0; i < 5; i++ {
		scorer.ScoreInteraction(&Interaction{
			SessionID:        session,
			PositiveFeedback: true,
			FollowUpCount:    5,
			ReturnVisits:     3,
			Response:         strings.Repeat("word ", 250),
		})
	}

	boosted := scorer.ScoreInteraction(&Interaction{SessionID: session, PositiveFeedback: true})
	assert.Greater(t, boosted.ContextWindowBoost, 0.0)
	assert.LessOrEqual(t, boosted.ContextWindowBoost, 0.05)
	assert.InDelta(t, 0.20+boosted.ContextWindowBoost, boosted.Score, 1e-9)

	// A fresh session gets no boost.
	fresh := scorer.ScoreInteraction(&Interaction{SessionID: "sess-2", PositiveFeedback: true})
	assert.Equal(t, 0.0, fresh.ContextWindowBoost)
}

func TestIsHigh(t *testing.T) {
	assert.True(t, (&Score{Score: 0.7}).IsHigh(DefaultHighThreshold))
	assert.False(t, (&Score{Score: 0.5}).IsHigh(DefaultHighThreshold))
	assert.True(t, (&Score{Score: 0.6}).IsHigh(DefaultHighThreshold))
}

func TestConcurrentSameSession(t *testing.T) {
	scorer := NewScorer()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scorer.ScoreInteraction(&Interaction{SessionID: "shared", PositiveFeedback: true})
		}()
	}
	wg.Wait()

	result := scorer.ScoreInteraction(&Interaction{SessionID: "shared", PositiveFeedback: true})
	require.NotNil(t, result)
	assert.GreaterOrEqual(t, result.Score, 0.20)
}

func TestPruneSessions(t *testing.T) {
	scorer := NewScorer()
	for i := 0; i < 10; i++ {
		scorer.ScoreInteraction(&Interaction{SessionID: fmt.Sprintf("sess-%d", i), PositiveFeedback: true})
	}
	scorer.PruneSessions(3)
	assert.LessOrEqual(t, len(scorer.windows.windows), 3)
}
