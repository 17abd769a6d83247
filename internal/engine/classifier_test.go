package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testClassifier() *Classifier {
	return NewClassifier(config.DefaultConfig().Classifier)
}

// histSig builds a signature with the given lifetime sample count and a
// recent window of outcomes, one response per minute at difficulty 0.5.
func histSig(total int, outcomes []bool) *models.BehavioralSignature {
	sig := models.NewBehavioralSignature("u-test", t0)
	sig.TotalPuzzlesSolved = total
	for i, ok := range outcomes {
		if ok {
			sig.TotalCorrect++
		}
		sig.AppendResponse(models.ResponseRecord{
			PuzzleID:    fmt.Sprintf("p%d", i),
			Type:        models.TypePattern,
			Difficulty:  0.5,
			Correct:     ok,
			SolveTimeMs: 3000,
			Engagement:  0.7,
			At:          t0.Add(time.Duration(i) * time.Minute),
		})
	}
	return sig
}

// window builds an outcome slice with the given per-half correct counts,
// correct answers at the front of each half.
func window(firstCorrect, secondCorrect, half int) []bool {
	out := make([]bool, 0, 2*half)
	for _, c := range []int{firstCorrect, secondCorrect} {
		for i := 0; i < half; i++ {
			out = append(out, i < c)
		}
	}
	return out
}

func TestClassify_EmptySignature(t *testing.T) {
	c := testClassifier()
	got := c.Classify(models.NewBehavioralSignature("u-test", t0))

	if got.PrimaryState != models.StateNewUser {
		t.Errorf("expected new_user for empty signature, got %s", got.PrimaryState)
	}
	if len(got.Modifiers) != 0 {
		t.Errorf("expected no modifiers for empty signature, got %v", got.Modifiers)
	}
	if got.Trend != models.TrendStable {
		t.Errorf("expected stable trend for empty signature, got %s", got.Trend)
	}
	if got.SampleCount != 0 {
		t.Errorf("expected SampleCount 0, got %d", got.SampleCount)
	}
}

func TestClassify_NewUser(t *testing.T) {
	c := testClassifier()
	// 5 lifetime puzzles, all correct: sample count rules before accuracy
	got := c.Classify(histSig(5, window(3, 2, 3)[:5]))

	if got.PrimaryState != models.StateNewUser {
		t.Errorf("expected new_user below threshold, got %s", got.PrimaryState)
	}
}

func TestClassify_PrimaryStates(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		name     string
		outcomes []bool
		want     models.UserState
	}{
		// 0.2 flat → severely_struggling
		{"severe", window(2, 2, 10), models.StateSeverelyStruggling},
		// 0.4 flat → struggling
		{"struggling", window(4, 4, 10), models.StateStruggling},
		// 0.55 with a collapsing second half → falling_back
		{"falling_back", window(8, 3, 10), models.StateFallingBack},
		// 0.7 flat: above progress bar but no improving trend
		{"stable", window(7, 7, 10), models.StateStable},
		// 0.7 improving → progressing
		{"progressing", window(5, 9, 10), models.StateProgressing},
		// 0.85 → excelling
		{"excelling", window(8, 9, 10), models.StateExcelling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(histSig(200, tt.outcomes))
			if got.PrimaryState != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.PrimaryState)
			}
		})
	}
}

func TestClassify_ExpertDemanding(t *testing.T) {
	c := testClassifier()

	// Perfect accuracy on hard puzzles → expert_demanding, not excelling
	sig := histSig(200, window(10, 10, 10))
	for i := range sig.RecentResponses {
		sig.RecentResponses[i].Difficulty = 0.8
	}

	got := c.Classify(sig)
	if got.PrimaryState != models.StateExpertDemanding {
		t.Errorf("expected expert_demanding, got %s", got.PrimaryState)
	}

	// Same accuracy on mid puzzles stays excelling
	sig = histSig(200, window(10, 10, 10))
	got = c.Classify(sig)
	if got.PrimaryState != models.StateExcelling {
		t.Errorf("expected excelling at mid difficulty, got %s", got.PrimaryState)
	}
}

func TestClassify_ChildLike(t *testing.T) {
	c := testClassifier()

	// Slow responses, neutral skill and math estimates, mid-range samples
	sig := histSig(20, window(7, 7, 10))
	for i := range sig.RecentResponses {
		sig.RecentResponses[i].SolveTimeMs = 10000
	}

	got := c.Classify(sig)
	if got.PrimaryState != models.StateChildLike {
		t.Errorf("expected child_like, got %s", got.PrimaryState)
	}

	// Too many lifetime samples → pattern no longer reads as a child
	sig.TotalPuzzlesSolved = 200
	got = c.Classify(sig)
	if got.PrimaryState == models.StateChildLike {
		t.Error("expected child_like to expire past the sample window")
	}

	// High skill breaks the pattern even inside the window
	sig.TotalPuzzlesSolved = 20
	sig.SkillLevel = 0.7
	got = c.Classify(sig)
	if got.PrimaryState == models.StateChildLike {
		t.Error("expected high skill to rule out child_like")
	}
}

func TestClassify_ConfidenceCrisis(t *testing.T) {
	c := testClassifier()

	sig := histSig(200, window(7, 7, 10))
	sig.ConsecutiveFailures = 3

	got := c.Classify(sig)
	if !got.HasModifier(models.ModifierConfidenceCrisis) {
		t.Errorf("expected confidence_crisis at 3 consecutive failures, got %v", got.Modifiers)
	}

	sig.ConsecutiveFailures = 2
	got = c.Classify(sig)
	if got.HasModifier(models.ModifierConfidenceCrisis) {
		t.Error("expected no confidence_crisis at 2 consecutive failures")
	}
}

func TestClassify_Disengaged(t *testing.T) {
	c := testClassifier()

	sig := histSig(200, window(7, 7, 10))
	for i := range sig.RecentResponses {
		sig.RecentResponses[i].Engagement = 0.2
	}

	got := c.Classify(sig)
	if !got.HasModifier(models.ModifierDisengaged) {
		t.Errorf("expected disengaged at avg engagement 0.2, got %v", got.Modifiers)
	}
}

func TestClassify_PowerDependent(t *testing.T) {
	c := testClassifier()

	sig := histSig(200, window(7, 7, 10))
	for i := range sig.RecentResponses {
		sig.RecentResponses[i].UsedPowerUp = i%10 < 7 // 70% of the window
	}

	got := c.Classify(sig)
	if !got.HasModifier(models.ModifierPowerDependent) {
		t.Errorf("expected power_dependent at 70%% usage, got %v", got.Modifiers)
	}
}

// sessionSig builds a signature whose current session holds the given
// outcomes spread evenly across the given duration.
func sessionSig(outcomes []bool, minutes float64) *models.BehavioralSignature {
	sig := models.NewBehavioralSignature("u-test", t0)
	sig.TotalPuzzlesSolved = 200
	start := t0.Add(time.Hour)
	sig.CurrentSession = &models.SessionRecord{SessionID: "s1", StartedAt: start}
	step := minutes / float64(len(outcomes))
	for i, ok := range outcomes {
		sig.AppendResponse(models.ResponseRecord{
			PuzzleID:    fmt.Sprintf("sp%d", i),
			Type:        models.TypeLogicGrid,
			Difficulty:  0.5,
			Correct:     ok,
			SolveTimeMs: 3000,
			Engagement:  0.7,
			SessionID:   "s1",
			At:          start.Add(time.Duration(float64(i+1) * step * float64(time.Minute))),
		})
	}
	return sig
}

func TestClassify_Fatigued(t *testing.T) {
	c := testClassifier()

	// 30-minute session with accuracy falling across the halves
	sig := sessionSig(window(3, 1, 3), 30)
	got := c.Classify(sig)
	if !got.HasModifier(models.ModifierFatigued) {
		t.Errorf("expected fatigued, got %v", got.Modifiers)
	}

	// Same decline in a 10-minute session is not fatigue
	sig = sessionSig(window(3, 1, 3), 10)
	got = c.Classify(sig)
	if got.HasModifier(models.ModifierFatigued) {
		t.Error("expected no fatigued for a short session")
	}
}

func TestClassify_SessionDecline(t *testing.T) {
	c := testClassifier()

	// Sharp within-session drop flags decline even in a short session
	sig := sessionSig(window(3, 1, 3), 10)
	got := c.Classify(sig)
	if !got.HasModifier(models.ModifierSessionDecline) {
		t.Errorf("expected session_decline, got %v", got.Modifiers)
	}

	// 13 responses: first 6 at 4/6, last 7 at 4/7. The drop is real but
	// under the decline threshold, so a long session reads fatigued only.
	outcomes := append(window(4, 0, 6)[:6], window(4, 0, 7)[:7]...)
	sig = sessionSig(outcomes, 30)
	got = c.Classify(sig)
	if !got.HasModifier(models.ModifierFatigued) {
		t.Errorf("expected fatigued for a shallow long-session drop, got %v", got.Modifiers)
	}
	if got.HasModifier(models.ModifierSessionDecline) {
		t.Errorf("expected no session_decline for a shallow drop, got %v", got.Modifiers)
	}
}

func TestTrend(t *testing.T) {
	c := testClassifier()

	toRecords := func(outcomes []bool) []models.ResponseRecord {
		rs := make([]models.ResponseRecord, len(outcomes))
		for i, ok := range outcomes {
			rs[i].Correct = ok
		}
		return rs
	}

	tests := []struct {
		name     string
		outcomes []bool
		want     models.LearningTrend
	}{
		{"improving", window(4, 8, 10), models.TrendImproving},
		{"declining", window(8, 4, 10), models.TrendDeclining},
		{"flat", window(6, 6, 10), models.TrendStable},
		{"window too small", window(1, 3, 3), models.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.trend(toRecords(tt.outcomes))
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
