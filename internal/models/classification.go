package models

type UserState string

const (
	StateChildLike          UserState = "child_like_user"
	StateNewUser            UserState = "new_user"
	StateSeverelyStruggling UserState = "severely_struggling"
	StateStruggling         UserState = "struggling"
	StateFallingBack        UserState = "falling_back"
	StateProgressing        UserState = "progressing"
	StateExcelling          UserState = "excelling"
	StateExpertDemanding    UserState = "expert_demanding"
	StateStable             UserState = "stable"
)

var ValidUserStates = map[UserState]bool{
	StateChildLike:          true,
	StateNewUser:            true,
	StateSeverelyStruggling: true,
	StateStruggling:         true,
	StateFallingBack:        true,
	StateProgressing:        true,
	StateExcelling:          true,
	StateExpertDemanding:    true,
	StateStable:             true,
}

// AllUserStates lists every primary state in a fixed order, used for
// startup validation of the distribution tables.
var AllUserStates = []UserState{
	StateChildLike,
	StateNewUser,
	StateSeverelyStruggling,
	StateStruggling,
	StateFallingBack,
	StateProgressing,
	StateExcelling,
	StateExpertDemanding,
	StateStable,
}

type StateModifier string

const (
	ModifierConfidenceCrisis StateModifier = "confidence_crisis"
	ModifierDisengaged       StateModifier = "disengaged"
	ModifierPowerDependent   StateModifier = "power_dependent"
	ModifierFatigued         StateModifier = "fatigued"
	ModifierSessionDecline   StateModifier = "session_decline"
)

var AllStateModifiers = []StateModifier{
	ModifierConfidenceCrisis,
	ModifierDisengaged,
	ModifierPowerDependent,
	ModifierFatigued,
	ModifierSessionDecline,
}

type LearningTrend string

const (
	TrendImproving LearningTrend = "improving"
	TrendStable    LearningTrend = "stable"
	TrendDeclining LearningTrend = "declining"
)

// ClassificationResult is derived on every recommendation request and never
// persisted; recomputation is cheap and must reflect the latest signature.
type ClassificationResult struct {
	PrimaryState      UserState       `json:"primary_state"`
	Modifiers         []StateModifier `json:"modifiers,omitempty"`
	Trend             LearningTrend   `json:"trend"`
	WindowSuccessRate float64         `json:"window_success_rate"`
	SampleCount       int             `json:"sample_count"`
}

func (c ClassificationResult) HasModifier(m StateModifier) bool {
	for _, mm := range c.Modifiers {
		if mm == m {
			return true
		}
	}
	return false
}
