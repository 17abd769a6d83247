package generator

import (
	"fmt"

	"github.com/puzzlemind/backend/internal/models"
)

// typeGuidance holds the authoring rules for each puzzle type. The rules are
// injected into the user prompt so one system prompt covers every type.
var typeGuidance = map[models.PuzzleType]string{
	models.TypePattern: `Show a sequence of 4-6 items (shapes named in words, letters, or small numbers)
governed by a repeating or evolving rule, and ask which item comes next. Mark the
blank with "?". The rule must hold for every shown item, and exactly one option
may continue it.`,

	models.TypeNumberSeries: `Show a series of 4-6 integers produced by an arithmetic, geometric, or
alternating rule, and ask for the next number. Mark the blank with "?". All four
options must be integers, and exactly one must fit the rule.`,

	models.TypeAnalogy: `Use the form "A is to B as C is to ?". The A:B relationship must be a single
clean relation (category, function, part-whole, degree, opposite) that transfers
exactly to C. Avoid relations that depend on spelling or wordplay.`,

	models.TypeSpatialRotation: `Describe a simple figure or arrangement in words (grid positions, clock faces,
arrows, stacked shapes) and ask what it looks like after a stated rotation or
reflection. The figure must be describable in one sentence, and the transform
must be stated exactly (for example "rotated 90 degrees clockwise").`,

	models.TypeMemoryMatch: `List 5-8 items inside the question, then ask a question about the list itself:
which item appeared, which did not, which was listed twice, or which came in a
stated position. The list carries all the information needed.`,

	models.TypeLogicGrid: `Give 2-4 short clues about a small set of people or objects and their
attributes, then ask for one deducible fact. The clues must pin down exactly one
consistent answer to the asked fact, with no outside knowledge.`,

	models.TypeSpeedSort: `Give 4-6 items and a sorting rule (size, number, alphabetical order, time), and
ask which item comes first, last, or in a stated position once sorted. The rule
must produce a single unambiguous ordering.`,

	models.TypeOddOneOut: `Give 4 items of which exactly 3 share a clear property the fourth lacks, and
ask which one does not belong. The shared property must be the only reasonable
grouping of the three.`,
}

var difficultyGuidance = map[models.DifficultyLabel]string{
	models.DifficultyEasy:   "One-step rule, small numbers or short sequences. Distractors are clearly weaker than the answer.",
	models.DifficultyMedium: "Two-step or combined rule. One genuinely tempting distractor that tests the most common mistake.",
	models.DifficultyHard:   "Multi-step or disguised rule with a larger search space. Two tempting distractors that each survive a first glance.",
}

func SystemPrompt() string {
	return `You are an expert puzzle designer for a cognitive training game played by children and adults. You write short, self-contained puzzles that are fair, fun, and have exactly one defensible answer.

Every puzzle must follow these structural rules:

QUESTION:
- Fully self-contained: everything needed to solve it appears in the question text
- 1-3 sentences in plain language
- No cultural trivia, regional knowledge, or current events
- Never references the game, scoring, hints, or difficulty

OPTIONS:
- Exactly 4 options
- Exactly ONE correct option
- The 3 wrong options must each be wrong for a specific, identifiable reason
- Wrong options should be plausible near-misses, not obviously absurd
- No "all of the above", "none of the above", or joke options
- Options should be short: a word, a number, or a brief phrase

EXPLANATION:
- 1-3 sentences stating the rule or pattern and why the correct option satisfies it
- Must restate the correct answer so someone who chose wrongly can check their work

TOPIC VARIETY:
- Draw surface content from everyday objects, animals, numbers, letters, colors, and simple scenes
- Each puzzle in a batch must use different surface content

You must respond with valid JSON only. No markdown, no explanation outside the JSON.`
}

func BuildUserPrompt(pt models.PuzzleType, difficulty models.DifficultyLabel, count int) string {
	return fmt.Sprintf(`Generate exactly %d puzzles.

Puzzle type: %s
Difficulty: %s

Type rules:
%s

Difficulty calibration:
%s

Respond with this exact JSON structure:
{
  "puzzles": [
    {
      "question": "...",
      "options": ["...", "...", "...", "..."],
      "correct_index": 2,
      "explanation": "..."
    }
  ]
}

Requirements:
- correct_index is zero-based
- Each puzzle must use different surface content — no two puzzles in the same batch built on the same items or numbers
- Vary the position of the correct option across 0-3 — do not cluster correct answers`,
		count, string(pt), string(difficulty), typeGuidance[pt], difficultyGuidance[difficulty])
}

// TypeGuidance exposes the authoring rules for a puzzle type, for tooling
// that previews prompts.
func TypeGuidance(pt models.PuzzleType) string {
	return typeGuidance[pt]
}
