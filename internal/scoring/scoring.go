// Package scoring evaluates staged answers against a quiz's answer key.
// It is a pure computation; persistence and gating live in the app layer.
package scoring

import "math"

// Default mark weights, overridable through config.
const (
	DefaultQuestionMarks = 5
	DefaultMinusMarks    = 2
)

// Scheme fixes the marks awarded per correct answer and deducted per wrong one.
type Scheme struct {
	QuestionMarks int
	MinusMarks    int
}

func DefaultScheme() Scheme {
	return Scheme{QuestionMarks: DefaultQuestionMarks, MinusMarks: DefaultMinusMarks}
}

// Outcome is the scored result of one answer sheet.
type Outcome struct {
	Correct       int
	Wrong         int
	Unanswered    int
	ObtainedMarks int
	TotalMarks    int
	Percentage    int
}

// Score compares staged answers (questionID -> chosen optionID) against the
// answer key (questionID -> correct optionID). Unanswered questions count
// toward neither correct nor wrong. Percentage rounds half away from zero,
// which also keeps negative totals on the mathematically nearest integer.
func (s Scheme) Score(key map[int64]int64, staged map[int64]int64) Outcome {
	out := Outcome{TotalMarks: len(key) * s.QuestionMarks}

	for questionID, correctOptionID := range key {
		chosen, answered := staged[questionID]
		switch {
		case !answered:
			out.Unanswered++
		case chosen == correctOptionID:
			out.Correct++
		default:
			out.Wrong++
		}
	}

	out.ObtainedMarks = out.Correct*s.QuestionMarks - out.Wrong*s.MinusMarks
	if out.TotalMarks > 0 {
		out.Percentage = int(math.Round(float64(out.ObtainedMarks) / float64(out.TotalMarks) * 100))
	}
	return out
}
