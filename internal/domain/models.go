package domain

import "time"

// Difficulty grades a question. Zero means unspecified.
type Difficulty int

const (
	DifficultyNone Difficulty = iota
	DifficultyEasy
	DifficultyMedium
	DifficultyHard
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	default:
		return "none"
	}
}

// ParseDifficulty maps a display name back to its grade. Unknown names and
// the empty string mean unspecified.
func ParseDifficulty(name string) Difficulty {
	switch name {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return DifficultyNone
	}
}

// Topic is a named collection of questions owned by one user.
// QuestionCount is a denormalized counter maintained on question
// create/delete, never recomputed by scanning.
type Topic struct {
	ID            int64  `json:"id"`
	OwnerID       int64  `json:"ownerId"`
	Name          string `json:"name"`
	QuestionCount int    `json:"questionCount"`
}

// Option is one answer choice of a question, stored as its own row.
type Option struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Question is an MCQ with five options, exactly one of which is correct.
type Question struct {
	ID              int64      `json:"id"`
	TopicID         int64      `json:"topicId"`
	OwnerID         int64      `json:"ownerId"`
	Text            string     `json:"text"`
	Difficulty      Difficulty `json:"difficulty"`
	CorrectOptionID int64      `json:"-"`
	Options         []Option   `json:"options"`
}

// OptionIDByText resolves an option's id from its display text.
func (q Question) OptionIDByText(text string) (int64, bool) {
	for _, opt := range q.Options {
		if opt.Text == text {
			return opt.ID, true
		}
	}
	return 0, false
}

// OptionTextByID resolves an option's display text from its id.
func (q Question) OptionTextByID(id int64) (string, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt.Text, true
		}
	}
	return "", false
}

// QuizState is derived from the clock and the stored schedule; it is never persisted.
type QuizState int

const (
	QuizDraft QuizState = iota
	QuizScheduled
	QuizRunning
	QuizFinished
)

func (s QuizState) String() string {
	switch s {
	case QuizScheduled:
		return "scheduled"
	case QuizRunning:
		return "running"
	case QuizFinished:
		return "finished"
	default:
		return "draft"
	}
}

// Quiz is a scheduled, ordered subset of a topic's questions with a scoring window.
// TotalParticipants and AverageMarks are mutated exclusively by the statistics
// aggregator.
type Quiz struct {
	ID                int64     `json:"id"`
	TopicID           int64     `json:"topicId"`
	OwnerID           int64     `json:"ownerId"`
	Name              string    `json:"name"`
	StartAt           time.Time `json:"startAt"`
	DurationSec       int       `json:"durationSec"`
	IsPublic          bool      `json:"isPublic"`
	QuestionIDs       []int64   `json:"questionIds"`
	TotalParticipants int       `json:"totalParticipants"`
	AverageMarks      int       `json:"averageMarks"`
}

// EndAt is the instant the scoring window closes.
func (q Quiz) EndAt() time.Time {
	return q.StartAt.Add(time.Duration(q.DurationSec) * time.Second)
}

// State classifies the quiz at the given instant. A non-public quiz is always
// Draft; otherwise the state follows the clock: [start, start+duration) is
// Running, before is Scheduled, at or after the end is Finished.
func (q Quiz) State(now time.Time) QuizState {
	if !q.IsPublic {
		return QuizDraft
	}
	if now.Before(q.StartAt) {
		return QuizScheduled
	}
	if now.Before(q.EndAt()) {
		return QuizRunning
	}
	return QuizFinished
}

// Started reports whether the scheduled start has passed, public or not.
func (q Quiz) Started(now time.Time) bool {
	return !now.Before(q.StartAt)
}

// Finished reports whether the scoring window has closed, public or not.
func (q Quiz) Finished(now time.Time) bool {
	return !now.Before(q.EndAt())
}

// SpentSeconds is 0 before the start, the full duration after the end, and
// the elapsed time in between.
func (q Quiz) SpentSeconds(now time.Time) int {
	if !q.Started(now) {
		return 0
	}
	if q.Finished(now) {
		return q.DurationSec
	}
	return int(now.Sub(q.StartAt) / time.Second)
}

// RemainingSeconds is the full duration before the start, 0 after the end,
// and the time left in between.
func (q Quiz) RemainingSeconds(now time.Time) int {
	if !q.Started(now) {
		return q.DurationSec
	}
	if q.Finished(now) {
		return 0
	}
	return int(q.EndAt().Sub(now) / time.Second)
}

// EditableBy reports whether the caller may mutate the quiz at the given
// instant: the owner may, except while the quiz is public and running.
// A finished public quiz becomes editable again; that matches the lifecycle
// rule this service inherited and is deliberate.
func (q Quiz) EditableBy(callerID int64, now time.Time) bool {
	return callerID == q.OwnerID && !(q.IsPublic && q.State(now) == QuizRunning)
}

// Result is the immutable scored outcome of one submitted answer sheet.
// At most one exists per (quiz, participant) pair, ever.
type Result struct {
	ID            int64 `json:"id"`
	QuizID        int64 `json:"quizId"`
	ParticipantID int64 `json:"participantId"`
	ObtainedMarks int   `json:"obtainedMarks"`
	Percentage    int   `json:"percentage"`
}

// RankEntry is one row of a quiz's rank list, ordered by obtained marks.
type RankEntry struct {
	ResultID      int64 `json:"resultId"`
	ParticipantID int64 `json:"participantId"`
	ObtainedMarks int   `json:"obtainedMarks"`
	Percentage    int   `json:"percentage"`
}
