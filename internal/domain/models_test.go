package domain

import (
	"testing"
	"time"
)

func sampleQuiz() Quiz {
	return Quiz{
		ID:          1,
		OwnerID:     1,
		StartAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		DurationSec: 3600,
		IsPublic:    true,
	}
}

func TestStateFollowsClock(t *testing.T) {
	quiz := sampleQuiz()
	start := quiz.StartAt
	end := quiz.EndAt()

	cases := []struct {
		name string
		now  time.Time
		want QuizState
	}{
		{"one second before start", start.Add(-time.Second), QuizScheduled},
		{"exactly at start", start, QuizRunning},
		{"one second before end", end.Add(-time.Second), QuizRunning},
		{"exactly at end", end, QuizFinished},
		{"long after end", end.Add(24 * time.Hour), QuizFinished},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := quiz.State(tc.now); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNonPublicQuizIsAlwaysDraft(t *testing.T) {
	quiz := sampleQuiz()
	quiz.IsPublic = false

	for _, now := range []time.Time{
		quiz.StartAt.Add(-time.Hour),
		quiz.StartAt.Add(time.Minute),
		quiz.EndAt().Add(time.Hour),
	} {
		if got := quiz.State(now); got != QuizDraft {
			t.Fatalf("expected draft at %v, got %s", now, got)
		}
	}
}

func TestSpentAndRemainingSeconds(t *testing.T) {
	quiz := sampleQuiz()

	before := quiz.StartAt.Add(-time.Minute)
	if quiz.SpentSeconds(before) != 0 || quiz.RemainingSeconds(before) != 3600 {
		t.Fatalf("unexpected values before start: spent=%d remaining=%d",
			quiz.SpentSeconds(before), quiz.RemainingSeconds(before))
	}

	during := quiz.StartAt.Add(15 * time.Minute)
	if quiz.SpentSeconds(during) != 900 || quiz.RemainingSeconds(during) != 2700 {
		t.Fatalf("unexpected values mid-window: spent=%d remaining=%d",
			quiz.SpentSeconds(during), quiz.RemainingSeconds(during))
	}

	after := quiz.EndAt().Add(time.Minute)
	if quiz.SpentSeconds(after) != 3600 || quiz.RemainingSeconds(after) != 0 {
		t.Fatalf("unexpected values after end: spent=%d remaining=%d",
			quiz.SpentSeconds(after), quiz.RemainingSeconds(after))
	}
}

func TestEditableByOwnerExceptWhileRunning(t *testing.T) {
	quiz := sampleQuiz()
	running := quiz.StartAt.Add(time.Minute)
	finished := quiz.EndAt()

	if !quiz.EditableBy(1, quiz.StartAt.Add(-time.Minute)) {
		t.Fatal("owner must edit a scheduled quiz")
	}
	if quiz.EditableBy(1, running) {
		t.Fatal("running public quiz must be locked")
	}
	if !quiz.EditableBy(1, finished) {
		t.Fatal("finished quiz must be editable again")
	}
	if quiz.EditableBy(2, finished) {
		t.Fatal("non-owner must never edit")
	}

	quiz.IsPublic = false
	if !quiz.EditableBy(1, running) {
		t.Fatal("draft quiz must stay editable through the window")
	}
}

func TestOptionLookups(t *testing.T) {
	question := Question{
		Options: []Option{{ID: 1, Text: "3"}, {ID: 2, Text: "4"}},
	}
	if id, ok := question.OptionIDByText("4"); !ok || id != 2 {
		t.Fatalf("expected id 2, got %d ok=%v", id, ok)
	}
	if _, ok := question.OptionIDByText("42"); ok {
		t.Fatal("expected miss for unknown text")
	}
	if text, ok := question.OptionTextByID(1); !ok || text != "3" {
		t.Fatalf("expected text 3, got %q ok=%v", text, ok)
	}
}

func TestParseDifficultyRoundTrip(t *testing.T) {
	for _, d := range []Difficulty{DifficultyNone, DifficultyEasy, DifficultyMedium, DifficultyHard} {
		if got := ParseDifficulty(d.String()); got != d {
			t.Fatalf("round trip of %s gave %s", d, got)
		}
	}
	if got := ParseDifficulty("impossible"); got != DifficultyNone {
		t.Fatalf("expected unknown name to map to none, got %s", got)
	}
}
