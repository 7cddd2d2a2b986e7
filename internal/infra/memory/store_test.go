package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"qzone-service/internal/app"
	"qzone-service/internal/domain"
)

func TestMaxIDPerTable(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.InsertTopic(ctx, domain.Topic{ID: 3, OwnerID: 1, Name: "Math"}); err != nil {
		t.Fatalf("insert topic: %v", err)
	}
	if err := store.InsertQuiz(ctx, domain.Quiz{ID: 9, TopicID: 3, OwnerID: 1}); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}

	max, err := store.MaxID(ctx, app.TableTopic)
	if err != nil || max != 3 {
		t.Fatalf("expected topic max 3, got %d err=%v", max, err)
	}
	max, err = store.MaxID(ctx, app.TableQuiz)
	if err != nil || max != 9 {
		t.Fatalf("expected quiz max 9, got %d err=%v", max, err)
	}
	max, err = store.MaxID(ctx, app.TableResult)
	if err != nil || max != 0 {
		t.Fatalf("expected empty table max 0, got %d err=%v", max, err)
	}
	if _, err := store.MaxID(ctx, "no_such_table"); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage for unknown table, got %v", err)
	}
}

func TestInsertResultEnforcesOnePerPair(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.InsertResult(ctx, domain.Result{ID: 1, QuizID: 5, ParticipantID: 2}); err != nil {
		t.Fatalf("insert result: %v", err)
	}
	err := store.InsertResult(ctx, domain.Result{ID: 2, QuizID: 5, ParticipantID: 2})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestResultsByQuizOrderedByMarksDesc(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for _, r := range []domain.Result{
		{ID: 1, QuizID: 5, ParticipantID: 10, ObtainedMarks: 3},
		{ID: 2, QuizID: 5, ParticipantID: 11, ObtainedMarks: 25},
		{ID: 3, QuizID: 5, ParticipantID: 12, ObtainedMarks: -4},
	} {
		if err := store.InsertResult(ctx, r); err != nil {
			t.Fatalf("insert result: %v", err)
		}
	}

	results, err := store.ResultsByQuiz(ctx, 5)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	for i, want := range []int64{2, 1, 3} {
		if results[i].ID != want {
			t.Fatalf("position %d: expected result %d, got %d", i, want, results[i].ID)
		}
	}
}

func TestPublicQuizzesApplyFilter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	quizzes := []domain.Quiz{
		{ID: 1, TopicID: 1, Name: "Algebra Basics", StartAt: start, DurationSec: 600, IsPublic: true},
		{ID: 2, TopicID: 1, Name: "Geometry", StartAt: start.Add(time.Hour), DurationSec: 7200, IsPublic: true},
		{ID: 3, TopicID: 2, Name: "Algebra Advanced", StartAt: start, DurationSec: 600, IsPublic: true},
		{ID: 4, TopicID: 1, Name: "Hidden", StartAt: start, DurationSec: 600, IsPublic: false},
	}
	for _, q := range quizzes {
		if err := store.InsertQuiz(ctx, q); err != nil {
			t.Fatalf("insert quiz: %v", err)
		}
	}

	got, err := store.PublicQuizzes(ctx, app.QuizFilter{TopicID: 1, NamePhrase: "algebra"})
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected filter result: %+v", got)
	}

	got, err = store.PublicQuizzes(ctx, app.QuizFilter{MinDurationSec: 3600})
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("unexpected duration filter result: %+v", got)
	}
}
