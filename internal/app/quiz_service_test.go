package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"qzone-service/internal/app"
	"qzone-service/internal/domain"
	"qzone-service/internal/infra/memory"
)

func TestQuizLockedWhileRunningEditableAfterFinish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())

	// Scheduled: still editable.
	if err := f.quizzes.Rename(ctx, ownerID, f.quiz.ID, "Midterm"); err != nil {
		t.Fatalf("rename while scheduled: %v", err)
	}

	// Running: locked.
	f.intoWindow()
	if err := f.quizzes.Rename(ctx, ownerID, f.quiz.ID, "Locked"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict while running, got %v", err)
	}

	// Finished: editable again.
	f.clock.Advance(time.Duration(f.quiz.DurationSec) * time.Second)
	if err := f.quizzes.Rename(ctx, ownerID, f.quiz.ID, "Archived"); err != nil {
		t.Fatalf("rename after finish: %v", err)
	}
}

func TestNonOwnerCannotEditQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())

	if err := f.quizzes.Rename(ctx, participantID, f.quiz.ID, "Stolen"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSetStartRejectsPast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())

	past := f.clock.Now().Add(-time.Minute)
	if err := f.quizzes.SetStart(ctx, ownerID, f.quiz.ID, past); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAddQuestionRejectsForeignTopicAndDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())

	other, err := f.topics.Create(ctx, ownerID, "History")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	foreign, err := f.questions.Create(ctx, ownerID, other.ID, "When was 1066?", "1066",
		[app.IncorrectOptionCount]string{"1067", "1068", "1069", "1070"}, domain.DifficultyNone)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	if err := f.quizzes.AddQuestion(ctx, ownerID, f.quiz.ID, foreign.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for foreign topic, got %v", err)
	}
	if err := f.quizzes.AddQuestion(ctx, ownerID, f.quiz.ID, f.question.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate, got %v", err)
	}
}

func TestReorderMovesQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())

	second, err := f.questions.Create(ctx, ownerID, f.topic.ID, "What is 3 + 3?", "6",
		[app.IncorrectOptionCount]string{"5", "7", "8", "9"}, domain.DifficultyNone)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := f.quizzes.AddQuestion(ctx, ownerID, f.quiz.ID, second.ID); err != nil {
		t.Fatalf("add question: %v", err)
	}

	if err := f.quizzes.Reorder(ctx, ownerID, f.quiz.ID, 1, 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	quiz, err := f.quizzes.Get(ctx, f.quiz.ID)
	if err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	if quiz.QuestionIDs[0] != second.ID || quiz.QuestionIDs[1] != f.question.ID {
		t.Fatalf("unexpected order: %v", quiz.QuestionIDs)
	}
}

func TestListStartedFiltersByTopic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())
	f.intoWindow()

	quizzes, err := f.quizzes.ListStarted(ctx, app.QuizFilter{TopicID: f.topic.ID})
	if err != nil {
		t.Fatalf("list started: %v", err)
	}
	if len(quizzes) != 1 || quizzes[0].ID != f.quiz.ID {
		t.Fatalf("unexpected list: %+v", quizzes)
	}

	quizzes, err = f.quizzes.ListStarted(ctx, app.QuizFilter{TopicID: f.topic.ID + 100})
	if err != nil {
		t.Fatalf("list started: %v", err)
	}
	if len(quizzes) != 0 {
		t.Fatalf("expected empty list for unknown topic, got %+v", quizzes)
	}
}

func TestDeleteQuestionKeepsTopicCounter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewStore())

	topic, err := f.topics.Get(ctx, f.topic.ID)
	if err != nil {
		t.Fatalf("load topic: %v", err)
	}
	if topic.QuestionCount != 1 {
		t.Fatalf("expected counter 1, got %d", topic.QuestionCount)
	}

	if err := f.questions.Delete(ctx, ownerID, f.question.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	topic, err = f.topics.Get(ctx, f.topic.ID)
	if err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if topic.QuestionCount != 0 {
		t.Fatalf("expected counter 0 after delete, got %d", topic.QuestionCount)
	}
}
