package app

import (
	"context"
	"time"

	"qzone-service/internal/domain"
	"qzone-service/internal/idgen"
	"qzone-service/internal/stats"
)

// Logical table names handed to the id allocator. Allocations for different
// tables sequence independently.
const (
	TableTopic       = "topic"
	TableQuestion    = "question"
	TableOption      = "answer_option"
	TableQuiz        = "quiz"
	TableResult      = "quiz_result"
	TableSheetAnswer = "sheet_answer"
)

// QuizFilter narrows quiz listings. Zero values mean "any".
type QuizFilter struct {
	TopicID        int64
	NamePhrase     string
	StartAfter     time.Time
	StartBefore    time.Time
	MinDurationSec int
	MaxDurationSec int
}

// Store is the storage collaborator: every method executes a single
// parameterized statement or query. Implementations must wrap failures in
// domain.ErrStorage and absent rows in domain.ErrNotFound, and must never
// interpolate values into statement text.
type Store interface {
	idgen.Store
	stats.Store

	InsertTopic(ctx context.Context, t domain.Topic) error
	Topic(ctx context.Context, id int64) (domain.Topic, error)
	UpdateTopicName(ctx context.Context, id int64, name string) error
	AddTopicQuestionCount(ctx context.Context, id int64, delta int) error
	TopicsByOwner(ctx context.Context, ownerID int64) ([]domain.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error

	InsertQuestion(ctx context.Context, q domain.Question) error
	InsertOption(ctx context.Context, id, questionID int64, text string) error
	SetQuestionCorrectOption(ctx context.Context, questionID, optionID int64) error
	Question(ctx context.Context, id int64) (domain.Question, error)
	QuestionsByTopic(ctx context.Context, topicID int64, phrase string, difficulty domain.Difficulty) ([]domain.Question, error)
	UpdateQuestionText(ctx context.Context, id int64, text string) error
	UpdateQuestionDifficulty(ctx context.Context, id int64, difficulty domain.Difficulty) error
	UpdateOptionText(ctx context.Context, optionID int64, text string) error
	DeleteQuestion(ctx context.Context, id int64) error

	InsertQuiz(ctx context.Context, q domain.Quiz) error
	Quiz(ctx context.Context, id int64) (domain.Quiz, error)
	UpdateQuizName(ctx context.Context, id int64, name string) error
	UpdateQuizStart(ctx context.Context, id int64, startAt time.Time) error
	UpdateQuizDuration(ctx context.Context, id int64, durationSec int) error
	UpdateQuizVisibility(ctx context.Context, id int64, public bool) error
	SetQuizQuestions(ctx context.Context, quizID int64, questionIDs []int64) error
	QuizzesByOwner(ctx context.Context, ownerID int64) ([]domain.Quiz, error)
	PublicQuizzes(ctx context.Context, filter QuizFilter) ([]domain.Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error

	InsertResult(ctx context.Context, r domain.Result) error
	SetResultMarks(ctx context.Context, resultID int64, marks, percentage int) error
	Result(ctx context.Context, id int64) (domain.Result, error)
	ResultByQuizParticipant(ctx context.Context, quizID, participantID int64) (domain.Result, error)
	// ResultsByQuiz returns results ordered by obtained marks, highest first.
	ResultsByQuiz(ctx context.Context, quizID int64) ([]domain.Result, error)
	ResultsByParticipant(ctx context.Context, participantID int64) ([]domain.Result, error)

	InsertSheetAnswer(ctx context.Context, id, resultID, questionID, optionID int64) error
	SheetAnswerOption(ctx context.Context, resultID, questionID int64) (int64, error)
}
