package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"qzone-service/internal/domain"
	"qzone-service/internal/idgen"
)

// Defaults applied to a freshly created quiz; the owner edits them afterwards.
const (
	defaultQuizName        = "Quiz Name"
	defaultQuizLeadTime    = 7 * 24 * time.Hour
	defaultQuizDurationSec = 60 * 60
)

// QuizService owns quiz CRUD, the ordered question set, and the lifecycle
// gate on every mutation. The lifecycle itself is derived on domain.Quiz; this
// service only supplies the clock.
type QuizService struct {
	store Store
	alloc *idgen.Allocator
	clock func() time.Time
	rnd   *rand.Rand
}

func NewQuizService(store Store, alloc *idgen.Allocator) *QuizService {
	return &QuizService{
		store: store,
		alloc: alloc,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock is test-only, for deterministic lifecycle checks.
func (s *QuizService) WithClock(clock func() time.Time) *QuizService {
	s.clock = clock
	return s
}

// Create registers a non-public quiz on the caller's topic with default name,
// a start one week out, and a one-hour duration.
func (s *QuizService) Create(ctx context.Context, callerID, topicID int64) (domain.Quiz, error) {
	topic, err := s.store.Topic(ctx, topicID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if topic.OwnerID != callerID {
		return domain.Quiz{}, fmt.Errorf("%w: caller does not own topic %d", domain.ErrUnauthorized, topicID)
	}

	quiz := domain.Quiz{
		TopicID:     topicID,
		OwnerID:     callerID,
		Name:        defaultQuizName,
		StartAt:     s.clock().UTC().Add(defaultQuizLeadTime),
		DurationSec: defaultQuizDurationSec,
	}
	id, err := s.alloc.Allocate(ctx, TableQuiz, func(ctx context.Context, id int64) error {
		quiz.ID = id
		return s.store.InsertQuiz(ctx, quiz)
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID = id
	return quiz, nil
}

// Get returns a quiz by id.
func (s *QuizService) Get(ctx context.Context, id int64) (domain.Quiz, error) {
	return s.store.Quiz(ctx, id)
}

// Rename changes the quiz name, subject to the edit gate.
func (s *QuizService) Rename(ctx context.Context, callerID, quizID int64, name string) error {
	quiz, err := s.editable(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: quiz name must not be blank", domain.ErrValidation)
	}
	return s.store.UpdateQuizName(ctx, quiz.ID, name)
}

// SetStart reschedules the quiz. The new start must lie in the future at the
// moment it is set.
func (s *QuizService) SetStart(ctx context.Context, callerID, quizID int64, startAt time.Time) error {
	quiz, err := s.editable(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	startAt = startAt.UTC()
	if !startAt.After(s.clock().UTC()) {
		return fmt.Errorf("%w: quiz start must be in the future", domain.ErrValidation)
	}
	return s.store.UpdateQuizStart(ctx, quiz.ID, startAt)
}

// SetDuration changes the scoring window length, in seconds; must be positive.
func (s *QuizService) SetDuration(ctx context.Context, callerID, quizID int64, durationSec int) error {
	quiz, err := s.editable(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	if durationSec <= 0 {
		return fmt.Errorf("%w: quiz duration must be positive", domain.ErrValidation)
	}
	return s.store.UpdateQuizDuration(ctx, quiz.ID, durationSec)
}

// SetPublic flips the only explicit lifecycle transition. Unpublishing a
// running public quiz is blocked by the same gate as any other edit.
func (s *QuizService) SetPublic(ctx context.Context, callerID, quizID int64, public bool) error {
	quiz, err := s.editable(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	if quiz.IsPublic == public {
		return nil
	}
	return s.store.UpdateQuizVisibility(ctx, quiz.ID, public)
}

// AddQuestion appends a question of the quiz's topic to the ordered set.
func (s *QuizService) AddQuestion(ctx context.Context, callerID, quizID, questionID int64) error {
	quiz, err := s.editable(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	question, err := s.store.Question(ctx, questionID)
	if err != nil {
		return err
	}
	if question.TopicID != quiz.TopicID {
		return fmt.Errorf("%w: question %d belongs to a different topic", domain.ErrValidation, questionID)
	}
	for _, id := range quiz.QuestionIDs {
		if id == questionID {
			return fmt.Errorf("%w: question %d already in quiz %d", domain.ErrConflict, questionID, quizID)
		}
	}
	return s.store.SetQuizQuestions(ctx, quiz.ID, append(quiz.QuestionIDs, questionID))
}

// RemoveQuestion drops a question from the ordered set, keeping the rest stable.
func (s *QuizService) RemoveQuestion(ctx context.Context, callerID, quizID, questionID int64) error {
	quiz, err := s.editable(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	kept := make([]int64, 0, len(quiz.QuestionIDs))
	found := false
	for _, id := range quiz.QuestionIDs {
		if id == questionID {
			found = true
			continue
		}
		kept = append(kept, id)
	}
	if !found {
		return fmt.Errorf("%w: question %d not in quiz %d", domain.ErrNotFound, questionID, quizID)
	}
	return s.store.SetQuizQuestions(ctx, quiz.ID, kept)
}

// Reorder moves the question at currentPos to newPos (both zero-based),
// shifting the questions in between and leaving the rest in order.
func (s *QuizService) Reorder(ctx context.Context, callerID, quizID int64, currentPos, newPos int) error {
	quiz, err := s.editable(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	n := len(quiz.QuestionIDs)
	if currentPos < 0 || currentPos >= n || newPos < 0 || newPos >= n {
		return fmt.Errorf("%w: position out of range", domain.ErrValidation)
	}
	if currentPos == newPos {
		return nil
	}

	ids := make([]int64, 0, n)
	ids = append(ids, quiz.QuestionIDs...)
	moved := ids[currentPos]
	ids = append(ids[:currentPos], ids[currentPos+1:]...)
	ids = append(ids[:newPos], append([]int64{moved}, ids[newPos:]...)...)
	return s.store.SetQuizQuestions(ctx, quiz.ID, ids)
}

// RandomQuestions picks up to count questions of the quiz's topic matching the
// filter, excluding questions already in the quiz. It only suggests; nothing
// is persisted.
func (s *QuizService) RandomQuestions(ctx context.Context, callerID, quizID int64, count int, phrase string, difficulty domain.Difficulty) ([]domain.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", domain.ErrValidation)
	}
	quiz, err := s.store.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != callerID {
		return nil, fmt.Errorf("%w: caller does not own quiz %d", domain.ErrUnauthorized, quizID)
	}

	questions, err := s.store.QuestionsByTopic(ctx, quiz.TopicID, phrase, difficulty)
	if err != nil {
		return nil, err
	}
	added := make(map[int64]bool, len(quiz.QuestionIDs))
	for _, id := range quiz.QuestionIDs {
		added[id] = true
	}
	pool := questions[:0]
	for _, q := range questions {
		if !added[q.ID] {
			pool = append(pool, q)
		}
	}
	if len(pool) <= count {
		return pool, nil
	}
	s.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:count], nil
}

// Delete removes the quiz, subject to the edit gate.
func (s *QuizService) Delete(ctx context.Context, callerID, quizID int64) error {
	quiz, err := s.editable(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	return s.store.DeleteQuiz(ctx, quiz.ID)
}

// ListOwned returns the caller's quizzes.
func (s *QuizService) ListOwned(ctx context.Context, callerID int64) ([]domain.Quiz, error) {
	if callerID == 0 {
		return nil, fmt.Errorf("%w: caller required", domain.ErrUnauthorized)
	}
	return s.store.QuizzesByOwner(ctx, callerID)
}

// ListStarted returns public quizzes whose start has passed, for participants
// browsing rank lists.
func (s *QuizService) ListStarted(ctx context.Context, filter QuizFilter) ([]domain.Quiz, error) {
	quizzes, err := s.store.PublicQuizzes(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	started := quizzes[:0]
	for _, q := range quizzes {
		if q.Started(now) {
			started = append(started, q)
		}
	}
	return started, nil
}

// ListParticipated returns the quizzes the caller has submitted a sheet for.
func (s *QuizService) ListParticipated(ctx context.Context, callerID int64) ([]domain.Quiz, error) {
	if callerID == 0 {
		return nil, fmt.Errorf("%w: caller required", domain.ErrUnauthorized)
	}
	results, err := s.store.ResultsByParticipant(ctx, callerID)
	if err != nil {
		return nil, err
	}
	quizzes := make([]domain.Quiz, 0, len(results))
	for _, r := range results {
		quiz, err := s.store.Quiz(ctx, r.QuizID)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// editable loads the quiz and applies the mutation gate: owner only, and not
// while public and running.
func (s *QuizService) editable(ctx context.Context, callerID, quizID int64) (domain.Quiz, error) {
	quiz, err := s.store.Quiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != callerID {
		return domain.Quiz{}, fmt.Errorf("%w: caller does not own quiz %d", domain.ErrUnauthorized, quizID)
	}
	if !quiz.EditableBy(callerID, s.clock()) {
		return domain.Quiz{}, fmt.Errorf("%w: quiz %d is running and locked for edits", domain.ErrConflict, quizID)
	}
	return quiz, nil
}
