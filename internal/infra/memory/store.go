// Package memory holds an in-process implementation of app.Store, used by
// unit tests and as the fallback when no Postgres URL is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"qzone-service/internal/app"
	"qzone-service/internal/domain"
)

type sheetAnswer struct {
	resultID   int64
	questionID int64
	optionID   int64
}

// Store keeps every table in a map guarded by one RWMutex. Each method is a
// single atomic step, mirroring the one-statement granularity of the SQL
// store; cross-statement invariants stay with the callers.
type Store struct {
	mu        sync.RWMutex
	topics    map[int64]domain.Topic
	questions map[int64]domain.Question
	quizzes   map[int64]domain.Quiz
	results   map[int64]domain.Result
	answers   map[int64]sheetAnswer
}

var _ app.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		topics:    make(map[int64]domain.Topic),
		questions: make(map[int64]domain.Question),
		quizzes:   make(map[int64]domain.Quiz),
		results:   make(map[int64]domain.Result),
		answers:   make(map[int64]sheetAnswer),
	}
}

// MaxID scans the named table for its current maximum id, 0 if empty.
func (s *Store) MaxID(_ context.Context, table string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	bump := func(id int64) {
		if id > max {
			max = id
		}
	}
	switch table {
	case app.TableTopic:
		for id := range s.topics {
			bump(id)
		}
	case app.TableQuestion:
		for id := range s.questions {
			bump(id)
		}
	case app.TableOption:
		for _, q := range s.questions {
			for _, opt := range q.Options {
				bump(opt.ID)
			}
		}
	case app.TableQuiz:
		for id := range s.quizzes {
			bump(id)
		}
	case app.TableResult:
		for id := range s.results {
			bump(id)
		}
	case app.TableSheetAnswer:
		for id := range s.answers {
			bump(id)
		}
	default:
		return 0, fmt.Errorf("%w: unknown table %q", domain.ErrStorage, table)
	}
	return max, nil
}

func (s *Store) QuizStats(_ context.Context, quizID int64) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: quiz %d", domain.ErrNotFound, quizID)
	}
	return quiz.TotalParticipants, quiz.AverageMarks, nil
}

func (s *Store) SetQuizStats(_ context.Context, quizID int64, participants, average int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return fmt.Errorf("%w: quiz %d", domain.ErrNotFound, quizID)
	}
	quiz.TotalParticipants = participants
	quiz.AverageMarks = average
	s.quizzes[quizID] = quiz
	return nil
}

func (s *Store) InsertTopic(_ context.Context, t domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[t.ID] = t
	return nil
}

func (s *Store) Topic(_ context.Context, id int64) (domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topic, ok := s.topics[id]
	if !ok {
		return domain.Topic{}, fmt.Errorf("%w: topic %d", domain.ErrNotFound, id)
	}
	return topic, nil
}

func (s *Store) UpdateTopicName(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return fmt.Errorf("%w: topic %d", domain.ErrNotFound, id)
	}
	topic.Name = name
	s.topics[id] = topic
	return nil
}

func (s *Store) AddTopicQuestionCount(_ context.Context, id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return fmt.Errorf("%w: topic %d", domain.ErrNotFound, id)
	}
	topic.QuestionCount += delta
	s.topics[id] = topic
	return nil
}

func (s *Store) TopicsByOwner(_ context.Context, ownerID int64) ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var topics []domain.Topic
	for _, t := range s.topics {
		if t.OwnerID == ownerID {
			topics = append(topics, t)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func (s *Store) DeleteTopic(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[id]; !ok {
		return fmt.Errorf("%w: topic %d", domain.ErrNotFound, id)
	}
	delete(s.topics, id)
	return nil
}

func (s *Store) InsertQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.Options = append([]domain.Option(nil), q.Options...)
	s.questions[q.ID] = q
	return nil
}

func (s *Store) InsertOption(_ context.Context, id, questionID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[questionID]
	if !ok {
		return fmt.Errorf("%w: question %d", domain.ErrNotFound, questionID)
	}
	question.Options = append(append([]domain.Option(nil), question.Options...), domain.Option{ID: id, Text: text})
	s.questions[questionID] = question
	return nil
}

func (s *Store) SetQuestionCorrectOption(_ context.Context, questionID, optionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[questionID]
	if !ok {
		return fmt.Errorf("%w: question %d", domain.ErrNotFound, questionID)
	}
	question.CorrectOptionID = optionID
	s.questions[questionID] = question
	return nil
}

func (s *Store) Question(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[id]
	if !ok {
		return domain.Question{}, fmt.Errorf("%w: question %d", domain.ErrNotFound, id)
	}
	question.Options = append([]domain.Option(nil), question.Options...)
	return question, nil
}

func (s *Store) QuestionsByTopic(_ context.Context, topicID int64, phrase string, difficulty domain.Difficulty) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var questions []domain.Question
	for _, q := range s.questions {
		if q.TopicID != topicID {
			continue
		}
		if phrase != "" && !strings.Contains(strings.ToLower(q.Text), strings.ToLower(phrase)) {
			continue
		}
		if difficulty != domain.DifficultyNone && q.Difficulty != difficulty {
			continue
		}
		q.Options = append([]domain.Option(nil), q.Options...)
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Text < questions[j].Text })
	return questions, nil
}

func (s *Store) UpdateQuestionText(_ context.Context, id int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[id]
	if !ok {
		return fmt.Errorf("%w: question %d", domain.ErrNotFound, id)
	}
	question.Text = text
	s.questions[id] = question
	return nil
}

func (s *Store) UpdateQuestionDifficulty(_ context.Context, id int64, difficulty domain.Difficulty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[id]
	if !ok {
		return fmt.Errorf("%w: question %d", domain.ErrNotFound, id)
	}
	question.Difficulty = difficulty
	s.questions[id] = question
	return nil
}

func (s *Store) UpdateOptionText(_ context.Context, optionID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, question := range s.questions {
		for i, opt := range question.Options {
			if opt.ID == optionID {
				opts := append([]domain.Option(nil), question.Options...)
				opts[i].Text = text
				question.Options = opts
				s.questions[id] = question
				return nil
			}
		}
	}
	return fmt.Errorf("%w: option %d", domain.ErrNotFound, optionID)
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return fmt.Errorf("%w: question %d", domain.ErrNotFound, id)
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) InsertQuiz(_ context.Context, q domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.QuestionIDs = append([]int64(nil), q.QuestionIDs...)
	s.quizzes[q.ID] = q
	return nil
}

func (s *Store) Quiz(_ context.Context, id int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, fmt.Errorf("%w: quiz %d", domain.ErrNotFound, id)
	}
	quiz.QuestionIDs = append([]int64(nil), quiz.QuestionIDs...)
	return quiz, nil
}

func (s *Store) UpdateQuizName(_ context.Context, id int64, name string) error {
	return s.updateQuiz(id, func(q *domain.Quiz) { q.Name = name })
}

func (s *Store) UpdateQuizStart(_ context.Context, id int64, startAt time.Time) error {
	return s.updateQuiz(id, func(q *domain.Quiz) { q.StartAt = startAt })
}

func (s *Store) UpdateQuizDuration(_ context.Context, id int64, durationSec int) error {
	return s.updateQuiz(id, func(q *domain.Quiz) { q.DurationSec = durationSec })
}

func (s *Store) UpdateQuizVisibility(_ context.Context, id int64, public bool) error {
	return s.updateQuiz(id, func(q *domain.Quiz) { q.IsPublic = public })
}

func (s *Store) SetQuizQuestions(_ context.Context, quizID int64, questionIDs []int64) error {
	ids := append([]int64(nil), questionIDs...)
	return s.updateQuiz(quizID, func(q *domain.Quiz) { q.QuestionIDs = ids })
}

func (s *Store) updateQuiz(id int64, mutate func(*domain.Quiz)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return fmt.Errorf("%w: quiz %d", domain.ErrNotFound, id)
	}
	mutate(&quiz)
	s.quizzes[id] = quiz
	return nil
}

func (s *Store) QuizzesByOwner(_ context.Context, ownerID int64) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var quizzes []domain.Quiz
	for _, q := range s.quizzes {
		if q.OwnerID == ownerID {
			q.QuestionIDs = append([]int64(nil), q.QuestionIDs...)
			quizzes = append(quizzes, q)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

func (s *Store) PublicQuizzes(_ context.Context, filter app.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var quizzes []domain.Quiz
	for _, q := range s.quizzes {
		if !q.IsPublic {
			continue
		}
		if filter.TopicID != 0 && q.TopicID != filter.TopicID {
			continue
		}
		if filter.NamePhrase != "" && !strings.Contains(strings.ToLower(q.Name), strings.ToLower(filter.NamePhrase)) {
			continue
		}
		if !filter.StartAfter.IsZero() && q.StartAt.Before(filter.StartAfter) {
			continue
		}
		if !filter.StartBefore.IsZero() && q.StartAt.After(filter.StartBefore) {
			continue
		}
		if filter.MinDurationSec > 0 && q.DurationSec < filter.MinDurationSec {
			continue
		}
		if filter.MaxDurationSec > 0 && q.DurationSec > filter.MaxDurationSec {
			continue
		}
		q.QuestionIDs = append([]int64(nil), q.QuestionIDs...)
		quizzes = append(quizzes, q)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].StartAt.After(quizzes[j].StartAt) })
	return quizzes, nil
}

func (s *Store) DeleteQuiz(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return fmt.Errorf("%w: quiz %d", domain.ErrNotFound, id)
	}
	delete(s.quizzes, id)
	return nil
}

func (s *Store) InsertResult(_ context.Context, r domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.results {
		if existing.QuizID == r.QuizID && existing.ParticipantID == r.ParticipantID {
			return fmt.Errorf("%w: result for quiz %d participant %d exists", domain.ErrConflict, r.QuizID, r.ParticipantID)
		}
	}
	s.results[r.ID] = r
	return nil
}

func (s *Store) SetResultMarks(_ context.Context, resultID int64, marks, percentage int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[resultID]
	if !ok {
		return fmt.Errorf("%w: result %d", domain.ErrNotFound, resultID)
	}
	result.ObtainedMarks = marks
	result.Percentage = percentage
	s.results[resultID] = result
	return nil
}

func (s *Store) Result(_ context.Context, id int64) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: result %d", domain.ErrNotFound, id)
	}
	return result, nil
}

func (s *Store) ResultByQuizParticipant(_ context.Context, quizID, participantID int64) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.QuizID == quizID && r.ParticipantID == participantID {
			return r, nil
		}
	}
	return domain.Result{}, fmt.Errorf("%w: result for quiz %d participant %d", domain.ErrNotFound, quizID, participantID)
}

func (s *Store) ResultsByQuiz(_ context.Context, quizID int64) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []domain.Result
	for _, r := range s.results {
		if r.QuizID == quizID {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].ObtainedMarks != results[j].ObtainedMarks {
			return results[i].ObtainedMarks > results[j].ObtainedMarks
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

func (s *Store) ResultsByParticipant(_ context.Context, participantID int64) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []domain.Result
	for _, r := range s.results {
		if r.ParticipantID == participantID {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (s *Store) InsertSheetAnswer(_ context.Context, id, resultID, questionID, optionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[id] = sheetAnswer{resultID: resultID, questionID: questionID, optionID: optionID}
	return nil
}

func (s *Store) SheetAnswerOption(_ context.Context, resultID, questionID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.answers {
		if a.resultID == resultID && a.questionID == questionID {
			return a.optionID, nil
		}
	}
	return 0, fmt.Errorf("%w: no answer for result %d question %d", domain.ErrNotFound, resultID, questionID)
}
