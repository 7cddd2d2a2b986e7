package app

import (
	"context"
	"fmt"
	"strings"

	"qzone-service/internal/domain"
	"qzone-service/internal/idgen"
)

// IncorrectOptionCount is fixed: each question carries one correct and four
// incorrect options, each stored as its own row.
const IncorrectOptionCount = 4

// QuestionService owns question and option CRUD for a topic, including the
// denormalized question counter on the topic row.
type QuestionService struct {
	store Store
	alloc *idgen.Allocator
}

func NewQuestionService(store Store, alloc *idgen.Allocator) *QuestionService {
	return &QuestionService{store: store, alloc: alloc}
}

// Create adds a question with its five options to the caller's topic. The
// question id, then each option id, comes from the allocator; the first
// inserted option is recorded as the correct one.
func (s *QuestionService) Create(ctx context.Context, callerID, topicID int64, text, correct string, incorrect [IncorrectOptionCount]string, difficulty domain.Difficulty) (domain.Question, error) {
	topic, err := s.store.Topic(ctx, topicID)
	if err != nil {
		return domain.Question{}, err
	}
	if topic.OwnerID != callerID {
		return domain.Question{}, fmt.Errorf("%w: caller does not own topic %d", domain.ErrUnauthorized, topicID)
	}
	if strings.TrimSpace(text) == "" || strings.TrimSpace(correct) == "" {
		return domain.Question{}, fmt.Errorf("%w: question text and correct answer must not be blank", domain.ErrValidation)
	}
	for _, opt := range incorrect {
		if strings.TrimSpace(opt) == "" {
			return domain.Question{}, fmt.Errorf("%w: incorrect options must not be blank", domain.ErrValidation)
		}
	}

	question := domain.Question{TopicID: topicID, OwnerID: callerID, Text: text, Difficulty: difficulty}
	questionID, err := s.alloc.Allocate(ctx, TableQuestion, func(ctx context.Context, id int64) error {
		question.ID = id
		return s.store.InsertQuestion(ctx, question)
	})
	if err != nil {
		return domain.Question{}, err
	}
	question.ID = questionID

	texts := append([]string{correct}, incorrect[:]...)
	for i, optText := range texts {
		optText := optText
		optionID, err := s.alloc.Allocate(ctx, TableOption, func(ctx context.Context, id int64) error {
			return s.store.InsertOption(ctx, id, questionID, optText)
		})
		if err != nil {
			return domain.Question{}, err
		}
		question.Options = append(question.Options, domain.Option{ID: optionID, Text: optText})
		if i == 0 {
			if err := s.store.SetQuestionCorrectOption(ctx, questionID, optionID); err != nil {
				return domain.Question{}, err
			}
			question.CorrectOptionID = optionID
		}
	}

	if err := s.store.AddTopicQuestionCount(ctx, topicID, 1); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

// Get returns a question with its options.
func (s *QuestionService) Get(ctx context.Context, id int64) (domain.Question, error) {
	return s.store.Question(ctx, id)
}

// SetText updates the question text; owner only, non-blank.
func (s *QuestionService) SetText(ctx context.Context, callerID, questionID int64, text string) error {
	if _, err := s.owned(ctx, callerID, questionID); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: question text must not be blank", domain.ErrValidation)
	}
	return s.store.UpdateQuestionText(ctx, questionID, text)
}

// SetDifficulty updates the question difficulty; owner only.
func (s *QuestionService) SetDifficulty(ctx context.Context, callerID, questionID int64, difficulty domain.Difficulty) error {
	if _, err := s.owned(ctx, callerID, questionID); err != nil {
		return err
	}
	return s.store.UpdateQuestionDifficulty(ctx, questionID, difficulty)
}

// SetOptionText rewrites one option's text; owner only, non-blank. Works for
// the correct option and the incorrect ones alike.
func (s *QuestionService) SetOptionText(ctx context.Context, callerID, questionID, optionID int64, text string) error {
	question, err := s.owned(ctx, callerID, questionID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: option text must not be blank", domain.ErrValidation)
	}
	if _, ok := question.OptionTextByID(optionID); !ok {
		return fmt.Errorf("%w: option %d does not belong to question %d", domain.ErrValidation, optionID, questionID)
	}
	return s.store.UpdateOptionText(ctx, optionID, text)
}

// Delete removes the question and its options and decrements the topic counter.
func (s *QuestionService) Delete(ctx context.Context, callerID, questionID int64) error {
	question, err := s.owned(ctx, callerID, questionID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	return s.store.AddTopicQuestionCount(ctx, question.TopicID, -1)
}

// List returns a topic's questions, optionally filtered by a text phrase and
// difficulty; owner only, since the payload carries answer keys.
func (s *QuestionService) List(ctx context.Context, callerID, topicID int64, phrase string, difficulty domain.Difficulty) ([]domain.Question, error) {
	topic, err := s.store.Topic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if topic.OwnerID != callerID {
		return nil, fmt.Errorf("%w: caller does not own topic %d", domain.ErrUnauthorized, topicID)
	}
	return s.store.QuestionsByTopic(ctx, topicID, phrase, difficulty)
}

func (s *QuestionService) owned(ctx context.Context, callerID, questionID int64) (domain.Question, error) {
	question, err := s.store.Question(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if question.OwnerID != callerID {
		return domain.Question{}, fmt.Errorf("%w: caller does not own question %d", domain.ErrUnauthorized, questionID)
	}
	return question, nil
}
