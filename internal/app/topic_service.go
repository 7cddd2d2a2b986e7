package app

import (
	"context"
	"fmt"
	"strings"

	"qzone-service/internal/domain"
	"qzone-service/internal/idgen"
)

// TopicService owns topic CRUD. Topic ids come from the allocator; the
// question counter is adjusted by QuestionService, never recomputed here.
type TopicService struct {
	store Store
	alloc *idgen.Allocator
}

func NewTopicService(store Store, alloc *idgen.Allocator) *TopicService {
	return &TopicService{store: store, alloc: alloc}
}

// Create registers a new topic owned by the caller.
func (s *TopicService) Create(ctx context.Context, callerID int64, name string) (domain.Topic, error) {
	if callerID == 0 {
		return domain.Topic{}, fmt.Errorf("%w: caller required", domain.ErrUnauthorized)
	}
	if strings.TrimSpace(name) == "" {
		return domain.Topic{}, fmt.Errorf("%w: topic name must not be blank", domain.ErrValidation)
	}

	topic := domain.Topic{OwnerID: callerID, Name: name}
	id, err := s.alloc.Allocate(ctx, TableTopic, func(ctx context.Context, id int64) error {
		topic.ID = id
		return s.store.InsertTopic(ctx, topic)
	})
	if err != nil {
		return domain.Topic{}, err
	}
	topic.ID = id
	return topic, nil
}

// Get returns a topic by id.
func (s *TopicService) Get(ctx context.Context, id int64) (domain.Topic, error) {
	return s.store.Topic(ctx, id)
}

// Rename changes the topic name; only the owner may, and blank names are rejected.
func (s *TopicService) Rename(ctx context.Context, callerID, topicID int64, name string) error {
	topic, err := s.store.Topic(ctx, topicID)
	if err != nil {
		return err
	}
	if topic.OwnerID != callerID {
		return fmt.Errorf("%w: caller does not own topic %d", domain.ErrUnauthorized, topicID)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: topic name must not be blank", domain.ErrValidation)
	}
	return s.store.UpdateTopicName(ctx, topicID, name)
}

// Delete removes the topic row. Questions and quizzes referencing it are not
// deleted here; that matches the inherited behavior and is left to callers.
func (s *TopicService) Delete(ctx context.Context, callerID, topicID int64) error {
	topic, err := s.store.Topic(ctx, topicID)
	if err != nil {
		return err
	}
	if topic.OwnerID != callerID {
		return fmt.Errorf("%w: caller does not own topic %d", domain.ErrUnauthorized, topicID)
	}
	return s.store.DeleteTopic(ctx, topicID)
}

// List returns the caller's topics.
func (s *TopicService) List(ctx context.Context, callerID int64) ([]domain.Topic, error) {
	if callerID == 0 {
		return nil, fmt.Errorf("%w: caller required", domain.ErrUnauthorized)
	}
	return s.store.TopicsByOwner(ctx, callerID)
}
