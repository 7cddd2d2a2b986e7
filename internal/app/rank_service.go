package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"qzone-service/internal/domain"
)

// RankCache stores a quiz's rank list outside the process (Redis in
// production). A nil cache disables caching.
type RankCache interface {
	RankList(ctx context.Context, quizID int64) ([]domain.RankEntry, bool, error)
	StoreRankList(ctx context.Context, quizID int64, entries []domain.RankEntry) error
	AddEntry(ctx context.Context, quizID int64, entry domain.RankEntry) error
}

// RankService serves per-quiz rank lists and fans out live updates after each
// submission. A rank list exists only for public quizzes that have started.
type RankService struct {
	store Store
	cache RankCache
	clock func() time.Time
	sf    singleflight.Group

	mu   sync.Mutex
	subs map[int64]map[chan []domain.RankEntry]struct{}
}

func NewRankService(store Store, cache RankCache) *RankService {
	return &RankService{
		store: store,
		cache: cache,
		clock: time.Now,
		subs:  make(map[int64]map[chan []domain.RankEntry]struct{}),
	}
}

// WithClock is test-only.
func (s *RankService) WithClock(clock func() time.Time) *RankService {
	s.clock = clock
	return s
}

// RankList returns the quiz's results ordered by obtained marks, highest
// first. Cache misses collapse into a single storage read.
func (s *RankService) RankList(ctx context.Context, quizID int64) ([]domain.RankEntry, error) {
	quiz, err := s.store.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublic || !quiz.Started(s.clock()) {
		return nil, fmt.Errorf("%w: rank list of quiz %d unavailable before start", domain.ErrConflict, quizID)
	}

	if s.cache != nil {
		if entries, ok, err := s.cache.RankList(ctx, quizID); err == nil && ok {
			return entries, nil
		}
	}

	result, err, _ := s.sf.Do(fmt.Sprintf("rank:%d", quizID), func() (interface{}, error) {
		entries, err := s.loadRankList(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			// Best effort; the authoritative list came from storage.
			_ = s.cache.StoreRankList(ctx, quizID, entries)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RankEntry), nil
}

// Subscribe returns a channel receiving rank list updates for the quiz. The
// caller must invoke cancel to release the subscription.
func (s *RankService) Subscribe(quizID int64) (<-chan []domain.RankEntry, func()) {
	ch := make(chan []domain.RankEntry, 8)

	s.mu.Lock()
	set, ok := s.subs[quizID]
	if !ok {
		set = make(map[chan []domain.RankEntry]struct{})
		s.subs[quizID] = set
	}
	set[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.subs[quizID]; ok {
			if _, live := set[ch]; live {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(s.subs, quizID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// ResultRecorded implements SubmitListener: the new result is folded into the
// cache and the fresh list is pushed to subscribers.
func (s *RankService) ResultRecorded(ctx context.Context, result domain.Result, _, _ int) {
	if s.cache != nil {
		_ = s.cache.AddEntry(ctx, result.QuizID, domain.RankEntry{
			ResultID:      result.ID,
			ParticipantID: result.ParticipantID,
			ObtainedMarks: result.ObtainedMarks,
			Percentage:    result.Percentage,
		})
	}

	s.mu.Lock()
	live := len(s.subs[result.QuizID]) > 0
	s.mu.Unlock()
	if !live {
		return
	}

	entries, err := s.loadRankList(ctx, result.QuizID)
	if err != nil {
		return
	}
	s.mu.Lock()
	for ch := range s.subs[result.QuizID] {
		select {
		case ch <- entries:
		default:
			// Drop the stale update so a slow subscriber cannot block the rest.
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}
	s.mu.Unlock()
}

func (s *RankService) loadRankList(ctx context.Context, quizID int64) ([]domain.RankEntry, error) {
	results, err := s.store.ResultsByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.RankEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, domain.RankEntry{
			ResultID:      r.ID,
			ParticipantID: r.ParticipantID,
			ObtainedMarks: r.ObtainedMarks,
			Percentage:    r.Percentage,
		})
	}
	return entries, nil
}
