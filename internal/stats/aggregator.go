// Package stats maintains each quiz's running participant count and average
// score. The read-modify-write per quiz is serialized through a named
// critical section; without it, concurrent submissions silently corrupt the
// average.
package stats

import (
	"context"
	"fmt"
	"math"

	"qzone-service/internal/keylock"
)

// Store reads and writes a quiz's aggregate columns.
type Store interface {
	QuizStats(ctx context.Context, quizID int64) (participants, average int, err error)
	SetQuizStats(ctx context.Context, quizID int64, participants, average int) error
}

// Aggregator serializes statistics updates per quiz id. Updates for
// different quizzes interleave freely.
type Aggregator struct {
	store Store
	locks *keylock.Registry
}

func New(store Store) *Aggregator {
	return &Aggregator{store: store, locks: keylock.New()}
}

// Record folds a newly obtained score into the quiz's running statistics and
// returns the updated pair. The average is recomputed from (oldAverage,
// oldCount) rather than a running sum, matching the recurrence this service
// inherited; rounding is half away from zero.
func (a *Aggregator) Record(ctx context.Context, quizID int64, score int) (participants, average int, err error) {
	unlock := a.locks.Lock(fmt.Sprintf("quiz-stats:%d", quizID))
	defer unlock()

	count, avg, err := a.store.QuizStats(ctx, quizID)
	if err != nil {
		return 0, 0, fmt.Errorf("read stats of quiz %d: %w", quizID, err)
	}

	newCount := count + 1
	newAvg := int(math.Round(float64(avg*count+score) / float64(newCount)))

	if err := a.store.SetQuizStats(ctx, quizID, newCount, newAvg); err != nil {
		return 0, 0, fmt.Errorf("write stats of quiz %d: %w", quizID, err)
	}
	return newCount, newAvg, nil
}
