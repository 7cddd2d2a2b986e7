// Package redis caches per-quiz rank lists in a Redis sorted set.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"qzone-service/internal/app"
	"qzone-service/internal/domain"
)

// RankCache keeps one sorted set per quiz:
//
//	ZADD quiz:{quizID}:ranks {obtainedMarks} {entry JSON}
//
// Members come back highest score first, which is already rank order.
type RankCache struct {
	client *redis.Client
	ttl    time.Duration
	rnd    *rand.Rand
}

var _ app.RankCache = (*RankCache)(nil)

func NewRankCache(client *redis.Client, ttl time.Duration) *RankCache {
	return &RankCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *RankCache) RankList(ctx context.Context, quizID int64) ([]domain.RankEntry, bool, error) {
	members, err := c.client.ZRevRange(ctx, c.key(quizID), 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read rank list of quiz %d: %w", quizID, err)
	}
	if len(members) == 0 {
		return nil, false, nil
	}
	entries := make([]domain.RankEntry, 0, len(members))
	for _, member := range members {
		var entry domain.RankEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			// A corrupt member poisons the whole set; treat it as a miss
			// so the caller reloads from storage.
			return nil, false, nil
		}
		entries = append(entries, entry)
	}
	return entries, true, nil
}

func (c *RankCache) StoreRankList(ctx context.Context, quizID int64, entries []domain.RankEntry) error {
	key := c.key(quizID)
	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	for _, entry := range entries {
		member, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal rank entry of result %d: %w", entry.ResultID, err)
		}
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(entry.ObtainedMarks), Member: string(member)})
	}
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rank list of quiz %d: %w", quizID, err)
	}
	return nil
}

// AddEntry folds one fresh result into the set. A quiz whose set has never
// been filled stays empty so the next read loads the full list from storage.
func (c *RankCache) AddEntry(ctx context.Context, quizID int64, entry domain.RankEntry) error {
	key := c.key(quizID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check rank list of quiz %d: %w", quizID, err)
	}
	if exists == 0 {
		return nil
	}
	member, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal rank entry of result %d: %w", entry.ResultID, err)
	}
	if err := c.client.ZAdd(ctx, key, redis.Z{Score: float64(entry.ObtainedMarks), Member: string(member)}).Err(); err != nil {
		return fmt.Errorf("add rank entry to quiz %d: %w", quizID, err)
	}
	return nil
}

func (c *RankCache) key(quizID int64) string {
	return fmt.Sprintf("quiz:%d:ranks", quizID)
}

func (c *RankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
