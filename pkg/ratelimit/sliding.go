package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter admits at most a fixed number of events per key inside a sliding
// window. A denied call reports how long until the oldest event leaves the
// window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Unlimited admits every event.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, time.Duration, error) {
	return true, 0, nil
}

// MemorySlidingWindow keeps event timestamps per key in process memory.
type MemorySlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemorySlidingWindow allows limit events per window. A nil clock uses time.Now.
func NewMemorySlidingWindow(limit int, window time.Duration, clock func() time.Time) *MemorySlidingWindow {
	if clock == nil {
		clock = time.Now
	}
	return &MemorySlidingWindow{
		limit:  limit,
		window: window,
		now:    clock,
		hits:   make(map[string][]time.Time),
	}
}

func (s *MemorySlidingWindow) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)

	kept := s.hits[key][:0]
	for _, t := range s.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= s.limit {
		s.hits[key] = kept
		return false, kept[0].Add(s.window).Sub(now), nil
	}

	s.hits[key] = append(kept, now)
	return true, 0, nil
}

// RedisSlidingWindow stores events in a sorted set per key scored by unix
// milliseconds, so limits hold across replicas.
type RedisSlidingWindow struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisSlidingWindow allows limit events per window for each key under prefix.
func NewRedisSlidingWindow(client *redis.Client, prefix string, limit int, window time.Duration) *RedisSlidingWindow {
	return &RedisSlidingWindow{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (s *RedisSlidingWindow) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := s.now()
	redisKey := s.prefix + key
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-s.window).UnixMilli(), 10)

	var card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
		card = pipe.ZCard(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, s.window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("sliding window %s: %w", key, err)
	}

	if card.Val() <= int64(s.limit) {
		return true, 0, nil
	}

	// Over the limit: the attempt does not count.
	if err := s.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return false, 0, fmt.Errorf("sliding window %s: %w", key, err)
	}

	oldest, err := s.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return false, s.window, nil
	}
	retry := time.UnixMilli(int64(oldest[0].Score)).Add(s.window).Sub(now)
	if retry < 0 {
		retry = 0
	}
	return false, retry, nil
}
