package utils

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ephemeral key families for buffered visit data.
const (
	uniqueVisitKeyPrefix = "content_unique_visit:"
	rawVisitKeyPrefix    = "content_visit:"
)

// VisitEvent is one buffered uniqueness marker: this session saw this target
// at least once inside the TTL window.
type VisitEvent struct {
	TargetType string
	TargetSlug string
	SessionKey string
}

// TargetRef keys buffered raw-hit counters.
type TargetRef struct {
	TargetType string
	TargetSlug string
}

// VisitBuffer is the ephemeral write buffer between the track-view hot path
// and the periodic flush job. Drains read without deleting; Clear removes
// keys only after their effects are durably applied.
type VisitBuffer interface {
	// RecordUnique stores a uniqueness marker only if absent; an existing
	// marker's expiry is left untouched.
	RecordUnique(ctx context.Context, ev VisitEvent, ttl time.Duration) error
	// RecordHit increments the raw-hit counter for a target, creating it
	// with the given TTL on first increment.
	RecordHit(ctx context.Context, ref TargetRef, ttl time.Duration) error
	// DrainUniques returns all pending uniqueness markers and their keys.
	DrainUniques(ctx context.Context) ([]VisitEvent, []string, error)
	// DrainHits returns all pending raw-hit counters and their keys.
	DrainHits(ctx context.Context) (map[TargetRef]int64, []string, error)
	// Clear deletes drained keys.
	Clear(ctx context.Context, keys []string) error
}

func uniqueVisitKey(ev VisitEvent) string {
	return fmt.Sprintf("%s%s:%s:%s", uniqueVisitKeyPrefix, ev.TargetType, ev.TargetSlug, ev.SessionKey)
}

func rawVisitKey(ref TargetRef) string {
	return fmt.Sprintf("%s%s:%s", rawVisitKeyPrefix, ref.TargetType, ref.TargetSlug)
}

// RedisVisitBuffer implements VisitBuffer on top of the shared Redis client.
type RedisVisitBuffer struct {
	rc *redis.Client
}

// NewRedisVisitBuffer wraps a Redis client as a VisitBuffer.
func NewRedisVisitBuffer(rc *redis.Client) *RedisVisitBuffer {
	return &RedisVisitBuffer{rc: rc}
}

func (b *RedisVisitBuffer) RecordUnique(ctx context.Context, ev VisitEvent, ttl time.Duration) error {
	// SETNX semantics: first view in the window wins, later views neither
	// overwrite the payload nor refresh the expiry.
	return b.rc.SetNX(ctx, uniqueVisitKey(ev), "1", ttl).Err()
}

func (b *RedisVisitBuffer) RecordHit(ctx context.Context, ref TargetRef, ttl time.Duration) error {
	key := rawVisitKey(ref)
	n, err := b.rc.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return b.rc.Expire(ctx, key, ttl).Err()
	}
	return nil
}

func (b *RedisVisitBuffer) DrainUniques(ctx context.Context) ([]VisitEvent, []string, error) {
	keys, err := b.scan(ctx, uniqueVisitKeyPrefix+"*")
	if err != nil {
		return nil, nil, err
	}
	events := make([]VisitEvent, 0, len(keys))
	for _, key := range keys {
		parts := strings.Split(strings.TrimPrefix(key, uniqueVisitKeyPrefix), ":")
		if len(parts) != 3 {
			continue
		}
		events = append(events, VisitEvent{TargetType: parts[0], TargetSlug: parts[1], SessionKey: parts[2]})
	}
	return events, keys, nil
}

func (b *RedisVisitBuffer) DrainHits(ctx context.Context) (map[TargetRef]int64, []string, error) {
	keys, err := b.scan(ctx, rawVisitKeyPrefix+"*")
	if err != nil {
		return nil, nil, err
	}
	hits := make(map[TargetRef]int64, len(keys))
	if len(keys) == 0 {
		return hits, keys, nil
	}
	values, err := b.rc.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}
	for i, key := range keys {
		parts := strings.Split(strings.TrimPrefix(key, rawVisitKeyPrefix), ":")
		if len(parts) != 2 || values[i] == nil {
			continue
		}
		raw, ok := values[i].(string)
		if !ok {
			continue
		}
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || count <= 0 {
			continue
		}
		ref := TargetRef{TargetType: parts[0], TargetSlug: parts[1]}
		hits[ref] += count
	}
	return hits, keys, nil
}

func (b *RedisVisitBuffer) Clear(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := b.rc.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, k)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (b *RedisVisitBuffer) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, cur, err := b.rc.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = cur
		if cursor == 0 {
			return keys, nil
		}
	}
}
