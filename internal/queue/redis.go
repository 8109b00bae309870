package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tacedge/gateway/internal/apperr"
)

const (
	keyPrefix   = "tacedge:queue:"
	inFlightTTL = 24 * time.Hour
)

// RedisBackend is the primary queue store: one sorted set per precedence,
// scored by creation time, plus a dedup key per in-flight message id. Mirrors
// the original store-forward service's ZADD/ZPOPMIN/ZCARD/ZRANGE usage.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an already-connected client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func queueKey(p Precedence) string {
	return keyPrefix + string(p)
}

func inFlightKey(messageID string) string {
	return "tacedge:msg:" + messageID
}

func (r *RedisBackend) Enqueue(ctx context.Context, entry Entry) (int, error) {
	ok, err := r.client.SetNX(ctx, inFlightKey(entry.MessageID), "1", inFlightTTL).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: redis setnx: %w", err)
	}
	if !ok {
		return 0, apperr.New(apperr.AlreadyQueued, "message id already queued")
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("queue: marshal entry: %w", err)
	}

	score := float64(entry.CreatedAt.UnixNano())
	key := queueKey(entry.Precedence)
	if err := r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: payload}).Err(); err != nil {
		r.client.Del(ctx, inFlightKey(entry.MessageID))
		return 0, fmt.Errorf("queue: redis zadd: %w", err)
	}

	depth, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: redis zcard: %w", err)
	}
	return int(depth), nil
}

func (r *RedisBackend) Requeue(ctx context.Context, entry Entry) (int, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("queue: marshal entry: %w", err)
	}

	// Scored by wall-clock time of the requeue itself, not entry.CreatedAt:
	// a failed delivery goes to the tail of its class (spec §4.2), behind
	// every entry already waiting, not back to its original sorted position.
	score := float64(time.Now().UnixNano())
	key := queueKey(entry.Precedence)
	if err := r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: payload}).Err(); err != nil {
		return 0, fmt.Errorf("queue: redis zadd: %w", err)
	}

	depth, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: redis zcard: %w", err)
	}
	return int(depth), nil
}

func (r *RedisBackend) Dequeue(ctx context.Context, precedence Precedence) (Entry, bool, error) {
	res, err := r.client.ZPopMin(ctx, queueKey(precedence), 1).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("queue: redis zpopmin: %w", err)
	}
	if len(res) == 0 {
		return Entry{}, false, nil
	}

	member, ok := res[0].Member.(string)
	if !ok {
		return Entry{}, false, errors.New("queue: unexpected zpopmin member type")
	}

	var entry Entry
	if err := json.Unmarshal([]byte(member), &entry); err != nil {
		return Entry{}, false, fmt.Errorf("queue: unmarshal entry: %w", err)
	}
	return entry, true, nil
}

func (r *RedisBackend) Depth(ctx context.Context, precedence Precedence) (int, error) {
	n, err := r.client.ZCard(ctx, queueKey(precedence)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: redis zcard: %w", err)
	}
	return int(n), nil
}

func (r *RedisBackend) OldestCreatedAt(ctx context.Context, precedence Precedence) (time.Time, bool, error) {
	res, err := r.client.ZRangeWithScores(ctx, queueKey(precedence), 0, 0).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("queue: redis zrange: %w", err)
	}
	if len(res) == 0 {
		return time.Time{}, false, nil
	}

	member, ok := res[0].Member.(string)
	if !ok {
		return time.Time{}, false, errors.New("queue: unexpected zrange member type")
	}
	var entry Entry
	if err := json.Unmarshal([]byte(member), &entry); err != nil {
		return time.Time{}, false, fmt.Errorf("queue: unmarshal entry: %w", err)
	}
	return entry.CreatedAt, true, nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) Forget(ctx context.Context, messageID string) error {
	return r.client.Del(ctx, inFlightKey(messageID)).Err()
}
