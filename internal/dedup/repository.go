package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Repository interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	PushHistory(ctx context.Context, key, hash string, maxLen int64, ttl time.Duration) error
	InHistory(ctx context.Context, key, hash string) (bool, error)
	CountKeys(ctx context.Context, prefix string) (int, error)
}

type CursorRepository interface {
	GetWatermark(ctx context.Context, key string) (time.Time, error)
	SetWatermark(ctx context.Context, key string, ts time.Time) error
	AddRecentID(ctx context.Context, key, id string, ts time.Time) error
	HasRecentID(ctx context.Context, key, id string) (bool, error)
	TrimRecentIDs(ctx context.Context, key string, before time.Time) (int64, error)
}

type RedisRepository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	success, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return success, nil
}

func (r *RedisRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis EXISTS failed: %w", err)
	}
	return n > 0, nil
}

// PushHistory prepends a content hash onto the correspondent's bounded
// recent-history list. The trim keeps the list at maxLen; the TTL keeps idle
// correspondents from accumulating forever.
func (r *RedisRepository) PushHistory(ctx context.Context, key, hash string, maxLen int64, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, hash)
	pipe.LTrim(ctx, key, 0, maxLen-1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis history push failed: %w", err)
	}
	return nil
}

func (r *RedisRepository) InHistory(ctx context.Context, key, hash string) (bool, error) {
	pos, err := r.client.LPos(ctx, key, hash, redis.LPosArgs{}).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis LPOS failed: %w", err)
	}
	return pos >= 0, nil
}

func (r *RedisRepository) CountKeys(ctx context.Context, prefix string) (int, error) {
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	count := 0
	for iter.Next(ctx) {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return count, nil
}

type RedisCursorRepository struct {
	client *redis.Client
}

func NewCursorRepository(client *redis.Client) *RedisCursorRepository {
	return &RedisCursorRepository{client: client}
}

func (r *RedisCursorRepository) GetWatermark(ctx context.Context, key string) (time.Time, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis GET failed: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt watermark %q: %w", val, err)
	}
	return ts, nil
}

func (r *RedisCursorRepository) SetWatermark(ctx context.Context, key string, ts time.Time) error {
	if err := r.client.Set(ctx, key, ts.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}

func (r *RedisCursorRepository) AddRecentID(ctx context.Context, key, id string, ts time.Time) error {
	if err := r.client.ZAdd(ctx, key, redis.Z{Score: float64(ts.Unix()), Member: id}).Err(); err != nil {
		return fmt.Errorf("redis ZADD failed: %w", err)
	}
	return nil
}

func (r *RedisCursorRepository) HasRecentID(ctx context.Context, key, id string) (bool, error) {
	_, err := r.client.ZScore(ctx, key, id).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis ZSCORE failed: %w", err)
	}
	return true, nil
}

func (r *RedisCursorRepository) TrimRecentIDs(ctx context.Context, key string, before time.Time) (int64, error) {
	removed, err := r.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", before.Unix())).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ZREMRANGEBYSCORE failed: %w", err)
	}
	return removed, nil
}
