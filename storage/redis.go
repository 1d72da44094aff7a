package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisLog keeps each stream as a Redis list of JSON entries. Ids come from
// a per-stream INCR counter so they survive restarts of this process.
type RedisLog struct {
	client *redis.Client
	prefix string
}

func NewRedisLog(ctx context.Context, addr, prefix string) (*RedisLog, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	return &RedisLog{
		client: rdb,
		prefix: prefix,
	}, nil
}

func (rl *RedisLog) key(stream Stream) string {
	return rl.prefix + ":" + string(stream)
}

func (rl *RedisLog) Append(ctx context.Context, stream Stream, data []byte) (int64, error) {
	key := rl.key(stream)

	id, err := rl.client.Incr(ctx, key+":seq").Result()
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", key, err)
	}

	b, err := json.Marshal(Entry{ID: id, Data: data})
	if err != nil {
		return 0, fmt.Errorf("encode entry: %w", err)
	}

	if err := rl.client.RPush(ctx, key, b).Err(); err != nil {
		return 0, fmt.Errorf("append to %s: %w", key, err)
	}
	return id, nil
}

func (rl *RedisLog) Recent(ctx context.Context, stream Stream, n int) ([]Entry, error) {
	key := rl.key(stream)
	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}

	vals, err := rl.client.LRange(ctx, key, start, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	out := make([]Entry, 0, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		var e Entry
		if err := json.Unmarshal([]byte(vals[i]), &e); err != nil {
			return nil, fmt.Errorf("decode entry of %s: %w", key, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (rl *RedisLog) Close() error {
	return rl.client.Close()
}
