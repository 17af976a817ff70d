package report

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotKey é a chave Redis do relatório consolidado
const SnapshotKey = "report:snapshot"

// SnapshotCache guarda o último relatório montado
type SnapshotCache interface {
	Get(ctx context.Context) (Snapshot, bool, error)
	Set(ctx context.Context, s Snapshot) error
	Invalidate(ctx context.Context) error
}

// RedisCache implementa SnapshotCache com GET/SET e TTL
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

func (r *RedisCache) Get(ctx context.Context) (Snapshot, bool, error) {
	b, err := r.Client.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}

func (r *RedisCache) Set(ctx context.Context, s Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, SnapshotKey, b, r.TTL).Err()
}

func (r *RedisCache) Invalidate(ctx context.Context) error {
	return r.Client.Del(ctx, SnapshotKey).Err()
}
