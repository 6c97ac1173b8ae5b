package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis is a redis-backed snapshot store. Useful when a session should
// survive the host the client runs on.
type Redis struct {
	opts *Options
	rdb  *redis.Client
}

func NewRedis(opts *Options) (*Redis, error) {
	opts.SetDefaults()
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}
	return &Redis{opts: opts, rdb: redis.NewClient(ropts)}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value string) error {
	return r.rdb.Set(ctx, r.key(key), value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) key(key string) string {
	return r.opts.Scope + ":" + key
}
