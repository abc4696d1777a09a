package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisConfig selects and tunes the redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	Timeout  time.Duration `yaml:"-" json:"-"`
}

// RedisStore keeps records as plain string keys with native expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a client from cfg. It does not contact the server;
// see WaitReady.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), cfg.Prefix)
}

// NewRedisStoreFromClient wraps an existing client. Every key is prefixed
// with prefix, which may be empty.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(ns Namespace, token string) string {
	return r.prefix + string(ns) + ":" + token
}

func (r *RedisStore) Put(ctx context.Context, ns Namespace, token, subjectID string, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(ns, token), subjectID, ttl).Err(); err != nil {
		return unavailable("put", err)
	}
	return nil
}

func (r *RedisStore) Exists(ctx context.Context, ns Namespace, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(ns, token)).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n == 1, nil
}

func (r *RedisStore) Get(ctx context.Context, ns Namespace, token string) (string, error) {
	v, err := r.client.Get(ctx, r.key(ns, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", unavailable("get", err)
	}
	return v, nil
}

func (r *RedisStore) Delete(ctx context.Context, ns Namespace, token string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(ns, token)).Result()
	if err != nil {
		return false, unavailable("delete", err)
	}
	return n > 0, nil
}

func (r *RedisStore) Link(ctx context.Context, accessToken, refreshToken string, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(NamespaceLink, accessToken), refreshToken, ttl).Err(); err != nil {
		return unavailable("link", err)
	}
	return nil
}

// Unlink uses GETDEL so that of two concurrent revocations only one sees
// the refresh token.
func (r *RedisStore) Unlink(ctx context.Context, accessToken string) (string, error) {
	v, err := r.client.GetDel(ctx, r.key(NamespaceLink, accessToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", unavailable("unlink", err)
	}
	return v, nil
}

// Count returns the number of live records in ns. It scans the keyspace and
// is meant for diagnostics only.
func (r *RedisStore) Count(ctx context.Context, ns Namespace) (int64, error) {
	var (
		cursor uint64
		n      int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key(ns, "*"), 500).Result()
		if err != nil {
			return 0, unavailable("count", err)
		}
		n += int64(len(keys))
		if next == 0 {
			return n, nil
		}
		cursor = next
	}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
