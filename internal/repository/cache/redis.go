package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStorage keeps one hash per version (url -> msgpack entry) and a set of known versions.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisStorage(client, cfg.Prefix), nil
}

func newRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "offline"
	}
	return &RedisStorage{
		client: client,
		prefix: prefix,
	}
}

var _ Storage = (*RedisStorage)(nil)

func (s *RedisStorage) versionsKey() string {
	return s.prefix + ":versions"
}

func (s *RedisStorage) entriesKey(version string) string {
	return s.prefix + ":cache:" + version
}

func (s *RedisStorage) Open(ctx context.Context, version string) (Store, error) {
	if err := s.client.SAdd(ctx, s.versionsKey(), version).Err(); err != nil {
		return nil, fmt.Errorf("redis open version %q: %w", version, err)
	}

	return &RedisCache{client: s.client, key: s.entriesKey(version)}, nil
}

func (s *RedisStorage) Versions(ctx context.Context) ([]string, error) {
	versions, err := s.client.SMembers(ctx, s.versionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list versions: %w", err)
	}
	slices.Sort(versions)
	return versions, nil
}

func (s *RedisStorage) DeleteVersion(ctx context.Context, version string) (bool, error) {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.entriesKey(version))
		removed = pipe.SRem(ctx, s.versionsKey(), version)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis delete version %q: %w", version, err)
	}

	return removed.Val() > 0, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}

type RedisCache struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisCache)(nil)

func (c *RedisCache) Put(ctx context.Context, url string, resp *entity.Response) error {
	b, err := encodeEntry(url, resp)
	if err != nil {
		return err
	}

	if err := c.client.HSet(ctx, c.key, url, b).Err(); err != nil {
		return fmt.Errorf("redis put error: %w", err)
	}
	return nil
}

func (c *RedisCache) Match(ctx context.Context, url string) (*entity.Response, bool, error) {
	b, err := c.client.HGet(ctx, c.key, url).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis match error: %w", err)
	}

	_, resp, err := decodeEntry(b)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, url string) (bool, error) {
	n, err := c.client.HDel(ctx, c.key, url).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete error: %w", err)
	}
	return n > 0, nil
}

func (c *RedisCache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.client.HKeys(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys error: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}
