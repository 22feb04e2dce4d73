package progress

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the optional pluggable TrackingStore (SPEC_FULL.md §4.5a),
// adapted from the teacher's internal/cache Redis wrapper: JSON-serialized
// values, TTL applied natively via SET...EX rather than swept on insert.
// Intended for multiple OS processes of the *same* interface plugin
// sharing one tracking map — it does not make the plugin manager, job
// scheduler, or bus distributed.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedisStore constructs a RedisStore scoped to keyPrefix (normally the
// owning interface's id) with the given entry TTL.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

// NewRedisClient builds a pooled go-redis client for addr, carrying over
// the teacher's cache.Cache pool and retry tuning (25 max conns, 5 min
// idle, exponential backoff retries) since a tracking store sees the same
// high-frequency, small-value access pattern as the teacher's session
// cache.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,

		PoolSize:        25,
		MinIdleConns:    5,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})
}

func (r *RedisStore) fullKey(key string) string {
	return "progress:" + r.keyPrefix + ":" + key
}

type redisEntry struct {
	Info      json.RawMessage `json:"info"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Put stores entry with the store's configured TTL.
func (r *RedisStore) Put(ctx context.Context, key string, entry JobTrackingEntry) error {
	infoJSON, err := json.Marshal(entry.Info)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(redisEntry{Info: infoJSON, CreatedAt: entry.CreatedAt})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.fullKey(key), payload, r.ttl).Err()
}

// Get returns the entry for key, if present.
func (r *RedisStore) Get(ctx context.Context, key string) (JobTrackingEntry, bool, error) {
	raw, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err == redis.Nil {
		return JobTrackingEntry{}, false, nil
	}
	if err != nil {
		return JobTrackingEntry{}, false, err
	}
	var re redisEntry
	if err := json.Unmarshal(raw, &re); err != nil {
		return JobTrackingEntry{}, false, err
	}
	var info any
	if err := json.Unmarshal(re.Info, &info); err != nil {
		return JobTrackingEntry{}, false, err
	}
	return JobTrackingEntry{Info: info, CreatedAt: re.CreatedAt}, true, nil
}

// Has reports whether key is currently tracked.
func (r *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.fullKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes key's entry.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.fullKey(key)).Err()
}
