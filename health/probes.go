package health

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// KV is the slice of a cache client used by the cache probe.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
type KV interface {
	// Set stores a value with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value. A missing or expired key returns an error.
	Get(ctx context.Context, key string) (string, error)
}

// cacheProbeKey is the key the cache probe round-trips through.
const cacheProbeKey = "health:cache:probe"

// CacheCheck returns a check that writes a fresh value to the cache and
// reads it back. The check passes iff the round-tripped value matches.
func CacheCheck(kv KV) CheckFunc {
	return func(ctx context.Context) (bool, error) {
		value := uuid.NewString()
		if err := kv.Set(ctx, cacheProbeKey, value, 10*time.Second); err != nil {
			return false, err
		}
		got, err := kv.Get(ctx, cacheProbeKey)
		if err != nil {
			return false, err
		}
		return got == value, nil
	}
}

// Execer is the slice of a connection pool used by the database probe.
// *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Execer = (*pgxpool.Pool)(nil)

// DatabaseCheck returns a check that probes datastore connectivity with a
// trivial query. The check passes iff the query completes without error.
func DatabaseCheck(db Execer) CheckFunc {
	return func(ctx context.Context) (bool, error) {
		if _, err := db.Exec(ctx, "SELECT 1"); err != nil {
			return false, err
		}
		return true, nil
	}
}

// RedisKV adapts a Redis client to KV.
type RedisKV struct {
	client redis.UniversalClient
}

// NewRedisKV creates a KV backed by the given Redis client.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	return value, err
}

// MemoryKV is an in-process KV with TTL expiry, for tests and single-node
// deployments without a cache server.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry)}
}

// Set stores a value with the given TTL. TTL<=0 means no caching.
func (m *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Get retrieves a value. Expired entries are cleaned up lazily.
func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrKeyNotFound
	}

	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", ErrKeyNotFound
	}

	return entry.value, nil
}

var (
	_ KV = (*RedisKV)(nil)
	_ KV = (*MemoryKV)(nil)
)
