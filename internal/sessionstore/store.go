// Package sessionstore holds serialized session snapshots (the saved-state
// JSON) outside process memory, so a session survives an
// API process restart. Redis is primary; an in-memory fallback keeps the
// service up if Redis is unreachable at the cost of losing snapshots on
// restart — the same dual-strategy shape the teacher uses for response
// caching, repurposed here to hold one snapshot per session instead of
// many short-lived cache entries.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists and retrieves a session's serialized snapshot.
type Store interface {
	Get(ctx context.Context, sessionID string, dest interface{}) error
	Set(ctx context.Context, sessionID string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Key namespaces a session id so the same Redis instance can host other
// key families without collision.
func Key(sessionID string) string {
	return "session:" + sessionID
}

// MemoryStore is the in-process fallback used when Redis is unavailable.
type MemoryStore struct {
	mu    sync.Mutex
	store map[string]entry
}

type entry struct {
	value      []byte
	expiration time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: make(map[string]entry)}
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.store[Key(sessionID)]
	if !ok {
		return fmt.Errorf("sessionstore: snapshot not found for %q", sessionID)
	}
	if time.Now().After(e.expiration) {
		delete(m.store, Key(sessionID))
		return fmt.Errorf("sessionstore: snapshot expired for %q", sessionID)
	}

	return json.Unmarshal(e.value, dest)
}

func (m *MemoryStore) Set(ctx context.Context, sessionID string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[Key(sessionID)] = entry{value: data, expiration: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, Key(sessionID))
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]entry)
	return nil
}

// RedisStore is the primary, cross-process snapshot backing.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, sessionID string, dest interface{}) error {
	val, err := r.client.Get(ctx, Key(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("sessionstore: snapshot not found for %q", sessionID)
		}
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (r *RedisStore) Set(ctx context.Context, sessionID string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, Key(sessionID), data, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, Key(sessionID)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
