package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned by Load when no response is stored under the key.
var ErrMiss = errors.New("idempotency: miss")

// Response is a recorded HTTP response.
type Response struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body,omitempty"`
}

// Store remembers responses per idempotency key.
type Store interface {
	// Reserve claims key for an in-flight request. It reports false when the
	// key is already claimed or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Load returns the completed response for key, or ErrMiss.
	Load(ctx context.Context, key string) (Response, error)
	Save(ctx context.Context, key string, resp Response, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

const (
	pendingSuffix = ":pending"
	doneSuffix    = ":done"
)

// RedisStore keeps responses in Redis so replays survive restarts and are
// shared across replicas.
type RedisStore struct {
	c      *redis.Client
	prefix string
}

// NewRedisStore constructs a store. An empty prefix defaults to "lease:idem:".
func NewRedisStore(c *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "lease:idem:"
	}
	return &RedisStore{c: c, prefix: prefix}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	exists, err := s.c.Exists(ctx, s.prefix+key+doneSuffix).Result()
	if err != nil {
		return false, err
	}
	if exists > 0 {
		return false, nil
	}
	return s.c.SetNX(ctx, s.prefix+key+pendingSuffix, "1", ttl).Result()
}

func (s *RedisStore) Load(ctx context.Context, key string) (Response, error) {
	raw, err := s.c.Get(ctx, s.prefix+key+doneSuffix).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Response{}, ErrMiss
		}
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	pipe := s.c.TxPipeline()
	pipe.Set(ctx, s.prefix+key+doneSuffix, raw, ttl)
	pipe.Del(ctx, s.prefix+key+pendingSuffix)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.c.Del(ctx, s.prefix+key+pendingSuffix).Err()
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	pending map[string]time.Time
	done    map[string]memoryEntry
}

type memoryEntry struct {
	resp      Response
	expiresAt time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		pending: make(map[string]time.Time),
		done:    make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if entry, ok := s.done[key]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	if expiresAt, ok := s.pending[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.pending[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.done[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		delete(s.done, key)
		return Response{}, ErrMiss
	}
	return entry.resp, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, resp Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	s.done[key] = memoryEntry{resp: resp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	return nil
}
