package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/orderdraft/pkg/adminapi"
	pkgredis "github.com/angelmondragon/orderdraft/pkg/redis"
)

const defaultDraftTTL = 12 * time.Hour

// Store persists drafts for their TTL.
type Store interface {
	Load(ctx context.Context, key Key) (*Draft, error)
	Save(ctx context.Context, draft *Draft) error
	Delete(ctx context.Context, key Key) error
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps drafts in process memory. Entries are serialized so callers never share state.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore builds an in-process store; ttl <= 0 falls back to 12h.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(ctx context.Context, key Key) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key.String())
		return nil, ErrDraftNotFound
	}
	return decodeDraft(entry.payload)
}

func (s *MemoryStore) Save(ctx context.Context, draft *Draft) error {
	if draft == nil {
		return errors.New("draft is required")
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[draft.Key().String()] = memoryEntry{payload: payload, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// redisKV is the subset of pkg/redis used by RedisStore.
type redisKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DraftKey(owner string) string
}

// RedisStore keeps drafts as JSON documents with a TTL so every instance sees the same draft.
type RedisStore struct {
	client redisKV
	ttl    time.Duration
}

// NewRedisStore wires a redis-backed draft store.
func NewRedisStore(client redisKV, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required for draft store")
	}
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, key Key) (*Draft, error) {
	raw, err := s.client.Get(ctx, s.client.DraftKey(key.String()))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return decodeDraft([]byte(raw))
}

func (s *RedisStore) Save(ctx context.Context, draft *Draft) error {
	if draft == nil {
		return errors.New("draft is required")
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, s.client.DraftKey(draft.Key().String()), string(payload), s.ttl); err != nil {
		return fmt.Errorf("set draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, s.client.DraftKey(key.String())); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func decodeDraft(payload []byte) (*Draft, error) {
	var draft Draft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	if draft.Quantities == nil {
		draft.Quantities = map[string]int{}
	}
	if draft.Lines == nil {
		draft.Lines = []adminapi.ShopProduct{}
	}
	return &draft, nil
}
