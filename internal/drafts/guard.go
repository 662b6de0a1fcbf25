package drafts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultSubmitLockTTL = 2 * time.Minute

// ReleaseFunc frees a guard acquired by SubmitGuard.Acquire.
type ReleaseFunc func(ctx context.Context) error

// SubmitGuard admits one submission per draft at a time.
// Acquire returns ErrSubmitInFlight while another submission holds the key.
type SubmitGuard interface {
	Acquire(ctx context.Context, key Key) (ReleaseFunc, error)
}

// MemoryGuard guards submissions within a single process.
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: map[string]struct{}{}}
}

func (g *MemoryGuard) Acquire(ctx context.Context, key Key) (ReleaseFunc, error) {
	id := key.String()

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[id]; busy {
		return nil, ErrSubmitInFlight
	}
	g.inFlight[id] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, id)
			g.mu.Unlock()
		})
		return nil
	}, nil
}

// redisLocker defines the operations used by RedisGuard.
type redisLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfEqual(ctx context.Context, key, expected string) (bool, error)
	SubmitLockKey(owner string) string
}

// RedisGuard guards submissions across instances using SETNX + TTL.
// The TTL bounds how long a crashed submitter can block the draft.
type RedisGuard struct {
	client redisLocker
	ttl    time.Duration
}

func NewRedisGuard(client redisLocker, ttl time.Duration) (*RedisGuard, error) {
	if client == nil {
		return nil, errors.New("redis client required for submit guard")
	}
	if ttl <= 0 {
		ttl = defaultSubmitLockTTL
	}
	return &RedisGuard{client: client, ttl: ttl}, nil
}

func (g *RedisGuard) Acquire(ctx context.Context, key Key) (ReleaseFunc, error) {
	lockKey := g.client.SubmitLockKey(key.String())
	owner := uuid.NewString()
	ok, err := g.client.SetNX(ctx, lockKey, owner, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, ErrSubmitInFlight
	}
	return func(ctx context.Context) error {
		return g.release(ctx, lockKey, owner)
	}, nil
}

// release frees the lock only if the owner value still matches.
func (g *RedisGuard) release(ctx context.Context, lockKey, owner string) error {
	if _, err := g.client.DelIfEqual(ctx, lockKey, owner); err != nil {
		return fmt.Errorf("release submit lock: %w", err)
	}
	return nil
}
