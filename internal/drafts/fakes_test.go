package drafts

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/angelmondragon/orderdraft/pkg/adminapi"
	pkgredis "github.com/angelmondragon/orderdraft/pkg/redis"
)

type fakeBackend struct {
	mu        sync.Mutex
	users     []adminapi.User
	usersErr  error
	createErr error
	orderID   string
	requests  []adminapi.CreateOrderRequest
	listCalls int
	block     chan struct{}
	entered   chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users:   []adminapi.User{{ID: "u1", Address: "1 Main"}},
		orderID: "order-1",
	}
}

func (f *fakeBackend) ListEligibleUsers(ctx context.Context, search string) ([]adminapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.users, f.usersErr
}

func (f *fakeBackend) CreateFakeOrder(ctx context.Context, req adminapi.CreateOrderRequest) (*adminapi.CreatedOrder, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &adminapi.CreatedOrder{ID: f.orderID}, nil
}

func (f *fakeBackend) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// flakyStore fails Delete or Save on demand.
type flakyStore struct {
	*MemoryStore
	deleteErr   error
	saveErr     error
	deleteCalls int
}

func (f *flakyStore) Save(ctx context.Context, draft *Draft) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.Save(ctx, draft)
}

func (f *flakyStore) Delete(ctx context.Context, key Key) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, key)
}

// sameStripeKey finds a different key that shares key's lock stripe.
func sameStripeKey(t *testing.T, key Key) Key {
	t.Helper()
	target := xxhash.Sum64String(key.String()) % lockStripes
	for i := 0; i < 10000; i++ {
		candidate := Key{Owner: fmt.Sprintf("admin-%d", i), ShopID: "shop-9"}
		if candidate != key && xxhash.Sum64String(candidate.String())%lockStripes == target {
			return candidate
		}
	}
	t.Fatalf("no key shares a stripe with %s", key)
	return Key{}
}

type fakeKV struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (f *fakeKV) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
		delete(f.ttls, k)
	}
	return nil
}

func (f *fakeKV) DelIfEqual(ctx context.Context, key, expected string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[key] != expected {
		return false, nil
	}
	delete(f.values, key)
	delete(f.ttls, key)
	return true, nil
}

func (f *fakeKV) DraftKey(owner string) string {
	return "od:draft:" + owner
}

func (f *fakeKV) SubmitLockKey(owner string) string {
	return "od:submit_lock:" + owner
}
