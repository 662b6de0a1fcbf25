package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/orderdraft/internal/drafts"
	"github.com/angelmondragon/orderdraft/pkg/adminapi"
	pkgAuth "github.com/angelmondragon/orderdraft/pkg/auth"
	"github.com/angelmondragon/orderdraft/pkg/config"
	"github.com/angelmondragon/orderdraft/pkg/logger"
	"github.com/angelmondragon/orderdraft/pkg/metrics"
	"github.com/angelmondragon/orderdraft/pkg/pagination"
	pkgredis "github.com/angelmondragon/orderdraft/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubBackend struct {
	orders int
}

func (s *stubBackend) ListShopProducts(ctx context.Context, shopID string, params pagination.Params) (*adminapi.ProductPage, error) {
	return &adminapi.ProductPage{}, nil
}

func (s *stubBackend) ListEligibleUsers(ctx context.Context, search string) ([]adminapi.User, error) {
	return []adminapi.User{{ID: "u1", Address: "1 Main"}}, nil
}

func (s *stubBackend) UpdateUserAddress(ctx context.Context, userID, address string) (*adminapi.User, error) {
	return &adminapi.User{ID: userID, Address: address}, nil
}

func (s *stubBackend) CreateFakeOrder(ctx context.Context, req adminapi.CreateOrderRequest) (*adminapi.CreatedOrder, error) {
	s.orders++
	return &adminapi.CreatedOrder{ID: fmt.Sprintf("ord-%d", s.orders)}, nil
}

type memoryIdempotency struct {
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", pkgredis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test"},
		JWT:     config.JWTConfig{Secret: "secret", Issuer: "dashboard", AdminRole: "admin"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testEnv struct {
	router  http.Handler
	backend *stubBackend
	cfg     *config.Config
}

func newTestEnv(t *testing.T, idem pkgredis.IdempotencyStore) *testEnv {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	backend := &stubBackend{}

	svc, err := drafts.NewService(drafts.ServiceParams{
		Store:         drafts.NewMemoryStore(time.Hour),
		Guard:         drafts.NewMemoryGuard(),
		Backend:       backend,
		Pricing:       drafts.DefaultPricing(),
		CheckEligible: true,
		Metrics:       metrics.NewDraftMetrics(reg),
		Logger:        logg,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &testEnv{
		router:  NewRouter(cfg, logg, stubPinger{}, idem, reg, backend, svc),
		backend: backend,
		cfg:     cfg,
	}
}

func buildToken(t *testing.T, cfg *config.Config, role string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (e *testEnv) do(method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutesArePublic(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := env.do(http.MethodGet, path, "", "", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if resp.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestAdminGroupRejectsMissingJWT(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(http.MethodGet, "/api/admin/v1/shops/s1/draft", "", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(http.MethodGet, "/api/admin/v1/shops/s1/draft", buildToken(t, env.cfg, "support"), "", nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	resp = env.do(http.MethodGet, "/api/admin/v1/shops/s1/draft", buildToken(t, env.cfg, "admin"), "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestDraftsAreScopedPerAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := buildToken(t, env.cfg, "admin")
	bob := buildToken(t, env.cfg, "admin")

	resp := env.do(http.MethodPost, "/api/admin/v1/shops/s1/draft/lines", alice, `{"id":"p1","salePrice":3}`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("add line: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(http.MethodGet, "/api/admin/v1/shops/s1/draft", bob, "", nil)
	if !strings.Contains(resp.Body.String(), `"totalSelected":0`) {
		t.Fatalf("bob must not see alice's draft: %s", resp.Body.String())
	}
	resp = env.do(http.MethodGet, "/api/admin/v1/shops/s2/draft", alice, "", nil)
	if !strings.Contains(resp.Body.String(), `"totalSelected":0`) {
		t.Fatalf("drafts must be per shop: %s", resp.Body.String())
	}
}

func TestSubmitReplaysWithIdempotencyKey(t *testing.T) {
	env := newTestEnv(t, &memoryIdempotency{data: map[string]string{}})
	token := buildToken(t, env.cfg, "admin")

	env.do(http.MethodPost, "/api/admin/v1/shops/s1/draft/lines", token, `{"id":"p1","salePrice":3}`, nil)
	env.do(http.MethodPut, "/api/admin/v1/shops/s1/draft/recipient", token, `{"userId":"u1","address":"1 Main"}`, nil)

	headers := map[string]string{"Idempotency-Key": "submit-1"}
	first := env.do(http.MethodPost, "/api/admin/v1/shops/s1/draft/submit", token, `{}`, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", first.Code, first.Body.String())
	}
	second := env.do(http.MethodPost, "/api/admin/v1/shops/s1/draft/submit", token, `{}`, headers)
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed response, got %d %s", second.Code, second.Body.String())
	}
	if env.backend.orders != 1 {
		t.Fatalf("expected exactly one order, got %d", env.backend.orders)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodGet, "/api/admin/v1/shops/s1/draft", buildToken(t, env.cfg, "admin"), "", nil)

	resp := env.do(http.MethodGet, "/metrics", "", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "draft_operations_total") {
		t.Fatalf("expected draft metrics in exposition")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(http.MethodOptions, "/api/admin/v1/shops/s1/draft/submit", "", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodPost,
	})
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}
