package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/orderdraft/pkg/config"
)

type stubPinger struct {
	err   error
	calls int
}

func (s *stubPinger) Ping(ctx context.Context) error {
	s.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("ping without deadline")
	}
	return s.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-OrderDraft-Env"); got != "dev" {
		t.Fatalf("expected env header dev, got %q", got)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}}

	t.Run("without redis", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"redis":"disabled"`) {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("redis ok", func(t *testing.T) {
		pinger := &stubPinger{}
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, pinger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		if rec.Code != http.StatusOK || pinger.calls != 1 {
			t.Fatalf("expected one ping and 200, got %d calls=%d", rec.Code, pinger.calls)
		}
	})

	t.Run("redis down", func(t *testing.T) {
		pinger := &stubPinger{err: errors.New("connection refused")}
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, pinger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "connection refused") {
			t.Fatalf("raw dependency error leaked: %s", rec.Body.String())
		}
	})
}
