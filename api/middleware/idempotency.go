package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/orderdraft/api/responses"
	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
	"github.com/angelmondragon/orderdraft/pkg/logger"
	pkgredis "github.com/angelmondragon/orderdraft/pkg/redis"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	submitIdempotencyTTL  = 7 * 24 * time.Hour
	maxIdempotencyKeyLen  = 255

	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

type idempotencyRule struct {
	method   string
	template []string
	ttl      time.Duration
}

func rule(method, template string, ttl time.Duration) idempotencyRule {
	return idempotencyRule{method: method, template: splitPath(template), ttl: ttl}
}

var idempotencyRules = []idempotencyRule{
	rule(http.MethodPost, "/api/admin/v1/shops/{shopId}/draft/submit", submitIdempotencyTTL),
	rule(http.MethodPost, "/api/admin/v1/shops/{shopId}/draft/lines", defaultIdempotencyTTL),
	rule(http.MethodPatch, "/api/admin/v1/users/{userId}/address", defaultIdempotencyTTL),
}

type idempotencyRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
	RequestHash string `json:"request_hash"`
}

type idempotency struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency replays the stored response when a mutating request is retried with the same
// Idempotency-Key. Requests without the header pass through; a reused key with a different body is rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	m := idempotency{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			if !ok || m.store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxIdempotencyKeyLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := m.store.IdempotencyKey(scopeFor(r), clientKey)

			record, err := m.lookup(r.Context(), key)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if record != nil {
				if record.RequestHash != requestHash {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				record.replay(w)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, capture: &bytes.Buffer{}}
			next.ServeHTTP(rec, r)

			// Only successful answers are replayed; failures stay retryable under the same key.
			status := rec.statusOrDefault()
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				return
			}
			m.remember(r.Context(), key, ttl, idempotencyRecord{
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.capture.String(),
				RequestHash: requestHash,
			})
		})
	}
}

func (m idempotency) lookup(ctx context.Context, key string) (*idempotencyRecord, error) {
	stored, err := m.store.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) || (err == nil && stored == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &record, nil
}

func (m idempotency) remember(ctx context.Context, key string, ttl time.Duration, record idempotencyRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		m.logError(ctx, "idempotency.marshal_failed", err)
		return
	}
	if _, err := m.store.SetNX(ctx, key, string(payload), ttl); err != nil {
		m.logError(ctx, "idempotency.persist_failed", err)
	}
}

func (m idempotency) logError(ctx context.Context, msg string, err error) {
	if m.logg == nil {
		return
	}
	m.logg.Error(ctx, msg, err)
}

func (rec *idempotencyRecord) replay(w http.ResponseWriter) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(rec.Status)
	_, _ = io.WriteString(w, rec.Body)
}

// scopeFor keys stored responses per admin and concrete path, so the same client key
// on another shop's draft is a different request.
func scopeFor(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func routeTTL(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return 0, false
	}
	for _, candidate := range idempotencyRules {
		if candidate.method == method && matchTemplate(candidate.template, segments) {
			return candidate.ttl, true
		}
	}
	return 0, false
}

// matchTemplate compares path segments against a chi-style template where {name} matches one segment.
func matchTemplate(template, segments []string) bool {
	if len(template) != len(segments) {
		return false
	}
	for i, part := range template {
		if segments[i] == "" {
			return false
		}
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			continue
		}
		if part != segments[i] {
			return false
		}
	}
	return true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
