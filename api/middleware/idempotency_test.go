package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIdempotencyStore is an in-memory stand-in for the Redis-backed store.
type fakeIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{entries: map[string]string{}}
}

func (f *fakeIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[key]; ok {
		return false, nil
	}
	f.entries[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func newIdempotencyRouter(store *fakeIdempotencyStore, hits *int) http.Handler {
	r := chi.NewRouter()
	r.Use(Idempotency(store, testMiddlewareLogger()))
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			*hits++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"data":{"attempt":%d}}`, *hits)
		})
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			*hits++
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func postOrder(handler http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	hits := 0
	handler := newIdempotencyRouter(newFakeIdempotencyStore(), &hits)

	rec := postOrder(handler, "", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, hits)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	hits := 0
	handler := newIdempotencyRouter(newFakeIdempotencyStore(), &hits)
	body := `{"items":[{"qty":1}]}`

	first := postOrder(handler, "key-1", body)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, hits)

	replay := postOrder(handler, "key-1", body)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, 1, hits, "handler must not run again on replay")
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	hits := 0
	handler := newIdempotencyRouter(newFakeIdempotencyStore(), &hits)

	first := postOrder(handler, "key-2", `{"items":[{"qty":1}]}`)
	require.Equal(t, http.StatusCreated, first.Code)

	conflict := postOrder(handler, "key-2", `{"items":[{"qty":9}]}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Contains(t, conflict.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	assert.Equal(t, 1, hits)
}

func TestIdempotencyIgnoresReads(t *testing.T) {
	hits := 0
	handler := newIdempotencyRouter(newFakeIdempotencyStore(), &hits)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, hits)
}

func TestIdempotencyScopesKeysPerRoute(t *testing.T) {
	store := newFakeIdempotencyStore()
	hits := 0

	r := chi.NewRouter()
	r.Use(Idempotency(store, testMiddlewareLogger()))
	r.Post("/api/v1/orders", func(w http.ResponseWriter, req *http.Request) {
		hits++
		w.WriteHeader(http.StatusCreated)
	})
	r.Post("/api/v1/returns", func(w http.ResponseWriter, req *http.Request) {
		hits++
		w.WriteHeader(http.StatusCreated)
	})

	body := `{"x":1}`
	orderReq := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	orderReq.Header.Set("Idempotency-Key", "shared-key")
	r.ServeHTTP(httptest.NewRecorder(), orderReq)

	returnReq := httptest.NewRequest(http.MethodPost, "/api/v1/returns", strings.NewReader(body))
	returnReq.Header.Set("Idempotency-Key", "shared-key")
	r.ServeHTTP(httptest.NewRecorder(), returnReq)

	assert.Equal(t, 2, hits, "the same key on different routes is independent")
}
