package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/logger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/middleware"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

func newIdempotencyStore(t *testing.T) *store.Store {
	t.Helper()
	logger.Init()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, store.Migrate(db))
	return store.New(db)
}

func TestIdempotencyReplay(t *testing.T) {
	s := newIdempotencyStore(t)

	calls := 0
	handler := middleware.Idempotency(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"call":%d}`, calls)
	}))

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/transactions/send", nil)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do("key-1")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.JSONEq(t, `{"call":1}`, first.Body.String())

	// Same key: the cached response is replayed, the handler is not run.
	second := do("key-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, `{"call":1}`, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	assert.Equal(t, 1, calls)

	// A fresh key runs the handler again.
	third := do("key-2")
	assert.JSONEq(t, `{"call":2}`, third.Body.String())

	// No key, no caching.
	do("")
	do("")
	assert.Equal(t, 4, calls)
}

func TestIdempotencySkipsErrorResponses(t *testing.T) {
	s := newIdempotencyStore(t)

	calls := 0
	handler := middleware.Idempotency(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/transactions/send", nil)
		r.Header.Set("Idempotency-Key", "key-err")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	// A failed attempt is not cached; the retry reaches the handler.
	assert.Equal(t, http.StatusInternalServerError, req().Code)
	assert.Equal(t, http.StatusCreated, req().Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyConcurrentSameKey(t *testing.T) {
	s := newIdempotencyStore(t)

	var calls atomic.Int32
	handler := middleware.Idempotency(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"applied":true}`))
	}))

	// Two racing requests share a key. The key is claimed before the
	// handler runs, so exactly one may apply the operation; the loser
	// sees a conflict while the winner is in flight, or the replay
	// once it has finished.
	codes := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/transactions/send", nil)
			req.Header.Set("Idempotency-Key", "dup-key")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	assert.Equal(t, int32(1), calls.Load(), "the operation must apply exactly once")
	created := 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.GreaterOrEqual(t, created, 1)
}

func TestIdempotencyCachesEmptyBody(t *testing.T) {
	s := newIdempotencyStore(t)

	calls := 0
	handler := middleware.Idempotency(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/transactions/send", nil)
		req.Header.Set("Idempotency-Key", "no-body")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)

	// A bodiless success still caches; the retry must not re-execute.
	second := do()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	assert.Equal(t, 1, calls)
}
