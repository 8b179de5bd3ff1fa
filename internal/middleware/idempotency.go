package middleware

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/httputil"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/logger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

// Idempotency replays the cached response for a repeated
// Idempotency-Key, so a client retrying a compound operation after a
// partial failure cannot double-apply it. Requests without a key pass
// through untouched.
func Idempotency(s *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			// First writer wins the key before the handler runs, so
			// two racing requests cannot both apply the operation.
			claimed, cached, err := s.ClaimIdempotencyKey(r.Context(), key)
			if err != nil {
				logger.Log.Error("idempotency claim failed", zap.Error(err), zap.String("key", key))
				httputil.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !claimed {
				if cached.ResponseStatus == 0 {
					httputil.WriteError(w, http.StatusConflict, "a request with this idempotency key is in flight")
					return
				}
				w.Header().Set("X-Idempotency-Hit", "true")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(cached.ResponseStatus)
				w.Write(cached.ResponseBody)
				return
			}

			rec := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Only successful placements are worth replaying. A failed
			// attempt releases the key so the client can retry it.
			if rec.status < 200 || rec.status >= 300 {
				if err := s.ReleaseIdempotencyKey(r.Context(), key); err != nil {
					logger.Log.Error("idempotency key not released", zap.Error(err), zap.String("key", key))
				}
				return
			}
			if err := s.CompleteIdempotencyKey(r.Context(), key, rec.status, rec.body.Bytes()); err != nil {
				logger.Log.Error("idempotency key not saved", zap.Error(err), zap.String("key", key))
			}
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}
