package idempotency

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"lease-escrow/internal/auth"
	"lease-escrow/internal/observability/metrics"
)

const (
	// HeaderKey is the request header carrying the client's idempotency key.
	HeaderKey = "Idempotency-Key"
	// HeaderReplayed marks a response served from the store.
	HeaderReplayed = "Idempotent-Replayed"
)

// DefaultTTL is how long completed responses are replayed.
const DefaultTTL = 24 * time.Hour

// Middleware replays the stored response of a repeated POST that carries an
// Idempotency-Key. Keys are scoped per authenticated subject and path.
type Middleware struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewMiddleware constructs the middleware. A nil store disables it.
func NewMiddleware(store Store, ttl time.Duration, logger *zap.Logger) *Middleware {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{store: store, ttl: ttl, logger: logger}
}

// Wrap applies idempotent replay to next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil || m.store == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientKey := r.Header.Get(HeaderKey)
		if r.Method != http.MethodPost || clientKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := auth.SubjectFromContext(r.Context()) + "|" + r.URL.Path + "|" + clientKey
		ctx := r.Context()

		if resp, err := m.store.Load(ctx, key); err == nil {
			metrics.IncIdempotencyReplay()
			writeResponse(w, resp, true)
			return
		} else if !errors.Is(err, ErrMiss) {
			m.logger.Warn("idempotency load failed", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "idempotency store unavailable", http.StatusServiceUnavailable)
			return
		}

		reserved, err := m.store.Reserve(ctx, key, m.ttl)
		if err != nil {
			m.logger.Warn("idempotency reserve failed", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "idempotency store unavailable", http.StatusServiceUnavailable)
			return
		}
		if !reserved {
			http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
			return
		}

		defer func() {
			if p := recover(); p != nil {
				if err := m.store.Release(ctx, key); err != nil {
					m.logger.Warn("idempotency release failed", zap.Error(err))
				}
				panic(p)
			}
		}()
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusInternalServerError {
			if err := m.store.Release(ctx, key); err != nil {
				m.logger.Warn("idempotency release failed", zap.Error(err))
			}
			return
		}
		resp := Response{Status: rec.status, Header: w.Header().Clone(), Body: rec.body.Bytes()}
		if err := m.store.Save(ctx, key, resp, m.ttl); err != nil {
			m.logger.Warn("idempotency save failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
	})
}

func writeResponse(w http.ResponseWriter, resp Response, replayed bool) {
	for name, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	if replayed {
		w.Header().Set(HeaderReplayed, "true")
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
