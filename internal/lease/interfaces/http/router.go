package leasehttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"lease-escrow/internal/auth"
	"lease-escrow/internal/idempotency"
)

// RouterConfig carries the cross-cutting middleware. Nil entries are skipped.
type RouterConfig struct {
	Auth        *auth.Middleware
	Idempotency *idempotency.Middleware
	Ingest      *auth.IngestAuthMiddleware
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Ready reports readiness for /readyz.
	Ready  func() error
	Logger *zap.Logger
}

// NewRouter mounts the lease API.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	if cfg.Ingest != nil {
		r.With(cfg.Ingest.Wrap).Post("/ingest/condition", h.ingestCondition)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.Auth != nil {
			api.Use(cfg.Auth.Wrap)
		}
		if cfg.Idempotency != nil {
			api.Use(cfg.Idempotency.Wrap)
		}
		api.Use(withEventMeta)

		api.Post("/properties", h.listProperty)
		api.Route("/properties/{propertyID}", func(p chi.Router) {
			p.Get("/", h.getProperty)
			p.Get("/condition", h.getCondition)
			p.Post("/condition", h.updateCondition)
			p.Get("/maintenance", h.listMaintenance)
			p.Post("/maintenance", h.requestMaintenance)
			p.Post("/maintenance/{requestID}/complete", h.completeMaintenance)
		})
		api.Get("/landlords/{identity}/properties", h.listLandlordProperties)

		api.Post("/agreements", h.createAgreement)
		api.Route("/agreements/{agreementID}", func(a chi.Router) {
			a.Get("/", h.getAgreement)
			a.Get("/escrow", h.getEscrow)
			a.Post("/rent", h.payRent)
			a.Post("/release", h.releaseRent)
			a.Post("/terminate", h.terminate)
			a.Post("/dispute", h.raiseDispute)
			a.Post("/dispute/resolve", h.resolveDispute)
		})
		api.Get("/tenants/{identity}/agreements", h.listTenantAgreements)

		api.Get("/admin/platform", h.getPlatform)
		api.Post("/admin/fee", h.setFeePercent)
		api.Post("/admin/dispute-deposit", h.setDisputeDeposit)
		api.Post("/admin/withdraw", h.withdrawFees)

		api.Get("/ledger", h.listLedger)
		api.Get("/statements/{format}", h.exportStatement)
	})
	return r
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int64("latency_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
