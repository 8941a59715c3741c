package audit

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lease-escrow/internal/auth"
)

// FromRequest starts an entry for a request that passed the auth middleware.
// The action is the method plus the matched route pattern, so agreement and
// property ids stay in ResourceID rather than in the action.
func FromRequest(r *http.Request, resourceType, resourceID string) Entry {
	ctx := r.Context()
	route := r.URL.Path
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			route = pattern
		}
	}
	return Entry{
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       r.Method + " " + route,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IP:           ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are only
// honoured through chi's middleware.RealIP, which rewrites RemoteAddr before
// the request reaches the handlers.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
