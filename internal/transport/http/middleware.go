// Copyright 2026 The Opendesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/opendesk/opendesk/internal/identity"
	"github.com/opendesk/opendesk/internal/observability/logger"
	"github.com/opendesk/opendesk/internal/token"
)

// AccessCookieName is the cookie consulted when no Authorization header is
// present. The header always wins when both are set.
const AccessCookieName = "opendesk_access"

// RefreshCookieName holds the refresh token issued at login.
const RefreshCookieName = "opendesk_refresh"

// Authenticate verifies the access token, re-resolves the principal from
// the store, and attaches it to the request context. The role and
// permissions baked into the token are never trusted; only its subject is.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw := extractToken(r)
		if raw == "" {
			h.meter.RecordAuthDenied(ctx, CodeNoToken)
			respondError(w, http.StatusUnauthorized, CodeNoToken, "authentication required")
			return
		}

		claims, err := h.issuer.Verify(raw, token.KindAccess)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrExpired):
				h.meter.RecordAuthDenied(ctx, CodeTokenExpired)
				respondError(w, http.StatusUnauthorized, CodeTokenExpired, "access token expired")
			default:
				h.meter.RecordAuthDenied(ctx, CodeInvalidToken)
				respondError(w, http.StatusUnauthorized, CodeInvalidToken, "invalid access token")
			}
			return
		}

		principal, err := h.identity.ResolvePrincipal(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) || errors.Is(err, identity.ErrUserInactive) {
				h.meter.RecordAuthDenied(ctx, CodeInvalidToken)
				respondError(w, http.StatusUnauthorized, CodeInvalidToken, "invalid access token")
				return
			}
			// A resolution failure must never fall through to an allow.
			slog.ErrorContext(ctx, "principal resolution failed",
				logger.UserID(claims.UserID),
				logger.Error(err),
			)
			respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// Require gates a route on a single coarse permission. It must sit behind
// Authenticate; a missing principal is treated as an unauthenticated
// request rather than a server bug.
func (h *Handler) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p == nil {
				h.meter.RecordAuthDenied(r.Context(), CodeNoToken)
				respondError(w, http.StatusUnauthorized, CodeNoToken, "authentication required")
				return
			}
			if !p.Has(permission) {
				h.meter.RecordAuthDenied(r.Context(), CodeForbidden)
				slog.WarnContext(r.Context(), "permission denied",
					logger.UserID(p.UserID),
					logger.Role(p.Role),
					logger.Permission(permission),
				)
				respondForbidden(w, permission)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware emits one structured line per completed request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.InfoContext(r.Context(), "http request",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.RemoteAddr(clientIP(r)),
			logger.UserAgent(r.UserAgent()),
			logger.StatusCode(ww.Status()),
			logger.Duration(time.Since(start).Milliseconds()),
		)
	})
}

// extractToken prefers the Authorization header and falls back to the
// access cookie set at login.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(raw)
		}
		return ""
	}
	if c, err := r.Cookie(AccessCookieName); err == nil {
		return c.Value
	}
	return ""
}

// clientIP returns the caller address used for rate-limit keys and audit
// entries. Only the rightmost X-Forwarded-For entry is trusted, since it
// is the one appended by our own edge proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
