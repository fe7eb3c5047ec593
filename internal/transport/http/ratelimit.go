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
	"log/slog"
	"net/http"

	"github.com/opendesk/opendesk/internal/observability/logger"
	"github.com/opendesk/opendesk/internal/ratelimit"
)

// RateLimit wraps a route with a named fixed-window limiter keyed by
// client IP. A backend failure is logged and the request allowed through;
// a degraded limiter must not take the endpoint down with it.
func (h *Handler) RateLimit(name string, limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ok, err := limiter.Allow(ctx, clientIP(r))
			if err != nil {
				slog.WarnContext(ctx, "rate limiter unavailable, allowing request",
					logger.Component("ratelimit"),
					logger.String("window", name),
					logger.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				h.meter.RecordRateLimited(ctx, name)
				slog.InfoContext(ctx, "rate limit exceeded",
					logger.String("window", name),
					logger.RemoteAddr(clientIP(r)),
				)
				respondRateLimited(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
