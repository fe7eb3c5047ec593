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
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/opendesk/opendesk/internal/authz"
)

// RouterConfig holds the router-level settings.
type RouterConfig struct {
	APILimit  int
	APIWindow time.Duration
	Tracing   bool
}

// NewRouter assembles the HTTP routing tree. Authentication, the coarse
// permission gate and the rate-limit windows are all route middleware;
// handlers only ever see requests that already cleared them.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
	})
	r.Use(secureMiddleware.Handler)

	// Service-wide window. The login and upload windows below are stricter
	// and sit on top of this one.
	r.Use(httprate.Limit(
		cfg.APILimit,
		cfg.APIWindow,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return clientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			h.meter.RecordRateLimited(r.Context(), "api")
			respondRateLimited(w)
		}),
	))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.RateLimit("login", h.loginLimiter))
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
			})
			r.Group(func(r chi.Router) {
				r.Use(h.Authenticate)
				r.Post("/logout", h.Logout)
				r.Get("/me", h.Me)
			})
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.With(h.Require(authz.PermTicketsCreate)).Post("/", h.CreateTicket)
			r.With(h.Require(authz.PermTicketsRead)).Get("/", h.ListTickets)
			r.Route("/{id}", func(r chi.Router) {
				r.With(h.Require(authz.PermTicketsRead)).Get("/", h.GetTicket)
				r.With(h.Require(authz.PermTicketsUpdate)).Put("/", h.UpdateTicket)
				r.With(h.Require(authz.PermTicketsAssign)).Post("/assign", h.AssignTicket)
				r.With(h.Require(authz.PermCommentsCreate)).Post("/comments", h.AddComment)
				r.With(h.Require(authz.PermCommentsRead)).Get("/comments", h.ListComments)
				r.With(
					h.Require(authz.PermTicketsUpdate),
					h.RateLimit("upload", h.uploadLimiter),
				).Post("/attachments", h.UploadAttachment)
				r.With(h.Require(authz.PermTicketsRead)).Get("/attachments", h.ListAttachments)
				r.With(h.Require(authz.PermTicketsRead)).Get("/attachments/{attachmentID}", h.DownloadAttachment)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.With(h.Require(authz.PermUsersRead)).Get("/", h.ListUsers)
			r.With(h.Require(authz.PermUsersCreate)).Post("/", h.CreateUser)
			r.With(h.Require(authz.PermUsersRead)).Get("/{id}", h.GetUser)
			r.With(h.Require(authz.PermUsersUpdate)).Post("/{id}/activate", h.ActivateUser)
			r.With(h.Require(authz.PermUsersUpdate)).Post("/{id}/deactivate", h.DeactivateUser)
		})

		r.Route("/departments", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.With(h.Require(authz.PermDepartmentsRead)).Get("/", h.ListDepartments)
		})
	})

	if cfg.Tracing {
		return otelhttp.NewHandler(r, "opendesk.http")
	}
	return r
}
