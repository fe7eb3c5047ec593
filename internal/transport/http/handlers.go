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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/opendesk/opendesk/internal/audit"
	"github.com/opendesk/opendesk/internal/identity"
	"github.com/opendesk/opendesk/internal/observability/logger"
	"github.com/opendesk/opendesk/internal/observability/metrics"
	"github.com/opendesk/opendesk/internal/ratelimit"
	"github.com/opendesk/opendesk/internal/ticket"
	"github.com/opendesk/opendesk/internal/token"
)

// CookieConfig controls the session cookies set at login.
type CookieConfig struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler holds the HTTP endpoints and the middleware that guards them.
type Handler struct {
	identity      *identity.Service
	tickets       *ticket.Service
	issuer        *token.Issuer
	meter         *metrics.Meter
	auditLogger   audit.Logger
	validate      *validator.Validate
	cookies       CookieConfig
	loginLimiter  ratelimit.Limiter
	uploadLimiter ratelimit.Limiter
}

// HandlerConfig wires the handler's collaborators.
type HandlerConfig struct {
	Identity      *identity.Service
	Tickets       *ticket.Service
	Issuer        *token.Issuer
	Meter         *metrics.Meter
	Audit         audit.Logger
	Cookies       CookieConfig
	LoginLimiter  ratelimit.Limiter
	UploadLimiter ratelimit.Limiter
}

// NewHandler creates the HTTP handler set.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		identity:      cfg.Identity,
		tickets:       cfg.Tickets,
		issuer:        cfg.Issuer,
		meter:         cfg.Meter,
		auditLogger:   cfg.Audit,
		validate:      validator.New(),
		cookies:       cfg.Cookies,
		loginLimiter:  cfg.LoginLimiter,
		uploadLimiter: cfg.UploadLimiter,
	}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"departmentId,omitempty"`
	IsActive     bool    `json:"isActive"`
}

type loginResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func toUserResponse(u *identity.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.RoleName,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
	}
}

// Register handles POST /api/v1/auth/register. Self-service registration
// always produces a customer account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.identity.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, CodeConflict, "an account with this email already exists")
		case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		default:
			slog.ErrorContext(r.Context(), "registration failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles POST /api/v1/auth/login. On success it mints both token
// kinds, persists the refresh token (replacing any prior session) and sets
// the session cookies alongside the JSON body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	user, err := h.identity.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
		return
	}

	accessToken, err := h.issuer.Issue(user.ID, user.Email, user.RoleName, token.KindAccess)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue access token", logger.UserID(user.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}
	refreshToken, err := h.issuer.Issue(user.ID, user.Email, user.RoleName, token.KindRefresh)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue refresh token", logger.UserID(user.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}

	if err := h.identity.RecordLogin(ctx, user.ID, refreshToken); err != nil {
		slog.ErrorContext(ctx, "failed to record login", logger.UserID(user.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}

	h.setCookie(w, AccessCookieName, accessToken, h.cookies.AccessTTL)
	h.setCookie(w, RefreshCookieName, refreshToken, h.cookies.RefreshTTL)

	h.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeLoginSuccess,
		ActorID:   user.ID,
		Resource:  "session",
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, loginResponse{
		User:         toUserResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Logout handles POST /api/v1/auth/logout. The persisted refresh token is
// cleared, ending the session server-side; the still-valid access token
// simply ages out.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := PrincipalFrom(ctx)
	if p == nil {
		respondError(w, http.StatusUnauthorized, CodeNoToken, "authentication required")
		return
	}

	if err := h.identity.ClearRefreshToken(ctx, p.UserID); err != nil {
		slog.ErrorContext(ctx, "failed to clear refresh token", logger.UserID(p.UserID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}

	h.setCookie(w, AccessCookieName, "", -time.Hour)
	h.setCookie(w, RefreshCookieName, "", -time.Hour)

	h.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeLogout,
		ActorID:   p.UserID,
		Resource:  "session",
		IPAddress: clientIP(r),
	})

	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Role         string   `json:"role"`
	DepartmentID *string  `json:"departmentId,omitempty"`
	Permissions  []string `json:"permissions"`
}

// Me handles GET /api/v1/auth/me and reflects the freshly resolved
// principal, not the token claims.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	if p == nil {
		respondError(w, http.StatusUnauthorized, CodeNoToken, "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, meResponse{
		ID:           p.UserID,
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Role:         p.Role,
		DepartmentID: p.DepartmentID,
		Permissions:  p.Permissions,
	})
}

// decode parses and validates a JSON request body, writing the 400 itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationFailed, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
