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
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opendesk/opendesk/internal/identity"
	"github.com/opendesk/opendesk/internal/observability/logger"
)

type createUserRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	FirstName    string  `json:"firstName" validate:"required"`
	LastName     string  `json:"lastName" validate:"required"`
	Role         string  `json:"role" validate:"required"`
	DepartmentID *string `json:"departmentId" validate:"omitempty,uuid"`
}

type departmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListUsers handles GET /api/v1/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list users", logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

// CreateUser handles POST /api/v1/users. Unlike self-registration the
// caller chooses the role and department.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.identity.CreateUser(r.Context(), req.Email, req.Password, req.FirstName, req.LastName, req.Role, req.DepartmentID)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrRoleNotFound):
			respondError(w, http.StatusBadRequest, CodeValidationFailed, "unknown role")
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, CodeConflict, "an account with this email already exists")
		case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to create user", logger.Error(err))
			respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// GetUser handles GET /api/v1/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "user not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get user", logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

// ActivateUser handles POST /api/v1/users/{id}/activate.
func (h *Handler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setUserActive(w, r, true)
}

// DeactivateUser handles POST /api/v1/users/{id}/deactivate. The change
// bites on the target's very next request, regardless of token validity.
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setUserActive(w, r, false)
}

func (h *Handler) setUserActive(w http.ResponseWriter, r *http.Request, active bool) {
	if err := h.identity.SetActive(r.Context(), chi.URLParam(r, "id"), active); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "user not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update user state", logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDepartments handles GET /api/v1/departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.identity.ListDepartments(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list departments", logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}

	out := make([]departmentResponse, 0, len(departments))
	for _, d := range departments {
		out = append(out, departmentResponse{ID: d.ID, Name: d.Name})
	}
	respondJSON(w, http.StatusOK, out)
}
