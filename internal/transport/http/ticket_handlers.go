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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opendesk/opendesk/internal/observability/logger"
	"github.com/opendesk/opendesk/internal/ticket"
)

type createTicketRequest struct {
	Subject      string  `json:"subject" validate:"required,max=200"`
	Description  string  `json:"description" validate:"required"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DepartmentID *string `json:"departmentId" validate:"omitempty,uuid"`
}

type updateTicketRequest struct {
	Subject     *string `json:"subject" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type assignTicketRequest struct {
	AssigneeID *string `json:"assigneeId" validate:"omitempty,uuid"`
}

type commentRequest struct {
	Body string `json:"body" validate:"required"`
}

type ticketResponse struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	OwnerID      string    `json:"ownerId"`
	AssignedToID *string   `json:"assignedToId,omitempty"`
	DepartmentID *string   `json:"departmentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTicketResponse(t *ticket.Ticket) ticketResponse {
	return ticketResponse{
		ID:           t.ID,
		Subject:      t.Subject,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		OwnerID:      t.OwnerID,
		AssignedToID: t.AssignedToID,
		DepartmentID: t.DepartmentID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func toCommentResponse(c *ticket.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

// CreateTicket handles POST /api/v1/tickets.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	var req createTicketRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.tickets.Create(r.Context(), p, ticket.CreateInput{
		Subject:      req.Subject,
		Description:  req.Description,
		Priority:     req.Priority,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		h.respondTicketError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTicketResponse(t))
}

// ListTickets handles GET /api/v1/tickets. Query filters narrow the
// result; visibility itself always comes from the principal's role scope.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	var filters ticket.ListFilters
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		filters.Status = &v
	}
	if v := q.Get("priority"); v != "" {
		filters.Priority = &v
	}
	if v := q.Get("assignedTo"); v != "" {
		filters.AssignedToID = &v
	}
	if v := q.Get("owner"); v != "" {
		filters.OwnerID = &v
	}
	if v := q.Get("department"); v != "" {
		filters.DepartmentID = &v
	}

	tickets, err := h.tickets.List(r.Context(), p, filters)
	if err != nil {
		h.respondTicketError(w, r, err)
		return
	}

	out := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetTicket handles GET /api/v1/tickets/{id}.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	t, err := h.tickets.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.respondTicketError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTicketResponse(t))
}

// UpdateTicket handles PUT /api/v1/tickets/{id}.
func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	var req updateTicketRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.tickets.Update(r.Context(), p, chi.URLParam(r, "id"), ticket.UpdateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		h.respondTicketError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTicketResponse(t))
}

// AssignTicket handles POST /api/v1/tickets/{id}/assign. A nil assigneeId
// returns the ticket to its department pool.
func (h *Handler) AssignTicket(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	var req assignTicketRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.tickets.Assign(r.Context(), p, chi.URLParam(r, "id"), req.AssigneeID)
	if err != nil {
		h.respondTicketError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTicketResponse(t))
}

// AddComment handles POST /api/v1/tickets/{id}/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	var req commentRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.tickets.Comment(r.Context(), p, chi.URLParam(r, "id"), req.Body)
	if err != nil {
		h.respondTicketError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCommentResponse(c))
}

// ListComments handles GET /api/v1/tickets/{id}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	comments, err := h.tickets.Comments(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.respondTicketError(w, r, err)
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

// respondTicketError maps ticket service errors onto HTTP responses. An
// object-level denial is a 403 so it is distinguishable from a missing row.
func (h *Handler) respondTicketError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ticket.ErrTicketNotFound), errors.Is(err, ticket.ErrCommentNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "ticket not found")
	case errors.Is(err, ticket.ErrAccessDenied):
		h.meter.RecordAuthDenied(r.Context(), CodeForbidden)
		respondError(w, http.StatusForbidden, CodeForbidden, "access to this ticket is denied")
	case errors.Is(err, ticket.ErrInvalidStatus), errors.Is(err, ticket.ErrInvalidPriority):
		respondError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
	default:
		p := PrincipalFrom(r.Context())
		attrs := []any{logger.Error(err)}
		if p != nil {
			attrs = append(attrs, logger.UserID(p.UserID))
		}
		slog.ErrorContext(r.Context(), "ticket request failed", attrs...)
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
