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

package ticket

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/opendesk/opendesk/internal/audit"
	"github.com/opendesk/opendesk/internal/authz"
)

// Service provides ticket business logic. Route middleware performs the
// coarse permission gate; this service owns the row-scope and object-level
// decisions, calling into authz so no handler re-derives policy booleans.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new ticket service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, auditLogger: auditLogger}
}

// CreateInput carries the fields for a new ticket.
type CreateInput struct {
	Subject      string
	Description  string
	Priority     string
	DepartmentID *string
}

// Create files a new ticket owned by the principal.
func (s *Service) Create(ctx context.Context, p *authz.Principal, in CreateInput) (*Ticket, error) {
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	t := &Ticket{
		ID:           uuid.NewString(),
		Subject:      in.Subject,
		Description:  in.Description,
		Status:       StatusOpen,
		Priority:     priority,
		OwnerID:      p.UserID,
		DepartmentID: in.DepartmentID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	return t, nil
}

// List returns the tickets visible to the principal, narrowed by the
// caller's filters. The role scope is always applied first; filters are
// AND-ed on top and can never widen visibility.
func (s *Service) List(ctx context.Context, p *authz.Principal, filters ListFilters) ([]*Ticket, error) {
	scope := authz.ScopeFor(p)
	tickets, err := s.repo.List(ctx, scope, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// Get loads one ticket and authorizes the principal against it.
func (s *Service) Get(ctx context.Context, p *authz.Principal, id string) (*Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(p, t.ACL()) {
		s.denied(ctx, p, id, "read")
		return nil, ErrAccessDenied
	}
	return t, nil
}

// UpdateInput carries the mutable ticket fields; nil means unchanged.
type UpdateInput struct {
	Subject     *string
	Description *string
	Status      *string
	Priority    *string
}

// Update mutates a ticket the principal may access.
func (s *Service) Update(ctx context.Context, p *authz.Principal, id string, in UpdateInput) (*Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(p, t.ACL()) {
		s.denied(ctx, p, id, "update")
		return nil, ErrAccessDenied
	}

	if in.Subject != nil {
		t.Subject = *in.Subject
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		if !ValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		t.Status = *in.Status
	}
	if in.Priority != nil {
		if !ValidPriority(*in.Priority) {
			return nil, ErrInvalidPriority
		}
		t.Priority = *in.Priority
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}
	return t, nil
}

// Assign hands a ticket to an agent (or back to the pool when assigneeID
// is nil). The decision runs against the row as loaded now: a ticket moved
// to another department since the caller last saw it is judged by its
// current department, not the stale one.
func (s *Service) Assign(ctx context.Context, p *authz.Principal, id string, assigneeID *string) (*Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAssign(p, t.ACL()) {
		s.denied(ctx, p, id, "assign")
		return nil, ErrAccessDenied
	}

	if err := s.repo.SetAssignee(ctx, id, assigneeID); err != nil {
		return nil, fmt.Errorf("failed to assign ticket: %w", err)
	}
	t.AssignedToID = assigneeID

	assignee := ""
	if assigneeID != nil {
		assignee = *assigneeID
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTicketAssigned,
		ActorID:  p.UserID,
		Resource: "ticket",
		Metadata: map[string]any{"ticket_id": id, "assignee_id": assignee},
	})

	return t, nil
}

// Comment appends a comment to a ticket the principal may access.
// Commenting uses the same object decision as read and update.
func (s *Service) Comment(ctx context.Context, p *authz.Principal, ticketID, body string) (*Comment, error) {
	t, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(p, t.ACL()) {
		s.denied(ctx, p, ticketID, "comment")
		return nil, ErrAccessDenied
	}

	c := &Comment{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		AuthorID: p.UserID,
		Body:     body,
	}
	if err := s.repo.AddComment(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return c, nil
}

// Comments lists a ticket's comments for a principal that may access it.
func (s *Service) Comments(ctx context.Context, p *authz.Principal, ticketID string) ([]*Comment, error) {
	t, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(p, t.ACL()) {
		s.denied(ctx, p, ticketID, "read")
		return nil, ErrAccessDenied
	}
	return s.repo.ListComments(ctx, ticketID)
}

// Attach stores an uploaded file on a ticket the principal may access.
func (s *Service) Attach(ctx context.Context, p *authz.Principal, ticketID, filename, contentType string, data []byte) (*Attachment, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAttachment
	}

	t, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(p, t.ACL()) {
		s.denied(ctx, p, ticketID, "attach")
		return nil, ErrAccessDenied
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	a := &Attachment{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		UploaderID:  p.UserID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		Data:        data,
	}
	if err := s.repo.AddAttachment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	return a, nil
}

// Attachments lists a ticket's attachment metadata.
func (s *Service) Attachments(ctx context.Context, p *authz.Principal, ticketID string) ([]*Attachment, error) {
	t, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(p, t.ACL()) {
		s.denied(ctx, p, ticketID, "read")
		return nil, ErrAccessDenied
	}
	return s.repo.ListAttachments(ctx, ticketID)
}

// Attachment fetches one attachment with its data for download.
func (s *Service) Attachment(ctx context.Context, p *authz.Principal, ticketID, attachmentID string) (*Attachment, error) {
	t, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(p, t.ACL()) {
		s.denied(ctx, p, ticketID, "read")
		return nil, ErrAccessDenied
	}
	return s.repo.GetAttachment(ctx, ticketID, attachmentID)
}

func (s *Service) denied(ctx context.Context, p *authz.Principal, ticketID, action string) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccessDenied,
		ActorID:  p.UserID,
		Resource: "ticket",
		Metadata: map[string]any{"ticket_id": ticketID, "action": action, "role": p.Role},
	})
}
