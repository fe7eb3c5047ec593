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
	"errors"
	"time"

	"github.com/opendesk/opendesk/internal/authz"
)

// Domain errors
var (
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidStatus      = errors.New("invalid ticket status")
	ErrInvalidPriority    = errors.New("invalid ticket priority")
	ErrEmptyAttachment    = errors.New("attachment is empty")
)

// Status values for a ticket's lifecycle.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Ticket represents a support ticket.
type Ticket struct {
	ID           string
	Subject      string
	Description  string
	Status       string
	Priority     string
	OwnerID      string
	AssignedToID *string
	DepartmentID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ACL projects the fields authorization decisions run on.
func (t *Ticket) ACL() authz.TicketACL {
	return authz.TicketACL{
		OwnerID:      t.OwnerID,
		AssignedToID: t.AssignedToID,
		DepartmentID: t.DepartmentID,
	}
}

// Comment represents a comment on a ticket.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// Attachment is a file uploaded to a ticket. Listings carry metadata only;
// Data is populated when a single attachment is fetched for download.
type Attachment struct {
	ID          string
	TicketID    string
	UploaderID  string
	Filename    string
	ContentType string
	SizeBytes   int64
	Data        []byte
	CreatedAt   time.Time
}

// ListFilters are the caller-supplied list filters. They are always AND-ed
// with the principal's scope predicate; no filter value can surface a row
// the scope excludes.
type ListFilters struct {
	Status       *string
	Priority     *string
	AssignedToID *string
	OwnerID      *string
	DepartmentID *string
}

// Repository defines the interface for ticket persistence
type Repository interface {
	// Create creates a new ticket
	Create(ctx context.Context, t *Ticket) error

	// GetByID retrieves a ticket by ID
	GetByID(ctx context.Context, id string) (*Ticket, error)

	// List retrieves tickets admitted by the scope predicate AND the filters
	List(ctx context.Context, scope authz.Scope, filters ListFilters) ([]*Ticket, error)

	// Update persists mutable ticket fields
	Update(ctx context.Context, t *Ticket) error

	// SetAssignee assigns or unassigns a ticket
	SetAssignee(ctx context.Context, ticketID string, assigneeID *string) error

	// AddComment appends a comment to a ticket
	AddComment(ctx context.Context, c *Comment) error

	// ListComments retrieves a ticket's comments in creation order
	ListComments(ctx context.Context, ticketID string) ([]*Comment, error)

	// AddAttachment stores an uploaded file on a ticket
	AddAttachment(ctx context.Context, a *Attachment) error

	// ListAttachments retrieves a ticket's attachment metadata, without data
	ListAttachments(ctx context.Context, ticketID string) ([]*Attachment, error)

	// GetAttachment retrieves one attachment including its data
	GetAttachment(ctx context.Context, ticketID, attachmentID string) (*Attachment, error)
}

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known ticket priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
