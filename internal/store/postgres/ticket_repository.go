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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opendesk/opendesk/internal/authz"
	"github.com/opendesk/opendesk/internal/ticket"
)

// TicketRepository implements ticket.Repository
type TicketRepository struct {
	db *DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `t.id, t.subject, t.description, t.status, t.priority,
	t.owner_id, t.assigned_to_id, t.department_id, t.created_at, t.updated_at`

// Create creates a new ticket
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tickets (id, subject, description, status, priority, owner_id, assigned_to_id, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		t.ID, t.Subject, t.Description, t.Status, t.Priority,
		t.OwnerID, t.AssignedToID, t.DepartmentID,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now

	return nil
}

// GetByID retrieves a ticket by ID
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*ticket.Ticket, error) {
	row := r.db.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = $1`, id)
	return scanTicket(row)
}

// List retrieves tickets admitted by the scope predicate AND the filters.
// The scope condition always comes first; explicit filter values are AND-ed
// after it, so no filter combination can surface an out-of-scope row.
func (r *TicketRepository) List(ctx context.Context, scope authz.Scope, filters ticket.ListFilters) ([]*ticket.Ticket, error) {
	var args []any
	cond, args := scope.Where(args)
	conds := []string{cond}

	appendEq := func(column string, value *string) {
		if value != nil {
			args = append(args, *value)
			conds = append(conds, fmt.Sprintf("t.%s = $%d", column, len(args)))
		}
	}
	appendEq("status", filters.Status)
	appendEq("priority", filters.Priority)
	appendEq("assigned_to_id", filters.AssignedToID)
	appendEq("owner_id", filters.OwnerID)
	appendEq("department_id", filters.DepartmentID)

	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY t.created_at DESC`

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// Update persists mutable ticket fields
func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE tickets
		SET subject = $2, description = $3, status = $4, priority = $5, department_id = $6, updated_at = now()
		WHERE id = $1
	`, t.ID, t.Subject, t.Description, t.Status, t.Priority, t.DepartmentID)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ticket.ErrTicketNotFound
	}
	return nil
}

// SetAssignee assigns or unassigns a ticket
func (r *TicketRepository) SetAssignee(ctx context.Context, ticketID string, assigneeID *string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE tickets SET assigned_to_id = $2, updated_at = now()
		WHERE id = $1
	`, ticketID, assigneeID)
	if err != nil {
		return fmt.Errorf("failed to set assignee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ticket.ErrTicketNotFound
	}
	return nil
}

// AddComment appends a comment to a ticket
func (r *TicketRepository) AddComment(ctx context.Context, c *ticket.Comment) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO ticket_comments (id, ticket_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.TicketID, c.AuthorID, c.Body, now)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	c.CreatedAt = now
	return nil
}

// ListComments retrieves a ticket's comments in creation order
func (r *TicketRepository) ListComments(ctx context.Context, ticketID string) ([]*ticket.Comment, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, ticket_id, author_id, body, created_at
		FROM ticket_comments
		WHERE ticket_id = $1
		ORDER BY created_at
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*ticket.Comment
	for rows.Next() {
		var c ticket.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// AddAttachment stores an uploaded file on a ticket
func (r *TicketRepository) AddAttachment(ctx context.Context, a *ticket.Attachment) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO ticket_attachments (id, ticket_id, uploader_id, filename, content_type, size_bytes, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.TicketID, a.UploaderID, a.Filename, a.ContentType, a.SizeBytes, a.Data, now)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	a.CreatedAt = now
	return nil
}

// ListAttachments retrieves a ticket's attachment metadata, without data
func (r *TicketRepository) ListAttachments(ctx context.Context, ticketID string) ([]*ticket.Attachment, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, ticket_id, uploader_id, filename, content_type, size_bytes, created_at
		FROM ticket_attachments
		WHERE ticket_id = $1
		ORDER BY created_at
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*ticket.Attachment
	for rows.Next() {
		var a ticket.Attachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.UploaderID, &a.Filename, &a.ContentType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, &a)
	}
	return attachments, rows.Err()
}

// GetAttachment retrieves one attachment including its data
func (r *TicketRepository) GetAttachment(ctx context.Context, ticketID, attachmentID string) (*ticket.Attachment, error) {
	var a ticket.Attachment
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, ticket_id, uploader_id, filename, content_type, size_bytes, data, created_at
		FROM ticket_attachments
		WHERE id = $1 AND ticket_id = $2
	`, attachmentID, ticketID).Scan(
		&a.ID, &a.TicketID, &a.UploaderID, &a.Filename, &a.ContentType, &a.SizeBytes, &a.Data, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticket.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to scan attachment: %w", err)
	}
	return &a, nil
}

func scanTicket(row pgx.Row) (*ticket.Ticket, error) {
	var t ticket.Ticket
	err := row.Scan(
		&t.ID, &t.Subject, &t.Description, &t.Status, &t.Priority,
		&t.OwnerID, &t.AssignedToID, &t.DepartmentID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticket.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return &t, nil
}

var _ ticket.Repository = (*TicketRepository)(nil)
