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
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opendesk/opendesk/internal/ticket"
)

// maxAttachmentBytes caps a single upload.
const maxAttachmentBytes = 10 << 20

type attachmentResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticketId"`
	UploaderID  string    `json:"uploaderId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toAttachmentResponse(a *ticket.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:          a.ID,
		TicketID:    a.TicketID,
		UploaderID:  a.UploaderID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt,
	}
}

// UploadAttachment handles POST /api/v1/tickets/{id}/attachments. The body
// is a multipart form with a single "file" part.
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationFailed, "multipart form with a \"file\" part is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, CodeValidationFailed,
			fmt.Sprintf("attachment exceeds the %d byte limit", maxAttachmentBytes))
		return
	}

	a, err := h.tickets.Attach(r.Context(), p, chi.URLParam(r, "id"),
		header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, ticket.ErrEmptyAttachment) {
			respondError(w, http.StatusBadRequest, CodeValidationFailed, "attachment is empty")
			return
		}
		h.respondTicketError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAttachmentResponse(a))
}

// ListAttachments handles GET /api/v1/tickets/{id}/attachments.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	attachments, err := h.tickets.Attachments(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.respondTicketError(w, r, err)
		return
	}

	out := make([]attachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, toAttachmentResponse(a))
	}
	respondJSON(w, http.StatusOK, out)
}

// DownloadAttachment handles GET /api/v1/tickets/{id}/attachments/{attachmentID}.
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	a, err := h.tickets.Attachment(r.Context(), p, chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID"))
	if err != nil {
		if errors.Is(err, ticket.ErrAttachmentNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "attachment not found")
			return
		}
		h.respondTicketError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Data); err != nil {
		return
	}
}
