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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendesk/opendesk/internal/audit"
	"github.com/opendesk/opendesk/internal/authz"
	"github.com/opendesk/opendesk/internal/identity"
	"github.com/opendesk/opendesk/internal/observability/metrics"
	"github.com/opendesk/opendesk/internal/ratelimit"
	"github.com/opendesk/opendesk/internal/ticket"
	"github.com/opendesk/opendesk/internal/token"
)

// In-memory stores mirroring the SQL repositories' semantics, so the full
// request path (router, middleware, handlers, services) runs in-process.

type memUserRepo struct {
	users       map[string]*identity.User
	credentials map[string]*identity.Credentials
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:       make(map[string]*identity.User),
		credentials: make(map[string]*identity.Credentials),
	}
}

func (r *memUserRepo) Create(_ context.Context, user *identity.User) error {
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) AddCredentials(_ context.Context, c *identity.Credentials) error {
	cp := *c
	r.credentials[c.UserID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*identity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *memUserRepo) GetCredentials(_ context.Context, userID string) (*identity.Credentials, error) {
	c, ok := r.credentials[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return c, nil
}

func (r *memUserRepo) UpdateRefreshToken(_ context.Context, userID string, tok *string, lastLogin *time.Time) error {
	u, ok := r.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.RefreshToken = tok
	if lastLogin != nil {
		u.LastLoginAt = lastLogin
	}
	return nil
}

func (r *memUserRepo) SetActive(_ context.Context, userID string, active bool) error {
	u, ok := r.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (r *memUserRepo) List(_ context.Context) ([]*identity.User, error) {
	var out []*identity.User
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

type memRoleRepo struct {
	roles map[string]*identity.RoleRecord
}

func newMemRoleRepo() *memRoleRepo {
	r := &memRoleRepo{roles: make(map[string]*identity.RoleRecord)}
	for _, spec := range authz.SeededRoles {
		encoded, _ := json.Marshal(spec.Permissions)
		r.roles[spec.Name] = &identity.RoleRecord{
			Name:        spec.Name,
			DisplayName: spec.DisplayName,
			Permissions: string(encoded),
		}
	}
	return r
}

func (r *memRoleRepo) GetByName(_ context.Context, name string) (*identity.RoleRecord, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, identity.ErrRoleNotFound
	}
	return role, nil
}

type memDeptRepo struct {
	departments []*identity.Department
}

func (r *memDeptRepo) GetByID(_ context.Context, id string) (*identity.Department, error) {
	for _, d := range r.departments {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *memDeptRepo) List(_ context.Context) ([]*identity.Department, error) {
	return r.departments, nil
}

type memTicketRepo struct {
	tickets     map[string]*ticket.Ticket
	comments    map[string][]*ticket.Comment
	attachments map[string][]*ticket.Attachment
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{
		tickets:     make(map[string]*ticket.Ticket),
		comments:    make(map[string][]*ticket.Comment),
		attachments: make(map[string][]*ticket.Attachment),
	}
}

func (r *memTicketRepo) Create(_ context.Context, t *ticket.Ticket) error {
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*ticket.Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, ticket.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTicketRepo) List(_ context.Context, scope authz.Scope, filters ticket.ListFilters) ([]*ticket.Ticket, error) {
	match := func(want *string, got string) bool { return want == nil || *want == got }
	matchPtr := func(want, got *string) bool { return want == nil || (got != nil && *want == *got) }

	var out []*ticket.Ticket
	for _, t := range r.tickets {
		if !scope.Allows(t.ACL()) {
			continue
		}
		if !match(filters.Status, t.Status) || !match(filters.Priority, t.Priority) ||
			!match(filters.OwnerID, t.OwnerID) ||
			!matchPtr(filters.AssignedToID, t.AssignedToID) ||
			!matchPtr(filters.DepartmentID, t.DepartmentID) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) Update(_ context.Context, t *ticket.Ticket) error {
	if _, ok := r.tickets[t.ID]; !ok {
		return ticket.ErrTicketNotFound
	}
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *memTicketRepo) SetAssignee(_ context.Context, ticketID string, assigneeID *string) error {
	t, ok := r.tickets[ticketID]
	if !ok {
		return ticket.ErrTicketNotFound
	}
	t.AssignedToID = assigneeID
	return nil
}

func (r *memTicketRepo) AddComment(_ context.Context, c *ticket.Comment) error {
	cp := *c
	r.comments[c.TicketID] = append(r.comments[c.TicketID], &cp)
	return nil
}

func (r *memTicketRepo) ListComments(_ context.Context, ticketID string) ([]*ticket.Comment, error) {
	return r.comments[ticketID], nil
}

func (r *memTicketRepo) AddAttachment(_ context.Context, a *ticket.Attachment) error {
	cp := *a
	r.attachments[a.TicketID] = append(r.attachments[a.TicketID], &cp)
	return nil
}

func (r *memTicketRepo) ListAttachments(_ context.Context, ticketID string) ([]*ticket.Attachment, error) {
	return r.attachments[ticketID], nil
}

func (r *memTicketRepo) GetAttachment(_ context.Context, ticketID, attachmentID string) (*ticket.Attachment, error) {
	for _, a := range r.attachments[ticketID] {
		if a.ID == attachmentID {
			return a, nil
		}
	}
	return nil, ticket.ErrAttachmentNotFound
}

// testEnv assembles the whole HTTP stack over the in-memory stores.
type testEnv struct {
	router   http.Handler
	handler  *Handler
	issuer   *token.Issuer
	identity *identity.Service
	users    *memUserRepo
	tickets  *memTicketRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	meter, err := metrics.New(context.Background(), metrics.Config{Enabled: false}, "test")
	require.NoError(t, err)

	users := newMemUserRepo()
	ticketStore := newMemTicketRepo()
	hasher := identity.NewPasswordHasher(8*1024, 1, 1, 16, 32)
	departments := &memDeptRepo{departments: []*identity.Department{
		{ID: "dept-a", Name: "Billing"},
		{ID: "dept-b", Name: "Technical"},
	}}

	identityService := identity.NewService(users, newMemRoleRepo(), departments, hasher, audit.Nop{})
	ticketService := ticket.NewService(ticketStore, audit.Nop{})

	handler := NewHandler(HandlerConfig{
		Identity:      identityService,
		Tickets:       ticketService,
		Issuer:        issuer,
		Meter:         meter,
		Audit:         audit.Nop{},
		Cookies:       CookieConfig{AccessTTL: time.Hour, RefreshTTL: 7 * 24 * time.Hour},
		LoginLimiter:  ratelimit.NewMemory(5, 15*time.Minute),
		UploadLimiter: ratelimit.NewMemory(20, time.Hour),
	})

	router := NewRouter(handler, RouterConfig{
		APILimit:  10000,
		APIWindow: 15 * time.Minute,
	})

	return &testEnv{
		router:   router,
		handler:  handler,
		issuer:   issuer,
		identity: identityService,
		users:    users,
		tickets:  ticketStore,
	}
}

func (e *testEnv) do(t *testing.T, method, path, accessToken string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:54321"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// createUser provisions an account directly through the service and
// returns its id and a valid access token.
func (e *testEnv) createUser(t *testing.T, email, role string, dept *string) (string, string) {
	t.Helper()

	user, err := e.identity.CreateUser(context.Background(), email, "password123", "Test", "User", role, dept)
	require.NoError(t, err)

	access, err := e.issuer.Issue(user.ID, user.Email, user.RoleName, token.KindAccess)
	require.NoError(t, err)
	return user.ID, access
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func strPtr(s string) *string { return &s }
