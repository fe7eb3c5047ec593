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
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendesk/opendesk/internal/authz"
)

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     "jo@example.com",
		"password":  "password123",
		"firstName": "Jo",
		"lastName":  "Doe",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.Equal(t, authz.RoleCustomer, registered.Role)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "jo@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	assert.Equal(t, registered.ID, login.User.ID)

	// Both session cookies are set, http-only.
	cookies := rec.Result().Cookies()
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = true
		assert.True(t, c.HttpOnly, "cookie %s must be http-only", c.Name)
	}
	assert.True(t, names[AccessCookieName])
	assert.True(t, names[RefreshCookieName])

	// The refresh token is persisted on the user row.
	stored := env.users.users[registered.ID]
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, login.RefreshToken, *stored.RefreshToken)

	// The issued access token authenticates /me.
	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, registered.ID, me.ID)
	assert.Equal(t, authz.CustomerPermissions, me.Permissions)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "jo@example.com", authz.RoleCustomer, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "jo@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeInvalidCredentials, decodeError(t, rec).Code)
}

// A second login replaces the persisted refresh token; the first session's
// refresh token is dead from then on.
func TestLoginReplacesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	userID, _ := env.createUser(t, "jo@example.com", authz.RoleCustomer, nil)

	login := func() string {
		rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "jo@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var body loginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.RefreshToken
	}

	first := login()
	second := login()
	require.NotEqual(t, first, second)

	stored := env.users.users[userID]
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, second, *stored.RefreshToken)
}

func TestLogoutClearsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	userID, access := env.createUser(t, "jo@example.com", authz.RoleCustomer, nil)

	refresh := "stored-refresh"
	env.users.users[userID].RefreshToken = &refresh

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", access, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, env.users.users[userID].RefreshToken)
}

// The sixth login attempt inside the window is refused with the fixed 429
// body, before credentials are even checked.
func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "jo@example.com", authz.RoleCustomer, nil)

	body := map[string]string{"email": "jo@example.com", "password": "wrong-password"}
	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.NotEmpty(t, resp.Message)

	// Correct credentials are refused as well while the window lasts.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "jo@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestTicketVisibility(t *testing.T) {
	env := newTestEnv(t)
	_, customerA := env.createUser(t, "a@example.com", authz.RoleCustomer, nil)
	_, customerB := env.createUser(t, "b@example.com", authz.RoleCustomer, nil)
	_, admin := env.createUser(t, "admin@example.com", authz.RoleAdmin, nil)

	create := func(tok, subject string) string {
		rec := env.do(t, http.MethodPost, "/api/v1/tickets", tok, map[string]string{
			"subject":     subject,
			"description": "details",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var created ticketResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		return created.ID
	}

	t1 := create(customerA, "A's ticket")
	t2 := create(customerB, "B's ticket")

	list := func(tok string) []string {
		rec := env.do(t, http.MethodGet, "/api/v1/tickets", tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var tickets []ticketResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tickets))
		ids := make([]string, 0, len(tickets))
		for _, tk := range tickets {
			ids = append(ids, tk.ID)
		}
		return ids
	}

	assert.Equal(t, []string{t1}, list(customerA))
	assert.Equal(t, []string{t2}, list(customerB))
	assert.ElementsMatch(t, []string{t1, t2}, list(admin))

	// Customer A may read their own ticket but not B's.
	rec := env.do(t, http.MethodGet, "/api/v1/tickets/"+t1, customerA, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/tickets/"+t2, customerA, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAssignEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.createUser(t, "cust@example.com", authz.RoleCustomer, nil)
	agentID, _ := env.createUser(t, "agent@example.com", authz.RoleAgent, strPtr("dept-a"))
	_, manager := env.createUser(t, "mgr@example.com", authz.RoleManager, strPtr("dept-a"))

	rec := env.do(t, http.MethodPost, "/api/v1/tickets", owner, map[string]any{
		"subject":      "broken login",
		"description":  "details",
		"departmentId": nil,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ticketResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// The ticket has no department, so even the manager is refused.
	rec = env.do(t, http.MethodPost, "/api/v1/tickets/"+created.ID+"/assign", manager,
		map[string]string{"assigneeId": agentID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeForbidden, decodeError(t, rec).Code)

	// Move it into the manager's department; assignment now succeeds.
	env.tickets.tickets[created.ID].DepartmentID = strPtr("dept-a")
	rec = env.do(t, http.MethodPost, "/api/v1/tickets/"+created.ID+"/assign", manager,
		map[string]string{"assigneeId": agentID})
	require.Equal(t, http.StatusOK, rec.Code)

	var assigned ticketResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assigned))
	require.NotNil(t, assigned.AssignedToID)
	assert.Equal(t, agentID, *assigned.AssignedToID)
}

func TestCommentEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.createUser(t, "cust@example.com", authz.RoleCustomer, nil)
	_, stranger := env.createUser(t, "other@example.com", authz.RoleCustomer, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/tickets", owner, map[string]string{
		"subject":     "s",
		"description": "d",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ticketResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodPost, "/api/v1/tickets/"+created.ID+"/comments", owner,
		map[string]string{"body": "any news?"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/tickets/"+created.ID+"/comments", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []commentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "any news?", comments[0].Body)

	// Another customer cannot read or write comments on this ticket.
	rec = env.do(t, http.MethodGet, "/api/v1/tickets/"+created.ID+"/comments", stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/tickets/"+created.ID+"/comments", stranger,
		map[string]string{"body": "sneaky"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadAttachment(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.createUser(t, "admin@example.com", authz.RoleAdmin, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/tickets", admin, map[string]string{
		"subject":     "s",
		"description": "d",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ticketResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "crash.log")
	require.NoError(t, err)
	_, err = part.Write([]byte("stack trace here"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/"+created.ID+"/attachments", &buf)
	req.RemoteAddr = "10.0.0.1:54321"
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)

	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	require.Equal(t, http.StatusCreated, out.Code)

	var uploaded attachmentResponse
	require.NoError(t, json.Unmarshal(out.Body.Bytes(), &uploaded))
	assert.Equal(t, "crash.log", uploaded.Filename)
	assert.Equal(t, int64(len("stack trace here")), uploaded.SizeBytes)

	// Download round-trips the bytes.
	rec = env.do(t, http.MethodGet, "/api/v1/tickets/"+created.ID+"/attachments/"+uploaded.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stack trace here", rec.Body.String())
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.createUser(t, "admin@example.com", authz.RoleAdmin, nil)
	_, customer := env.createUser(t, "cust@example.com", authz.RoleCustomer, nil)

	// Customers are gated out of user administration.
	rec := env.do(t, http.MethodGet, "/api/v1/users", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	// Admin provisions an agent.
	rec = env.do(t, http.MethodPost, "/api/v1/users", admin, map[string]string{
		"email":     "agent@example.com",
		"password":  "password123",
		"firstName": "Ann",
		"lastName":  "Gray",
		"role":      authz.RoleAgent,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var agent userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agent))
	assert.Equal(t, authz.RoleAgent, agent.Role)

	rec = env.do(t, http.MethodPost, "/api/v1/users", admin, map[string]string{
		"email":     "x@example.com",
		"password":  "password123",
		"firstName": "X",
		"lastName":  "Y",
		"role":      "SUPERVISOR",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Deactivate and reactivate.
	rec = env.do(t, http.MethodPost, "/api/v1/users/"+agent.ID+"/deactivate", admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.users.users[agent.ID].IsActive)

	rec = env.do(t, http.MethodPost, "/api/v1/users/"+agent.ID+"/activate", admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, env.users.users[agent.ID].IsActive)

	rec = env.do(t, http.MethodGet, "/api/v1/departments", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var departments []departmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &departments))
	assert.Len(t, departments, 2)
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	_, customer := env.createUser(t, "cust@example.com", authz.RoleCustomer, nil)

	// Missing subject.
	rec := env.do(t, http.MethodPost, "/api/v1/tickets", customer, map[string]string{
		"description": "d",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidationFailed, decodeError(t, rec).Code)

	// Unknown priority is rejected before the service runs.
	rec = env.do(t, http.MethodPost, "/api/v1/tickets", customer, map[string]string{
		"subject":     "s",
		"description": "d",
		"priority":    "catastrophic",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Body that is not JSON at all.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", bytes.NewBufferString("{nope"))
	req.RemoteAddr = "10.0.0.1:54321"
	req.Header.Set("Authorization", "Bearer "+customer)
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIWindowKeyedByForwardedClient(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.handler, RouterConfig{
		APILimit:  2,
		APIWindow: 15 * time.Minute,
	})

	// Every request arrives through the same upstream proxy hop, so
	// RemoteAddr is identical; only X-Forwarded-For tells clients apart.
	hit := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	// Distinct clients must not share a window.
	assert.Equal(t, http.StatusOK, hit("203.0.113.1"))
	assert.Equal(t, http.StatusOK, hit("203.0.113.2"))
	assert.Equal(t, http.StatusOK, hit("203.0.113.3"))

	// A single client still exhausts its own window.
	assert.Equal(t, http.StatusOK, hit("198.51.100.7"))
	assert.Equal(t, http.StatusOK, hit("198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, hit("198.51.100.7"))

	// Other clients are unaffected by the exhausted one.
	assert.Equal(t, http.StatusOK, hit("198.51.100.8"))
}
