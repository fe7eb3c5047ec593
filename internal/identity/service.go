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

package identity

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/opendesk/opendesk/internal/audit"
	"github.com/opendesk/opendesk/internal/authz"
)

// Service provides identity-related business logic
type Service struct {
	users       UserRepository
	roles       RoleRepository
	departments DepartmentRepository
	hasher      *PasswordHasher
	auditLogger audit.Logger
}

// NewService creates a new identity service
func NewService(
	users UserRepository,
	roles RoleRepository,
	departments DepartmentRepository,
	hasher *PasswordHasher,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		users:       users,
		roles:       roles,
		departments: departments,
		hasher:      hasher,
		auditLogger: auditLogger,
	}
}

// Register creates a new customer account with credentials. Staff accounts
// are provisioned by administrators through CreateUser.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	return s.createUser(ctx, email, password, firstName, lastName, authz.RoleCustomer, nil)
}

// CreateUser provisions an account with an explicit role and department.
func (s *Service) CreateUser(ctx context.Context, email, password, firstName, lastName, roleName string, departmentID *string) (*User, error) {
	if _, ok := authz.RolePermissions(roleName); !ok {
		return nil, ErrRoleNotFound
	}
	return s.createUser(ctx, email, password, firstName, lastName, roleName, departmentID)
}

func (s *Service) createUser(ctx context.Context, email, password, firstName, lastName, roleName string, departmentID *string) (*User, error) {
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		RoleName:     roleName,
		DepartmentID: departmentID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.AddCredentials(ctx, &Credentials{UserID: user.ID, PasswordHash: passwordHash}); err != nil {
		return nil, fmt.Errorf("failed to add credentials: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  user.ID,
		Resource: "user",
		Metadata: map[string]any{"email": user.Email, "role": user.RoleName},
	})

	return user, nil
}

// Authenticate authenticates a user with email and password. Inactive and
// unknown accounts are indistinguishable from a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: email,
			Metadata: map[string]any{"reason": "user_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{"reason": "inactive"},
		})
		return nil, ErrInvalidCredentials
	}

	credentials, err := s.users.GetCredentials(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, credentials.PasswordHash)
	if err != nil || !valid {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{"reason": "bad_password"},
		})
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ResolvePrincipal turns a verified token subject into a full principal.
//
// Runs on every request, against current store state: a deactivated user
// or a changed role takes effect on the very next call, regardless of what
// the still-valid token claims. The role's stored permission field is
// normalized here and nowhere else; malformed data yields an empty set.
func (s *Service) ResolvePrincipal(ctx context.Context, userID string) (*authz.Principal, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	permissions := []string{}
	role, err := s.roles.GetByName(ctx, user.RoleName)
	if err == nil && role != nil {
		permissions = authz.NormalizePermissions(role.Permissions)
	}
	// A missing role record fails closed with an empty permission set
	// rather than failing the request.

	return &authz.Principal{
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         user.RoleName,
		DepartmentID: user.DepartmentID,
		Permissions:  permissions,
	}, nil
}

// RecordLogin persists the newly issued refresh token, invalidating any
// prior value, and stamps the last-login time.
func (s *Service) RecordLogin(ctx context.Context, userID, refreshToken string) error {
	now := time.Now().UTC()
	if err := s.users.UpdateRefreshToken(ctx, userID, &refreshToken, &now); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// ClearRefreshToken drops the persisted refresh token at logout.
func (s *Service) ClearRefreshToken(ctx context.Context, userID string) error {
	if err := s.users.UpdateRefreshToken(ctx, userID, nil, nil); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListUsers retrieves all users
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.users.List(ctx)
}

// SetActive toggles an account's active flag.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return err
	}
	eventType := audit.TypeUserDeactivated
	if active {
		eventType = audit.TypeUserActivated
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  userID,
		Resource: "user",
	})
	return nil
}

// ListDepartments retrieves all departments
func (s *Service) ListDepartments(ctx context.Context) ([]*Department, error) {
	return s.departments.List(ctx)
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isStrongPassword(password string) bool {
	return len(password) >= 8
}
