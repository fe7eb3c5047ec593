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
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserInactive       = errors.New("user is deactivated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrRoleNotFound       = errors.New("role not found")
)

// User represents a user account. Exactly one role per user; the
// permission set is the role's list, never a per-user override. At most
// one live refresh token is persisted per user.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	RoleName     string
	DepartmentID *string
	IsActive     bool
	RefreshToken *string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credentials represents user authentication credentials
type Credentials struct {
	UserID       string
	PasswordHash string
	UpdatedAt    time.Time
}

// Department groups agents and managers for scope filtering.
type Department struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// RoleRecord is the stored form of a role. Permissions persist as a
// JSON-encoded array of permission strings; normalization to a list
// happens once, during principal resolution.
type RoleRecord struct {
	Name        string
	DisplayName string
	Permissions string
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user account
	Create(ctx context.Context, user *User) error

	// AddCredentials adds credentials for a user
	AddCredentials(ctx context.Context, credentials *Credentials) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetCredentials retrieves user credentials
	GetCredentials(ctx context.Context, userID string) (*Credentials, error)

	// UpdateRefreshToken overwrites the user's persisted refresh token,
	// optionally stamping the last-login time. A nil token clears it.
	UpdateRefreshToken(ctx context.Context, userID string, token *string, lastLogin *time.Time) error

	// SetActive toggles the user's active flag
	SetActive(ctx context.Context, userID string, active bool) error

	// List retrieves all users
	List(ctx context.Context) ([]*User, error)
}

// RoleRepository defines the interface for role lookup. Roles are seeded
// and immutable at runtime, so lookup is the only operation.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*RoleRecord, error)
}

// DepartmentRepository defines the interface for department lookup.
type DepartmentRepository interface {
	GetByID(ctx context.Context, id string) (*Department, error)
	List(ctx context.Context) ([]*Department, error)
}
