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
	"os"

	"github.com/opendesk/opendesk/internal/audit"
	"github.com/opendesk/opendesk/internal/authz"
)

const (
	EnvBootstrapAdminEmail    = "BOOTSTRAP_ADMIN_EMAIL"
	EnvBootstrapAdminPassword = "BOOTSTRAP_ADMIN_PASSWORD"
)

// Bootstrap provisions the initial SUPER_ADMIN account on a fresh
// deployment. Registration only ever creates CUSTOMER accounts and staff
// provisioning requires an administrator, so without this step a new
// install has no principal that can reach the admin surface.
//
// The account is taken from BOOTSTRAP_ADMIN_EMAIL and
// BOOTSTRAP_ADMIN_PASSWORD. With no email set, or with a SUPER_ADMIN
// already present, Bootstrap is a no-op.
func (s *Service) Bootstrap(ctx context.Context) error {
	email := os.Getenv(EnvBootstrapAdminEmail)
	if email == "" {
		return nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing super admin: %w", err)
	}
	for _, u := range users {
		if u.RoleName == authz.RoleSuperAdmin {
			return nil
		}
	}

	password := os.Getenv(EnvBootstrapAdminPassword)
	if password == "" {
		return fmt.Errorf("%s is set but %s is empty", EnvBootstrapAdminEmail, EnvBootstrapAdminPassword)
	}

	user, err := s.createUser(ctx, email, password, "Initial", "Admin", authz.RoleSuperAdmin, nil)
	if err != nil {
		return fmt.Errorf("failed to bootstrap super admin %s: %w", email, err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAdminBootstrap,
		ActorID:  user.ID,
		Resource: "user",
		Metadata: map[string]any{"email": email, "role": authz.RoleSuperAdmin},
	})
	return nil
}
