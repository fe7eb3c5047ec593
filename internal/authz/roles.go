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

package authz

// -----------------------------------------------------------------------------
// Role Name Constants
// These are the canonical names for the five seeded roles. Roles are
// created at seed time and never mutated by the application at runtime.
// -----------------------------------------------------------------------------

const (
	// RoleSuperAdmin holds the global wildcard.
	RoleSuperAdmin = "SUPER_ADMIN"

	// RoleAdmin administers users, departments and SLA policy; unrestricted
	// row scope.
	RoleAdmin = "ADMIN"

	// RoleManager triages the tickets of their own department.
	RoleManager = "MANAGER"

	// RoleAgent works tickets assigned to them, plus unassigned tickets
	// of their department.
	RoleAgent = "AGENT"

	// RoleCustomer files tickets and sees only their own.
	RoleCustomer = "CUSTOMER"
)

// -----------------------------------------------------------------------------
// Role Permission Mappings
// Fixed, ordered permission lists for each seeded role. Used for seeding
// and as the regression fixture. Scoped entries such as
// "tickets:read:department" are descriptive: the gate ignores the scope
// segment, and row filtering is enforced by ScopeFor/CanAccess instead.
// -----------------------------------------------------------------------------

// SuperAdminPermissions defines permissions for the SUPER_ADMIN role.
var SuperAdminPermissions = []string{
	"*",
}

// AdminPermissions defines permissions for the ADMIN role.
var AdminPermissions = []string{
	"users:*",
	"departments:*",
	"tickets:*",
	"comments:*",
	"kb:*",
	"reports:*",
	"sla:*",
}

// ManagerPermissions defines permissions for the MANAGER role.
var ManagerPermissions = []string{
	PermTicketsCreate,
	PermTicketsRead,
	"tickets:read:department",
	PermTicketsUpdate,
	"tickets:update:department",
	PermTicketsAssign,
	"tickets:assign:department",
	PermCommentsCreate,
	PermCommentsRead,
	PermUsersRead,
	PermReportsRead,
	PermKBRead,
}

// AgentPermissions defines permissions for the AGENT role.
var AgentPermissions = []string{
	PermTicketsRead,
	"tickets:read:assigned",
	PermTicketsUpdate,
	"tickets:update:assigned",
	PermCommentsCreate,
	PermCommentsRead,
	PermKBRead,
}

// CustomerPermissions defines permissions for the CUSTOMER role.
var CustomerPermissions = []string{
	PermTicketsCreate,
	PermTicketsRead,
	"tickets:read:own",
	PermCommentsCreate,
	PermCommentsRead,
	PermKBRead,
}

// RoleSpec describes one seeded role.
type RoleSpec struct {
	Name        string
	DisplayName string
	Permissions []string
}

// SeededRoles lists the five roles in seed order.
var SeededRoles = []RoleSpec{
	{Name: RoleSuperAdmin, DisplayName: "Super Administrator", Permissions: SuperAdminPermissions},
	{Name: RoleAdmin, DisplayName: "Administrator", Permissions: AdminPermissions},
	{Name: RoleManager, DisplayName: "Department Manager", Permissions: ManagerPermissions},
	{Name: RoleAgent, DisplayName: "Support Agent", Permissions: AgentPermissions},
	{Name: RoleCustomer, DisplayName: "Customer", Permissions: CustomerPermissions},
}

// RolePermissions returns the fixed permission list for a seeded role.
func RolePermissions(name string) ([]string, bool) {
	for _, spec := range SeededRoles {
		if spec.Name == name {
			return spec.Permissions, true
		}
	}
	return nil, false
}
