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

// Object-level decisions for one loaded ticket. These are the single
// source of truth for per-entity access; route handlers call them instead
// of re-deriving role/owner/assignee booleans inline.

// CanAccess decides read, update and comment access to a ticket.
func CanAccess(p *Principal, t TicketACL) bool {
	isAdmin := p.Role == RoleAdmin || p.Role == RoleSuperAdmin
	sameDept := p.DepartmentID != nil && t.DepartmentID != nil && *p.DepartmentID == *t.DepartmentID
	isSameDeptManager := p.Role == RoleManager && sameDept
	isSameDeptAgent := p.Role == RoleAgent && sameDept
	isOwner := p.UserID == t.OwnerID
	isAssignee := t.AssignedToID != nil && p.UserID == *t.AssignedToID

	return isAdmin || isSameDeptManager || isSameDeptAgent || isOwner || isAssignee
}

// CanAssign decides whether the principal may assign or reassign a ticket.
// Narrower than CanAccess: a department-matched agent may work a ticket
// but not hand it to someone else. Callers must evaluate this against the
// freshly loaded row, so a reassignment races against the ticket's current
// department rather than a cached one.
func CanAssign(p *Principal, t TicketACL) bool {
	if p.Role == RoleAdmin || p.Role == RoleSuperAdmin {
		return true
	}
	return p.Role == RoleManager &&
		p.DepartmentID != nil && t.DepartmentID != nil &&
		*p.DepartmentID == *t.DepartmentID
}
