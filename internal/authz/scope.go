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

import "fmt"

// TicketACL is the authorization-relevant projection of a ticket row.
type TicketACL struct {
	OwnerID      string
	AssignedToID *string
	DepartmentID *string
}

type scopeKind int

const (
	scopeNone scopeKind = iota // matches nothing; fail-closed default
	scopeAll
	scopeOwner
	scopeAssignedOrDeptPool
	scopeDepartment
)

// Scope is the row-level predicate restricting which ticket rows a list
// query may return. Callers AND it with any explicit filters; explicit
// filters can therefore narrow but never widen what a role may see.
type Scope struct {
	kind         scopeKind
	userID       string
	departmentID string
	hasDept      bool
}

// ScopeFor builds the row predicate for a principal. Pure: identical
// inputs yield an identical predicate.
func ScopeFor(p *Principal) Scope {
	s := Scope{userID: p.UserID}
	if p.DepartmentID != nil {
		s.departmentID = *p.DepartmentID
		s.hasDept = true
	}

	switch p.Role {
	case RoleSuperAdmin, RoleAdmin:
		s.kind = scopeAll
	case RoleManager:
		s.kind = scopeDepartment
	case RoleAgent:
		s.kind = scopeAssignedOrDeptPool
	case RoleCustomer:
		s.kind = scopeOwner
	default:
		s.kind = scopeNone
	}
	return s
}

// Unrestricted reports whether the scope admits every row.
func (s Scope) Unrestricted() bool {
	return s.kind == scopeAll
}

// Allows is the pure form of the predicate, for single rows.
func (s Scope) Allows(t TicketACL) bool {
	switch s.kind {
	case scopeAll:
		return true
	case scopeOwner:
		return t.OwnerID == s.userID
	case scopeAssignedOrDeptPool:
		if t.AssignedToID != nil {
			return *t.AssignedToID == s.userID
		}
		return s.hasDept && t.DepartmentID != nil && *t.DepartmentID == s.departmentID
	case scopeDepartment:
		return s.hasDept && t.DepartmentID != nil && *t.DepartmentID == s.departmentID
	default:
		return false
	}
}

// Where renders the predicate as a SQL condition over the tickets table,
// appending its bind values to args and numbering placeholders from
// len(args)+1.
func (s Scope) Where(args []any) (string, []any) {
	switch s.kind {
	case scopeAll:
		return "TRUE", args
	case scopeOwner:
		args = append(args, s.userID)
		return fmt.Sprintf("t.owner_id = $%d", len(args)), args
	case scopeAssignedOrDeptPool:
		if !s.hasDept {
			args = append(args, s.userID)
			return fmt.Sprintf("t.assigned_to_id = $%d", len(args)), args
		}
		args = append(args, s.userID, s.departmentID)
		return fmt.Sprintf("(t.assigned_to_id = $%d OR (t.assigned_to_id IS NULL AND t.department_id = $%d))",
			len(args)-1, len(args)), args
	case scopeDepartment:
		if !s.hasDept {
			return "FALSE", args
		}
		args = append(args, s.departmentID)
		return fmt.Sprintf("t.department_id = $%d", len(args)), args
	default:
		return "FALSE", args
	}
}
