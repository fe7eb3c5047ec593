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

import (
	"encoding/json"
	"strings"
)

// Permission strings follow the grammar
//
//	"*" | resource ":" action | resource ":" action ":" scope
//
// Case-sensitive ASCII, at most three colon-delimited segments.

// Gate permission constants. These are the strings route middleware
// requires; role permission lists must contain them verbatim (or a
// covering wildcard) for the role to pass the gate.
const (
	PermTicketsCreate = "tickets:create"
	PermTicketsRead   = "tickets:read"
	PermTicketsUpdate = "tickets:update"
	PermTicketsAssign = "tickets:assign"
	PermTicketsDelete = "tickets:delete"

	PermCommentsCreate = "comments:create"
	PermCommentsRead   = "comments:read"

	PermUsersRead   = "users:read"
	PermUsersCreate = "users:create"
	PermUsersUpdate = "users:update"
	PermUsersDelete = "users:delete"

	PermDepartmentsRead   = "departments:read"
	PermDepartmentsManage = "departments:manage"

	PermKBRead      = "kb:read"
	PermReportsRead = "reports:read"
	PermSLAManage   = "sla:manage"
)

// HasPermission decides whether a required permission string is granted.
//
// Three rules, in order: the global wildcard "*", a verbatim match, and
// the resource wildcard "resource:*". The scope segment of a granted
// string (e.g. "tickets:read:assigned") is inert here: this is the coarse
// gate deciding whether an identity may use an endpoint at all. Which rows
// it may see is decided separately by ScopeFor, and single-entity access
// by CanAccess/CanAssign. The two mechanisms are intentionally not
// unified; merging them would change which roles pass which gates.
func HasPermission(granted []string, required string) bool {
	resource, _, _ := strings.Cut(required, ":")
	wildcard := resource + ":*"

	for _, p := range granted {
		if p == "*" || p == required || p == wildcard {
			return true
		}
	}
	return false
}

// NormalizePermissions decodes a role's stored permission field. Roles
// persist their list as a JSON-encoded array of strings; a missing or
// unparseable value degrades to the empty set. Fail-closed: malformed
// permission data must never widen access.
func NormalizePermissions(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return []string{}
	}
	if perms == nil {
		return []string{}
	}
	return perms
}
