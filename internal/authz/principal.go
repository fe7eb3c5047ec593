package authz

// Principal is the resolved, request-scoped representation of the caller.
// It is rebuilt from the store on every request and discarded with the
// response; role and permissions are therefore never stale, and a
// deactivated user loses access on their next request.
type Principal struct {
	UserID       string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	DepartmentID *string
	Permissions  []string
}

// Has reports whether the principal passes the coarse permission gate for
// the required permission string.
func (p *Principal) Has(required string) bool {
	return HasPermission(p.Permissions, required)
}

// IsAdmin reports whether the principal holds an administrative role.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}
