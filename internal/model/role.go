package model

// Role is the closed set of portal roles issued by the identity provider.
type Role string

const (
	RoleEmployee  Role = "Employee"
	RoleHOD       Role = "HOD"
	RoleFinance   Role = "Finance"
	RoleAdmin     Role = "Admin"
	RoleSuperUser Role = "SuperUser"
)

// Permission codes carried in the token's permissions claim.
const (
	PermUsersRead       = "users.read"
	PermUsersWrite      = "users.write"
	PermTemplatesManage = "templates.manage"
	PermAuditRead       = "audit.read"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleHOD, RoleFinance, RoleAdmin, RoleSuperUser:
		return true
	}
	return false
}

// CanSubmit reports whether the role may raise requisitions.
func (r Role) CanSubmit() bool {
	return r == RoleEmployee || r == RoleHOD || r == RoleFinance
}

// IsApprover reports whether the role signs off one of the two stages.
func (r Role) IsApprover() bool {
	return r == RoleHOD || r == RoleFinance
}

// IsAdministrative reports whether the role bypasses permission checks.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSuperUser
}

// Principal is the authenticated caller as described by the identity provider.
type Principal struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Role        Role     `json:"role"`
	Name        string   `json:"name"`
	Department  string   `json:"department,omitempty"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether p carries code. Administrative roles carry all codes.
func (p Principal) HasPermission(code string) bool {
	if p.Role.IsAdministrative() {
		return true
	}
	for _, c := range p.Permissions {
		if c == code {
			return true
		}
	}
	return false
}
