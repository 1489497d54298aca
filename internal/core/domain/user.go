package domain

import "time"

// Role is the application-level role stored on a user profile. The same
// enumeration drives the server-side gate and the client-side role checks.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleBranchAdmin Role = "branch_admin"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
	RoleParent      Role = "parent"
	RoleStaff       Role = "staff"
)

// AllRoles lists every valid role. Order is not significant.
var AllRoles = []Role{
	RoleSuperAdmin,
	RoleTenantAdmin,
	RoleBranchAdmin,
	RoleTeacher,
	RoleStudent,
	RoleParent,
	RoleStaff,
}

// AdminRoles are the roles that land on the admin dashboard after sign-in.
var AdminRoles = []Role{RoleSuperAdmin, RoleTenantAdmin, RoleBranchAdmin}

// ParseRole validates a raw role string read from storage or a token.
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if Role(s) == r {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// Status is the account status on a user profile. Only active accounts may
// reach protected resources; inactive and suspended principals can still
// authenticate but are denied access.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ParseStatus validates a raw status string read from storage.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusSuspended:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// UserProfile is the application-owned record keyed by identity id.
// Exactly one profile exists per identity; TenantID is mandatory, BranchID
// is optional (empty string means the user is not scoped to a branch).
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	TenantID  string    `json:"tenant_id"`
	BranchID  string    `json:"branch_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the profile may access protected resources.
func (p *UserProfile) IsActive() bool {
	return p != nil && p.Status == StatusActive
}

// HasRole reports whether the profile's role is in the allowed set.
func (p *UserProfile) HasRole(allowed ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range allowed {
		if p.Role == r {
			return true
		}
	}
	return false
}
