package policy

import "github.com/edusuite/platform/internal/core/domain"

// LandingPath returns the dashboard a user is routed to after sign-in.
// Total over all inputs: unrecognized roles fall back to the default
// dashboard rather than failing.
func LandingPath(role domain.Role) string {
	switch role {
	case domain.RoleSuperAdmin, domain.RoleTenantAdmin, domain.RoleBranchAdmin:
		return "/dashboard/admin"
	case domain.RoleTeacher:
		return "/dashboard/teacher"
	case domain.RoleStudent:
		return "/dashboard/student"
	case domain.RoleParent:
		return "/dashboard/parent"
	case domain.RoleStaff:
		return "/dashboard/staff"
	default:
		return DefaultDashboard
	}
}
