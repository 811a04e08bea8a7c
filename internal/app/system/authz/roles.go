// internal/app/system/authz/roles.go
package authz

// Back-office roles recorded on the session user.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// BackOffice lists the roles allowed to work on demands.
var BackOffice = []string{RoleAdmin, RoleSuperAdmin}
