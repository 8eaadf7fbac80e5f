package rbac

// Permissions gating mutating operations.
const (
	PermissionCreateTask    = "task:create"
	PermissionReadTask      = "task:read"
	PermissionUpdateTask    = "task:update"
	PermissionDeleteTask    = "task:delete"
	PermissionCreateProject = "project:create"
	PermissionDeleteProject = "project:delete"
	PermissionManageUsers   = "user:manage"
)

// Roles carried on the user record.
const (
	RoleAdmin     = "ADMIN"
	RoleDeveloper = "DEVELOPER"
	RoleViewer    = "VIEWER"
)

var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionReadTask,
	},
	RoleDeveloper: {
		PermissionReadTask,
		PermissionCreateTask,
		PermissionUpdateTask,
		PermissionCreateProject,
	},
	RoleAdmin: {
		PermissionReadTask,
		PermissionCreateTask,
		PermissionUpdateTask,
		PermissionDeleteTask,
		PermissionCreateProject,
		PermissionDeleteProject,
		PermissionManageUsers,
	},
}

// HasPermission reports whether a role grants a permission.
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns a typed error when the role lacks the permission.
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError reports a role/permission mismatch.
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
