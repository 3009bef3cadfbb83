package access

import (
	"fmt"
	"slices"

	"storedesk/internal/apperr"
)

// RoleAccess is the effective access of a role slug and its stored permissions.
// system_owner and store_manager resolve to universal access regardless of
// what is stored on the role row.
func RoleAccess(slug string, stored Permissions) Permissions {
	switch slug {
	case RoleSystemOwner, RoleStoreManager:
		return Universal()
	default:
		return stored
	}
}

// RequireRole passes when slug is system_owner or one of allowed.
func RequireRole(slug string, allowed ...string) error {
	if slug == RoleSystemOwner || slices.Contains(allowed, slug) {
		return nil
	}
	return apperr.Forbidden(apperr.CodeForbidden, "insufficient role")
}

// RequirePermission passes when the role's effective access allows action on resource.
func RequirePermission(slug string, stored Permissions, resource, action string) error {
	if RoleAccess(slug, stored).Allows(resource, action) {
		return nil
	}
	return apperr.Forbidden(apperr.CodeForbidden, fmt.Sprintf("no permission to %s %s", action, resource))
}
