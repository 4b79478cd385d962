// Package users manages system identities: promotion of directory employees
// into accounts, role assignment, direct permission grants, and deactivation.
// Identities are never hard-deleted.
package users

import (
	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/lifecycle"
)

// User is a system identity. EmployeeID links back to the directory record
// the identity was promoted from; it is nil for accounts created outside the
// directory (the seeded admin).
type User struct {
	ID         int64
	EmployeeID *int64
	Username   string
	RoleID     int64
	RoleName   string
	Active     bool
	lifecycle.Lifecycle
}

// UserDetail pairs an identity with its directly-granted permissions. Role
// permissions are resolved by the authorization engine, not here.
type UserDetail struct {
	User
	DirectPermissions []authz.Permission
}

// NewUserInput carries the fields needed to create an identity.
type NewUserInput struct {
	EmployeeID *int64
	Username   string
	RoleID     int64
}
