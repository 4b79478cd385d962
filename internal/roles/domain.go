// Package roles manages role administration: named bundles of permission
// grants assignable to users.
package roles

import (
	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/lifecycle"
)

// Role represents a named permission bundle.
type Role struct {
	ID          int64
	Name        string
	Description string
	lifecycle.Lifecycle
}

// RoleDetail pairs a role with its granted permissions.
type RoleDetail struct {
	Role
	Permissions []authz.Permission
}
