// Package authz implements the authorization engine: role plus direct
// permission grants, resource+action checks, and session-scoped
// impersonation.
package authz

import (
	"strings"

	"github.com/quorum-app/quorum/internal/lifecycle"
)

// Separator joins the resource and action halves of a permission name.
const Separator = "+"

// AdminRoleName is the role that unlocks the administration areas,
// compared case-insensitively.
const AdminRoleName = "admin"

// Permission represents one allowed operation as a (resource, action) pair.
type Permission struct {
	ID       int64
	Resource string
	Action   string
	lifecycle.Lifecycle
}

// Name returns the canonical resource+action form.
func (p Permission) Name() string {
	return strings.ToLower(p.Resource) + Separator + strings.ToLower(p.Action)
}

// IdentitySnapshot is everything the engine needs to decide a check: the
// identity row plus its role and both grant layers, loaded in one shot.
type IdentitySnapshot struct {
	UserID            int64
	Username          string
	EmployeeID        *int64
	Active            bool
	Deleted           bool
	RoleID            int64
	RoleName          string
	RoleDeleted       bool
	RolePermissions   []Permission
	DirectPermissions []Permission
}

// Grants is an immutable decision table computed from an IdentitySnapshot.
// It is a pure value: checks against it never touch the store, which keeps
// Can/IsAdmin trivially testable.
type Grants struct {
	UserID   int64
	Username string
	roleName string
	live     bool
	perms    map[string]struct{}
}

// NewGrants folds a snapshot into a Grants value. Permissions carried by a
// soft-deleted role or that are themselves soft-deleted never make it into
// the set; a deleted or inactive identity yields an empty one.
func NewGrants(snap IdentitySnapshot) Grants {
	g := Grants{
		UserID:   snap.UserID,
		Username: snap.Username,
		roleName: snap.RoleName,
		live:     !snap.Deleted && snap.Active,
		perms:    make(map[string]struct{}),
	}
	if !g.live {
		return g
	}
	if !snap.RoleDeleted {
		for _, p := range snap.RolePermissions {
			if p.Live() {
				g.perms[p.Name()] = struct{}{}
			}
		}
	}
	for _, p := range snap.DirectPermissions {
		if p.Live() {
			g.perms[p.Name()] = struct{}{}
		}
	}
	return g
}

// Can reports whether the identity may perform action on resource. The pair
// is case-normalized; a non-live identity always gets false.
func (g Grants) Can(resource, action string) bool {
	if !g.live {
		return false
	}
	key := strings.ToLower(strings.TrimSpace(resource)) + Separator + strings.ToLower(strings.TrimSpace(action))
	_, ok := g.perms[key]
	return ok
}

// IsAdmin reports whether the identity holds the admin role. This is the
// coarse gate for entire administration areas, distinct from Can.
func (g Grants) IsAdmin() bool {
	return g.live && strings.EqualFold(g.roleName, AdminRoleName)
}

// CanAny reports whether at least one requirement of the disjunction holds.
func (g Grants) CanAny(reqs []Requirement) bool {
	for _, req := range reqs {
		if g.Can(req.Resource, req.Action) {
			return true
		}
	}
	return false
}

// Actor is the resolved acting identity attached to the request context. When
// impersonation is active it carries the impersonated identity's grants and
// remembers who is really behind the session.
type Actor struct {
	Grants
	Impersonating bool
	OriginalID    int64
}
