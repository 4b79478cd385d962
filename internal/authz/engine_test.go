package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quorum-app/quorum/internal/lifecycle"
)

func perm(id int64, resource, action string) Permission {
	return Permission{ID: id, Resource: resource, Action: action}
}

func deletedPerm(id int64, resource, action string) Permission {
	p := perm(id, resource, action)
	p.StampCreate(lifecycle.NewStamp(1))
	if err := p.SoftDelete(lifecycle.NewStamp(1)); err != nil {
		panic(err)
	}
	return p
}

func liveSnapshot() IdentitySnapshot {
	return IdentitySnapshot{
		UserID:   10,
		Username: "jdoe",
		Active:   true,
		RoleID:   2,
		RoleName: "Committee Viewer",
		RolePermissions: []Permission{
			perm(1, "committee", "view"),
		},
	}
}

func TestCanUnionOfRoleAndDirectGrants(t *testing.T) {
	snap := liveSnapshot()
	snap.DirectPermissions = []Permission{perm(2, "committee", "edit")}
	g := NewGrants(snap)

	assert.True(t, g.Can("committee", "view"), "role grant")
	assert.True(t, g.Can("committee", "edit"), "direct grant")
	assert.False(t, g.Can("committee", "delete"))
	assert.False(t, g.Can("user", "view"))
}

func TestCanCaseNormalizes(t *testing.T) {
	g := NewGrants(liveSnapshot())
	assert.True(t, g.Can("Committee", "VIEW"))
	assert.True(t, g.Can(" committee ", " view "))
}

func TestCanExcludesSoftDeletedPermissions(t *testing.T) {
	snap := liveSnapshot()
	snap.RolePermissions = []Permission{deletedPerm(1, "committee", "view")}
	snap.DirectPermissions = []Permission{deletedPerm(2, "committee", "edit")}
	g := NewGrants(snap)

	assert.False(t, g.Can("committee", "view"))
	assert.False(t, g.Can("committee", "edit"))
}

func TestCanExcludesDeletedRoleGrants(t *testing.T) {
	snap := liveSnapshot()
	snap.RoleDeleted = true
	snap.DirectPermissions = []Permission{perm(2, "committee", "edit")}
	g := NewGrants(snap)

	assert.False(t, g.Can("committee", "view"), "role grants dropped with the role")
	assert.True(t, g.Can("committee", "edit"), "direct grants survive")
}

func TestCanFalseForInactiveOrDeletedIdentity(t *testing.T) {
	inactive := liveSnapshot()
	inactive.Active = false
	assert.False(t, NewGrants(inactive).Can("committee", "view"))

	deleted := liveSnapshot()
	deleted.Deleted = true
	assert.False(t, NewGrants(deleted).Can("committee", "view"))
}

func TestIsAdminCaseInsensitive(t *testing.T) {
	for _, name := range []string{"admin", "Admin", "ADMIN", "aDmIn"} {
		snap := liveSnapshot()
		snap.RoleName = name
		assert.True(t, NewGrants(snap).IsAdmin(), name)
	}

	snap := liveSnapshot()
	snap.RoleName = "administrator"
	assert.False(t, NewGrants(snap).IsAdmin())
}

func TestIsAdminFalseForDeadIdentity(t *testing.T) {
	snap := liveSnapshot()
	snap.RoleName = "admin"
	snap.Deleted = true
	assert.False(t, NewGrants(snap).IsAdmin())
}

func TestCanAnyDisjunction(t *testing.T) {
	g := NewGrants(liveSnapshot())

	reqs := ParseRequirements([]string{"committee+view", "committee+add", "committee+edit"})
	assert.True(t, g.CanAny(reqs))

	reqs = ParseRequirements([]string{"committee+add", "committee+edit"})
	assert.False(t, g.CanAny(reqs))

	assert.False(t, g.CanAny(nil))
}

func TestParseRequirementMalformedSkipped(t *testing.T) {
	reqs := ParseRequirements([]string{"committee+view", "garbage", "+view", "committee+", "  "})
	assert.Len(t, reqs, 1)
	assert.Equal(t, Requirement{Resource: "committee", Action: "view"}, reqs[0])
}

func TestParseRequirementNormalizes(t *testing.T) {
	req, ok := ParseRequirement(" Committee+VIEW ")
	assert.True(t, ok)
	assert.Equal(t, Requirement{Resource: "committee", Action: "view"}, req)
}

func TestPermissionName(t *testing.T) {
	assert.Equal(t, "committee+view", perm(1, "Committee", "View").Name())
}
