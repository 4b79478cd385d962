package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// mockRepo keeps identities and permissions in memory, mirroring the live
// filtering the real queries do.
type mockRepo struct {
	identities map[int64]IdentitySnapshot
	perms      map[int64]*Permission
	nextPermID int64
	err        error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		identities: make(map[int64]IdentitySnapshot),
		perms:      make(map[int64]*Permission),
		nextPermID: 1,
	}
}

func (m *mockRepo) IdentityByID(ctx context.Context, id int64) (IdentitySnapshot, error) {
	if m.err != nil {
		return IdentitySnapshot{}, m.err
	}
	snap, ok := m.identities[id]
	if !ok || snap.Deleted {
		return IdentitySnapshot{}, shared.ErrNotFound
	}
	return m.refreshPerms(snap), nil
}

func (m *mockRepo) IdentityByUsername(ctx context.Context, username string) (IdentitySnapshot, error) {
	for _, snap := range m.identities {
		if snap.Username == username && !snap.Deleted {
			return m.refreshPerms(snap), nil
		}
	}
	return IdentitySnapshot{}, shared.ErrNotFound
}

// refreshPerms re-reads permission rows so a soft delete in the permission
// table is visible on the next check, like the SQL joins would make it.
func (m *mockRepo) refreshPerms(snap IdentitySnapshot) IdentitySnapshot {
	filter := func(perms []Permission) []Permission {
		out := make([]Permission, 0, len(perms))
		for _, p := range perms {
			if stored, ok := m.perms[p.ID]; ok {
				if stored.Live() {
					out = append(out, *stored)
				}
				continue
			}
			if p.Live() {
				out = append(out, p)
			}
		}
		return out
	}
	snap.RolePermissions = filter(snap.RolePermissions)
	snap.DirectPermissions = filter(snap.DirectPermissions)
	return snap
}

func (m *mockRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []Permission
	for _, p := range m.perms {
		if p.Live() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepo) CreatePermission(ctx context.Context, resource, action string, stamp lifecycle.Stamp) (Permission, error) {
	if m.err != nil {
		return Permission{}, m.err
	}
	for _, p := range m.perms {
		if p.Live() && p.Resource == resource && p.Action == action {
			return Permission{}, shared.ErrDuplicate
		}
	}
	p := Permission{ID: m.nextPermID, Resource: resource, Action: action}
	p.StampCreate(stamp)
	m.perms[p.ID] = &p
	m.nextPermID++
	return p, nil
}

func (m *mockRepo) SoftDeletePermission(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	p, ok := m.perms[id]
	if !ok || !p.Live() {
		return shared.ErrNotFound
	}
	return p.SoftDelete(stamp)
}

func adminActor(id int64) Actor {
	return Actor{Grants: NewGrants(IdentitySnapshot{UserID: id, Active: true, RoleName: "admin"}), OriginalID: id}
}

func TestCreatePermissionNormalizesAndStamps(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	p, err := svc.CreatePermission(context.Background(), adminActor(1), " Committee ", " View ")
	require.NoError(t, err)
	assert.Equal(t, "committee", p.Resource)
	assert.Equal(t, "view", p.Action)
	assert.Equal(t, int64(1), p.CreatedBy)
	assert.True(t, p.Live())
}

func TestCreatePermissionDuplicateAmongLiveRows(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	first, err := svc.CreatePermission(ctx, adminActor(1), "committee", "view")
	require.NoError(t, err)

	_, err = svc.CreatePermission(ctx, adminActor(1), "committee", "view")
	assert.ErrorIs(t, err, shared.ErrDuplicate)
	var dup *shared.DuplicateError
	assert.ErrorAs(t, err, &dup)

	// A soft-deleted row frees the pair for reuse.
	require.NoError(t, svc.DeletePermission(ctx, adminActor(1), first.ID))
	_, err = svc.CreatePermission(ctx, adminActor(1), "committee", "view")
	assert.NoError(t, err)
}

func TestCreatePermissionValidatesFields(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.CreatePermission(context.Background(), adminActor(1), "", "view")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreatePermission(context.Background(), adminActor(1), "committee", "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeletePermissionNotFound(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	err := svc.DeletePermission(context.Background(), adminActor(1), 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// Mirrors the full grant/revoke scenario: role grant, direct grant layered on
// top, then the permission row itself soft-deleted out from under both.
func TestGrantRevokeScenario(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	admin := adminActor(1)

	viewPerm, err := svc.CreatePermission(ctx, admin, "committee", "view")
	require.NoError(t, err)
	editPerm, err := svc.CreatePermission(ctx, admin, "committee", "edit")
	require.NoError(t, err)

	repo.identities[7] = IdentitySnapshot{
		UserID:          7,
		Username:        "uviewer",
		Active:          true,
		RoleID:          3,
		RoleName:        "Committee Viewer",
		RolePermissions: []Permission{viewPerm},
	}

	assert.True(t, svc.Can(ctx, 7, "committee", "view"))
	assert.False(t, svc.Can(ctx, 7, "committee", "edit"))

	// Direct grant layered on top of the role.
	snap := repo.identities[7]
	snap.DirectPermissions = []Permission{editPerm}
	repo.identities[7] = snap
	assert.True(t, svc.Can(ctx, 7, "committee", "edit"))

	// Soft-deleting the permission row revokes it everywhere, with no change
	// to the role or identity rows.
	require.NoError(t, svc.DeletePermission(ctx, admin, editPerm.ID))
	assert.False(t, svc.Can(ctx, 7, "committee", "edit"))
	assert.True(t, svc.Can(ctx, 7, "committee", "view"))
}

func TestCanFalseForUnknownIdentity(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	assert.False(t, svc.Can(context.Background(), 404, "committee", "view"))
}
