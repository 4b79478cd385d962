package users

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

type grantKey struct {
	userID int64
	permID int64
}

type mockRepo struct {
	nextID int64
	users  map[int64]*User
	hashes map[int64]string
	grants map[grantKey]*lifecycle.Lifecycle
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		nextID: 1,
		users:  make(map[int64]*User),
		hashes: make(map[int64]string),
		grants: make(map[grantKey]*lifecycle.Lifecycle),
	}
}

func (m *mockRepo) ListUsers(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range m.users {
		if u.Live() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockRepo) GetUser(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok || !u.Live() {
		return User{}, shared.ErrNotFound
	}
	return *u, nil
}

func (m *mockRepo) GetUserByUsername(_ context.Context, username string) (User, error) {
	for _, u := range m.users {
		if u.Live() && strings.EqualFold(u.Username, username) {
			return *u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *mockRepo) GetUserByEmployeeID(_ context.Context, employeeID int64) (User, error) {
	for _, u := range m.users {
		if u.Live() && u.EmployeeID != nil && *u.EmployeeID == employeeID {
			return *u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *mockRepo) CreateUser(_ context.Context, in NewUserInput, stamp lifecycle.Stamp) (User, error) {
	for _, u := range m.users {
		if u.Live() && strings.EqualFold(u.Username, in.Username) {
			return User{}, shared.ErrDuplicate
		}
	}
	u := &User{ID: m.nextID, EmployeeID: in.EmployeeID, Username: in.Username, RoleID: in.RoleID, Active: true}
	u.StampCreate(stamp)
	m.users[u.ID] = u
	m.nextID++
	return *u, nil
}

func (m *mockRepo) UpdateRoleAssignment(_ context.Context, id, roleID int64, stamp lifecycle.Stamp) error {
	u, ok := m.users[id]
	if !ok || !u.Live() {
		return shared.ErrNotFound
	}
	u.RoleID = roleID
	u.StampModify(stamp)
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, id int64, active bool, stamp lifecycle.Stamp) error {
	u, ok := m.users[id]
	if !ok || !u.Live() {
		return shared.ErrNotFound
	}
	u.Active = active
	u.StampModify(stamp)
	return nil
}

func (m *mockRepo) SetPasswordHash(_ context.Context, id int64, hash string, stamp lifecycle.Stamp) error {
	u, ok := m.users[id]
	if !ok || !u.Live() {
		return shared.ErrNotFound
	}
	m.hashes[id] = hash
	u.StampModify(stamp)
	return nil
}

func (m *mockRepo) SoftDeleteUser(_ context.Context, id int64, stamp lifecycle.Stamp) error {
	u, ok := m.users[id]
	if !ok || !u.Live() {
		return shared.ErrNotFound
	}
	u.Active = false
	return u.SoftDelete(stamp)
}

func (m *mockRepo) ListDirectPermissions(_ context.Context, userID int64) ([]authz.Permission, error) {
	var perms []authz.Permission
	for key, lc := range m.grants {
		if key.userID == userID && lc.Live() {
			perms = append(perms, authz.Permission{ID: key.permID})
		}
	}
	return perms, nil
}

func (m *mockRepo) GrantPermission(_ context.Context, userID, permissionID int64, stamp lifecycle.Stamp) error {
	key := grantKey{userID: userID, permID: permissionID}
	if lc, ok := m.grants[key]; ok {
		if lc.Live() {
			return shared.ErrDuplicate
		}
		return lc.Restore(stamp)
	}
	lc := &lifecycle.Lifecycle{}
	lc.StampCreate(stamp)
	m.grants[key] = lc
	return nil
}

func (m *mockRepo) RevokePermission(_ context.Context, userID, permissionID int64, stamp lifecycle.Stamp) error {
	lc, ok := m.grants[grantKey{userID: userID, permID: permissionID}]
	if !ok || !lc.Live() {
		return shared.ErrNotFound
	}
	return lc.SoftDelete(stamp)
}

func TestCreateUserNormalizesUsername(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	u, err := svc.CreateUser(context.Background(), 1, NewUserInput{Username: "  JSmith \n", RoleID: 2})
	require.NoError(t, err)
	assert.Equal(t, "jsmith", u.Username)
	assert.True(t, u.Active)
	assert.Equal(t, int64(1), u.CreatedBy)
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.CreateUser(context.Background(), 1, NewUserInput{Username: " ", RoleID: 2})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")

	_, err = svc.CreateUser(context.Background(), 1, NewUserInput{Username: "jsmith"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "role_id")
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.CreateUser(context.Background(), 1, NewUserInput{Username: "jsmith", RoleID: 2})
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), 1, NewUserInput{Username: "JSMITH", RoleID: 2})
	var derr *shared.DuplicateError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "user", derr.Entity)
}

func TestEnsureForEmployeeReturnsExisting(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	empID := int64(77)

	first, err := svc.CreateUser(context.Background(), 1, NewUserInput{EmployeeID: &empID, Username: "asmith", RoleID: 2})
	require.NoError(t, err)

	again, err := svc.EnsureForEmployee(context.Background(), 1, empID, "asmith2", 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "asmith", again.Username)
	assert.Len(t, repo.users, 1)
}

func TestEnsureForEmployeePromotes(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	u, err := svc.EnsureForEmployee(context.Background(), 1, 42, "bjones", 3)
	require.NoError(t, err)
	require.NotNil(t, u.EmployeeID)
	assert.Equal(t, int64(42), *u.EmployeeID)
	assert.Equal(t, int64(3), u.RoleID)
}

func TestDeactivate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	u, err := svc.CreateUser(context.Background(), 1, NewUserInput{Username: "leaver", RoleID: 2})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), 99, u.ID))

	_, err = svc.GetUser(context.Background(), u.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.True(t, repo.users[u.ID].Deleted)
	assert.False(t, repo.users[u.ID].Active)
}

func TestDeactivateSelfRefused(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	u, err := svc.CreateUser(context.Background(), 1, NewUserInput{Username: "self", RoleID: 2})
	require.NoError(t, err)

	err = svc.Deactivate(context.Background(), u.ID, u.ID)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, repo.users[u.ID].Live())
}

func TestGrantAndRevokePermission(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	u, err := svc.CreateUser(context.Background(), 1, NewUserInput{Username: "granted", RoleID: 2})
	require.NoError(t, err)

	require.NoError(t, svc.GrantPermission(context.Background(), 1, u.ID, 10))

	detail, err := svc.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, detail.DirectPermissions, 1)

	// A second identical grant is a duplicate.
	err = svc.GrantPermission(context.Background(), 1, u.ID, 10)
	var derr *shared.DuplicateError
	require.ErrorAs(t, err, &derr)

	require.NoError(t, svc.RevokePermission(context.Background(), 1, u.ID, 10))
	detail, err = svc.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.DirectPermissions)

	// Granting again revives the revoked row.
	require.NoError(t, svc.GrantPermission(context.Background(), 1, u.ID, 10))
	detail, err = svc.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Len(t, detail.DirectPermissions, 1)
}

func TestSetPassword(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	u, err := svc.CreateUser(context.Background(), 1, NewUserInput{Username: "pwuser", RoleID: 2})
	require.NoError(t, err)

	err = svc.SetPassword(context.Background(), 1, u.ID, "short")
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, svc.SetPassword(context.Background(), 1, u.ID, "long-enough-secret"))
	assert.NotEmpty(t, repo.hashes[u.ID])
	assert.NotEqual(t, "long-enough-secret", repo.hashes[u.ID])
}
