package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/shared"
)

func newTestSession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

func impersonationFixture(t *testing.T) (*Service, *mockRepo, *shared.Session) {
	t.Helper()
	repo := newMockRepo()
	repo.identities[1] = IdentitySnapshot{UserID: 1, Username: "boss", Active: true, RoleID: 1, RoleName: "Admin"}
	repo.identities[2] = IdentitySnapshot{UserID: 2, Username: "clerk", Active: true, RoleID: 2, RoleName: "Staff"}
	return NewService(repo, nil), repo, newTestSession(t)
}

func TestStartImpersonationByAdmin(t *testing.T) {
	svc, _, sess := impersonationFixture(t)
	ctx := context.Background()
	sess.SetUser("1")

	require.NoError(t, svc.StartImpersonation(ctx, sess, 2))

	actor, err := svc.ResolveActor(ctx, sess)
	require.NoError(t, err)
	assert.True(t, actor.Impersonating)
	assert.Equal(t, int64(2), actor.UserID)
	assert.Equal(t, int64(1), actor.OriginalID)
	// Checks now reflect the impersonated identity, not the admin.
	assert.False(t, actor.IsAdmin())
}

func TestStartImpersonationRefusedForNonAdmin(t *testing.T) {
	svc, _, sess := impersonationFixture(t)
	ctx := context.Background()
	sess.SetUser("2")

	err := svc.StartImpersonation(ctx, sess, 1)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// Session state unchanged: still resolving as the clerk, no entry set.
	actor, resolveErr := svc.ResolveActor(ctx, sess)
	require.NoError(t, resolveErr)
	assert.False(t, actor.Impersonating)
	assert.Equal(t, int64(2), actor.UserID)
}

func TestStartImpersonationRefusedForMissingTarget(t *testing.T) {
	svc, _, sess := impersonationFixture(t)
	ctx := context.Background()
	sess.SetUser("1")

	err := svc.StartImpersonation(ctx, sess, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	actor, resolveErr := svc.ResolveActor(ctx, sess)
	require.NoError(t, resolveErr)
	assert.False(t, actor.Impersonating)
}

func TestStartImpersonationRefusesNesting(t *testing.T) {
	svc, repo, sess := impersonationFixture(t)
	ctx := context.Background()
	repo.identities[3] = IdentitySnapshot{UserID: 3, Username: "aide", Active: true, RoleID: 2, RoleName: "Staff"}
	sess.SetUser("1")
	require.NoError(t, svc.StartImpersonation(ctx, sess, 2))

	err := svc.StartImpersonation(ctx, sess, 3)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// The entry is untouched: still acting as the first target.
	actor, resolveErr := svc.ResolveActor(ctx, sess)
	require.NoError(t, resolveErr)
	assert.True(t, actor.Impersonating)
	assert.Equal(t, int64(2), actor.UserID)
}

func TestStartImpersonationRequiresAuthentication(t *testing.T) {
	svc, _, sess := impersonationFixture(t)

	err := svc.StartImpersonation(context.Background(), sess, 2)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolveActorSelfHealsWhenTargetVanishes(t *testing.T) {
	svc, repo, sess := impersonationFixture(t)
	ctx := context.Background()
	sess.SetUser("1")
	require.NoError(t, svc.StartImpersonation(ctx, sess, 2))

	// The impersonated identity is soft-deleted mid-session.
	snap := repo.identities[2]
	snap.Deleted = true
	repo.identities[2] = snap

	actor, err := svc.ResolveActor(ctx, sess)
	require.NoError(t, err)
	assert.False(t, actor.Impersonating)
	assert.Equal(t, int64(1), actor.UserID)
	assert.True(t, actor.IsAdmin())

	// The stale entry was discarded for good.
	assert.Empty(t, sess.Get("impersonate_user_id"))
	assert.Empty(t, sess.Get("impersonate_original_id"))
}

func TestStopImpersonationUnconditional(t *testing.T) {
	svc, _, sess := impersonationFixture(t)
	ctx := context.Background()
	sess.SetUser("1")
	require.NoError(t, svc.StartImpersonation(ctx, sess, 2))

	svc.StopImpersonation(ctx, sess)

	actor, err := svc.ResolveActor(ctx, sess)
	require.NoError(t, err)
	assert.False(t, actor.Impersonating)
	assert.Equal(t, int64(1), actor.UserID)

	// Stopping again is a no-op.
	svc.StopImpersonation(ctx, sess)
}

func TestResolveActorUnauthenticated(t *testing.T) {
	svc, _, sess := impersonationFixture(t)

	_, err := svc.ResolveActor(context.Background(), sess)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = svc.ResolveActor(context.Background(), nil)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}
