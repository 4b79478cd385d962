package listservs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

type mockRepo struct {
	listservs map[int64]*Listserv
	contacts  map[int64]*Contact
	nextID    int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{listservs: map[int64]*Listserv{}, contacts: map[int64]*Contact{}, nextID: 1}
}

func (m *mockRepo) ListListservs(ctx context.Context) ([]Listserv, error) {
	var out []Listserv
	for _, l := range m.listservs {
		if l.Live() {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockRepo) ListDeletedListservs(ctx context.Context) ([]Listserv, error) {
	var out []Listserv
	for _, l := range m.listservs {
		if l.Deleted {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockRepo) GetListserv(ctx context.Context, id int64) (Listserv, error) {
	if l, ok := m.listservs[id]; ok && l.Live() {
		return *l, nil
	}
	return Listserv{}, shared.ErrNotFound
}

func (m *mockRepo) GetDeletedListserv(ctx context.Context, id int64) (Listserv, error) {
	if l, ok := m.listservs[id]; ok && l.Deleted {
		return *l, nil
	}
	return Listserv{}, shared.ErrNotFound
}

func (m *mockRepo) CreateListserv(ctx context.Context, l Listserv, stamp lifecycle.Stamp) (Listserv, error) {
	for _, existing := range m.listservs {
		if existing.Live() && existing.Address == l.Address {
			return Listserv{}, shared.ErrDuplicate
		}
	}
	l.ID = m.nextID
	m.nextID++
	l.CreatedAt, l.CreatedBy = stamp.At, stamp.By
	l.UpdatedAt, l.UpdatedBy = stamp.At, stamp.By
	m.listservs[l.ID] = &l
	return l, nil
}

func (m *mockRepo) UpdateListserv(ctx context.Context, l Listserv, stamp lifecycle.Stamp) (Listserv, error) {
	existing, ok := m.listservs[l.ID]
	if !ok || !existing.Live() {
		return Listserv{}, shared.ErrNotFound
	}
	existing.Name, existing.Address, existing.Description = l.Name, l.Address, l.Description
	existing.UpdatedAt, existing.UpdatedBy = stamp.At, stamp.By
	return *existing, nil
}

func (m *mockRepo) SoftDeleteListserv(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	l, ok := m.listservs[id]
	if !ok || !l.Live() {
		return shared.ErrNotFound
	}
	at := stamp.At
	by := stamp.By
	l.Deleted, l.DeletedAt, l.DeletedBy = true, &at, &by
	return nil
}

func (m *mockRepo) RestoreListserv(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	l, ok := m.listservs[id]
	if !ok || !l.Deleted {
		return shared.ErrNotFound
	}
	l.Deleted, l.DeletedAt, l.DeletedBy = false, nil, nil
	l.CreatedAt, l.CreatedBy = stamp.At, stamp.By
	l.UpdatedAt, l.UpdatedBy = stamp.At, stamp.By
	return nil
}

func (m *mockRepo) ListContacts(ctx context.Context, listservID int64) ([]Contact, error) {
	var out []Contact
	for _, c := range m.contacts {
		if c.Live() && c.ListservID == listservID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockRepo) GetContact(ctx context.Context, id int64) (Contact, error) {
	if c, ok := m.contacts[id]; ok && c.Live() {
		return *c, nil
	}
	return Contact{}, shared.ErrNotFound
}

func (m *mockRepo) CreateContact(ctx context.Context, c Contact, stamp lifecycle.Stamp) (Contact, error) {
	for _, existing := range m.contacts {
		if existing.Live() && existing.ListservID == c.ListservID && existing.Email == c.Email {
			return Contact{}, shared.ErrDuplicate
		}
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt, c.CreatedBy = stamp.At, stamp.By
	m.contacts[c.ID] = &c
	return c, nil
}

func (m *mockRepo) SoftDeleteContact(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	c, ok := m.contacts[id]
	if !ok || !c.Live() {
		return shared.ErrNotFound
	}
	at := stamp.At
	by := stamp.By
	c.Deleted, c.DeletedAt, c.DeletedBy = true, &at, &by
	return nil
}

type groupsCall struct {
	op      string
	group   string
	subject string
}

type stubGroups struct {
	calls []groupsCall
	fail  bool
}

func (s *stubGroups) EnsureGroup(ctx context.Context, address, displayName string) error {
	s.calls = append(s.calls, groupsCall{op: "ensure", group: address, subject: displayName})
	if s.fail {
		return errors.New("provider down")
	}
	return nil
}

func (s *stubGroups) AddMember(ctx context.Context, groupAddress, email string) error {
	s.calls = append(s.calls, groupsCall{op: "add", group: groupAddress, subject: email})
	if s.fail {
		return errors.New("provider down")
	}
	return nil
}

func (s *stubGroups) RemoveMember(ctx context.Context, groupAddress, email string) error {
	s.calls = append(s.calls, groupsCall{op: "remove", group: groupAddress, subject: email})
	if s.fail {
		return errors.New("provider down")
	}
	return nil
}

func TestCreateListserv(t *testing.T) {
	repo := newMockRepo()
	groups := &stubGroups{}
	svc := NewService(repo, groups, nil, nil)

	created, err := svc.CreateListserv(context.Background(), 1, Listserv{
		Name:    "Faculty Senate",
		Address: "Senate@Lists.Example.EDU",
	})
	require.NoError(t, err)
	assert.Equal(t, "senate@lists.example.edu", created.Address)
	require.Len(t, groups.calls, 1)
	assert.Equal(t, groupsCall{op: "ensure", group: "senate@lists.example.edu", subject: "Faculty Senate"}, groups.calls[0])
}

func TestCreateListservValidation(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil)

	_, err := svc.CreateListserv(context.Background(), 1, Listserv{Name: "", Address: "x@y"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	_, err = svc.CreateListserv(context.Background(), 1, Listserv{Name: "Senate", Address: "not-an-address"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "address")
}

func TestCreateListservDuplicateAddress(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CreateListserv(context.Background(), 1, Listserv{Name: "Senate", Address: "senate@lists.example.edu"})
	require.NoError(t, err)

	_, err = svc.CreateListserv(context.Background(), 1, Listserv{Name: "Other", Address: "SENATE@lists.example.edu"})
	var dup *shared.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "listserv", dup.Entity)
}

func TestCreateListservProviderOutageNotFatal(t *testing.T) {
	groups := &stubGroups{fail: true}
	svc := NewService(newMockRepo(), groups, nil, nil)

	_, err := svc.CreateListserv(context.Background(), 1, Listserv{Name: "Senate", Address: "senate@lists.example.edu"})
	require.NoError(t, err)
}

func TestDeleteThenRestoreListserv(t *testing.T) {
	repo := newMockRepo()
	groups := &stubGroups{}
	svc := NewService(repo, groups, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateListserv(ctx, 1, Listserv{Name: "Senate", Address: "senate@lists.example.edu"})
	require.NoError(t, err)
	contact, err := svc.AddContact(ctx, 1, Contact{ListservID: created.ID, Name: "Jane Doe", Email: "jdoe@example.edu"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteListserv(ctx, 2, created.ID))
	_, err = svc.GetListserv(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	deleted, err := svc.ListDeletedListservs(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	restored, err := svc.RestoreListserv(ctx, 3, created.ID)
	require.NoError(t, err)
	assert.True(t, restored.Live())
	assert.Equal(t, int64(3), restored.CreatedBy)

	// Contacts were never touched by the delete, so the full
	// subscriber set comes back with the list.
	contacts, err := svc.ListContacts(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, contact.Email, contacts[0].Email)
}

func TestRestoreLiveListserv(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateListserv(ctx, 1, Listserv{Name: "Senate", Address: "senate@lists.example.edu"})
	require.NoError(t, err)

	_, err = svc.RestoreListserv(ctx, 1, created.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotDeleted)
}

func TestRestoreUnknownListserv(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil)

	_, err := svc.RestoreListserv(context.Background(), 1, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAddContact(t *testing.T) {
	repo := newMockRepo()
	groups := &stubGroups{}
	svc := NewService(repo, groups, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateListserv(ctx, 1, Listserv{Name: "Senate", Address: "senate@lists.example.edu"})
	require.NoError(t, err)

	contact, err := svc.AddContact(ctx, 1, Contact{ListservID: created.ID, Name: "Jane Doe", Email: " JDoe@Example.EDU "})
	require.NoError(t, err)
	assert.Equal(t, "jdoe@example.edu", contact.Email)

	last := groups.calls[len(groups.calls)-1]
	assert.Equal(t, groupsCall{op: "add", group: "senate@lists.example.edu", subject: "jdoe@example.edu"}, last)

	_, err = svc.AddContact(ctx, 1, Contact{ListservID: created.ID, Email: "jdoe@example.edu"})
	var dup *shared.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "contact", dup.Entity)
}

func TestAddContactInvalidEmail(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil)

	_, err := svc.AddContact(context.Background(), 1, Contact{ListservID: 1, Email: "nope"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

func TestRemoveContact(t *testing.T) {
	repo := newMockRepo()
	groups := &stubGroups{}
	svc := NewService(repo, groups, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateListserv(ctx, 1, Listserv{Name: "Senate", Address: "senate@lists.example.edu"})
	require.NoError(t, err)
	contact, err := svc.AddContact(ctx, 1, Contact{ListservID: created.ID, Email: "jdoe@example.edu"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveContact(ctx, 1, contact.ID))
	contacts, err := svc.ListContacts(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, contacts)

	last := groups.calls[len(groups.calls)-1]
	assert.Equal(t, "remove", last.op)

	// The address is free for a fresh subscription.
	again, err := svc.AddContact(ctx, 1, Contact{ListservID: created.ID, Email: "jdoe@example.edu"})
	require.NoError(t, err)
	assert.NotEqual(t, contact.ID, again.ID)
}

func TestUpdateListservRequiresName(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateListserv(ctx, 1, Listserv{Name: "Senate", Address: "senate@lists.example.edu"})
	require.NoError(t, err)

	_, err = svc.UpdateListserv(ctx, 1, Listserv{ID: created.ID, Name: strings.Repeat(" ", 3)})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
}
