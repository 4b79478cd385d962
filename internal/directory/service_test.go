package directory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

type mockRepo struct {
	nextID    int64
	employees map[int64]*Employee
}

func newMockRepo() *mockRepo {
	return &mockRepo{nextID: 1, employees: make(map[int64]*Employee)}
}

func (m *mockRepo) ListEmployees(_ context.Context, _ shared.ListFilters) ([]Employee, error) {
	var out []Employee
	for _, e := range m.employees {
		if e.Live() {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockRepo) SearchEmployees(_ context.Context, term string) ([]Employee, error) {
	var out []Employee
	for _, e := range m.employees {
		if e.Live() && (strings.Contains(strings.ToLower(e.LastName), strings.ToLower(term)) ||
			strings.Contains(strings.ToLower(e.Username), strings.ToLower(term))) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockRepo) GetEmployee(_ context.Context, id int64) (Employee, error) {
	e, ok := m.employees[id]
	if !ok || !e.Live() {
		return Employee{}, shared.ErrNotFound
	}
	return *e, nil
}

func (m *mockRepo) GetEmployeeByUsername(_ context.Context, username string) (Employee, error) {
	for _, e := range m.employees {
		if e.Live() && strings.EqualFold(e.Username, username) {
			return *e, nil
		}
	}
	return Employee{}, shared.ErrNotFound
}

func (m *mockRepo) CreateEmployee(_ context.Context, e Employee, stamp lifecycle.Stamp) (Employee, error) {
	for _, other := range m.employees {
		if other.Live() && strings.EqualFold(other.Username, e.Username) {
			return Employee{}, shared.ErrDuplicate
		}
	}
	e.ID = m.nextID
	e.StampCreate(stamp)
	m.employees[e.ID] = &e
	m.nextID++
	return e, nil
}

func (m *mockRepo) UpdateEmployee(_ context.Context, e Employee, stamp lifecycle.Stamp) (Employee, error) {
	stored, ok := m.employees[e.ID]
	if !ok || !stored.Live() {
		return Employee{}, shared.ErrNotFound
	}
	stored.FirstName, stored.LastName = e.FirstName, e.LastName
	stored.Email, stored.Department, stored.Title = e.Email, e.Department, e.Title
	stored.StampModify(stamp)
	return *stored, nil
}

func (m *mockRepo) SoftDeleteEmployee(_ context.Context, id int64, stamp lifecycle.Stamp) error {
	e, ok := m.employees[id]
	if !ok || !e.Live() {
		return shared.ErrNotFound
	}
	return e.SoftDelete(stamp)
}

type stubClient struct {
	people map[string]Person
	hits   []Person
}

func (c *stubClient) Search(_ context.Context, _ string) ([]Person, error) {
	return c.hits, nil
}

func (c *stubClient) Lookup(_ context.Context, username string) (Person, error) {
	p, ok := c.people[username]
	if !ok {
		return Person{}, shared.ErrNotFound
	}
	return p, nil
}

func TestImportPerson(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	e, err := svc.ImportPerson(context.Background(), 1, Person{
		Username: "JDoe", FirstName: "Jane", LastName: "Doe", Email: "jdoe@example.edu",
	})
	require.NoError(t, err)
	assert.Equal(t, "jdoe", e.Username)
	assert.Equal(t, int64(1), e.CreatedBy)
}

func TestImportPersonIdempotent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	first, err := svc.ImportPerson(context.Background(), 1, Person{Username: "jdoe", LastName: "Doe"})
	require.NoError(t, err)

	again, err := svc.ImportPerson(context.Background(), 1, Person{Username: "JDOE", LastName: "Doe"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, repo.employees, 1)
}

func TestSearchExternalWithoutClient(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)

	_, err := svc.SearchExternal(context.Background(), "doe")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestSearchExternalEmptyTerm(t *testing.T) {
	svc := NewService(newMockRepo(), &stubClient{}, nil)

	_, err := svc.SearchExternal(context.Background(), "   ")
	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListEmployeesSearchesWhenTermGiven(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.ImportPerson(context.Background(), 1, Person{Username: "jdoe", LastName: "Doe"})
	require.NoError(t, err)
	_, err = svc.ImportPerson(context.Background(), 1, Person{Username: "bsmith", LastName: "Smith"})
	require.NoError(t, err)

	hits, err := svc.ListEmployees(context.Background(), shared.ListFilters{Search: "doe"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "jdoe", hits[0].Username)
}

func TestSyncFromDirectory(t *testing.T) {
	repo := newMockRepo()
	client := &stubClient{people: map[string]Person{
		"jdoe": {Username: "jdoe", FirstName: "Jane", LastName: "Doe", Title: "Professor"},
	}}
	svc := NewService(repo, client, nil)

	_, err := svc.ImportPerson(context.Background(), 1, Person{Username: "jdoe", FirstName: "Jane", LastName: "Doe", Title: "Lecturer"})
	require.NoError(t, err)
	// Someone the directory no longer knows stays untouched.
	_, err = svc.ImportPerson(context.Background(), 1, Person{Username: "gone", LastName: "Left"})
	require.NoError(t, err)

	updated, err := svc.SyncFromDirectory(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	e, err := repo.GetEmployeeByUsername(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Professor", e.Title)

	left, err := repo.GetEmployeeByUsername(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, "Left", left.LastName)
}
