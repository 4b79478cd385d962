package directory

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service handles employee directory logic. The directory client is
// optional; without one, live AD search is simply unavailable.
type Service struct {
	repo   RepositoryPort
	client Client
	audit  *audit.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, client Client, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, client: client, audit: auditLogger}
}

// ErrDirectoryUnavailable signals that no external directory is configured.
var ErrDirectoryUnavailable = errors.New("directory: external directory not configured")

// ListEmployees returns live employee records.
func (s *Service) ListEmployees(ctx context.Context, filters shared.ListFilters) ([]Employee, error) {
	if term := strings.TrimSpace(filters.Search); term != "" {
		return s.repo.SearchEmployees(ctx, term)
	}
	return s.repo.ListEmployees(ctx, filters)
}

// GetEmployee fetches a single live record.
func (s *Service) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// SearchExternal queries the institutional directory. Callers must hold
// the AD search permission; this is enforced at the route.
func (s *Service) SearchExternal(ctx context.Context, term string) ([]Person, error) {
	if s.client == nil {
		return nil, ErrDirectoryUnavailable
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, shared.NewValidationError("q", "a search term is required")
	}
	return s.client.Search(ctx, term)
}

// ImportPerson materializes a directory hit as a local employee record. An
// existing live record for the username is returned as-is.
func (s *Service) ImportPerson(ctx context.Context, actorID int64, p Person) (Employee, error) {
	p.Username = strings.TrimSpace(strings.ToLower(p.Username))
	if p.Username == "" {
		return Employee{}, shared.NewValidationError("username", "username is required")
	}
	existing, err := s.repo.GetEmployeeByUsername(ctx, p.Username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Employee{}, err
	}
	stamp := lifecycle.NewStamp(actorID)
	e, err := s.repo.CreateEmployee(ctx, Employee{
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Department: p.Department,
		Title:      p.Title,
	}, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Employee{}, &shared.DuplicateError{Entity: "employee", Key: p.Username}
		}
		return Employee{}, err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "employee.import", Entity: "employee",
		EntityID: strconv.FormatInt(e.ID, 10),
		Meta:     map[string]any{"username": e.Username}, At: stamp.At,
	})
	return e, nil
}

// UpdateEmployee edits a live record.
func (s *Service) UpdateEmployee(ctx context.Context, actorID int64, e Employee) (Employee, error) {
	if strings.TrimSpace(e.LastName) == "" {
		return Employee{}, shared.NewValidationError("last_name", "last name is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	updated, err := s.repo.UpdateEmployee(ctx, e, stamp)
	if err != nil {
		return Employee{}, err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "employee.update", Entity: "employee",
		EntityID: strconv.FormatInt(updated.ID, 10), At: stamp.At,
	})
	return updated, nil
}

// RemoveEmployee soft-deletes a record. History referencing the employee
// keeps its rows; only the live listing loses the person.
func (s *Service) RemoveEmployee(ctx context.Context, actorID, id int64) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteEmployee(ctx, id, stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "employee.delete", Entity: "employee",
		EntityID: strconv.FormatInt(id, 10), At: stamp.At,
	})
	return nil
}

// SyncFromDirectory refreshes local employee fields from the external
// directory. Used by the background sync job; people missing from the
// directory are left alone so history is never lost on a flaky sync.
func (s *Service) SyncFromDirectory(ctx context.Context, actorID int64) (int, error) {
	if s.client == nil {
		return 0, ErrDirectoryUnavailable
	}
	employees, err := s.repo.ListEmployees(ctx, shared.ListFilters{Limit: 10000})
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, e := range employees {
		p, err := s.client.Lookup(ctx, e.Username)
		if err != nil {
			continue
		}
		if p.Email == e.Email && p.Department == e.Department && p.Title == e.Title &&
			p.FirstName == e.FirstName && p.LastName == e.LastName {
			continue
		}
		e.FirstName, e.LastName, e.Email, e.Department, e.Title = p.FirstName, p.LastName, p.Email, p.Department, p.Title
		if _, err := s.repo.UpdateEmployee(ctx, e, lifecycle.NewStamp(actorID)); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
