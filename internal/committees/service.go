package committees

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service handles committee tracker business logic.
type Service struct {
	repo      RepositoryPort
	cascaders []Cascader
	audit     *audit.Logger
}

// NewService builds a Service instance. Cascaders are the feature areas
// that soft-delete alongside an AYCommittee instance.
func NewService(repo RepositoryPort, auditLogger *audit.Logger, cascaders ...Cascader) *Service {
	return &Service{repo: repo, cascaders: cascaders, audit: auditLogger}
}

// ListCommitteeTypes returns live committee types.
func (s *Service) ListCommitteeTypes(ctx context.Context) ([]CommitteeType, error) {
	return s.repo.ListCommitteeTypes(ctx)
}

// CreateCommitteeType adds a classification type.
func (s *Service) CreateCommitteeType(ctx context.Context, actorID int64, name string) (CommitteeType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CommitteeType{}, shared.NewValidationError("name", "type name is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	t, err := s.repo.CreateCommitteeType(ctx, name, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return CommitteeType{}, &shared.DuplicateError{Entity: "committee type", Key: name}
		}
		return CommitteeType{}, err
	}
	s.record(ctx, actorID, "committee_type.create", "committee_type", t.ID, stamp, map[string]any{"name": t.Name})
	return t, nil
}

// DeleteCommitteeType soft-deletes a type unless a live committee still
// uses it.
func (s *Service) DeleteCommitteeType(ctx context.Context, actorID, id int64) error {
	inUse, err := s.repo.CountLiveCommitteesWithType(ctx, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return &shared.GuardError{Entity: "committee type", Dependents: "committees", Count: inUse}
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteCommitteeType(ctx, id, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "committee_type.delete", "committee_type", id, stamp, nil)
	return nil
}

// ListFrequencyTypes returns live meeting frequencies.
func (s *Service) ListFrequencyTypes(ctx context.Context) ([]FrequencyType, error) {
	return s.repo.ListFrequencyTypes(ctx)
}

// CreateFrequencyType adds a meeting frequency.
func (s *Service) CreateFrequencyType(ctx context.Context, actorID int64, name string) (FrequencyType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return FrequencyType{}, shared.NewValidationError("name", "frequency name is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	t, err := s.repo.CreateFrequencyType(ctx, name, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return FrequencyType{}, &shared.DuplicateError{Entity: "frequency type", Key: name}
		}
		return FrequencyType{}, err
	}
	s.record(ctx, actorID, "frequency_type.create", "frequency_type", t.ID, stamp, map[string]any{"name": t.Name})
	return t, nil
}

// DeleteFrequencyType soft-deletes a frequency unless a live committee
// still uses it.
func (s *Service) DeleteFrequencyType(ctx context.Context, actorID, id int64) error {
	inUse, err := s.repo.CountLiveCommitteesWithFrequency(ctx, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return &shared.GuardError{Entity: "frequency type", Dependents: "committees", Count: inUse}
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteFrequencyType(ctx, id, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "frequency_type.delete", "frequency_type", id, stamp, nil)
	return nil
}

// ListCommittees returns live committees.
func (s *Service) ListCommittees(ctx context.Context) ([]Committee, error) {
	return s.repo.ListCommittees(ctx)
}

// GetCommittee fetches one live committee.
func (s *Service) GetCommittee(ctx context.Context, id int64) (Committee, error) {
	return s.repo.GetCommittee(ctx, id)
}

// CreateCommittee adds a committee definition. Live names are unique.
func (s *Service) CreateCommittee(ctx context.Context, actorID int64, c Committee) (Committee, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Committee{}, shared.NewValidationError("name", "committee name is required")
	}
	if c.TypeID == 0 || c.FrequencyID == 0 {
		return Committee{}, shared.NewValidationError("type_id", "type and frequency are required")
	}
	stamp := lifecycle.NewStamp(actorID)
	created, err := s.repo.CreateCommittee(ctx, c, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Committee{}, &shared.DuplicateError{Entity: "committee", Key: c.Name}
		}
		return Committee{}, err
	}
	s.record(ctx, actorID, "committee.create", "committee", created.ID, stamp, map[string]any{"name": created.Name})
	return created, nil
}

// UpdateCommittee edits a committee definition.
func (s *Service) UpdateCommittee(ctx context.Context, actorID int64, c Committee) (Committee, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Committee{}, shared.NewValidationError("name", "committee name is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	updated, err := s.repo.UpdateCommittee(ctx, c, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Committee{}, &shared.DuplicateError{Entity: "committee", Key: c.Name}
		}
		return Committee{}, err
	}
	s.record(ctx, actorID, "committee.update", "committee", updated.ID, stamp, nil)
	return updated, nil
}

// DeleteCommittee soft-deletes a committee unless live year instances
// still reference it.
func (s *Service) DeleteCommittee(ctx context.Context, actorID, id int64) error {
	if _, err := s.repo.GetCommittee(ctx, id); err != nil {
		return err
	}
	instances, err := s.repo.CountLiveInstancesForCommittee(ctx, id)
	if err != nil {
		return err
	}
	if instances > 0 {
		return &shared.GuardError{Entity: "committee", Dependents: "year instances", Count: instances}
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteCommittee(ctx, id, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "committee.delete", "committee", id, stamp, nil)
	return nil
}

// ListAcademicYears returns live years.
func (s *Service) ListAcademicYears(ctx context.Context) ([]AcademicYear, error) {
	return s.repo.ListAcademicYears(ctx)
}

// CreateAcademicYear adds a year. The end date must follow the start date
// and live names are unique.
func (s *Service) CreateAcademicYear(ctx context.Context, actorID int64, y AcademicYear) (AcademicYear, error) {
	y.Name = strings.TrimSpace(y.Name)
	if y.Name == "" {
		return AcademicYear{}, shared.NewValidationError("name", "year name is required")
	}
	if !y.EndDate.After(y.StartDate) {
		return AcademicYear{}, shared.NewValidationError("end_date", "end date must be after start date")
	}
	stamp := lifecycle.NewStamp(actorID)
	created, err := s.repo.CreateAcademicYear(ctx, y, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return AcademicYear{}, &shared.DuplicateError{Entity: "academic year", Key: y.Name}
		}
		return AcademicYear{}, err
	}
	s.record(ctx, actorID, "academic_year.create", "academic_year", created.ID, stamp, map[string]any{"name": created.Name})
	return created, nil
}

// DeleteAcademicYear soft-deletes a year unless live instances still
// reference it.
func (s *Service) DeleteAcademicYear(ctx context.Context, actorID, id int64) error {
	instances, err := s.repo.CountLiveInstancesForYear(ctx, id)
	if err != nil {
		return err
	}
	if instances > 0 {
		return &shared.GuardError{Entity: "academic year", Dependents: "year instances", Count: instances}
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteAcademicYear(ctx, id, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "academic_year.delete", "academic_year", id, stamp, nil)
	return nil
}

// ListInstancesForYear returns the live committee instances of a year.
func (s *Service) ListInstancesForYear(ctx context.Context, yearID int64) ([]AYCommittee, error) {
	return s.repo.ListInstancesForYear(ctx, yearID)
}

// GetInstance fetches one live instance.
func (s *Service) GetInstance(ctx context.Context, id int64) (AYCommittee, error) {
	return s.repo.GetInstance(ctx, id)
}

// CreateInstance instantiates a committee for a year. The (committee,
// year) pair may have at most one live instance.
func (s *Service) CreateInstance(ctx context.Context, actorID, committeeID, yearID int64, notes string) (AYCommittee, error) {
	committee, err := s.repo.GetCommittee(ctx, committeeID)
	if err != nil {
		return AYCommittee{}, err
	}
	year, err := s.repo.GetAcademicYear(ctx, yearID)
	if err != nil {
		return AYCommittee{}, err
	}
	stamp := lifecycle.NewStamp(actorID)
	instance, err := s.repo.CreateInstance(ctx, committeeID, yearID, strings.TrimSpace(notes), stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return AYCommittee{}, &shared.DuplicateError{Entity: "committee instance", Key: committee.Name + " / " + year.Name}
		}
		return AYCommittee{}, err
	}
	s.record(ctx, actorID, "ay_committee.create", "ay_committee", instance.ID, stamp,
		map[string]any{"committee": committee.Name, "year": year.Name})
	return instance, nil
}

// DeleteInstance soft-deletes an instance and cascades to every dependent
// feature area. The instance row and every cascaded row carry the same
// stamp, so the whole deletion reads as one event in the audit trail.
func (s *Service) DeleteInstance(ctx context.Context, actorID, id int64) (int, error) {
	if _, err := s.repo.GetInstance(ctx, id); err != nil {
		return 0, err
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteInstance(ctx, id, stamp); err != nil {
		return 0, err
	}
	cascaded := 0
	counts := make(map[string]any, len(s.cascaders))
	for _, c := range s.cascaders {
		n, err := c.SoftDeleteForAYCommittee(ctx, id, stamp)
		if err != nil {
			return cascaded, err
		}
		cascaded += n
		counts[c.Name()] = n
	}
	s.record(ctx, actorID, "ay_committee.delete", "ay_committee", id, stamp, counts)
	return cascaded, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action, entity string, entityID int64, stamp lifecycle.Stamp, meta map[string]any) {
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: action, Entity: entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta, At: stamp.At,
	})
}
