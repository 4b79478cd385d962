// Package lifecycle implements the uniform create/modify/soft-delete contract
// shared by every audited entity. Entities embed Lifecycle; services stamp it
// through the operations here instead of touching the fields directly.
package lifecycle

import (
	"errors"
	"time"
)

var (
	// ErrAlreadyDeleted indicates a soft delete on an already deleted entity.
	ErrAlreadyDeleted = errors.New("lifecycle: already deleted")
	// ErrNotDeleted indicates a restore on an entity that is not deleted.
	ErrNotDeleted = errors.New("lifecycle: not deleted")
)

// Stamp pairs the acting user with a single capture of the clock. One Stamp
// is taken at the start of an operation and reused for every row it touches,
// so a cascade never shows mixed actors or timestamps.
type Stamp struct {
	At time.Time
	By int64
}

// NewStamp captures the current UTC time for the given actor.
func NewStamp(actorID int64) Stamp {
	return Stamp{At: time.Now().UTC(), By: actorID}
}

// Lifecycle is the audit quadruple embedded in every persisted entity:
// create stamp, modify stamp, and the soft-delete flag with its own stamp.
type Lifecycle struct {
	CreatedAt time.Time
	CreatedBy int64
	UpdatedAt time.Time
	UpdatedBy int64
	Deleted   bool
	DeletedAt *time.Time
	DeletedBy *int64
}

// StampCreate initialises the audit fields. Invoked exactly once, when the
// entity is first persisted.
func (l *Lifecycle) StampCreate(s Stamp) {
	l.CreatedAt = s.At
	l.CreatedBy = s.By
	l.UpdatedAt = s.At
	l.UpdatedBy = s.By
	l.Deleted = false
	l.DeletedAt = nil
	l.DeletedBy = nil
}

// StampModify records the actor and time of a persisted change.
func (l *Lifecycle) StampModify(s Stamp) {
	l.UpdatedAt = s.At
	l.UpdatedBy = s.By
}

// SoftDelete marks the entity deleted. The row stays in storage and drops
// out of every default query.
func (l *Lifecycle) SoftDelete(s Stamp) error {
	if l.Deleted {
		return ErrAlreadyDeleted
	}
	l.Deleted = true
	at := s.At
	by := s.By
	l.DeletedAt = &at
	l.DeletedBy = &by
	return nil
}

// Restore clears the deleted flag and re-stamps the create fields. Only a
// subset of entity types expose this through their service.
func (l *Lifecycle) Restore(s Stamp) error {
	if !l.Deleted {
		return ErrNotDeleted
	}
	l.Deleted = false
	l.DeletedAt = nil
	l.DeletedBy = nil
	l.CreatedAt = s.At
	l.CreatedBy = s.By
	l.UpdatedAt = s.At
	l.UpdatedBy = s.By
	return nil
}

// Live reports whether the entity is visible to default queries.
func (l Lifecycle) Live() bool {
	return !l.Deleted
}
