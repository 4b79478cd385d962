// Package committees manages the committee tracker core: committees, their
// classification types, academic years, and the per-year committee instances
// that members, meetings, and uploads hang off.
package committees

import (
	"time"

	"github.com/quorum-app/quorum/internal/lifecycle"
)

// CommitteeType classifies committees (standing, ad hoc, senate).
type CommitteeType struct {
	ID   int64
	Name string
	lifecycle.Lifecycle
}

// FrequencyType names how often a committee meets (weekly, monthly,
// per semester).
type FrequencyType struct {
	ID   int64
	Name string
	lifecycle.Lifecycle
}

// Committee is the year-independent definition. Live committee names are
// unique.
type Committee struct {
	ID            int64
	Name          string
	Description   string
	TypeID        int64
	TypeName      string
	FrequencyID   int64
	FrequencyName string
	lifecycle.Lifecycle
}

// AcademicYear is a named span like "2025-2026". Live names are unique.
type AcademicYear struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	lifecycle.Lifecycle
}

// AYCommittee instantiates a committee for one academic year. At most one
// live instance may exist per (committee, year) pair. Members, meetings, and
// file uploads attach here, and soft-deleting an instance cascades to all of
// them under a single stamp.
type AYCommittee struct {
	ID            int64
	CommitteeID   int64
	CommitteeName string
	YearID        int64
	YearName      string
	Notes         string
	lifecycle.Lifecycle
}
