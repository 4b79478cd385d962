// Package instruments tracks survey instrument requests submitted by
// committees, a plain audited entity with a small review workflow.
package instruments

import (
	"time"

	"github.com/quorum-app/quorum/internal/lifecycle"
)

// Request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// InstrumentRequest is one request for a survey instrument.
type InstrumentRequest struct {
	ID            int64
	Title         string
	Description   string
	RequesterID   int64
	RequesterName string
	Status        string
	NeededBy      *time.Time
	lifecycle.Lifecycle
}
