// Package meetings manages scheduled meetings of committee instances and
// per-member attendance.
package meetings

import (
	"time"

	"github.com/quorum-app/quorum/internal/lifecycle"
)

// Meeting is one scheduled session of an AYCommittee instance.
type Meeting struct {
	ID            int64
	AYCommitteeID int64
	Title         string
	Location      string
	StartsAt      time.Time
	EndsAt        time.Time
	Notes         string
	lifecycle.Lifecycle
}

// Duration reports the scheduled length.
func (m Meeting) Duration() time.Duration {
	return m.EndsAt.Sub(m.StartsAt)
}

// Attendance marks one member's presence at one meeting. A row exists only
// once per (meeting, member); toggling flips Present in place.
type Attendance struct {
	ID         int64
	MeetingID  int64
	MemberID   int64
	MemberName string
	Present    bool
	lifecycle.Lifecycle
}
