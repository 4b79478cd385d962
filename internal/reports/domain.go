// Package reports aggregates committee service hours against recorded
// attendance and exports the result as HTML, CSV, PDF and an ICS feed.
package reports

import "time"

// CommitteeHours summarizes one AYCommittee instance for an academic year:
// scheduled meeting time against the attendance actually recorded.
type CommitteeHours struct {
	AYCommitteeID  int64
	CommitteeName  string
	YearName       string
	MemberCount    int
	MeetingCount   int
	ScheduledHours float64
	AttendedHours  float64
}

// AttendanceRate reports attended over scheduled member-hours, zero when
// nothing was scheduled.
func (c CommitteeHours) AttendanceRate() float64 {
	scheduled := c.ScheduledHours * float64(c.MemberCount)
	if scheduled == 0 {
		return 0
	}
	return c.AttendedHours / scheduled
}

// RatePercent is the attendance rate scaled for display.
func (c CommitteeHours) RatePercent() float64 {
	return c.AttendanceRate() * 100
}

// MemberHours summarizes one member's attendance on one instance.
type MemberHours struct {
	MemberID      int64
	EmployeeName  string
	MeetingsHeld  int
	MeetingsSeen  int
	AttendedHours float64
}

// HoursReport is the full aggregation for one academic year.
type HoursReport struct {
	YearID      int64
	YearName    string
	GeneratedAt time.Time
	Committees  []CommitteeHours
}
