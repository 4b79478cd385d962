// Package members manages committee membership: who sits on which
// AYCommittee instance, in what member role, and the promotion of employees
// into system identities the first time they are seated.
package members

import "github.com/quorum-app/quorum/internal/lifecycle"

// MemberRole names a seat type on a committee (chair, member, ex officio).
type MemberRole struct {
	ID   int64
	Name string
	lifecycle.Lifecycle
}

// Member seats one employee on one AYCommittee instance. An employee holds
// at most one live seat per instance.
type Member struct {
	ID            int64
	AYCommitteeID int64
	EmployeeID    int64
	EmployeeName  string
	Username      string
	MemberRoleID  int64
	MemberRole    string
	lifecycle.Lifecycle
}
