// Package directory manages employee records mirrored from the institutional
// directory, plus the client boundary for live directory (LDAP/AD) search.
package directory

import "github.com/quorum-app/quorum/internal/lifecycle"

// Employee is a person known to the institution. Rows are kept in sync with
// the external directory but owned locally so committee history survives a
// person leaving.
type Employee struct {
	ID         int64
	Username   string
	FirstName  string
	LastName   string
	Email      string
	Department string
	Title      string
	lifecycle.Lifecycle
}

// FullName renders "First Last" for display.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Person is a raw directory search hit before any local record exists.
type Person struct {
	Username   string
	FirstName  string
	LastName   string
	Email      string
	Department string
	Title      string
}
