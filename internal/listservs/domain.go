// Package listservs manages mailing lists and their contact entries, with a
// client boundary to the hosted groups provider. Listservs are the one
// entity family that supports restoring a soft-deleted row.
package listservs

import "github.com/quorum-app/quorum/internal/lifecycle"

// Listserv is one mailing list.
type Listserv struct {
	ID          int64
	Name        string
	Address     string
	Description string
	lifecycle.Lifecycle
}

// Contact is one subscriber entry on a listserv.
type Contact struct {
	ID         int64
	ListservID int64
	Name       string
	Email      string
	lifecycle.Lifecycle
}
