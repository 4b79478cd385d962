package directory

import "context"

// Client is the external directory boundary. The production build wires an
// LDAP implementation; everything in this package only depends on the
// interface.
type Client interface {
	// Search queries the directory for people matching the term.
	Search(ctx context.Context, term string) ([]Person, error)
	// Lookup fetches one person by exact username.
	Lookup(ctx context.Context, username string) (Person, error)
}
