package listservs

import "context"

// GroupsClient is the hosted groups provider boundary (Google Cloud
// Identity in production). Nil means changes stay local only.
type GroupsClient interface {
	EnsureGroup(ctx context.Context, address, name string) error
	AddMember(ctx context.Context, groupAddress, memberEmail string) error
	RemoveMember(ctx context.Context, groupAddress, memberEmail string) error
}
