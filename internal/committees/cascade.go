package committees

import (
	"context"

	"github.com/quorum-app/quorum/internal/lifecycle"
)

// Cascader soft-deletes every live dependent of an AYCommittee instance in
// one feature area and reports how many rows it touched. Members, meetings
// (which fold in their attendance rows), and uploads each register one.
// All cascaders of a delete receive the same stamp.
type Cascader interface {
	Name() string
	SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error)
}
