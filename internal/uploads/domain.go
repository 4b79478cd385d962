// Package uploads manages documents attached to committee instances:
// metadata rows plus a uuid-keyed blob store on disk.
package uploads

import "github.com/quorum-app/quorum/internal/lifecycle"

// FileUpload is the metadata of one stored document. StorageKey is the
// opaque uuid the blob lives under; the original filename is display only.
type FileUpload struct {
	ID            int64
	AYCommitteeID int64
	FileName      string
	ContentType   string
	SizeBytes     int64
	StorageKey    string
	Description   string
	lifecycle.Lifecycle
}
