package app

import (
	"log"
	"mime"
)

// Some minimal container images ship without /etc/mime.types; register the
// types the app serves so exports and static assets are not sent as
// application/octet-stream.
func init() {
	ensureMimeType(".css", "text/css; charset=utf-8")
	ensureMimeType(".ics", "text/calendar; charset=utf-8")
	ensureMimeType(".csv", "text/csv; charset=utf-8")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
