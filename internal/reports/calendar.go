package reports

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/quorum-app/quorum/internal/meetings"
)

const icsTimeLayout = "20060102T150405Z"

// WriteCalendar emits an ICS feed of the given meetings. Lines use CRLF
// endings as RFC 5545 requires.
func WriteCalendar(w io.Writer, items []meetings.Meeting, now time.Time) error {
	var b strings.Builder
	line := func(s string) { b.WriteString(s + "\r\n") }

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//Quorum//Committee Tracker//EN")
	line("CALSCALE:GREGORIAN")
	for _, m := range items {
		line("BEGIN:VEVENT")
		line(fmt.Sprintf("UID:meeting-%d@quorum", m.ID))
		line("DTSTAMP:" + now.UTC().Format(icsTimeLayout))
		line("DTSTART:" + m.StartsAt.UTC().Format(icsTimeLayout))
		line("DTEND:" + m.EndsAt.UTC().Format(icsTimeLayout))
		line("SUMMARY:" + escapeICS(m.Title))
		if m.Location != "" {
			line("LOCATION:" + escapeICS(m.Location))
		}
		if m.Notes != "" {
			line("DESCRIPTION:" + escapeICS(m.Notes))
		}
		line("END:VEVENT")
	}
	line("END:VCALENDAR")

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeICS(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
		"\r", "",
	)
	return r.Replace(s)
}
