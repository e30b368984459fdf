package retention

import (
	"regexp"
	"time"

	"github.com/relicmirror/relicmirror/internal/buildlist"
)

// buildNumberDate matches a leading calendar date in a build number, e.g.
// "2024-05-17" or "2024-05-17-v2".
var buildNumberDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// ResolveDate extracts the creation instant of a build.
//
// created_at wins when it parses as RFC 3339. Otherwise a leading
// YYYY-MM-DD in the build number is taken as UTC midnight of that day.
// Builds where neither works report ok=false and are never aged out.
func ResolveDate(rec buildlist.Record) (time.Time, bool) {
	if rec.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, rec.CreatedAt); err == nil {
			return t.UTC(), true
		}
	}

	if m := buildNumberDate.FindString(rec.BuildNumber); m != "" {
		// time.Parse rejects impossible dates like 2024-13-40.
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
