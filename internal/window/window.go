// Package window resolves the challenge date range from request parameters.
package window

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Window is a resolved challenge date range. Both dates are normalized
// YYYY-MM-DD strings and double as the cache key for the range.
type Window struct {
	Start string
	End   string
}

// Resolve normalizes an optionally supplied start/end date pair. A value that
// parses as YYYY-MM-DD is kept verbatim; anything else silently falls back to
// the default: the Monday of now's week for start, six days after now for
// end. Resolve never fails.
func Resolve(start, end string, now time.Time) Window {
	w := Window{}

	if t, err := time.Parse(dateLayout, start); err == nil {
		w.Start = t.Format(dateLayout)
	} else {
		monday := now.AddDate(0, 0, -mondayOffset(now))
		w.Start = monday.Format(dateLayout)
	}

	if t, err := time.Parse(dateLayout, end); err == nil {
		w.End = t.Format(dateLayout)
	} else {
		w.End = now.AddDate(0, 0, 6).Format(dateLayout)
	}

	return w
}

// mondayOffset is the number of days since the most recent Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// CacheKey returns a deterministic cache key for the window.
func (w Window) CacheKey() string {
	return fmt.Sprintf("summary_%s_to_%s",
		strings.ReplaceAll(w.Start, "-", ""),
		strings.ReplaceAll(w.End, "-", ""))
}

// Bounds returns the activity fetch bounds: after is the start of the start
// date and before is the start of the day after the end date, so activities
// anywhere on the end date itself are included.
func (w Window) Bounds() (after, before time.Time) {
	after, _ = time.Parse(dateLayout, w.Start)
	end, _ := time.Parse(dateLayout, w.End)
	return after, end.AddDate(0, 0, 1)
}

// Query returns the window as URL query parameters for carrying the range
// through redirects.
func (w Window) Query() string {
	v := url.Values{}
	v.Set("start_date", w.Start)
	v.Set("end_date", w.End)
	return v.Encode()
}
