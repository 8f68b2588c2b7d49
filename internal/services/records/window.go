package records

import (
	"math"
	"time"

	"github.com/rzbill/medtrail/internal/storeerr"
)

const day = 24 * time.Hour

// maxDays keeps days*24h inside time.Duration.
const maxDays = int(math.MaxInt64 / int64(day))

// WindowBounds maps a "last N days" request onto inclusive scan bounds
// [now - days*24h, now] at millisecond precision. days == 0 gives [now, now].
func WindowBounds(now time.Time, days int) (lower, upper time.Time, err error) {
	if days < 0 {
		return time.Time{}, time.Time{}, storeerr.InvalidArgument("windowDays must be >= 0, got %d", days)
	}
	if days > maxDays {
		return time.Time{}, time.Time{}, storeerr.InvalidArgument("windowDays too large: %d", days)
	}
	upper = now.Truncate(time.Millisecond)
	lower = upper.Add(-time.Duration(days) * day)
	return lower, upper, nil
}
