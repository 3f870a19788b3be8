package retry

import (
	"net/http"
	"strconv"
	"time"
)

// retryAfter extracts a usable wait from a failed response's
// Retry-After header. Delta-seconds form takes priority over the
// HTTP-date form; a date in the past and anything unparsable fall back
// to the strategy delay (ok=false), so no negative wait is produced.
func retryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	if date, err := http.ParseTime(value); err == nil {
		d := date.Sub(now)
		if d < 0 {
			return 0, false
		}
		return d, true
	}

	return 0, false
}
