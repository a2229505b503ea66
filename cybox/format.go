package cybox

import (
	"fmt"
	"time"
)

// Status cards and timestamps render in the server's home timezone.
var displayZone = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// FormatUptime humanizes a server uptime in seconds.
func FormatUptime(seconds uint64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d sec", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d min", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%d uur", seconds/3600)
	default:
		return fmt.Sprintf("%d dagen", seconds/86400)
	}
}

// FormatAtPrefix renders an optional frame timestamp (Unix epoch
// milliseconds) as a "[HH:MM:SS] " prefix, or nothing when absent.
func FormatAtPrefix(at *int64) string {
	if at == nil {
		return ""
	}
	t := time.UnixMilli(*at).In(displayZone)
	return fmt.Sprintf("[%s] ", t.Format("15:04:05"))
}
