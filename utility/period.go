package utility

import (
	"fmt"
	"time"
)

// TimeAgo renders the age of t in its largest whole unit, for status replies.
func TimeAgo(t time.Time) string {
	age := time.Since(t).Round(time.Minute)
	if age < 0 {
		age = -age
	}
	switch minutes := int(age.Minutes()); {
	case minutes == 0:
		return "just now"
	case minutes < 60:
		return ago(minutes, "minute")
	case minutes < 24*60:
		return ago(minutes/60, "hour")
	default:
		return ago(minutes/(24*60), "day")
	}
}

func ago(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
