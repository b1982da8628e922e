// Package presenter turns StudySync models into human-centered rows for
// the styled and Markdown renderers. JSON output bypasses it and carries
// the models unchanged.
package presenter

import (
	"fmt"
	"strings"
	"time"
)

// RelativeTime formats t relative to now ("3 hours ago"). Anything older
// than a week, or in the future, falls back to the locale date.
func (l Locale) RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return l.FormatDate(t)
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return plural(days, "day")
	default:
		return l.FormatDate(t)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatBytes renders a byte count with a binary unit ("1.5 MB").
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// StatusLabel lowercases a backend status and marks terminal payment states.
func StatusLabel(status string) string {
	switch strings.ToUpper(status) {
	case "PAID", "APPROVED", "ACTIVE":
		return "✓ " + strings.ToLower(status)
	case "CANCELLED", "EXPIRED", "FAILED", "REJECTED":
		return "✗ " + strings.ToLower(status)
	case "":
		return ""
	default:
		return strings.ToLower(status)
	}
}

// Truncate shortens s to max runes, ending with an ellipsis.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
