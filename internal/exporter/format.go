package exporter

import (
	"strconv"
	"strings"
	"time"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatTime renders t as RFC 3339; the zero time is an empty cell
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// formatList joins multi-valued fields into one cell
func formatList(items []string) string {
	return strings.Join(items, "; ")
}
