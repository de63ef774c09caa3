package commands

import (
	"strings"
	"time"
)

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinCommand(argv []string) string {
	return strings.Join(argv, " ")
}
