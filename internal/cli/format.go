package cli

import (
	"fmt"
	"time"
)

// formatBytes converts bytes to human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatBool converts bool to Yes/No
func formatBool(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

// maskSecret masks sensitive values, showing only last 4 characters
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// formatExpiry renders a token expiry relative to now
func formatExpiry(expiry, now time.Time) string {
	if expiry.IsZero() {
		return "never"
	}
	d := expiry.Sub(now).Round(time.Second)
	if d <= 0 {
		return fmt.Sprintf("%s (expired %s ago)", expiry.Format(time.RFC3339), -d)
	}
	return fmt.Sprintf("%s (in %s)", expiry.Format(time.RFC3339), d)
}
