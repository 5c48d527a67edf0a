package util

import "strings"

const maskVisible = 4

// MaskKey keeps the first few characters of a key or secret for log
// correlation and hides the rest.
func MaskKey(v string) string {
	if len(v) <= maskVisible {
		return "***"
	}
	return v[:maskVisible] + "***"
}

// MaskSecret keeps two characters on each side, for CLI output.
func MaskSecret(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("*", len(v)-4) + v[len(v)-2:]
}
