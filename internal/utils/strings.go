package utils

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/syncany/internal/ui"
)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// ParseKeyValues parses "key=value" pairs, as given to repeated -P flags.
// Values may contain '='; keys may not be empty or repeated.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	settings := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q, expected key=value", pair)
		}
		if _, exists := settings[key]; exists {
			return nil, fmt.Errorf("option %q given more than once", key)
		}
		settings[key] = value
	}
	return settings, nil
}

// MaskSecret returns a placeholder of the same rune length as s.
func MaskSecret(s string) string {
	return strings.Repeat("*", len([]rune(s)))
}
