package validators

import "strings"

// SanitizeString trims whitespace and truncates to maxLen when positive.
// Used for free-text fields such as checkout memos before they reach
// provider metadata.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
