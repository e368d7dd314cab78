package textutil

import "strings"

// SanitizeFileName folds input-derived text into file name territory. Letters,
// digits, hyphens, and underscores pass through unchanged; everything else
// becomes a hyphen. Case is preserved so RFCs stay recognizable in artifact
// names.
func SanitizeFileName(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, value)
}
