package utils

// Truncate returns s cut to at most maxRunes runes with "..." appended when
// cut. Counting runes rather than bytes keeps multi-byte Bengali text intact.
// A zero or negative maxRunes returns s unchanged.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
