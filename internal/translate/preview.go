package translate

// DefaultPreviewLength is the number of runes kept in progress previews.
const DefaultPreviewLength = 100

// Preview truncates s to at most n runes, appending "..." when cut.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
