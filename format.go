package diffql

import "strconv"

// formatFloat renders a double literal's textual form the way it would have
// appeared in source text, trimming unnecessary trailing zeros.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
