package agentloop

import (
	"fmt"
	"unicode/utf8"
)

// Preview returns the first n runes of s followed by "...". Strings of at
// most n runes are returned unchanged.
func Preview(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// TruncateOutput keeps the first and last maxChars/2 runes of output and
// replaces the middle with a notice for the model. maxChars <= 0 disables
// truncation.
func TruncateOutput(output string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(output) <= maxChars {
		return output
	}
	runes := []rune(output)
	head := maxChars / 2
	tail := maxChars - head
	notice := fmt.Sprintf("\n\n[output truncated: %d characters omitted from the middle; "+
		"narrow the request to see them]\n\n", len(runes)-maxChars)
	return string(runes[:head]) + notice + string(runes[len(runes)-tail:])
}
