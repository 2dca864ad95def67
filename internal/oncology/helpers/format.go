package helpers

import "strings"

// Section renders a labelled block such as "[Imaging Insights]:\n...".
func Section(label, body string) string {
	return "[" + label + "]:\n" + body
}

// JoinSections joins rendered sections with a blank line, skipping empty ones.
func JoinSections(sections ...string) string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

// ContainsAny reports whether text contains any of the needles, ignoring case.
func ContainsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
