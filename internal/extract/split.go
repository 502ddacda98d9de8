package extract

import "strings"

// Delimiter separates the spec block from the prose description in a
// text-to-spec response.
const Delimiter = "---"

// SplitResponse splits a text-to-spec response on the first line that
// holds only the delimiter. The left part is returned with code fences
// stripped, the right part trimmed. Without a delimiter line the whole text
// is the spec and the description is empty.
func SplitResponse(text string) (spec, description string) {
	text = strings.TrimSpace(text)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != Delimiter {
			continue
		}
		left := strings.Join(lines[:i], "\n")
		right := strings.Join(lines[i+1:], "\n")
		return StripFences(left), strings.TrimSpace(right)
	}
	return StripFences(text), ""
}
