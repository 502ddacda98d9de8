// Package extract pulls a JSON value out of free-form model output.
//
// Model responses wrap the JSON we want in prose, markdown code fences or
// both. JSON tries, in order: the first bracket-balanced value, everything
// from the first '{', everything from the first '['. It never fails loudly;
// a nil result means nothing usable was found.
package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/Fuabioo/studyspec/internal/jsontree"
)

// ErrNoJSON is what callers report when JSON returns nil.
var ErrNoJSON = errors.New("could not parse response")

var (
	leadingFence  = regexp.MustCompile("^\\s*```[\\w-]*\\s*")
	trailingFence = regexp.MustCompile("\\s*```+\\s*$")
)

// StripFences removes one leading code fence (with optional language tag)
// and one trailing fence, then trims surrounding whitespace.
func StripFences(text string) string {
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// JSON returns the first parseable JSON object or array found in text, or
// nil when every strategy fails.
func JSON(text string) *jsontree.Node {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if candidate, ok := FirstBalanced(StripFences(text)); ok {
		if n, err := jsontree.ParseString(candidate); err == nil {
			return n
		}
	}

	if i := strings.IndexByte(text, '{'); i >= 0 {
		if n, err := jsontree.ParseString(text[i:]); err == nil {
			return n
		}
	}

	if i := strings.IndexByte(text, '['); i >= 0 {
		if n, err := jsontree.ParseString(text[i:]); err == nil {
			return n
		}
	}

	return nil
}

// FirstBalanced returns the substring from the first '{' or '[' up to the
// bracket that brings nesting back to zero. Brackets inside string literals,
// including escaped quotes, are ignored. The closing bracket must match the
// opening one.
func FirstBalanced(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", false
	}
	open := s[start]

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				if (open == '{' && c == '}') || (open == '[' && c == ']') {
					return s[start : i+1], true
				}
				return "", false
			}
		}
	}
	return "", false
}
