// Package pathutil expands user-supplied file paths from config and flags.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces a leading "~" or "~/" with $HOME. "~user" forms and
// paths without a tilde are returned unchanged, as is everything when $HOME
// is unset.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := os.Getenv("HOME")
	if home == "" {
		return path
	}
	return home + path[1:]
}

// Resolve expands a tilde in p and joins relative results onto base. An
// empty p stays empty; an empty base leaves relative paths relative.
func Resolve(base, p string) string {
	if p == "" {
		return ""
	}
	p = ExpandTilde(p)
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
