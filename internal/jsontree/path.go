package jsontree

import (
	"strconv"
	"strings"
)

// Segment is one step of a Path: an object key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns an object-key segment.
func Key(k string) Segment { return Segment{key: k} }

// Index returns an array-index segment.
func Index(i int) Segment { return Segment{index: i, isIndex: true} }

// IsIndex reports whether s addresses an array item.
func (s Segment) IsIndex() bool { return s.isIndex }

// Key returns the object key; empty for index segments.
func (s Segment) Key() string { return s.key }

// Index returns the array index; zero for key segments.
func (s Segment) Index() int { return s.index }

// String returns the dot-notation form of the segment.
func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// Path addresses a value inside a tree. The empty path is the root.
type Path []Segment

// ParsePath converts dot notation into a Path. Segments made only of ASCII
// digits become indices; everything else is a key. The empty string is the
// root path.
//
// Dot notation cannot tell an all-digit object key from an index, nor
// represent keys containing dots. Paths built from trees via Flatten keep
// the exact segment kinds.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		if isDigits(part) {
			if n, err := strconv.Atoi(part); err == nil {
				p[i] = Index(n)
				continue
			}
		}
		p[i] = Key(part)
	}
	return p
}

// String returns the dot-notation form of p.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// ID returns a string that identifies p without the dot-notation
// ambiguity: index segments are written as "[n]", keys as quoted strings.
func (p Path) ID() string {
	var b strings.Builder
	for _, s := range p {
		if s.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
			continue
		}
		b.WriteString(strconv.Quote(s.key))
	}
	return b.String()
}

// Child returns a new path with seg appended. p is never modified.
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Indices returns the index segments of p in order.
func (p Path) Indices() []int {
	var out []int
	for _, s := range p {
		if s.isIndex {
			out = append(out, s.index)
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
