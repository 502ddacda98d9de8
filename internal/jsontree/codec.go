package jsontree

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// prettyOptions mirror JSON.stringify(v, null, 2) closely enough for display,
// while keeping short arrays on one line.
var prettyOptions = &pretty.Options{Width: 80, Indent: "  "}

// Parse decodes a single JSON value. Leading and trailing whitespace is
// allowed; anything else after the value is a syntax error.
func Parse(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("jsontree: parse: empty input")
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("jsontree: parse: invalid JSON")
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseString is Parse for strings.
func ParseString(s string) (*Node, error) {
	return Parse([]byte(s))
}

// fromResult converts a validated gjson result. ForEach visits object
// members in source order, which is what preserves insertion order.
func fromResult(r gjson.Result) *Node {
	switch r.Type {
	case gjson.Null:
		return Null()
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(r.Raw)
	case gjson.String:
		return String(r.Str)
	}
	if r.IsArray() {
		arr := Array()
		r.ForEach(func(_, v gjson.Result) bool {
			arr.items = append(arr.items, fromResult(v))
			return true
		})
		return arr
	}
	obj := Object()
	r.ForEach(func(k, v gjson.Result) bool {
		obj.Put(k.Str, fromResult(v))
		return true
	})
	return obj
}

// MarshalJSON renders n as compact JSON with object keys in insertion order.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	return n.appendJSON(nil), nil
}

// UnmarshalJSON replaces n with the decoded value.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// Pretty renders n as indented JSON followed by a newline.
func (n *Node) Pretty() []byte {
	if n == nil {
		return []byte("undefined\n")
	}
	return pretty.PrettyOptions(n.appendJSON(nil), prettyOptions)
}

// Display renders n for a table cell: strings verbatim, everything else as
// compact JSON.
func (n *Node) Display() string {
	if n != nil && n.kind == KindString {
		return n.text
	}
	return n.String()
}

func (n *Node) appendJSON(dst []byte) []byte {
	switch n.kind {
	case KindNull:
		return append(dst, "null"...)
	case KindBool:
		if n.flag {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case KindNumber:
		return append(dst, n.text...)
	case KindString:
		return appendString(dst, n.text)
	case KindArray:
		dst = append(dst, '[')
		for i, it := range n.items {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = it.appendJSON(dst)
		}
		return append(dst, ']')
	case KindObject:
		dst = append(dst, '{')
		for i, k := range n.keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendString(dst, k)
			dst = append(dst, ':')
			dst = n.fields[k].appendJSON(dst)
		}
		return append(dst, '}')
	}
	return dst
}

func appendString(dst []byte, s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// Encoding a Go string cannot fail.
		return append(dst, `""`...)
	}
	return append(dst, bytes.TrimRight(buf.Bytes(), "\n")...)
}
