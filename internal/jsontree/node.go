// Package jsontree models JSON documents as an ordered tagged-variant tree
// and provides the path addressing used by the diff and merge engines.
package jsontree

import (
	"strconv"
)

// Kind identifies the variant held by a Node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Node is a JSON value. Objects preserve member insertion order.
//
// A nil *Node stands for "absent": a path that does not exist in a tree.
// JSON null is a non-nil Node of KindNull.
type Node struct {
	kind   Kind
	flag   bool
	text   string // number literal or string value
	items  []*Node
	keys   []string
	fields map[string]*Node
}

// Null returns a JSON null.
func Null() *Node { return &Node{kind: KindNull} }

// Bool returns a JSON boolean.
func Bool(b bool) *Node { return &Node{kind: KindBool, flag: b} }

// Number returns a JSON number holding the given literal. The literal is
// not validated; use Parse for untrusted input.
func Number(literal string) *Node { return &Node{kind: KindNumber, text: literal} }

// Int returns a JSON number for n.
func Int(n int64) *Node { return Number(strconv.FormatInt(n, 10)) }

// Float returns a JSON number for f using the shortest representation.
func Float(f float64) *Node { return Number(strconv.FormatFloat(f, 'g', -1, 64)) }

// String returns a JSON string.
func String(s string) *Node { return &Node{kind: KindString, text: s} }

// Array returns a JSON array holding items in order.
func Array(items ...*Node) *Node {
	out := make([]*Node, len(items))
	for i, it := range items {
		if it == nil {
			it = Null()
		}
		out[i] = it
	}
	return &Node{kind: KindArray, items: out}
}

// Object returns an empty JSON object. Members are added with Put.
func Object() *Node {
	return &Node{kind: KindObject, fields: map[string]*Node{}}
}

// Put sets key to v on an object node and returns the receiver so calls can
// be chained. An existing key keeps its position. A nil v is stored as JSON
// null. Put on a non-object is a no-op.
func (n *Node) Put(key string, v *Node) *Node {
	if n == nil || n.kind != KindObject {
		return n
	}
	if v == nil {
		v = Null()
	}
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = v
	return n
}

// Kind reports the node's variant. A nil node reports KindNull.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// IsContainer reports whether n is an array or an object.
func (n *Node) IsContainer() bool {
	return n != nil && (n.kind == KindArray || n.kind == KindObject)
}

// IsLeaf reports whether n is addressed as a single leaf when flattened:
// primitives, empty arrays and empty objects.
func (n *Node) IsLeaf() bool {
	if n == nil {
		return false
	}
	return !n.IsContainer() || n.Len() == 0
}

// BoolValue returns the value of a boolean node.
func (n *Node) BoolValue() bool { return n != nil && n.kind == KindBool && n.flag }

// Text returns the number literal or string value; empty for other kinds.
func (n *Node) Text() string {
	if n == nil || (n.kind != KindNumber && n.kind != KindString) {
		return ""
	}
	return n.text
}

// Float64 parses a number node.
func (n *Node) Float64() (float64, bool) {
	if n == nil || n.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Len returns the number of array items or object members.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.kind {
	case KindArray:
		return len(n.items)
	case KindObject:
		return len(n.keys)
	}
	return 0
}

// At returns the array item at i, or nil when out of range.
func (n *Node) At(i int) *Node {
	if n == nil || n.kind != KindArray || i < 0 || i >= len(n.items) {
		return nil
	}
	return n.items[i]
}

// Field returns the member stored under key, or nil when absent.
func (n *Node) Field(key string) *Node {
	if n == nil || n.kind != KindObject {
		return nil
	}
	return n.fields[key]
}

// Has reports whether an object node has key.
func (n *Node) Has(key string) bool {
	if n == nil || n.kind != KindObject {
		return false
	}
	_, ok := n.fields[key]
	return ok
}

// Keys returns the object's keys in insertion order.
func (n *Node) Keys() []string {
	if n == nil || n.kind != KindObject {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Items returns the array's items. The slice is a copy; the nodes are not.
func (n *Node) Items() []*Node {
	if n == nil || n.kind != KindArray {
		return nil
	}
	out := make([]*Node, len(n.items))
	copy(out, n.items)
	return out
}

// Clone returns a deep copy of n. Clone of nil is nil.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{kind: n.kind, flag: n.flag, text: n.text}
	switch n.kind {
	case KindArray:
		c.items = make([]*Node, len(n.items))
		for i, it := range n.items {
			c.items[i] = it.Clone()
		}
	case KindObject:
		c.keys = make([]string, len(n.keys))
		copy(c.keys, n.keys)
		c.fields = make(map[string]*Node, len(n.fields))
		for k, v := range n.fields {
			c.fields[k] = v.Clone()
		}
	}
	return c
}

// String renders n as compact JSON. A nil node renders as "undefined".
func (n *Node) String() string {
	if n == nil {
		return "undefined"
	}
	return string(n.appendJSON(nil))
}

// setIndex stores v at i, padding the array with nulls as needed.
func (n *Node) setIndex(i int, v *Node) {
	for len(n.items) <= i {
		n.items = append(n.items, Null())
	}
	n.items[i] = v
}
