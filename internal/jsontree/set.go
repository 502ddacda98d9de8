package jsontree

// SetMode selects how Set treats an intermediate container of the wrong
// kind.
type SetMode int

const (
	// Strict reports a ConflictError and leaves the tree untouched.
	Strict SetMode = iota
	// Coerce replaces the mismatched slot with a fresh container of the
	// kind the path needs. Data outside that slot is never touched.
	Coerce
)

// Set assigns v at p inside root, creating missing intermediate containers.
// The kind of each created container follows the next segment: an index
// creates an array, a key creates an object. Null, primitive and empty
// container slots on the way are replaced. Writing past the end of an array
// pads it with null.
//
// The empty path and a nil v are no-ops. A root or final container of the
// wrong kind is always a ConflictError; an intermediate one is a
// ConflictError in Strict mode. Set mutates root in place.
func Set(root *Node, p Path, v *Node, mode SetMode) error {
	if len(p) == 0 || v == nil {
		return nil
	}
	if root == nil {
		return &ConflictError{Path: p, Want: containerFor(p[0])}
	}
	if err := checkSlot(root, p, mode); err != nil {
		return err
	}

	cur := root
	for i := 0; i < len(p)-1; i++ {
		seg := p[i]
		want := containerFor(p[i+1])
		child := cur.child(seg)
		switch {
		case replaceable(child, want):
			child = empty(want)
			cur.put(seg, child)
		case child.kind != want:
			// Only reachable in Coerce mode; checkSlot rejected it otherwise.
			child = empty(want)
			cur.put(seg, child)
		}
		cur = child
	}
	cur.put(p[len(p)-1], v)
	return nil
}

// checkSlot walks p without mutating anything and returns the first
// conflict Set would hit, so a failure never leaves a partial write. The
// container holding the final segment is never coerced.
func checkSlot(root *Node, p Path, mode SetMode) error {
	if root.kind != containerFor(p[0]) {
		return &ConflictError{Path: p, At: nil, Want: containerFor(p[0]), Got: root.kind}
	}
	cur := root
	for i := 0; i < len(p)-1; i++ {
		want := containerFor(p[i+1])
		child := cur.child(p[i])
		if replaceable(child, want) {
			// Everything below is created fresh and cannot conflict.
			return nil
		}
		if child.kind != want {
			if mode == Coerce && i < len(p)-2 {
				return nil
			}
			return &ConflictError{Path: p, At: p[:i+1], Want: want, Got: child.kind}
		}
		cur = child
	}
	return nil
}

// replaceable reports whether a slot holds nothing Set could lose by
// replacing it with a container of kind want: absent, null, a primitive, or
// an empty container of another kind.
func replaceable(slot *Node, want Kind) bool {
	if slot == nil || !slot.IsContainer() {
		return true
	}
	return slot.kind != want && slot.Len() == 0
}

func containerFor(seg Segment) Kind {
	if seg.isIndex {
		return KindArray
	}
	return KindObject
}

func empty(k Kind) *Node {
	if k == KindArray {
		return Array()
	}
	return Object()
}

// child returns the value at seg, or nil when absent. cur must be of the
// container kind seg addresses.
func (n *Node) child(seg Segment) *Node {
	if seg.isIndex {
		return n.At(seg.index)
	}
	return n.Field(seg.key)
}

func (n *Node) put(seg Segment, v *Node) {
	if seg.isIndex {
		n.setIndex(seg.index, v)
		return
	}
	n.Put(seg.key, v)
}
