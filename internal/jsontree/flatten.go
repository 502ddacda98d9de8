package jsontree

// Leaf is one entry of a flattened tree.
type Leaf struct {
	Path  Path
	Value *Node
}

// Flatten lists the leaves of n in depth-first order. Primitives, empty
// arrays and empty objects are leaves, so intentionally empty fields are
// never lost. A root that is itself a leaf is reported under the empty path.
// Flatten of nil returns nil.
func Flatten(n *Node) []Leaf {
	if n == nil {
		return nil
	}
	var out []Leaf
	walk(n, nil, &out)
	return out
}

func walk(n *Node, p Path, out *[]Leaf) {
	if n.IsLeaf() {
		*out = append(*out, Leaf{Path: p, Value: n})
		return
	}
	switch n.kind {
	case KindArray:
		for i, it := range n.items {
			walk(it, p.Child(Index(i)), out)
		}
	case KindObject:
		for _, k := range n.keys {
			walk(n.fields[k], p.Child(Key(k)), out)
		}
	}
}

// Unflatten rebuilds a tree from leaves. The root is an array when the
// first segment of the first non-root leaf is an index, an object otherwise;
// a single root leaf is returned as a clone of its value. Leaves are set in
// Coerce mode and conflicting ones are dropped.
func Unflatten(leaves []Leaf) *Node {
	var root *Node
	for _, l := range leaves {
		if len(l.Path) == 0 {
			if len(leaves) == 1 {
				return l.Value.Clone()
			}
			continue
		}
		if root == nil {
			if l.Path[0].IsIndex() {
				root = Array()
			} else {
				root = Object()
			}
		}
		_ = Set(root, l.Path, l.Value.Clone(), Coerce)
	}
	if root == nil {
		return Object()
	}
	return root
}
