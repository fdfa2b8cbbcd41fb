package syntax

import "fmt"

// Tree is an immutable host syntax tree node. The root of a parse covers
// the whole document; every other node is reachable through Child, Cursor,
// or Walk. A Tree value never changes after construction, which makes it
// safe to share subtrees between successive parses and between goroutines.
type Tree struct {
	typ       *NodeType
	length    int
	children  []*Tree
	positions []int
}

// NewTree builds a tree node of the given type and byte length. positions
// holds each child's start offset relative to the new node's start and
// must run parallel to children, in ascending order, with no child
// extending past length. NewTree panics on a nil type, a negative length,
// or mismatched slice lengths; those are programmer errors, not data
// errors. Ordering violations are not checked here (see Validate).
//
// The slices are retained, not copied. Callers must not modify them after
// the call.
func NewTree(typ *NodeType, length int, children []*Tree, positions []int) *Tree {
	if typ == nil {
		panic("syntax: NewTree with nil type")
	}
	if length < 0 {
		panic(fmt.Sprintf("syntax: NewTree with negative length %d", length))
	}
	if len(children) != len(positions) {
		panic(fmt.Sprintf("syntax: NewTree children/positions mismatch: %d vs %d",
			len(children), len(positions)))
	}
	return &Tree{typ: typ, length: length, children: children, positions: positions}
}

// Type returns the node's type descriptor.
func (t *Tree) Type() *NodeType { return t.typ }

// Len returns the byte length the node covers.
func (t *Tree) Len() int { return t.length }

// NumChildren returns the number of direct children.
func (t *Tree) NumChildren() int { return len(t.children) }

// Child returns the i-th child and its start offset relative to t.
func (t *Tree) Child(i int) (*Tree, int) {
	return t.children[i], t.positions[i]
}

// Walk visits t and its descendants in document order. visit receives each
// node with its absolute start offset; returning false skips the node's
// children (the walk continues with the next sibling).
func (t *Tree) Walk(visit func(n *Tree, from int) bool) {
	walkFrom(t, 0, visit)
}

func walkFrom(t *Tree, from int, visit func(n *Tree, from int) bool) {
	type frame struct {
		node *Tree
		from int
		next int
	}
	if !visit(t, from) {
		return
	}
	stack := []frame{{node: t, from: from}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.node.children) {
			stack = stack[:len(stack)-1]
			continue
		}
		child := top.node.children[top.next]
		childFrom := top.from + top.node.positions[top.next]
		top.next++
		if visit(child, childFrom) {
			stack = append(stack, frame{node: child, from: childFrom})
		}
	}
}

// NodeAt descends from t looking for a node of the given type that covers
// exactly [from, to) in t's coordinate space (t starting at offset 0). When
// several nested nodes share the range and type, the topmost one is
// returned. Returns nil if no such node exists.
func (t *Tree) NodeAt(from, to int, typ *NodeType) *Tree {
	node, base := t, 0
	for {
		if base == from && base+node.length == to && node.typ == typ {
			return node
		}
		// Descend into the child whose range contains [from, to).
		next := -1
		for i, pos := range node.positions {
			childFrom := base + pos
			childTo := childFrom + node.children[i].length
			if childFrom <= from && to <= childTo {
				// Zero-width request on a boundary can sit in several
				// children; prefer the one that starts there.
				if next == -1 || childFrom == from {
					next = i
				}
			}
			if childFrom > from {
				break
			}
		}
		if next == -1 {
			return nil
		}
		base += node.positions[next]
		node = node.children[next]
	}
}

// LeafSpans returns the absolute ranges of all leaves in document order.
func LeafSpans(t *Tree) []Span {
	var spans []Span
	t.Walk(func(n *Tree, from int) bool {
		if n.NumChildren() == 0 {
			spans = append(spans, Span{From: from, To: from + n.length})
		}
		return true
	})
	return spans
}

// ValidationError reports a structural invariant violation found by
// Validate, with the absolute range of the offending node.
type ValidationError struct {
	Node    string
	From    int
	To      int
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("syntax tree invalid at %s [%d,%d): %s", e.Node, e.From, e.To, e.Message)
}

// Validate checks the structural invariants over the whole tree: the root
// covers [0, docLen) exactly, child offsets are in order with no overlap,
// and no child extends past its parent. Returns nil when the tree is
// well-formed.
func (t *Tree) Validate(docLen int) error {
	if t.length != docLen {
		return &ValidationError{
			Node: t.typ.Name(), From: 0, To: t.length,
			Message: fmt.Sprintf("root length %d, document length %d", t.length, docLen),
		}
	}
	var failure *ValidationError
	t.Walk(func(n *Tree, from int) bool {
		if failure != nil {
			return false
		}
		cursor := 0
		for i, pos := range n.positions {
			child := n.children[i]
			if pos < cursor {
				failure = &ValidationError{
					Node: child.typ.Name(), From: from + pos, To: from + pos + child.length,
					Message: "overlaps previous sibling",
				}
				return false
			}
			if pos+child.length > n.length {
				failure = &ValidationError{
					Node: child.typ.Name(), From: from + pos, To: from + pos + child.length,
					Message: fmt.Sprintf("extends past parent end %d", from+n.length),
				}
				return false
			}
			cursor = pos + child.length
		}
		return true
	})
	if failure != nil {
		return failure
	}
	return nil
}

// String renders the tree as a compact s-expression of type names, which
// is handy in logs and test failures.
func (t *Tree) String() string {
	s := t.typ.Name()
	if len(t.children) == 0 {
		return s
	}
	s += "("
	for i, c := range t.children {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s + ")"
}
