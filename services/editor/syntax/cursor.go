package syntax

// Cursor navigates a Tree while tracking absolute byte offsets. The zero
// value is not usable; obtain one from Tree.Cursor. A Cursor is positioned
// on exactly one node at a time. Movement methods return false and leave
// the position unchanged when there is no node to move to.
//
// Cursors are cheap (a small struct plus a slice used as the ancestor
// stack) and are not safe for concurrent use; take one per goroutine.
type Cursor struct {
	node  *Tree
	from  int
	stack []cursorFrame
}

type cursorFrame struct {
	node  *Tree
	from  int
	child int
}

// Cursor returns a cursor positioned on t, with t's start taken as
// offset 0.
func (t *Tree) Cursor() *Cursor {
	return &Cursor{node: t}
}

// Type returns the current node's type.
func (c *Cursor) Type() *NodeType { return c.node.typ }

// From returns the current node's absolute start offset.
func (c *Cursor) From() int { return c.from }

// To returns the current node's absolute end offset.
func (c *Cursor) To() int { return c.from + c.node.length }

// Node returns the current node.
func (c *Cursor) Node() *Tree { return c.node }

// FirstChild moves to the current node's first child.
func (c *Cursor) FirstChild() bool {
	if len(c.node.children) == 0 {
		return false
	}
	c.stack = append(c.stack, cursorFrame{node: c.node, from: c.from, child: 0})
	c.from += c.node.positions[0]
	c.node = c.node.children[0]
	return true
}

// NextSibling moves to the current node's next sibling.
func (c *Cursor) NextSibling() bool {
	if len(c.stack) == 0 {
		return false
	}
	parent := &c.stack[len(c.stack)-1]
	next := parent.child + 1
	if next >= len(parent.node.children) {
		return false
	}
	parent.child = next
	c.from = parent.from + parent.node.positions[next]
	c.node = parent.node.children[next]
	return true
}

// Parent moves to the current node's parent.
func (c *Cursor) Parent() bool {
	if len(c.stack) == 0 {
		return false
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.node = top.node
	c.from = top.from
	return true
}

// Next advances in pre-order: first child, else next sibling, else the
// next sibling of the nearest ancestor that has one. Returns false once
// the whole tree has been visited.
func (c *Cursor) Next() bool {
	if c.FirstChild() {
		return true
	}
	for {
		if c.NextSibling() {
			return true
		}
		if !c.Parent() {
			return false
		}
	}
}
