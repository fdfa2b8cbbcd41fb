package treesitter

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
)

// Tree implements engine.Tree over a native tree-sitter tree. The native
// byte offsets are unsigned; they are converted at this boundary so the
// rest of the bridge works in plain ints.
type Tree struct {
	raw       *tree_sitter.Tree
	closeOnce sync.Once
}

// Raw returns the underlying tree-sitter tree.
func (t *Tree) Raw() *tree_sitter.Tree { return t.raw }

// Span implements engine.Tree.
func (t *Tree) Span() int {
	return int(t.raw.RootNode().EndByte())
}

// Edit implements engine.Tree.
func (t *Tree) Edit(e engine.InputEdit) {
	t.raw.Edit(&tree_sitter.InputEdit{
		StartByte:      uint(e.StartByte),
		OldEndByte:     uint(e.OldEndByte),
		NewEndByte:     uint(e.NewEndByte),
		StartPosition:  point(e.StartPoint),
		OldEndPosition: point(e.OldEndPoint),
		NewEndPosition: point(e.NewEndPoint),
	})
}

func point(p engine.Point) tree_sitter.Point {
	return tree_sitter.Point{Row: uint(p.Row), Column: uint(p.Column)}
}

// ChangedRanges implements engine.Tree. It must be called on the edited
// previous tree with the reparsed tree as next.
func (t *Tree) ChangedRanges(next engine.Tree) []engine.Range {
	nt, ok := next.(*Tree)
	if !ok {
		return nil
	}
	ranges := t.raw.ChangedRanges(nt.raw)
	out := make([]engine.Range, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, engine.Range{Start: int(r.StartByte), End: int(r.EndByte)})
	}
	return out
}

// Walk implements engine.Tree.
func (t *Tree) Walk() engine.Cursor {
	return &cursor{cur: t.raw.Walk()}
}

// Close implements engine.Tree. Safe to call more than once.
func (t *Tree) Close() {
	t.closeOnce.Do(func() { t.raw.Close() })
}

// cursor implements engine.Cursor over a native tree cursor.
type cursor struct {
	cur *tree_sitter.TreeCursor
}

func (c *cursor) TypeID() int      { return int(c.cur.Node().KindId()) }
func (c *cursor) TypeName() string { return c.cur.Node().Kind() }
func (c *cursor) StartByte() int   { return int(c.cur.Node().StartByte()) }
func (c *cursor) EndByte() int     { return int(c.cur.Node().EndByte()) }
func (c *cursor) IsNamed() bool    { return c.cur.Node().IsNamed() }

func (c *cursor) GotoFirstChild() bool  { return c.cur.GotoFirstChild() }
func (c *cursor) GotoNextSibling() bool { return c.cur.GotoNextSibling() }
func (c *cursor) GotoParent() bool      { return c.cur.GotoParent() }

func (c *cursor) Close() { c.cur.Close() }

var (
	_ engine.Tree   = (*Tree)(nil)
	_ engine.Cursor = (*cursor)(nil)
)
