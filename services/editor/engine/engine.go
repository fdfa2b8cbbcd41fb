// Package engine defines the boundary to the external incremental parsing
// engine.
//
// The editor bridge never talks to a concrete parser library directly; it
// programs against the small interface set in this package. The production
// implementation wraps tree-sitter (services/editor/treesitter), and tests
// use the deterministic in-memory engine in enginetest. Keeping the boundary
// narrow is what makes the bridge's reuse and fallback logic testable
// without cgo.
//
// Design principles:
//   - Interfaces mirror the engine's own shape (parse with optional prior
//     tree, cursor navigation, changed-range reporting), not the host's
//   - All offsets are byte offsets; all integer types are int at this
//     boundary regardless of the underlying binding's width
//   - Trees own engine-side resources and must be closed by whoever
//     retains them last
package engine

import "context"

// Point is a row/column position. Column counts bytes from the start of
// the line, matching the engine's own convention.
type Point struct {
	Row    int
	Column int
}

// InputEdit describes one contiguous text replacement in both byte and
// point coordinates. StartByte/StartPoint are shared by the old and new
// text (the prefix is unchanged); OldEnd* addresses the replaced span in
// the previous text, NewEnd* the replacement in the current text.
type InputEdit struct {
	StartByte  int
	OldEndByte int
	NewEndByte int

	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Range is a half-open byte range [Start, End) in the current text.
type Range struct {
	Start int
	End   int
}

// Grammar enumerates the node types of one language, as declared by the
// engine. Implementations are immutable after construction.
type Grammar interface {
	// Name returns the canonical language name (e.g. "json", "go").
	Name() string

	// TypeCount returns the number of node types the grammar declares.
	// Type ids run [0, TypeCount); ids outside that space are reserved by
	// the engine for error nodes.
	TypeCount() int

	// TypeName returns the declared name for a node type id.
	TypeName(id int) string

	// TypeIsNamed reports whether the node type id is a named rule as
	// opposed to an anonymous literal token.
	TypeIsNamed(id int) bool
}

// Parser produces engine trees for one language.
//
// Passing a prior tree enables the engine's incremental mode; the prior
// tree must have been adjusted with Tree.Edit for every replacement applied
// since it was produced. Passing nil forces a full parse.
//
// Implementations must be safe for concurrent use; each call is otherwise
// independent.
type Parser interface {
	Parse(ctx context.Context, source []byte, old Tree) (Tree, error)
}

// Tree is an engine syntax tree. It is opaque except for cursor traversal
// and the operations below.
type Tree interface {
	// Span returns the byte length covered by the root node. A span that
	// does not match the source length signals an inconsistent parse.
	Span() int

	// Edit adjusts the tree's node positions for a pending text
	// replacement. Must be called before the tree is handed back to
	// Parser.Parse as the prior tree.
	Edit(edit InputEdit)

	// ChangedRanges compares this tree (the edited prior tree) against the
	// tree produced by the subsequent parse and returns the byte ranges
	// whose syntax actually changed.
	ChangedRanges(next Tree) []Range

	// Walk returns a cursor positioned at the root. The caller must close
	// the cursor before closing the tree.
	Walk() Cursor

	// Close releases engine-side resources. The tree must not be used
	// afterwards.
	Close()
}

// Cursor navigates an engine tree depth-first. A cursor is positioned on
// exactly one node at a time; the Goto methods return false and leave the
// position unchanged when no such node exists.
type Cursor interface {
	// TypeID returns the grammar type id of the current node.
	TypeID() int

	// TypeName returns the declared type name of the current node.
	TypeName() string

	// StartByte returns the inclusive start offset of the current node.
	StartByte() int

	// EndByte returns the exclusive end offset of the current node.
	EndByte() int

	// IsNamed reports whether the current node is a named rule node.
	IsNamed() bool

	GotoFirstChild() bool
	GotoNextSibling() bool
	GotoParent() bool

	// Close releases the cursor.
	Close()
}
