// Package enginetest provides a deterministic in-memory parsing engine for
// bridge tests.
//
// The engine tokenizes text into a fixed three-level shape: a document
// node, one line node per line (the trailing newline belongs to its line),
// and alternating word/space tokens inside each line. The shape is a pure
// function of the source bytes, so a full parse and an incremental parse
// of the same text must describe identical trees, and the leaves of every
// tree tile the document exactly. Fault injection flags simulate the
// engine failure modes the bridge has to recover from, and call counters
// let tests assert how often the engine was actually consulted.
package enginetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
)

// Type ids of the standard grammar, in declaration order.
const (
	TypeDocument = 0
	TypeLine     = 1
	TypeWord     = 2
	TypeSpace    = 3
)

// TypeSpec declares one node type of a test grammar.
type TypeSpec struct {
	Name  string
	Named bool
}

// Grammar is a static node type catalog implementing engine.Grammar.
type Grammar struct {
	name  string
	types []TypeSpec
}

// NewGrammar builds a grammar with the given type declarations.
func NewGrammar(name string, types ...TypeSpec) *Grammar {
	return &Grammar{name: name, types: types}
}

// StandardGrammar returns the grammar the standard tokenizer produces
// trees for: document, line, word, and an anonymous space token.
func StandardGrammar() *Grammar {
	return NewGrammar("faketok",
		TypeSpec{Name: "document", Named: true},
		TypeSpec{Name: "line", Named: true},
		TypeSpec{Name: "word", Named: true},
		TypeSpec{Name: "space", Named: false},
	)
}

func (g *Grammar) Name() string   { return g.name }
func (g *Grammar) TypeCount() int { return len(g.types) }

func (g *Grammar) TypeName(id int) string {
	if id < 0 || id >= len(g.types) {
		return fmt.Sprintf("invalid-%d", id)
	}
	return g.types[id].Name
}

func (g *Grammar) TypeIsNamed(id int) bool {
	if id < 0 || id >= len(g.types) {
		return false
	}
	return g.types[id].Named
}

// Engine implements engine.Parser with deterministic output, fault
// injection, and call accounting. The zero value is not usable; construct
// with New. Safe for concurrent use.
type Engine struct {
	grammar *Grammar

	// CorruptIncremental makes every incremental parse (prior tree given)
	// report a span one byte short of the source, simulating the
	// inconsistent-reparse failure mode. Full parses stay healthy.
	CorruptIncremental bool

	// CorruptAll makes every parse report a bad span, so even the forced
	// full reparse fails validation.
	CorruptAll bool

	// FailAll makes Parse return an error outright.
	FailAll bool

	// ExtraChanged is appended to every ChangedRanges result, letting
	// tests force the engine to report changes beyond the text diff.
	ExtraChanged []engine.Range

	mu         sync.Mutex
	parseCalls int
	fullCalls  int
	incrCalls  int
	openTrees  int
	inputEdits []engine.InputEdit
}

// New builds an Engine for the given grammar.
func New(g *Grammar) *Engine {
	return &Engine{grammar: g}
}

// ParseCalls returns the total number of Parse invocations.
func (e *Engine) ParseCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parseCalls
}

// FullCalls returns the number of Parse invocations without a prior tree.
func (e *Engine) FullCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fullCalls
}

// IncrementalCalls returns the number of Parse invocations with a prior
// tree.
func (e *Engine) IncrementalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.incrCalls
}

// OpenTrees returns the number of trees handed out and not yet closed.
func (e *Engine) OpenTrees() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openTrees
}

// InputEdits returns every edit applied to any tree of this engine, in
// application order.
func (e *Engine) InputEdits() []engine.InputEdit {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]engine.InputEdit, len(e.inputEdits))
	copy(out, e.inputEdits)
	return out
}

// Parse implements engine.Parser.
func (e *Engine) Parse(ctx context.Context, source []byte, old engine.Tree) (engine.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.parseCalls++
	if old == nil {
		e.fullCalls++
	} else {
		e.incrCalls++
	}
	corrupt := e.CorruptAll || (old != nil && e.CorruptIncremental)
	fail := e.FailAll
	e.mu.Unlock()

	if fail {
		return nil, errors.New("enginetest: engine unavailable")
	}

	src := make([]byte, len(source))
	copy(src, source)

	span := len(src)
	if corrupt {
		span = len(src) + 1
	}

	e.mu.Lock()
	e.openTrees++
	e.mu.Unlock()

	return &Tree{
		eng:    e,
		root:   tokenize(src),
		span:   span,
		source: src,
	}, nil
}

// node is one node of a fake tree, with absolute offsets.
type node struct {
	typeID   int
	start    int
	end      int
	children []*node
}

// tokenize builds the standard document/line/token shape. Leaves tile
// [0, len(src)) exactly.
func tokenize(src []byte) *node {
	root := &node{typeID: TypeDocument, start: 0, end: len(src)}
	lineStart := 0
	for lineStart < len(src) {
		lineEnd := lineStart
		for lineEnd < len(src) && src[lineEnd] != '\n' {
			lineEnd++
		}
		if lineEnd < len(src) {
			lineEnd++ // the newline belongs to its line
		}
		line := &node{typeID: TypeLine, start: lineStart, end: lineEnd}
		tokStart := lineStart
		for tokStart < lineEnd {
			tokEnd := tokStart
			space := isSpace(src[tokStart])
			for tokEnd < lineEnd && isSpace(src[tokEnd]) == space {
				tokEnd++
			}
			id := TypeWord
			if space {
				id = TypeSpace
			}
			line.children = append(line.children, &node{typeID: id, start: tokStart, end: tokEnd})
			tokStart = tokEnd
		}
		root.children = append(root.children, line)
		lineStart = lineEnd
	}
	return root
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' }

// Tree implements engine.Tree over a tokenized snapshot.
type Tree struct {
	eng    *Engine
	root   *node
	span   int
	source []byte
	edits  []engine.InputEdit
	closed bool
}

// Span implements engine.Tree.
func (t *Tree) Span() int { return t.span }

// Edit records the adjustment; the fake reparses from scratch anyway, so
// recording is all that is needed for tests to inspect.
func (t *Tree) Edit(e engine.InputEdit) {
	t.edits = append(t.edits, e)
	t.eng.mu.Lock()
	t.eng.inputEdits = append(t.eng.inputEdits, e)
	t.eng.mu.Unlock()
}

// Edits returns the InputEdits applied to this tree, in order.
func (t *Tree) Edits() []engine.InputEdit { return t.edits }

// ChangedRanges diffs this tree's source against the next tree's source
// and reports the single differing region in next's coordinates, plus any
// injected extra ranges.
func (t *Tree) ChangedRanges(next engine.Tree) []engine.Range {
	nt, ok := next.(*Tree)
	if !ok {
		return nil
	}
	var ranges []engine.Range
	if r, changed := diffRange(t.source, nt.source); changed {
		ranges = append(ranges, r)
	}
	ranges = append(ranges, t.eng.ExtraChanged...)
	return ranges
}

// diffRange returns the minimal [prefix, len(new)-suffix) region where old
// and new differ, in new coordinates.
func diffRange(old, new []byte) (engine.Range, bool) {
	if bytes.Equal(old, new) {
		return engine.Range{}, false
	}
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}
	maxSuffix := min(len(old), len(new)) - prefix
	suffix := 0
	for suffix < maxSuffix && old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}
	return engine.Range{Start: prefix, End: len(new) - suffix}, true
}

// Walk implements engine.Tree.
func (t *Tree) Walk() engine.Cursor {
	return &cursor{grammar: t.eng.grammar, node: t.root}
}

// Close implements engine.Tree.
func (t *Tree) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.eng.mu.Lock()
	t.eng.openTrees--
	t.eng.mu.Unlock()
}

// Closed reports whether Close has been called.
func (t *Tree) Closed() bool { return t.closed }

// cursor implements engine.Cursor over fake nodes.
type cursor struct {
	grammar *Grammar
	node    *node
	stack   []cursorFrame
}

type cursorFrame struct {
	node  *node
	child int
}

func (c *cursor) TypeID() int      { return c.node.typeID }
func (c *cursor) TypeName() string { return c.grammar.TypeName(c.node.typeID) }
func (c *cursor) StartByte() int   { return c.node.start }
func (c *cursor) EndByte() int     { return c.node.end }
func (c *cursor) IsNamed() bool    { return c.grammar.TypeIsNamed(c.node.typeID) }
func (c *cursor) Close()           {}

func (c *cursor) GotoFirstChild() bool {
	if len(c.node.children) == 0 {
		return false
	}
	c.stack = append(c.stack, cursorFrame{node: c.node, child: 0})
	c.node = c.node.children[0]
	return true
}

func (c *cursor) GotoNextSibling() bool {
	if len(c.stack) == 0 {
		return false
	}
	parent := &c.stack[len(c.stack)-1]
	next := parent.child + 1
	if next >= len(parent.node.children) {
		return false
	}
	parent.child = next
	c.node = parent.node.children[next]
	return true
}

func (c *cursor) GotoParent() bool {
	if len(c.stack) == 0 {
		return false
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.node = top.node
	return true
}

// Compile-time interface compliance checks.
var (
	_ engine.Grammar = (*Grammar)(nil)
	_ engine.Parser  = (*Engine)(nil)
	_ engine.Tree    = (*Tree)(nil)
	_ engine.Cursor  = (*cursor)(nil)
)
