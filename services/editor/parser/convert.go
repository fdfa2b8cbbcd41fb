package parser

import (
	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// reuseZone describes where subtrees of the previous host tree may be
// attached instead of rebuilt: anywhere entirely outside the widened edit
// span [start, end). Positions before the span map to the previous tree
// unchanged; positions at or after the span end map back by the net length
// change. A nil zone disables reuse (full conversion).
type reuseZone struct {
	start int
	end   int
	shift int // new length minus previous length
	prev  *syntax.Tree
}

// match returns the previous tree's node covering exactly the given new
// range with the given type, or nil when the range touches the edit span
// or no structurally corresponding node exists.
func (z *reuseZone) match(from, to int, typ *syntax.NodeType) *syntax.Tree {
	if z == nil {
		return nil
	}
	switch {
	case to <= z.start:
		return z.prev.NodeAt(from, to, typ)
	case from >= z.end:
		return z.prev.NodeAt(from-z.shift, to-z.shift, typ)
	default:
		return nil
	}
}

// convertStats counts conversion work for metrics and logs.
type convertStats struct {
	built  int // host nodes constructed this parse
	reused int // previous subtrees attached wholesale
}

// convert walks the native tree depth-first through its cursor and builds
// the host tree. The walk is iterative; the explicit frame stack is the
// only place native parentage is consulted, so the produced tree owns its
// children outright with no pointers back into the engine.
//
// The root is pinned to the registry's top type and the full document
// length regardless of the native root's reported type or span, keeping
// the host invariant that the root covers [0, docLen) exactly.
func (p *Parser) convert(native engine.Tree, docLen int, zone *reuseZone) (*syntax.Tree, convertStats) {
	var stats convertStats

	cur := native.Walk()
	defer cur.Close()

	if !cur.GotoFirstChild() {
		stats.built++
		return syntax.NewTree(p.registry.Top(), docLen, nil, nil), stats
	}

	type frame struct {
		typ   *syntax.NodeType
		start int
		end   int
		kids  []*syntax.Tree
		pos   []int
	}
	stack := []frame{{typ: p.registry.Top(), start: 0, end: docLen}}

	for {
		typ := p.registry.TypeFor(cur.TypeID())
		start, end := cur.StartByte(), cur.EndByte()

		var done *syntax.Tree
		if t := zone.match(start, end, typ); t != nil {
			done = t
			stats.reused++
		} else if cur.GotoFirstChild() {
			stack = append(stack, frame{typ: typ, start: start, end: end})
			continue
		} else {
			done = syntax.NewTree(typ, end-start, nil, nil)
			stats.built++
		}

		// Attach the finished node, then close out every frame whose
		// children are exhausted.
		for {
			top := &stack[len(stack)-1]
			top.kids = append(top.kids, done)
			top.pos = append(top.pos, start-top.start)

			if cur.GotoNextSibling() {
				break
			}
			cur.GotoParent()

			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			done = syntax.NewTree(f.typ, f.end-f.start, f.kids, f.pos)
			stats.built++
			start = f.start
			if len(stack) == 0 {
				return done, stats
			}
		}
	}
}
