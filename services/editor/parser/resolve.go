package parser

import (
	"fmt"
	"sort"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// Edit is the edit descriptor the engine's incremental mode accepts: one
// contiguous replacement of old bytes [Start, OldEnd) by new bytes
// [Start, NewEnd).
type Edit struct {
	Start  int
	OldEnd int
	NewEnd int
}

// String renders the edit for logs.
func (e Edit) String() string {
	return fmt.Sprintf("[%d,%d)->[%d,%d)", e.Start, e.OldEnd, e.Start, e.NewEnd)
}

// editContext bundles everything an incremental parse needs: the resolved
// edit, the previous host tree for subtree reuse, and the previous native
// tree plus its source shape for the engine's edit call.
type editContext struct {
	edit       Edit
	prevHost   *syntax.Tree
	prevNative engine.Tree
	prevLen    int
	prevLines  []int
}

// inputEdit expresses the resolved edit in the engine's byte+point form.
// Start and old-end points come from the previous text's line index, the
// new-end point from the current text.
func (ec *editContext) inputEdit(text *document.Text) engine.InputEdit {
	startRow, startCol := document.PointIn(ec.prevLines, ec.prevLen, ec.edit.Start)
	oldRow, oldCol := document.PointIn(ec.prevLines, ec.prevLen, ec.edit.OldEnd)
	newRow, newCol := text.PointAt(ec.edit.NewEnd)
	return engine.InputEdit{
		StartByte:   ec.edit.Start,
		OldEndByte:  ec.edit.OldEnd,
		NewEndByte:  ec.edit.NewEnd,
		StartPoint:  engine.Point{Row: startRow, Column: startCol},
		OldEndPoint: engine.Point{Row: oldRow, Column: oldCol},
		NewEndPoint: engine.Point{Row: newRow, Column: newCol},
	}
}

// resolveEdit collapses the host's reuse fragments into the single
// contiguous edit the engine accepts. Returns ok=false when no incremental
// parse should be attempted: no fragments, or a fragment set too
// inconsistent to trust.
//
// Only the first fragment (when it starts at 0) and the last fragment
// (when it ends at newLen) contribute reuse spans. Fragments carry no
// offset information, so the old-to-new position mapping is knowable only
// for the prefix run (identity) and the suffix run (shifted by the net
// length change); a fragment in the middle may sit at any drift and must
// be treated as edited. This widens the span compared to taking the raw
// complement of all fragments, and that is the safe direction: the
// un-covered span must be a superset of the true change, never a subset.
func resolveEdit(fragments []syntax.Fragment, prevHost *syntax.Tree, prev nativeRecord, newLen int) (editContext, bool) {
	if len(fragments) == 0 || prevHost == nil || prev.native == nil {
		return editContext{}, false
	}

	frags := normalizeFragments(fragments, newLen)
	if len(frags) == 0 {
		return editContext{}, false
	}

	prevLen := prev.srcLen
	first := frags[0]
	last := frags[len(frags)-1]

	var edit Edit
	if len(frags) == 1 && first.From == 0 && first.To == newLen {
		// The whole new document is claimed valid at offset zero; any
		// length difference is a replacement at the very end.
		edit = Edit{Start: newLen, OldEnd: prevLen, NewEnd: newLen}
	} else {
		start := 0
		if first.From == 0 {
			start = first.To
		}
		newEnd := newLen
		if last.To == newLen {
			newEnd = last.From
		}
		if newEnd < start {
			// Anchored fragments overlap; the hints are inconsistent.
			return editContext{}, false
		}
		edit = Edit{
			Start:  start,
			OldEnd: prevLen - (newLen - newEnd),
			NewEnd: newEnd,
		}
	}

	// The fragments may claim more preserved content than the previous
	// document had; refuse rather than hand the engine a negative span.
	if edit.OldEnd < edit.Start || edit.OldEnd > prevLen {
		return editContext{}, false
	}

	return editContext{
		edit:       edit,
		prevHost:   prevHost,
		prevNative: prev.native,
		prevLen:    prevLen,
		prevLines:  prev.lines,
	}, true
}

// normalizeFragments clips fragments to [0, newLen), drops empty ones, and
// sorts by start offset.
func normalizeFragments(fragments []syntax.Fragment, newLen int) []syntax.Fragment {
	frags := make([]syntax.Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f.From < 0 {
			f.From = 0
		}
		if f.To > newLen {
			f.To = newLen
		}
		if f.From < f.To {
			frags = append(frags, f)
		}
	}
	sort.Slice(frags, func(i, j int) bool {
		if frags[i].From != frags[j].From {
			return frags[i].From < frags[j].From
		}
		return frags[i].To < frags[j].To
	})
	return frags
}
