package parser

import (
	"context"
	"testing"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine/enginetest"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// prevState builds the host tree and native record a previous parse of src
// would have left behind.
func prevState(t *testing.T, src string) (*syntax.Tree, nativeRecord) {
	t.Helper()
	eng := enginetest.New(enginetest.StandardGrammar())
	native, err := eng.Parse(context.Background(), []byte(src), nil)
	if err != nil {
		t.Fatalf("engine parse: %v", err)
	}
	t.Cleanup(native.Close)

	typ := syntax.DefineNodeType(syntax.NodeTypeConfig{Name: "document", Named: true, Top: true})
	host := syntax.NewTree(typ, len(src), nil, nil)
	text := document.NewTextString(src)
	return host, nativeRecord{native: native, srcLen: text.Len(), lines: text.LineStarts()}
}

// The resolver collapses fragment hints into one conservative replacement,
// or refuses when the hints cannot be trusted.
func TestResolveEdit(t *testing.T) {
	tests := []struct {
		name  string
		prev  string
		next  string
		frags []syntax.Fragment
		want  Edit
		ok    bool
	}{
		{
			name:  "prefix and suffix around an insertion",
			prev:  "balance 10\n",
			next:  "balance 100\n",
			frags: []syntax.Fragment{{From: 0, To: 10}, {From: 11, To: 12}},
			want:  Edit{Start: 10, OldEnd: 10, NewEnd: 11},
			ok:    true,
		},
		{
			name: "no fragments",
			prev: "ab",
			next: "abc",
			ok:   false,
		},
		{
			name:  "covering fragment, same length",
			prev:  "abcd",
			next:  "abcd",
			frags: []syntax.Fragment{{From: 0, To: 4}},
			want:  Edit{Start: 4, OldEnd: 4, NewEnd: 4},
			ok:    true,
		},
		{
			name:  "covering fragment, shorter new document",
			prev:  "abcdef",
			next:  "abcd",
			frags: []syntax.Fragment{{From: 0, To: 4}},
			want:  Edit{Start: 4, OldEnd: 6, NewEnd: 4},
			ok:    true,
		},
		{
			name:  "covering fragment, longer new document",
			prev:  "ab",
			next:  "abcd",
			frags: []syntax.Fragment{{From: 0, To: 4}},
			ok:    false,
		},
		{
			name:  "interior fragment forces a full-width edit",
			prev:  "0123456789",
			next:  "0123456789",
			frags: []syntax.Fragment{{From: 3, To: 5}},
			want:  Edit{Start: 0, OldEnd: 10, NewEnd: 10},
			ok:    true,
		},
		{
			name:  "deletions at interior seams stay inside the edit",
			prev:  "abcXdefYghi",
			next:  "abcdefghi",
			frags: []syntax.Fragment{{From: 0, To: 3}, {From: 3, To: 6}, {From: 6, To: 9}},
			want:  Edit{Start: 3, OldEnd: 8, NewEnd: 6},
			ok:    true,
		},
		{
			name:  "overlapping anchors rejected",
			prev:  "whatever8",
			next:  "whatever",
			frags: []syntax.Fragment{{From: 0, To: 5}, {From: 3, To: 8}},
			ok:    false,
		},
		{
			name:  "claims more content than the previous document had",
			prev:  "abc",
			next:  "0123456789",
			frags: []syntax.Fragment{{From: 0, To: 9}},
			ok:    false,
		},
		{
			name:  "fragments clipped to the document",
			prev:  "abcd",
			next:  "abcd",
			frags: []syntax.Fragment{{From: -2, To: 99}},
			want:  Edit{Start: 4, OldEnd: 4, NewEnd: 4},
			ok:    true,
		},
		{
			name:  "prefix only",
			prev:  "abcdef",
			next:  "abcXYZ",
			frags: []syntax.Fragment{{From: 0, To: 3}},
			want:  Edit{Start: 3, OldEnd: 6, NewEnd: 6},
			ok:    true,
		},
		{
			name:  "suffix only",
			prev:  "abcdef",
			next:  "XYZdef",
			frags: []syntax.Fragment{{From: 3, To: 6}},
			want:  Edit{Start: 0, OldEnd: 3, NewEnd: 3},
			ok:    true,
		},
		{
			name:  "fragments arrive unsorted",
			prev:  "ab\ncd\n",
			next:  "ab\ncx\n",
			frags: []syntax.Fragment{{From: 5, To: 6}, {From: 0, To: 4}},
			want:  Edit{Start: 4, OldEnd: 5, NewEnd: 5},
			ok:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, rec := prevState(t, tt.prev)

			ec, ok := resolveEdit(tt.frags, host, rec, len(tt.next))

			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (edit %v)", ok, tt.ok, ec.edit)
			}
			if !ok {
				return
			}
			if ec.edit != tt.want {
				t.Errorf("edit = %v, want %v", ec.edit, tt.want)
			}
			if ec.prevHost != host || ec.prevLen != len(tt.prev) {
				t.Errorf("context carries host=%p len=%d, want %p len=%d",
					ec.prevHost, ec.prevLen, host, len(tt.prev))
			}
		})
	}
}

// Without a previous parse there is nothing to resolve against.
func TestResolveEditNoPreviousTree(t *testing.T) {
	frags := []syntax.Fragment{{From: 0, To: 2}}

	if _, ok := resolveEdit(frags, nil, nativeRecord{}, 4); ok {
		t.Error("resolved an edit with no previous host tree")
	}

	host, rec := prevState(t, "abcd")
	rec.native = nil
	if _, ok := resolveEdit(frags, host, rec, 4); ok {
		t.Error("resolved an edit with no previous native tree")
	}
}

// The engine's byte+point form is derived from the right line tables: old
// offsets from the previous document's, new offsets from the new text's.
func TestInputEditPoints(t *testing.T) {
	host, rec := prevState(t, "ab\ncd\n")
	next := document.NewTextString("ab\ncx\n")
	frags := []syntax.Fragment{{From: 0, To: 4}, {From: 5, To: 6}}

	ec, ok := resolveEdit(frags, host, rec, next.Len())
	if !ok {
		t.Fatal("resolveEdit refused a plain replacement")
	}

	got := ec.inputEdit(next)
	want := engine.InputEdit{
		StartByte: 4, OldEndByte: 5, NewEndByte: 5,
		StartPoint:  engine.Point{Row: 1, Column: 1},
		OldEndPoint: engine.Point{Row: 1, Column: 2},
		NewEndPoint: engine.Point{Row: 1, Column: 2},
	}
	if got != want {
		t.Errorf("inputEdit = %+v, want %+v", got, want)
	}
}
