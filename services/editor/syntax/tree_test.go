package syntax

import (
	"reflect"
	"testing"
)

// testType builds a named node type for tree construction in tests.
func testType(name string) *NodeType {
	return DefineNodeType(NodeTypeConfig{Name: name, Named: true})
}

// buildTwoLineTree builds the canonical fixture used across this file:
//
//	doc [0,6)
//	  line [0,4)
//	    word [0,3)  nl [3,4)
//	  line [4,6)
//	    word [4,5)  nl [5,6)
func buildTwoLineTree() (doc, line, word, nl *NodeType, root *Tree) {
	doc = testType("doc")
	line = testType("line")
	word = testType("word")
	nl = testType("nl")

	line1 := NewTree(line, 4,
		[]*Tree{NewTree(word, 3, nil, nil), NewTree(nl, 1, nil, nil)},
		[]int{0, 3})
	line2 := NewTree(line, 2,
		[]*Tree{NewTree(word, 1, nil, nil), NewTree(nl, 1, nil, nil)},
		[]int{0, 1})
	root = NewTree(doc, 6, []*Tree{line1, line2}, []int{0, 4})
	return doc, line, word, nl, root
}

// TestCursorPreorder verifies that Next visits every node in document
// order with correct absolute ranges.
func TestCursorPreorder(t *testing.T) {
	_, _, _, _, root := buildTwoLineTree()

	type visit struct {
		name     string
		from, to int
	}
	want := []visit{
		{"doc", 0, 6},
		{"line", 0, 4},
		{"word", 0, 3},
		{"nl", 3, 4},
		{"line", 4, 6},
		{"word", 4, 5},
		{"nl", 5, 6},
	}

	var got []visit
	c := root.Cursor()
	for {
		got = append(got, visit{c.Type().Name(), c.From(), c.To()})
		if !c.Next() {
			break
		}
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("preorder mismatch:\ngot  %v\nwant %v", got, want)
	}
}

// TestCursorNavigation exercises the individual movement methods and their
// refusal semantics at tree boundaries.
func TestCursorNavigation(t *testing.T) {
	_, _, _, _, root := buildTwoLineTree()

	c := root.Cursor()
	if c.Parent() {
		t.Error("Parent at root should return false")
	}
	if !c.FirstChild() {
		t.Fatal("FirstChild at root should succeed")
	}
	if c.Type().Name() != "line" || c.From() != 0 {
		t.Errorf("got %s at %d, want line at 0", c.Type().Name(), c.From())
	}
	if !c.NextSibling() {
		t.Fatal("NextSibling to second line should succeed")
	}
	if c.From() != 4 || c.To() != 6 {
		t.Errorf("second line at [%d,%d), want [4,6)", c.From(), c.To())
	}
	if c.NextSibling() {
		t.Error("NextSibling past last child should return false")
	}
	if !c.Parent() {
		t.Fatal("Parent from line should succeed")
	}
	if c.Type().Name() != "doc" || c.From() != 0 || c.To() != 6 {
		t.Errorf("parent is %s [%d,%d), want doc [0,6)", c.Type().Name(), c.From(), c.To())
	}
}

// TestWalkSkip verifies that returning false from the visit function skips
// a node's children but not its siblings.
func TestWalkSkip(t *testing.T) {
	_, _, _, _, root := buildTwoLineTree()

	var names []string
	root.Walk(func(n *Tree, from int) bool {
		names = append(names, n.Type().Name())
		return n.Type().Name() != "line" // do not descend into lines
	})

	want := []string{"doc", "line", "line"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("walk visited %v, want %v", names, want)
	}
}

// TestNodeAt verifies exact range+type lookup, including the topmost
// preference when nested nodes share a range.
func TestNodeAt(t *testing.T) {
	doc, line, word, _, root := buildTwoLineTree()

	if n := root.NodeAt(4, 6, line); n == nil || n.Len() != 2 {
		t.Errorf("NodeAt(4,6,line) = %v, want the second line", n)
	}
	if n := root.NodeAt(4, 5, word); n == nil || n.Len() != 1 {
		t.Errorf("NodeAt(4,5,word) = %v, want the second word", n)
	}
	if n := root.NodeAt(0, 6, doc); n != root {
		t.Errorf("NodeAt(0,6,doc) = %v, want the root", n)
	}
	if n := root.NodeAt(0, 3, line); n != nil {
		t.Errorf("NodeAt(0,3,line) = %v, want nil (type mismatch)", n)
	}
	if n := root.NodeAt(1, 3, word); n != nil {
		t.Errorf("NodeAt(1,3,word) = %v, want nil (no exact range)", n)
	}

	// Nested nodes with identical range and type: the topmost wins, so a
	// reused chain keeps its full depth.
	expr := testType("expr")
	inner := NewTree(expr, 6, nil, nil)
	outer := NewTree(expr, 6, []*Tree{inner}, []int{0})
	if n := outer.NodeAt(0, 6, expr); n != outer {
		t.Error("NodeAt should return the topmost of an identical-range chain")
	}
}

// TestLeafSpansTile verifies that the fixture's leaves tile the document
// exactly, the shape conversion tests rely on.
func TestLeafSpansTile(t *testing.T) {
	_, _, _, _, root := buildTwoLineTree()

	spans := LeafSpans(root)
	want := []Span{{0, 3}, {3, 4}, {4, 5}, {5, 6}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("leaf spans %v, want %v", spans, want)
	}
}

// TestValidate covers the well-formed case and each invariant violation.
func TestValidate(t *testing.T) {
	doc, line, word, _, root := buildTwoLineTree()

	if err := root.Validate(6); err != nil {
		t.Errorf("valid tree reported invalid: %v", err)
	}
	if err := root.Validate(7); err == nil {
		t.Error("root length mismatch not reported")
	}

	// Second child starts before the first one ends.
	overlap := NewTree(doc, 6,
		[]*Tree{NewTree(word, 3, nil, nil), NewTree(word, 3, nil, nil)},
		[]int{0, 2})
	if err := overlap.Validate(6); err == nil {
		t.Error("overlapping siblings not reported")
	}

	// Child extends past the parent's end.
	past := NewTree(doc, 6, []*Tree{NewTree(line, 5, nil, nil)}, []int{3})
	if err := past.Validate(6); err == nil {
		t.Error("child past parent end not reported")
	}
}

// TestNewTreePanics verifies the programmer-error guards.
func TestNewTreePanics(t *testing.T) {
	word := testType("word")

	recovered := func(f func()) (r any) {
		defer func() { r = recover() }()
		f()
		return nil
	}

	if recovered(func() { NewTree(nil, 1, nil, nil) }) == nil {
		t.Error("nil type did not panic")
	}
	if recovered(func() { NewTree(word, -1, nil, nil) }) == nil {
		t.Error("negative length did not panic")
	}
	if recovered(func() { NewTree(word, 1, []*Tree{NewTree(word, 1, nil, nil)}, nil) }) == nil {
		t.Error("children/positions mismatch did not panic")
	}
}

// TestCommonFragments checks the prefix/suffix derivation, including the
// one-digit insertion every incremental path is exercised with.
func TestCommonFragments(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want []Fragment
	}{
		{
			name: "digit inserted",
			old:  "balance 10\n",
			new:  "balance 100\n",
			want: []Fragment{{0, 10}, {11, 12}},
		},
		{
			name: "middle deletion",
			old:  "abc",
			new:  "ac",
			want: []Fragment{{0, 1}, {1, 2}},
		},
		{
			name: "identical",
			old:  "same",
			new:  "same",
			want: []Fragment{{0, 4}},
		},
		{
			name: "nothing shared",
			old:  "xyz",
			new:  "abc",
			want: nil,
		},
		{
			name: "empty new",
			old:  "abc",
			new:  "",
			want: nil,
		},
		{
			name: "append",
			old:  "ab",
			new:  "ab\n",
			want: []Fragment{{0, 2}},
		},
		{
			name: "replacement with shared newline",
			old:  "ab\n",
			new:  "ab c\n",
			want: []Fragment{{0, 2}, {4, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CommonFragments([]byte(tt.old), []byte(tt.new))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CommonFragments(%q, %q) = %v, want %v", tt.old, tt.new, got, tt.want)
			}
		})
	}
}
