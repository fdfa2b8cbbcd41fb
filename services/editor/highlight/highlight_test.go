package highlight

import (
	"reflect"
	"testing"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

func taggedType(name string, props map[string]string) *syntax.NodeType {
	return syntax.DefineNodeType(syntax.NodeTypeConfig{
		Name:  name,
		Named: true,
		Props: props,
	})
}

// Property tables exist for the bundled grammars and nothing else.
func TestPropsFor(t *testing.T) {
	json := PropsFor("json")
	if json["string"]["tok"] != TokString {
		t.Errorf(`json string tok = %q, want %q`, json["string"]["tok"], TokString)
	}
	if json["object"]["fold"] != "inside" {
		t.Errorf(`json object fold = %q, want inside`, json["object"]["fold"])
	}

	goTable := PropsFor("go")
	if goTable["func"]["tok"] != TokKeyword {
		t.Errorf(`go func tok = %q, want %q`, goTable["func"]["tok"], TokKeyword)
	}
	if goTable["block"]["fold"] != "inside" {
		t.Errorf(`go block fold = %q, want inside`, goTable["block"]["fold"])
	}

	if PropsFor("beancount") != nil {
		t.Error("unknown language got a property table")
	}
}

// A tagged container claims its whole range; children inside it are not
// reported separately.
func TestSpans(t *testing.T) {
	doc := taggedType("document", nil)
	str := taggedType("string", map[string]string{"tok": TokString})
	esc := taggedType("escape_sequence", map[string]string{"tok": TokEscape})
	num := taggedType("number", map[string]string{"tok": TokNumber})
	word := taggedType("word", nil)

	// "abcde" (string containing an escape), gap, "42", gap, plain tail.
	tree := syntax.NewTree(doc, 14, []*syntax.Tree{
		syntax.NewTree(str, 5, []*syntax.Tree{syntax.NewTree(esc, 2, nil, nil)}, []int{1}),
		syntax.NewTree(num, 2, nil, nil),
		syntax.NewTree(word, 5, nil, nil),
	}, []int{0, 6, 9})

	got := Spans(tree)
	want := []Span{
		{From: 0, To: 5, Tok: TokString},
		{From: 6, To: 8, Tok: TokNumber},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Spans = %v, want %v", got, want)
	}
}

// Zero-width nodes produce no spans.
func TestSpansSkipsZeroWidth(t *testing.T) {
	doc := taggedType("document", nil)
	num := taggedType("number", map[string]string{"tok": TokNumber})

	tree := syntax.NewTree(doc, 3, []*syntax.Tree{
		syntax.NewTree(num, 0, nil, nil),
		syntax.NewTree(num, 3, nil, nil),
	}, []int{0, 0})

	want := []Span{{From: 0, To: 3, Tok: TokNumber}}
	if got := Spans(tree); !reflect.DeepEqual(got, want) {
		t.Errorf("Spans = %v, want %v", got, want)
	}
}

// fold=inside keeps the delimiters visible; fold=full hides the node.
func TestFoldables(t *testing.T) {
	doc := taggedType("document", nil)
	obj := taggedType("object", map[string]string{"fold": "inside"})
	full := taggedType("entry", map[string]string{"fold": "full"})
	brace := taggedType("brace", nil)
	pair := taggedType("pair", nil)

	// {pair} spanning [0,9): "{" [0,1), pair [2,7), "}" [8,9).
	object := syntax.NewTree(obj, 9, []*syntax.Tree{
		syntax.NewTree(brace, 1, nil, nil),
		syntax.NewTree(pair, 5, nil, nil),
		syntax.NewTree(brace, 1, nil, nil),
	}, []int{0, 2, 8})
	entry := syntax.NewTree(full, 4, nil, nil)
	tree := syntax.NewTree(doc, 14, []*syntax.Tree{object, entry}, []int{0, 10})

	got := Foldables(tree)
	want := []syntax.Span{
		{From: 1, To: 8},
		{From: 10, To: 14},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Foldables = %v, want %v", got, want)
	}
}

// An inside fold needs at least two children to have anything between.
func TestFoldablesDegenerate(t *testing.T) {
	doc := taggedType("document", nil)
	obj := taggedType("object", map[string]string{"fold": "inside"})
	brace := taggedType("brace", nil)

	// "{}" back to back leaves nothing to fold.
	empty := syntax.NewTree(obj, 2, []*syntax.Tree{
		syntax.NewTree(brace, 1, nil, nil),
		syntax.NewTree(brace, 1, nil, nil),
	}, []int{0, 1})
	lone := syntax.NewTree(obj, 1, []*syntax.Tree{syntax.NewTree(brace, 1, nil, nil)}, []int{0})
	tree := syntax.NewTree(doc, 4, []*syntax.Tree{empty, lone}, []int{0, 3})

	if got := Foldables(tree); len(got) != 0 {
		t.Errorf("Foldables = %v, want none", got)
	}
}

// Without color the renderer passes the source through untouched.
func TestRenderPlain(t *testing.T) {
	src := []byte(`{"a": 1}`)
	spans := []Span{{From: 1, To: 4, Tok: TokString}, {From: 6, To: 7, Tok: TokNumber}}

	if got := NewRenderer(false).Render(src, spans); got != string(src) {
		t.Errorf("Render = %q, want %q", got, src)
	}
}

// Malformed spans are dropped rather than corrupting the output tail.
func TestRenderIgnoresBadSpans(t *testing.T) {
	src := []byte("0123456789")
	spans := []Span{
		{From: 2, To: 4, Tok: TokNumber},
		{From: 3, To: 5, Tok: TokNumber},  // overlaps the previous span
		{From: 8, To: 99, Tok: TokNumber}, // past the source
		{From: 6, To: 8, Tok: "nonsense"}, // unknown class
	}

	got := NewRenderer(true).Render(src, spans)
	// Styling may be a no-op off-terminal; the bytes must all survive in
	// order regardless.
	if len(got) < len(src) {
		t.Fatalf("Render lost content: %q", got)
	}
	plain := NewRenderer(false).Render(src, spans)
	if plain != string(src) {
		t.Errorf("plain Render = %q, want %q", plain, string(src))
	}
}
