package treesitter

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// flatten lists every node with absolute offsets for shape comparison.
func flatten(tree *syntax.Tree) [][3]any {
	var out [][3]any
	tree.Walk(func(n *syntax.Tree, from int) bool {
		out = append(out, [3]any{n.Type().Name(), from, from + n.Len()})
		return true
	})
	return out
}

// The bundled grammars expose their tree-sitter metadata.
func TestBundledGrammars(t *testing.T) {
	for name, top := range map[string]string{"json": "document", "go": "source_file"} {
		g, ok := Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) missed a bundled grammar", name)
		}
		if g.Name() != name || g.TopNode() != top {
			t.Errorf("%s: Name=%q TopNode=%q, want %q/%q", name, g.Name(), g.TopNode(), name, top)
		}
		if g.TypeCount() == 0 {
			t.Errorf("%s: grammar declares no node types", name)
		}
		if g.TypeName(0) == "" {
			t.Errorf("%s: TypeName(0) empty", name)
		}
		if g.TypeName(-1) != "" || g.TypeName(g.TypeCount()) != "" {
			t.Errorf("%s: out-of-range ids produced names", name)
		}
	}

	if _, ok := Lookup("beancount"); ok {
		t.Error("Lookup invented a grammar")
	}
}

// NewParser wires grammar and engine; unknown names fail construction.
func TestNewParser(t *testing.T) {
	p, err := NewParser("json")
	if err != nil {
		t.Fatalf("NewParser(json): %v", err)
	}
	if p.Registry().Top().Name() != "document" {
		t.Errorf("top node = %v, want document", p.Registry().Top())
	}

	_, err = NewParser("beancount")
	var confErr *parser.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("NewParser(beancount) err = %v, want ConfigurationError", err)
	}
}

// A real JSON parse produces a document-rooted tree spanning the source.
func TestParseJSON(t *testing.T) {
	p, err := NewParser("json")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	text := document.NewTextString(`{"account": "Assets:Cash", "amount": 10}`)

	tree, err := p.Parse(context.Background(), text, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if tree.Type().Name() != "document" || !tree.Type().IsTop() {
		t.Errorf("root = %v, want top document", tree.Type())
	}
	if tree.Len() != text.Len() {
		t.Errorf("root length = %d, want %d", tree.Len(), text.Len())
	}
	obj, ok := p.Registry().ByName("object")
	if !ok {
		t.Fatal("registry lacks the object type")
	}
	if tree.NodeAt(0, text.Len(), obj) == nil {
		t.Error("NodeAt missed the top-level object")
	}
}

// An incremental reparse of edited JSON matches a from-scratch parse.
func TestParseJSONIncremental(t *testing.T) {
	p, err := NewParser("json")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	ctx := context.Background()

	old := document.NewTextString(`{"amount": 1}`)
	if _, err := p.Parse(ctx, old, nil); err != nil {
		t.Fatalf("initial parse: %v", err)
	}

	next := document.NewTextString(`{"amount": 12}`)
	frags := syntax.CommonFragments(old.Bytes(), next.Bytes())
	tree, err := p.Parse(ctx, next, frags)
	if err != nil {
		t.Fatalf("incremental parse: %v", err)
	}

	fresh, err := NewParser("json")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	want, err := fresh.Parse(ctx, document.NewTextString(next.String()), nil)
	if err != nil {
		t.Fatalf("reference parse: %v", err)
	}

	if !reflect.DeepEqual(flatten(tree), flatten(want)) {
		t.Errorf("incremental tree diverged:\n got %v\nwant %v", flatten(tree), flatten(want))
	}
}

// The same Text value is answered from the cache.
func TestParseJSONCached(t *testing.T) {
	p, err := NewParser("json")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	text := document.NewTextString(`[1, 2, 3]`)

	first, err := p.Parse(context.Background(), text, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := p.Parse(context.Background(), text, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if first != second {
		t.Error("cache returned a different tree for the same Text")
	}
}
