package parser

import (
	"errors"
	"testing"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine/enginetest"
)

// Every declared id maps to a descriptor mirroring the grammar, with the
// requested top node marked.
func TestNewRegistryStandard(t *testing.T) {
	r, err := NewRegistry(enginetest.StandardGrammar(), nil, "document")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if r.Len() != 4 {
		t.Errorf("Len = %d, want 4", r.Len())
	}
	wantNames := []string{"document", "line", "word", "space"}
	for id, name := range wantNames {
		typ := r.TypeFor(id)
		if typ.Name() != name || typ.ID() != id {
			t.Errorf("TypeFor(%d) = %v (id %d), want %s", id, typ, typ.ID(), name)
		}
	}

	top := r.Top()
	if top == nil || !top.IsTop() || top.Name() != "document" {
		t.Fatalf("Top = %v, want marked document", top)
	}
	if r.TypeFor(enginetest.TypeLine).IsTop() {
		t.Error("line marked as top")
	}
	if r.TypeFor(enginetest.TypeSpace).IsNamed() {
		t.Error("space reported as named")
	}
}

// Ids outside the declared space map to the synthesized error descriptor,
// keeping the mapping total.
func TestRegistryTypeForIsTotal(t *testing.T) {
	r, err := NewRegistry(enginetest.StandardGrammar(), nil, "document")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	errType := r.ErrorType()
	if errType == nil || !errType.IsError() || !errType.IsNamed() || errType.Name() != "ERROR" {
		t.Fatalf("ErrorType = %v, want named ERROR descriptor", errType)
	}
	for _, id := range []int{-1, 4, 99} {
		if r.TypeFor(id) != errType {
			t.Errorf("TypeFor(%d) = %v, want the error descriptor", id, r.TypeFor(id))
		}
	}
	if byName, ok := r.ByName("ERROR"); !ok || byName != errType {
		t.Errorf(`ByName("ERROR") = %v/%v, want the error descriptor`, byName, ok)
	}
}

// A grammar declaring its own ERROR type keeps it; the synthesized
// descriptor only fills the gap.
func TestRegistryDeclaredErrorType(t *testing.T) {
	g := enginetest.NewGrammar("errgram",
		enginetest.TypeSpec{Name: "document", Named: true},
		enginetest.TypeSpec{Name: "ERROR", Named: true},
	)
	r, err := NewRegistry(g, nil, "document")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	declared := r.TypeFor(1)
	if !declared.IsError() {
		t.Error("declared ERROR type not marked as error")
	}
	if byName, _ := r.ByName("ERROR"); byName != declared {
		t.Error("ByName prefers the synthesized descriptor over the declared one")
	}
	if r.TypeFor(2) == declared {
		t.Error("out-of-range id mapped to the declared type instead of the sentinel")
	}
}

// When a named and an anonymous type share a name, the named one owns the
// by-name lookup regardless of declaration order.
func TestRegistryNameCollision(t *testing.T) {
	for _, order := range []string{"named first", "anonymous first"} {
		specs := []enginetest.TypeSpec{
			{Name: "document", Named: true},
			{Name: "if", Named: true},
			{Name: "if", Named: false},
		}
		if order == "anonymous first" {
			specs[1], specs[2] = specs[2], specs[1]
		}

		r, err := NewRegistry(enginetest.NewGrammar("collide", specs...), nil, "document")
		if err != nil {
			t.Fatalf("%s: NewRegistry: %v", order, err)
		}
		typ, ok := r.ByName("if")
		if !ok || !typ.IsNamed() {
			t.Errorf("%s: ByName(if) = %v/%v, want the named type", order, typ, ok)
		}
	}
}

// Extra properties attach to descriptors by type name.
func TestRegistryExtraProps(t *testing.T) {
	props := map[string]map[string]string{
		"word":  {"tok": "name", "fold": "inside"},
		"space": {"tok": "whitespace"},
	}
	r, err := NewRegistry(enginetest.StandardGrammar(), props, "document")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	word := r.TypeFor(enginetest.TypeWord)
	if v, ok := word.Prop("tok"); !ok || v != "name" {
		t.Errorf(`word Prop("tok") = %q/%v, want name`, v, ok)
	}
	if v, ok := word.Prop("fold"); !ok || v != "inside" {
		t.Errorf(`word Prop("fold") = %q/%v, want inside`, v, ok)
	}
	if v, ok := r.TypeFor(enginetest.TypeSpace).Prop("tok"); !ok || v != "whitespace" {
		t.Errorf(`space Prop("tok") = %q/%v, want whitespace`, v, ok)
	}
	if _, ok := r.TypeFor(enginetest.TypeLine).Prop("tok"); ok {
		t.Error("line carries a prop it was never given")
	}
}

// Configuration problems fail construction with ConfigurationError.
func TestNewRegistryConfigurationErrors(t *testing.T) {
	var confErr *ConfigurationError

	_, err := NewRegistry(nil, nil, "document")
	if !errors.As(err, &confErr) {
		t.Errorf("nil grammar err = %v, want ConfigurationError", err)
	}

	_, err = NewRegistry(enginetest.NewGrammar("empty"), nil, "document")
	if !errors.As(err, &confErr) {
		t.Errorf("empty grammar err = %v, want ConfigurationError", err)
	}

	_, err = NewRegistry(enginetest.StandardGrammar(), nil, "source_file")
	if !errors.As(err, &confErr) {
		t.Fatalf("missing top err = %v, want ConfigurationError", err)
	}
	if confErr.Grammar != "faketok" {
		t.Errorf("error names grammar %q, want faketok", confErr.Grammar)
	}
}
