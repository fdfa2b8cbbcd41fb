// Package highlight derives syntax highlighting and folding information
// from host syntax trees. Node types are tagged with presentation
// properties at parser construction; this package supplies the per-grammar
// property tables and turns tagged trees into styled spans.
package highlight

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// Token classes used in the "tok" property.
const (
	TokString      = "string"
	TokNumber      = "number"
	TokBool        = "bool"
	TokNull        = "null"
	TokKeyword     = "keyword"
	TokName        = "name"
	TokType        = "type"
	TokComment     = "comment"
	TokPunctuation = "punctuation"
	TokEscape      = "escape"
)

// Span is one highlighted region with its token class. Spans from one tree
// are sorted and non-overlapping.
type Span struct {
	From int
	To   int
	Tok  string
}

// jsonProps tags the tree-sitter JSON grammar's node types.
var jsonProps = map[string]map[string]string{
	"string":          {"tok": TokString},
	"number":          {"tok": TokNumber},
	"true":            {"tok": TokBool},
	"false":           {"tok": TokBool},
	"null":            {"tok": TokNull},
	"comment":         {"tok": TokComment},
	"escape_sequence": {"tok": TokEscape},
	"{":               {"tok": TokPunctuation},
	"}":               {"tok": TokPunctuation},
	"[":               {"tok": TokPunctuation},
	"]":               {"tok": TokPunctuation},
	",":               {"tok": TokPunctuation},
	":":               {"tok": TokPunctuation},
	"object":          {"fold": "inside"},
	"array":           {"fold": "inside"},
}

// goProps tags a useful subset of the tree-sitter Go grammar's node types.
var goProps = buildGoProps()

func buildGoProps() map[string]map[string]string {
	props := map[string]map[string]string{
		"comment":                    {"tok": TokComment},
		"interpreted_string_literal": {"tok": TokString},
		"raw_string_literal":         {"tok": TokString},
		"rune_literal":               {"tok": TokString},
		"escape_sequence":            {"tok": TokEscape},
		"int_literal":                {"tok": TokNumber},
		"float_literal":              {"tok": TokNumber},
		"imaginary_literal":          {"tok": TokNumber},
		"iota":                       {"tok": TokNumber},
		"true":                       {"tok": TokBool},
		"false":                      {"tok": TokBool},
		"nil":                        {"tok": TokNull},
		"type_identifier":            {"tok": TokType},
		"field_identifier":           {"tok": TokName},
		"package_identifier":         {"tok": TokName},
	}
	keywords := []string{
		"func", "return", "if", "else", "for", "range", "import", "package",
		"var", "const", "type", "struct", "interface", "map", "chan", "go",
		"defer", "select", "switch", "case", "default", "break", "continue",
		"fallthrough", "goto",
	}
	for _, kw := range keywords {
		props[kw] = map[string]string{"tok": TokKeyword}
	}
	folded := []string{
		"block", "import_spec_list", "literal_value", "interface_type",
		"field_declaration_list", "func_literal",
	}
	for _, name := range folded {
		props[name] = map[string]string{"fold": "inside"}
	}
	return props
}

// PropsFor returns the presentation property table for a bundled grammar,
// suitable for parser.WithTypeProps. Unknown languages get no tags.
func PropsFor(language string) map[string]map[string]string {
	switch language {
	case "json":
		return jsonProps
	case "go":
		return goProps
	}
	return nil
}

// Spans collects the highlighted regions of a tree, outermost tagged node
// first: a tagged container claims its whole range and its children are
// not descended into.
func Spans(tree *syntax.Tree) []Span {
	var spans []Span
	tree.Walk(func(n *syntax.Tree, from int) bool {
		if n.Len() == 0 {
			return false
		}
		if tok, ok := n.Type().Prop("tok"); ok {
			spans = append(spans, Span{From: from, To: from + n.Len(), Tok: tok})
			return false
		}
		return true
	})
	return spans
}

// Foldables returns the collapsible regions of a tree. A node tagged
// fold=inside folds the region between its first and last child (the
// delimiters stay visible); fold=full folds the entire node.
func Foldables(tree *syntax.Tree) []syntax.Span {
	var out []syntax.Span
	tree.Walk(func(n *syntax.Tree, from int) bool {
		mode, ok := n.Type().Prop("fold")
		if !ok {
			return true
		}
		switch mode {
		case "inside":
			if n.NumChildren() >= 2 {
				first, fpos := n.Child(0)
				_, lpos := n.Child(n.NumChildren() - 1)
				inner := syntax.Span{From: from + fpos + first.Len(), To: from + lpos}
				if inner.From < inner.To {
					out = append(out, inner)
				}
			}
		case "full":
			if n.Len() > 0 {
				out = append(out, syntax.Span{From: from, To: from + n.Len()})
			}
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Token class styles.
var (
	stringStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	numberStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	boolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("183"))
	keywordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	typeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("80"))
	commentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	punctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	escapeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
)

var tokStyles = map[string]lipgloss.Style{
	TokString:      stringStyle,
	TokNumber:      numberStyle,
	TokBool:        boolStyle,
	TokNull:        boolStyle,
	TokKeyword:     keywordStyle,
	TokName:        nameStyle,
	TokType:        typeStyle,
	TokComment:     commentStyle,
	TokPunctuation: punctStyle,
	TokEscape:      escapeStyle,
}

// Renderer writes source text with its highlight spans styled for a
// terminal.
type Renderer struct {
	color bool
}

// NewRenderer returns a Renderer. With color false the output is the
// source text unchanged.
func NewRenderer(color bool) *Renderer {
	return &Renderer{color: color}
}

// Render interleaves unstyled gaps with styled spans. Spans must be sorted
// and non-overlapping, as produced by Spans.
func (r *Renderer) Render(src []byte, spans []Span) string {
	if !r.color {
		return string(src)
	}
	var b strings.Builder
	at := 0
	for _, s := range spans {
		if s.From < at || s.To > len(src) {
			continue
		}
		b.Write(src[at:s.From])
		style, ok := tokStyles[s.Tok]
		if !ok {
			b.Write(src[s.From:s.To])
		} else {
			b.WriteString(style.Render(string(src[s.From:s.To])))
		}
		at = s.To
	}
	b.Write(src[at:])
	return b.String()
}
