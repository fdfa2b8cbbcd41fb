// Package syntax implements the host editor's tree representation.
//
// Trees produced by the parse bridge are immutable. Each node stores its
// children's start offsets RELATIVE to its own start, so a subtree carries
// no absolute position of its own. That is the property incremental
// reparsing relies on: a subtree for unchanged content can be attached
// under a new parent at a shifted absolute position without rewriting a
// single node. Absolute offsets are materialized during traversal by a
// Cursor or Walk.
//
// Design principles:
//   - Nodes are plain data: type, length, ordered children. No parent
//     pointers, no back references into the parsing engine
//   - Child ranges are ordered and non-overlapping and lie inside the
//     parent; the root covers the whole document
//   - Node types are interned descriptors built once per grammar and
//     compared by pointer
package syntax

// NodeType describes one node type of a language. Descriptors are built
// once per grammar by the parser's registry and are immutable; two nodes
// have the same type exactly when they hold the same *NodeType.
type NodeType struct {
	id    int
	name  string
	named bool
	top   bool
	err   bool
	props map[string]string
}

// NodeTypeConfig carries the inputs for DefineNodeType.
type NodeTypeConfig struct {
	// ID is the engine's type id for this node type.
	ID int

	// Name is the declared type name.
	Name string

	// Named marks named rule types as opposed to anonymous literal tokens.
	Named bool

	// Top marks the grammar's designated top-level type.
	Top bool

	// Error marks the engine's error node type.
	Error bool

	// Props carries opaque presentation tags (e.g. highlight categories)
	// attached by configuration. May be nil.
	Props map[string]string
}

// DefineNodeType builds an immutable node type descriptor. The props map
// is copied.
func DefineNodeType(cfg NodeTypeConfig) *NodeType {
	t := &NodeType{
		id:    cfg.ID,
		name:  cfg.Name,
		named: cfg.Named,
		top:   cfg.Top,
		err:   cfg.Error,
	}
	if len(cfg.Props) > 0 {
		t.props = make(map[string]string, len(cfg.Props))
		for k, v := range cfg.Props {
			t.props[k] = v
		}
	}
	return t
}

// ID returns the engine type id this descriptor was built for.
func (t *NodeType) ID() int { return t.id }

// Name returns the declared type name.
func (t *NodeType) Name() string { return t.name }

// IsNamed reports whether this is a named rule type.
func (t *NodeType) IsNamed() bool { return t.named }

// IsTop reports whether this is the grammar's top-level type.
func (t *NodeType) IsTop() bool { return t.top }

// IsError reports whether this is the engine's error node type.
func (t *NodeType) IsError() bool { return t.err }

// Prop returns the presentation tag stored under key, if any.
func (t *NodeType) Prop(key string) (string, bool) {
	v, ok := t.props[key]
	return v, ok
}

// String returns the type name.
func (t *NodeType) String() string { return t.name }

// Span is a half-open byte range [From, To).
type Span struct {
	From int
	To   int
}

// Len returns the span length.
func (s Span) Len() int { return s.To - s.From }

// Fragment is a host editor hint that the byte range [From, To) of the
// document, expressed in NEW document coordinates, holds content that was
// not touched by the most recent change and whose previous tree structure
// is therefore still valid.
type Fragment struct {
	From int
	To   int
}

// CommonFragments derives reuse fragments for a transition from old to new
// document content: one fragment for the longest common prefix and one for
// the longest common suffix, both in new coordinates. The suffix is capped
// so the two fragments never overlap. Callers that know the actual change
// regions (an editor with real change sets, a diff) should construct
// fragments from those instead; this is the fallback for hosts that only
// have the two text versions.
func CommonFragments(old, new []byte) []Fragment {
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}

	maxSuffix := min(len(old), len(new)) - prefix
	suffix := 0
	for suffix < maxSuffix && old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}

	var frags []Fragment
	if prefix > 0 {
		frags = append(frags, Fragment{From: 0, To: prefix})
	}
	if suffix > 0 {
		frags = append(frags, Fragment{From: len(new) - suffix, To: len(new)})
	}
	return frags
}
