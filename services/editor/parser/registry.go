package parser

import (
	"fmt"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// errorTypeName is the name the engine reserves for error nodes.
const errorTypeName = "ERROR"

// Registry holds the total mapping from engine node type ids to host node
// type descriptors for one grammar. It is built once at parser
// construction and immutable afterwards, so lookups need no locking.
type Registry struct {
	types   []*syntax.NodeType
	byName  map[string]*syntax.NodeType
	top     *syntax.NodeType
	errType *syntax.NodeType
}

// NewRegistry enumerates every node type the grammar declares and builds
// one descriptor per id, applying extraProps (opaque presentation tags,
// keyed by type name) and marking the named type whose name equals
// topNodeName as the top node.
//
// Fails with *ConfigurationError when the grammar is nil or declares no
// types (no attached language), or when no named type matches topNodeName.
func NewRegistry(grammar engine.Grammar, extraProps map[string]map[string]string, topNodeName string) (*Registry, error) {
	if grammar == nil || grammar.TypeCount() == 0 {
		return nil, &ConfigurationError{Reason: "grammar has no attached language"}
	}

	count := grammar.TypeCount()
	r := &Registry{
		types:  make([]*syntax.NodeType, count),
		byName: make(map[string]*syntax.NodeType, count),
	}

	for id := 0; id < count; id++ {
		name := grammar.TypeName(id)
		named := grammar.TypeIsNamed(id)
		isTop := r.top == nil && named && name == topNodeName

		t := syntax.DefineNodeType(syntax.NodeTypeConfig{
			ID:    id,
			Name:  name,
			Named: named,
			Top:   isTop,
			Error: named && name == errorTypeName,
			Props: extraProps[name],
		})
		r.types[id] = t
		if isTop {
			r.top = t
		}
		// Named and anonymous types can share a name; named wins the
		// by-name lookup.
		if prev, ok := r.byName[name]; !ok || (!prev.IsNamed() && named) {
			r.byName[name] = t
		}
	}

	if r.top == nil {
		return nil, &ConfigurationError{
			Grammar: grammar.Name(),
			Reason:  fmt.Sprintf("no node type named %q to use as top node", topNodeName),
		}
	}

	// The engine reports error nodes with an id outside the declared
	// space; give them a descriptor so TypeFor stays total.
	r.errType = syntax.DefineNodeType(syntax.NodeTypeConfig{
		ID:    count,
		Name:  errorTypeName,
		Named: true,
		Error: true,
	})
	if _, ok := r.byName[errorTypeName]; !ok {
		r.byName[errorTypeName] = r.errType
	}

	return r, nil
}

// TypeFor returns the descriptor for an engine type id. Ids outside the
// declared space map to the error descriptor; they come from the same
// engine instance the registry was built against, so anything else there
// is the engine's error sentinel.
func (r *Registry) TypeFor(id int) *syntax.NodeType {
	if id >= 0 && id < len(r.types) {
		return r.types[id]
	}
	return r.errType
}

// ByName returns the descriptor with the given name, preferring named
// types when a named and an anonymous type share one.
func (r *Registry) ByName(name string) (*syntax.NodeType, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Top returns the grammar's designated top node type.
func (r *Registry) Top() *syntax.NodeType { return r.top }

// ErrorType returns the descriptor used for engine error nodes.
func (r *Registry) ErrorType() *syntax.NodeType { return r.errType }

// Len returns the number of declared node types.
func (r *Registry) Len() int { return len(r.types) }
