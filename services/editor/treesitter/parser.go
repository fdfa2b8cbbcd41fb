package treesitter

import (
	"context"
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
)

// Engine implements engine.Parser over pooled tree-sitter parser
// instances, amortizing the per-parse allocation of the native parser.
// Safe for concurrent use; each Parse leases its own instance.
type Engine struct {
	lang *tree_sitter.Language
	pool sync.Pool
}

// NewEngine builds an Engine for the grammar's language. The grammar must
// outlive the engine.
func NewEngine(g *Grammar) *Engine {
	e := &Engine{lang: g.Language()}
	e.pool = sync.Pool{
		New: func() any {
			p := tree_sitter.NewParser()
			p.SetLanguage(e.lang)
			return p
		},
	}
	return e
}

// Parse implements engine.Parser. With a previous tree given, the native
// parser reuses everything outside the tree's recorded edits.
func (e *Engine) Parse(ctx context.Context, source []byte, old engine.Tree) (engine.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var oldRaw *tree_sitter.Tree
	if old != nil {
		prev, ok := old.(*Tree)
		if !ok {
			return nil, fmt.Errorf("treesitter: previous tree is %T, not a tree-sitter tree", old)
		}
		oldRaw = prev.raw
	}

	p := e.pool.Get().(*tree_sitter.Parser)
	// The language survives Reset, but re-assert it in case the instance
	// was reconfigured elsewhere.
	p.SetLanguage(e.lang)
	defer func() {
		p.Reset()
		e.pool.Put(p)
	}()

	raw := p.Parse(source, oldRaw)
	if raw == nil {
		return nil, fmt.Errorf("treesitter: parser produced no tree")
	}
	return &Tree{raw: raw}, nil
}

var _ engine.Parser = (*Engine)(nil)
