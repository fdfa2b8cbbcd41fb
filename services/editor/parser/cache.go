package parser

import (
	"runtime"
	"sync"
	"weak"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// parseCache memoizes host trees against the text identity that produced
// them. Both sides are weakly held: the cache never keeps a Text or a Tree
// alive beyond the host editor's own references. Entries disappear when
// the text is collected (via cleanup) or when the tree is collected (the
// weak pointer goes nil and get prunes the entry).
//
// The mutex protects map structure only; single-writer-per-document is the
// host's contract, but distinct documents may be parsed concurrently.
type parseCache struct {
	mu      sync.Mutex
	entries map[uint64]weak.Pointer[syntax.Tree]
}

func newParseCache() *parseCache {
	return &parseCache{entries: make(map[uint64]weak.Pointer[syntax.Tree])}
}

// get returns the tree cached for a text identity, or nil.
func (c *parseCache) get(textID uint64) *syntax.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	wp, ok := c.entries[textID]
	if !ok {
		return nil
	}
	tree := wp.Value()
	if tree == nil {
		delete(c.entries, textID)
	}
	return tree
}

// put stores the tree under the text's identity and arranges for the entry
// to vanish once the text itself is unreachable.
func (c *parseCache) put(text *document.Text, tree *syntax.Tree) {
	id := text.ID()
	c.mu.Lock()
	c.entries[id] = weak.Make(tree)
	c.mu.Unlock()
	runtime.AddCleanup(text, func(staleID uint64) { c.remove(staleID) }, id)
}

func (c *parseCache) remove(textID uint64) {
	c.mu.Lock()
	delete(c.entries, textID)
	c.mu.Unlock()
}

// len reports the number of live entries, pruning dead ones. Used by
// tests and debug logging.
func (c *parseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, wp := range c.entries {
		if wp.Value() == nil {
			delete(c.entries, id)
		}
	}
	return len(c.entries)
}

// nativeRecord is what the bridge keeps alongside a host tree to make a
// later incremental call possible: the engine tree and enough of the
// originating text (length and line index, not the content) to express an
// edit against it in byte and point coordinates.
type nativeRecord struct {
	native engine.Tree
	srcLen int
	lines  []int
}

// treeAssoc is the side table associating a host tree with its native
// record. Keys are weak: a host tree the editor no longer references drops
// its record, and the cleanup closes the engine tree. Host tree nodes stay
// plain data; nothing engine-related is embedded in them.
type treeAssoc struct {
	mu      sync.Mutex
	records map[weak.Pointer[syntax.Tree]]nativeRecord
}

func newTreeAssoc() *treeAssoc {
	return &treeAssoc{records: make(map[weak.Pointer[syntax.Tree]]nativeRecord)}
}

// record associates host with its native tree and originating text shape.
func (a *treeAssoc) record(host *syntax.Tree, native engine.Tree, text *document.Text) {
	key := weak.Make(host)
	a.mu.Lock()
	if prev, ok := a.records[key]; ok && prev.native != native {
		prev.native.Close()
	}
	a.records[key] = nativeRecord{
		native: native,
		srcLen: text.Len(),
		lines:  text.LineStarts(),
	}
	a.mu.Unlock()
	runtime.AddCleanup(host, func(staleKey weak.Pointer[syntax.Tree]) { a.release(staleKey) }, key)
}

// lookup returns the native record for a host tree, if one is still held.
func (a *treeAssoc) lookup(host *syntax.Tree) (nativeRecord, bool) {
	key := weak.Make(host)
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.records[key]
	return rec, ok
}

func (a *treeAssoc) release(key weak.Pointer[syntax.Tree]) {
	a.mu.Lock()
	rec, ok := a.records[key]
	if ok {
		delete(a.records, key)
	}
	a.mu.Unlock()
	if ok {
		rec.native.Close()
	}
}

// len reports the number of held records. Used by tests.
func (a *treeAssoc) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}
