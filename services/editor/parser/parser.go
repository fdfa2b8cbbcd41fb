// Package parser bridges an incremental parse engine to the editor's own
// syntax trees.
//
// A Parser owns one grammar and one engine.Parser. Each call to Parse hands
// the engine the full document text plus, when possible, an edit descriptor
// derived from the caller's unchanged fragments, and converts the engine's
// native tree into an immutable syntax.Tree. Subtrees of the previous host
// tree that lie outside the changed region are reused by pointer, so
// downstream consumers can cheaply detect which parts of the document
// actually changed.
//
// The Parser retains the most recent host tree strongly; older trees stay
// usable for incremental reuse only as long as the caller keeps them alive.
// Native engine trees are closed automatically once their host tree is
// collected.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

const (
	// DefaultMaxSourceSize is the default limit on document size.
	DefaultMaxSourceSize = 10 * 1024 * 1024 // 10MB

	// warnSourceSize triggers a warning log for large documents.
	warnSourceSize = 1 * 1024 * 1024 // 1MB
)

// Parser converts engine parse results into host syntax trees.
//
// A Parser is safe for concurrent use. Parses are serialized internally
// because the underlying engine parser and the previous-tree bookkeeping
// are single-threaded.
type Parser struct {
	grammar  engine.Grammar
	engine   engine.Parser
	registry *Registry

	cache *parseCache
	assoc *treeAssoc

	maxSourceSize int
	validate      bool
	log           *slog.Logger
	props         map[string]map[string]string

	mu   sync.Mutex
	last *syntax.Tree
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxSourceSize sets the maximum document size in bytes.
// Documents larger than this are rejected with ErrSourceTooLarge.
func WithMaxSourceSize(size int) Option {
	return func(p *Parser) {
		if size > 0 {
			p.maxSourceSize = size
		}
	}
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// WithValidation enables structural validation of every converted tree.
// Validation failures surface as EngineError. Intended for tests and
// debugging; it adds a full tree walk per parse.
func WithValidation() Option {
	return func(p *Parser) {
		p.validate = true
	}
}

// WithTypeProps attaches extra properties to named node types, keyed by
// node type name. Properties are visible through NodeType.Prop and are
// used by consumers such as syntax highlighting.
func WithTypeProps(props map[string]map[string]string) Option {
	return func(p *Parser) {
		p.props = props
	}
}

// New creates a Parser for the given grammar and engine.
//
// topNode names the node type used for the root of every host tree; a
// grammar that does not define it is rejected. The full node type set is
// read from the grammar once, up front, so a misconfigured grammar fails
// here rather than mid-parse.
//
// Returns:
//   - *Parser: Ready to parse documents
//   - error: ConfigurationError if the grammar or engine is unusable
func New(grammar engine.Grammar, eng engine.Parser, topNode string, opts ...Option) (*Parser, error) {
	p := &Parser{
		grammar:       grammar,
		engine:        eng,
		cache:         newParseCache(),
		assoc:         newTreeAssoc(),
		maxSourceSize: DefaultMaxSourceSize,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if eng == nil {
		return nil, &ConfigurationError{
			Grammar: grammarName(grammar),
			Reason:  "no parse engine attached",
		}
	}

	registry, err := NewRegistry(grammar, p.props, topNode)
	if err != nil {
		return nil, err
	}
	p.registry = registry

	return p, nil
}

// Registry returns the node type registry built from the grammar.
func (p *Parser) Registry() *Registry {
	return p.registry
}

// Grammar returns the grammar this parser was built with.
func (p *Parser) Grammar() engine.Grammar {
	return p.grammar
}

// Parse parses text and returns its host syntax tree.
//
// fragments lists the spans of text, in text's own coordinates, whose
// content is unchanged from the previously parsed document. An empty list
// forces a full parse. Fragment positions that merely approximate the real
// edit are fine; the resolver only narrows reuse, never extends it.
//
// spans optionally restricts the parse region. Only the whole document is
// supported: passing a single span equal to [0, text.Len()) behaves like
// passing none, anything else is rejected with RangeError before the
// engine is invoked.
//
// The returned tree is immutable and shared: repeated calls with the same
// Text value return the same tree pointer without touching the engine.
//
// Returns:
//   - *syntax.Tree: Host tree spanning the whole document
//   - error: RangeError, ErrSourceTooLarge, EngineError, or ctx.Err()
func (p *Parser) Parse(ctx context.Context, text *document.Text, fragments []syntax.Fragment, spans ...syntax.Span) (*syntax.Tree, error) {
	if text == nil {
		return nil, fmt.Errorf("parser: nil document text")
	}

	// Reject partial-document requests before doing any work.
	if len(spans) > 0 {
		if spans[0].From != 0 || spans[0].To != text.Len() {
			return nil, &RangeError{From: spans[0].From, To: spans[0].To, DocLen: text.Len()}
		}
		if len(spans) > 1 {
			return nil, &RangeError{From: spans[1].From, To: spans[1].To, DocLen: text.Len()}
		}
	}

	if text.Len() > p.maxSourceSize {
		return nil, fmt.Errorf("source is %d bytes (max %d): %w",
			text.Len(), p.maxSourceSize, ErrSourceTooLarge)
	}
	if text.Len() > warnSourceSize {
		p.log.Warn("parsing large document",
			slog.String("language", p.grammar.Name()),
			slog.Int("bytes", text.Len()))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := startParseSpan(ctx, p.grammar.Name(), text.Len(), len(fragments))
	defer span.End()
	start := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	// A Text already parsed returns its existing tree untouched.
	if tree := p.cache.get(text.ID()); tree != nil {
		setParseSpanResult(span, "cached", convertStats{})
		recordParse(ctx, p.grammar.Name(), "cached", time.Since(start), convertStats{})
		return tree, nil
	}

	tree, stats, mode, err := p.parseLocked(ctx, text, fragments)
	if err != nil {
		recordParseError(ctx, p.grammar.Name(), mode)
		return nil, err
	}

	setParseSpanResult(span, mode, stats)
	recordParse(ctx, p.grammar.Name(), mode, time.Since(start), stats)
	p.log.Debug("parsed document",
		slog.String("language", p.grammar.Name()),
		slog.String("mode", mode),
		slog.Int("bytes", text.Len()),
		slog.Int("nodes_built", stats.built),
		slog.Int("nodes_reused", stats.reused),
		slog.Duration("duration", time.Since(start)))

	return tree, nil
}

// parseLocked runs the engine and converts its result. Caller holds p.mu.
func (p *Parser) parseLocked(ctx context.Context, text *document.Text, fragments []syntax.Fragment) (*syntax.Tree, convertStats, string, error) {
	var ec *editContext
	if p.last != nil {
		if rec, ok := p.assoc.lookup(p.last); ok {
			if c, ok := resolveEdit(fragments, p.last, rec, text.Len()); ok {
				ec = &c
			}
		}
	}

	mode := "full"
	var old engine.Tree
	if ec != nil {
		mode = "incremental"
		// Editing the previous native tree in place is safe: it belongs
		// to a superseded host tree and is never parsed against again.
		ec.prevNative.Edit(ec.inputEdit(text))
		old = ec.prevNative
	}

	native, err := p.engine.Parse(ctx, text.Bytes(), old)

	// An incremental parse that fails or covers the wrong span falls back
	// to a clean full parse before giving up.
	if ec != nil && (err != nil || native == nil || native.Span() != text.Len()) {
		if err == nil && native != nil {
			native.Close()
		}
		p.log.Warn("incremental parse failed, reparsing from scratch",
			slog.String("language", p.grammar.Name()),
			slog.String("edit", ec.edit.String()),
			slog.Any("error", err))
		mode = "fallback"
		ec = nil
		native, err = p.engine.Parse(ctx, text.Bytes(), nil)
	}
	if err != nil {
		return nil, convertStats{}, mode, &EngineError{Stage: mode, Err: err}
	}
	if native == nil {
		return nil, convertStats{}, mode, &EngineError{Stage: mode, Err: fmt.Errorf("engine returned no tree")}
	}
	if got := native.Span(); got != text.Len() {
		native.Close()
		return nil, convertStats{}, mode, &EngineError{Stage: mode, Span: got, Want: text.Len()}
	}

	// Widen the reuse boundary by whatever the engine reports as changed.
	// Reuse outside the widened region is exact, so host nodes there can
	// be shared with the previous tree.
	var zone *reuseZone
	if ec != nil {
		zStart, zEnd := ec.edit.Start, ec.edit.NewEnd
		for _, r := range ec.prevNative.ChangedRanges(native) {
			if r.Start < zStart {
				zStart = r.Start
			}
			if r.End > zEnd {
				zEnd = r.End
			}
		}
		if zStart < 0 {
			zStart = 0
		}
		if zEnd > text.Len() {
			zEnd = text.Len()
		}
		zone = &reuseZone{
			start: zStart,
			end:   zEnd,
			shift: text.Len() - ec.prevLen,
			prev:  ec.prevHost,
		}
	}

	tree, stats := p.convert(native, text.Len(), zone)

	if p.validate {
		if verr := tree.Validate(text.Len()); verr != nil {
			native.Close()
			return nil, stats, mode, &EngineError{Stage: mode, Err: verr}
		}
	}

	p.assoc.record(tree, native, text)
	p.last = tree
	p.cache.put(text, tree)

	return tree, stats, mode, nil
}

func grammarName(g engine.Grammar) string {
	if g == nil {
		return ""
	}
	return g.Name()
}
