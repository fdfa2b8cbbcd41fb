package parser

import (
	"errors"
	"fmt"
)

// ErrSourceTooLarge is returned when input content exceeds the parser's
// configured maximum source size.
var ErrSourceTooLarge = errors.New("source exceeds maximum size limit")

// ConfigurationError reports a grammar configuration the bridge cannot be
// built on: a missing language, an empty type catalog, or a top node name
// that matches nothing. It is returned by New and is fatal; no parser
// exists afterwards.
type ConfigurationError struct {
	// Grammar is the language name, when known.
	Grammar string

	// Reason describes what made the configuration unusable.
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Grammar == "" {
		return fmt.Sprintf("parser configuration: %s", e.Reason)
	}
	return fmt.Sprintf("parser configuration (%s): %s", e.Grammar, e.Reason)
}

// RangeError reports a parse request over anything other than the whole
// document. The engine has no sub-document parse mode, so such requests
// fail before it is ever invoked. The failure is per-call; no cache state
// is touched.
type RangeError struct {
	// From and To are the requested range.
	From int
	To   int

	// DocLen is the length of the document the request was made against.
	DocLen int
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("parse range [%d,%d) unsupported: only the full document [0,%d) can be parsed",
		e.From, e.To, e.DocLen)
}

// EngineError reports that the engine produced a tree whose span does not
// match the input even after the forced full-reparse fallback, or failed
// outright on that fallback. The failure is per-call; the caller should
// treat the document as currently unparsed and may retry on the next edit.
type EngineError struct {
	// Stage names the attempt that failed: "incremental", "full", or
	// "fallback".
	Stage string

	// Span is the span the engine reported, when a tree was produced.
	Span int

	// Want is the document length the span had to match.
	Want int

	// Err is the underlying engine error, when the engine failed outright.
	Err error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s parse failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("engine %s parse inconsistent: tree spans %d bytes, document has %d",
		e.Stage, e.Span, e.Want)
}

// Unwrap returns the underlying engine error, if any.
func (e *EngineError) Unwrap() error { return e.Err }
